package ui

import (
	"strings"
	"testing"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("SHOPCHAT_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when SHOPCHAT_DARK_MODE=1")
	}

	t.Setenv("SHOPCHAT_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when SHOPCHAT_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for COLORFGBG=15;0")
	}
}

func TestThemeByName(t *testing.T) {
	if !ThemeByName("Dark").IsDark {
		t.Error("dark should resolve to the dark theme")
	}
	if ThemeByName("light").IsDark {
		t.Error("light should resolve to the light theme")
	}
}

func TestRenderDivider(t *testing.T) {
	s := NewStyles(LightTheme())
	if got := s.RenderDivider(0); got != "" {
		t.Errorf("expected empty divider, got %q", got)
	}
	if got := s.RenderDivider(5); !strings.Contains(got, "─────") {
		t.Errorf("divider missing rule characters: %q", got)
	}
}
