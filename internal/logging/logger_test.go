package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitializeWritesCategoryLogs checks that debug mode writes named entries to the log file.
func TestInitializeWritesCategoryLogs(t *testing.T) {
	t.Cleanup(Reset)
	path := filepath.Join(t.TempDir(), "logs", "shopchat.log")

	logger, err := Initialize(Config{Level: "debug", Format: "json", File: path, DebugMode: true})
	require.NoError(t, err)

	Get(CategoryStore).Info("append committed")
	Get(CategoryTransport).Debug("POST /chat")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"logger":"store"`)
	assert.Contains(t, content, "append committed")
	assert.Contains(t, content, `"logger":"transport"`)
}

// TestProductionModeSuppressesInfo verifies that debug_mode=false clamps to warn.
func TestProductionModeSuppressesInfo(t *testing.T) {
	t.Cleanup(Reset)
	path := filepath.Join(t.TempDir(), "shopchat.log")

	logger, err := Initialize(Config{Level: "debug", File: path, DebugMode: false})
	require.NoError(t, err)

	Get(CategorySession).Info("hidden")
	Get(CategorySession).Warn("visible")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestDisabledCategoryIsNoop(t *testing.T) {
	t.Cleanup(Reset)
	path := filepath.Join(t.TempDir(), "shopchat.log")

	logger, err := Initialize(Config{
		Level:      "info",
		File:       path,
		DebugMode:  true,
		Categories: map[string]bool{"ui": false},
	})
	require.NoError(t, err)

	assert.False(t, IsCategoryEnabled(CategoryUI))
	assert.True(t, IsCategoryEnabled(CategoryBoot))

	Get(CategoryUI).Error("should not appear")
	Get(CategoryBoot).Info("boot line")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "should not appear"))
	assert.Contains(t, string(data), "boot line")
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestGetBeforeInitializeIsSafe(t *testing.T) {
	Reset()
	assert.NotPanics(t, func() {
		Get(CategoryStorage).Error("nobody listening")
	})
}
