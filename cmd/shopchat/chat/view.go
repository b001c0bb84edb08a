package chat

import (
	"fmt"
	"strings"

	"shopchat/cmd/shopchat/ui"
	"shopchat/internal/session"
	"shopchat/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// messageRenderer turns a message sequence into the list shown in the viewport.
type messageRenderer struct {
	styles   ui.Styles
	markdown *glamour.TermRenderer
	cache    *ui.RenderCache // optional
	width    int
}

// render produces one block per message, in sequence order.
func (r messageRenderer) render(messages []types.Message) string {
	if len(messages) == 0 {
		return r.styles.Muted.Render("No messages yet. Say hello!")
	}

	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleUser:
			label := r.styles.UserLabel.Render("You")
			body := r.styles.UserMessage.Render(msg.Message)
			sb.WriteString(r.alignRight(label) + "\n")
			sb.WriteString(r.alignRight(body))
			sb.WriteString("\n")

		default: // assistant
			sb.WriteString(r.styles.AssistantLabel.Render("Assistant") + "\n")
			sb.WriteString(r.styles.AssistantReply.Render(r.renderReply(msg.Message)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (r messageRenderer) alignRight(s string) string {
	if r.width <= 0 {
		return s
	}
	return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, s)
}

// renderReply renders assistant text, reusing earlier renders of the same
// text at the same width.
func (r messageRenderer) renderReply(content string) string {
	if r.markdown == nil || r.cache == nil {
		return r.safeRenderMarkdown(content)
	}
	key := ui.ComputeKey(content, r.width, r.styles.Theme.IsDark)
	return r.cache.GetOrCompute(key, func() string {
		return r.safeRenderMarkdown(content)
	})
}

// safeRenderMarkdown renders markdown with panic recovery
func (r messageRenderer) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if r.markdown != nil && content != "" {
		rendered, err := r.markdown.Render(content)
		if err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	return content
}

// View renders the screen.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	switch {
	case len(m.notices) > 0:
		sb.WriteString(m.overlay(m.styles.Notice.Render(string(m.notices[0]) + "\n\n" +
			m.styles.Muted.Render("press enter to continue"))))
	case m.confirming:
		sb.WriteString(m.overlay(m.styles.Confirm.Render(session.ClearPrompt + "\n\n" +
			m.styles.Muted.Render("y / n"))))
	default:
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")

	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.fieldStyle(focusCustomer).Render(m.customer.View()))
	sb.WriteString("\n")
	sb.WriteString(m.fieldStyle(focusMessage).Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))

	return sb.String()
}

func (m Model) renderHeader() string {
	title := "shopchat"
	if m.baseURL != "" {
		title += " · " + m.baseURL
	}
	if id := m.store.ConversationID(); id != "" {
		title += " · " + shortID(id)
	}
	return m.styles.Header.Width(m.width).Render(title) + "\n" + m.styles.RenderDivider(m.width)
}

func (m Model) renderStatus() string {
	if m.loading {
		return m.spinner.View() + " " + m.styles.Muted.Render("Waiting for reply...")
	}
	return m.styles.Muted.Render(fmt.Sprintf("%d messages", len(m.messages)))
}

func (m Model) fieldStyle(f focusField) lipgloss.Style {
	if m.focus == f {
		return m.styles.FocusedField
	}
	return m.styles.BlurredField
}

// overlay centers a box in the message list area.
func (m Model) overlay(box string) string {
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
