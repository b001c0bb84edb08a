package chat

import (
	"shopchat/internal/session"
	"shopchat/internal/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// sendResultMsg carries the outcome of a send back to the update loop.
type sendResultMsg struct {
	result session.Result
}

// storeChangedMsg reports that the store committed a change, possibly from
// another process via the file watcher.
type storeChangedMsg struct{}

func (m Model) sendCmd(req types.ChatRequest) tea.Cmd {
	ctx, sender := m.ctx, m.sender
	return func() tea.Msg {
		return sendResultMsg{result: sender.Send(ctx, req)}
	}
}

func (m Model) waitForChange() tea.Cmd {
	ctx, updates := m.ctx, m.updates
	return func() tea.Msg {
		select {
		case <-updates:
			return storeChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sendResultMsg:
		m.loading = false
		m.notices = append(m.notices, msg.result.Notices...)
		if msg.result.Err != nil {
			m.logger.Debug("send finished with error", zap.Error(msg.result.Err))
		}
		m.syncMessages()
		return m, nil

	case storeChangedMsg:
		m.syncMessages()
		return m, m.waitForChange()

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if width != m.width {
		// Cached replies were wrapped for the old width
		m.cache.Clear()
	}
	m.width = width
	m.height = height
	m.ready = true

	vpHeight := height - headerHeight - footerHeight - statusHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight

	fieldWidth := width - 6
	if fieldWidth < 10 {
		fieldWidth = 10
	}
	m.input.Width = fieldWidth
	m.customer.Width = fieldWidth
	m.help.Width = width

	m.renderer = m.newRenderer(width)
	m.refreshViewport()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	// A notice blocks everything until acknowledged
	if len(m.notices) > 0 {
		if key.Matches(msg, m.keys.Dismiss) {
			m.notices = m.notices[1:]
		}
		return m, nil
	}

	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.confirming = false
			m.controller.ClearConversation(m.ctx, func(string) bool { return true })
			m.syncMessages()
		case key.Matches(msg, m.keys.No):
			m.confirming = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Focus):
		return m, m.toggleFocus()

	case key.Matches(msg, m.keys.Clear):
		m.confirming = true
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.focus == focusCustomer {
		m.controller.SetCustomerID(m.customer.Value())
		return m, m.toggleFocus()
	}
	if m.loading || m.controller.SubmitDisabled() {
		return m, nil
	}

	m.controller.SetCustomerID(m.customer.Value())
	m.controller.SetText(m.input.Value())
	req, ok := m.controller.Prepare(m.ctx)
	if !ok {
		return m, nil
	}

	m.input.Reset()
	m.loading = true
	m.syncMessages()
	return m, tea.Batch(m.sendCmd(req), m.spinner.Tick)
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusMessage {
		m.focus = focusCustomer
		m.input.Blur()
		return m.customer.Focus()
	}
	m.controller.SetCustomerID(m.customer.Value())
	m.focus = focusMessage
	m.customer.Blur()
	return m.input.Focus()
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusCustomer {
		m.customer, cmd = m.customer.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}
