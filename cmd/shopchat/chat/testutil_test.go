package chat

import (
	"context"
	"sync"
	"testing"

	"shopchat/cmd/shopchat/ui"
	"shopchat/internal/conversation"
	"shopchat/internal/session"
	"shopchat/internal/storage"
	"shopchat/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeBackend implements session.ChatClient for UI tests.
type fakeBackend struct {
	mu       sync.Mutex
	requests []types.ChatRequest
	reply    func(types.ChatRequest) (*types.ChatResponse, error)
}

func (f *fakeBackend) Chat(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(req)
	}
	return &types.ChatResponse{Response: "ok"}, nil
}

func (f *fakeBackend) Requests() []types.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ChatRequest(nil), f.requests...)
}

// TestModelOption customizes NewTestModel.
type TestModelOption func(*Options)

func withMarkdown() TestModelOption {
	return func(o *Options) { o.Markdown = true }
}

// NewTestModel builds a model over an in-memory store, sized 100x40.
func NewTestModel(t *testing.T, backend session.ChatClient, opts ...TestModelOption) (Model, *conversation.Store) {
	t.Helper()
	store := conversation.NewStore(storage.NewMemoryStorage())
	sender := session.NewSender(backend, store, nil)
	o := Options{
		Store:      store,
		Sender:     sender,
		Controller: session.NewController(store, sender, ""),
		Styles:     ui.NewStyles(ui.LightTheme()),
		BaseURL:    "http://test",
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := NewModel(context.Background(), o)
	t.Cleanup(m.Close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model), store
}

func typeText(m Model, s string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func pressRune(m Model, r rune) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return next.(Model)
}

// runSend executes cmd, unpacking batches, until the send result appears.
func runSend(t *testing.T, cmd tea.Cmd) sendResultMsg {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case sendResultMsg:
			return msg
		}
	}
	t.Fatal("command did not produce a send result")
	return sendResultMsg{}
}
