// Package chat implements the interactive terminal chat.
// The Model is a bubbletea program over a conversation store: a message list
// that follows the newest message, an input line, a customer id field, a
// spinner while a send is outstanding, and modal notices.
package chat

import (
	"context"
	"slices"

	"shopchat/cmd/shopchat/ui"
	"shopchat/internal/conversation"
	"shopchat/internal/logging"
	"shopchat/internal/session"
	"shopchat/internal/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

const (
	headerHeight = 2 // title plus divider
	footerHeight = 1
	statusHeight = 1
	fieldHeight  = 3 // one line plus a rounded border
	inputHeight  = 2 * fieldHeight

	defaultWidth  = 80
	defaultHeight = 24
)

type focusField int

const (
	focusMessage focusField = iota
	focusCustomer
)

// Options configures a Model.
type Options struct {
	Store      *conversation.Store
	Sender     *session.Sender
	Controller *session.Controller
	Styles     ui.Styles
	Markdown   bool
	BaseURL    string
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	ctx        context.Context
	store      *conversation.Store
	sender     *session.Sender
	controller *session.Controller
	logger     *zap.Logger

	input    textinput.Model
	customer textinput.Model
	focus    focusField
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	styles   ui.Styles
	renderer *glamour.TermRenderer
	cache    *ui.RenderCache
	markdown bool
	baseURL  string

	messages   []types.Message
	loading    bool
	notices    []session.Notice
	confirming bool

	width  int
	height int
	ready  bool

	updates     chan struct{}
	unsubscribe func()
}

// NewModel builds the chat model. The store should already be loaded.
func NewModel(ctx context.Context, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter..."
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	customer := textinput.New()
	customer.Placeholder = "Customer ID (optional)"
	customer.Prompt = "id: "
	customer.CharLimit = 128
	customer.SetValue(opts.Controller.CustomerID())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Spinner

	m := Model{
		ctx:        ctx,
		store:      opts.Store,
		sender:     opts.Sender,
		controller: opts.Controller,
		logger:     logging.Get(logging.CategoryUI),
		input:      input,
		customer:   customer,
		viewport:   viewport.New(defaultWidth, defaultHeight-headerHeight-footerHeight-statusHeight-inputHeight),
		spinner:    sp,
		help:       help.New(),
		keys:       defaultKeyMap(),
		styles:     opts.Styles,
		cache:      ui.NewRenderCache(256),
		markdown:   opts.Markdown,
		baseURL:    opts.BaseURL,
		width:      defaultWidth,
		height:     defaultHeight,
		updates:    make(chan struct{}, 1),
	}
	m.renderer = m.newRenderer(defaultWidth)

	// Coalesce change notifications; the model re-reads the store anyway.
	updates := m.updates
	m.unsubscribe = opts.Store.Subscribe(func(types.ConversationState) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	m.syncMessages()
	return m
}

// Init starts the cursor blink and the store change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// Close detaches the model from the store.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	hits, misses := m.cache.Stats()
	m.logger.Debug("chat closed", zap.Int("render_cache_hits", hits), zap.Int("render_cache_misses", misses))
}

func (m Model) newRenderer(width int) *glamour.TermRenderer {
	if !m.markdown {
		return nil
	}
	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		return nil
	}
	return r
}

// syncMessages pulls the store's messages and re-renders the list when the
// sequence changed, scrolling to the newest message.
func (m *Model) syncMessages() {
	msgs := m.store.Messages()
	if m.messages != nil && slices.Equal(msgs, m.messages) {
		return
	}
	m.messages = msgs
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	r := messageRenderer{styles: m.styles, markdown: m.renderer, cache: m.cache, width: m.viewport.Width}
	m.viewport.SetContent(r.render(m.messages))
	m.viewport.GotoBottom()
}
