package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"shopchat/internal/conversation"
	"shopchat/internal/storage"
	"shopchat/internal/transport"
	"shopchat/internal/types"
)

// MockChatClient implements ChatClient for testing.
type MockChatClient struct {
	mu       sync.Mutex
	requests []types.ChatRequest

	ChatFunc func(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
}

func (m *MockChatClient) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return &types.ChatResponse{}, nil
}

func (m *MockChatClient) Requests() []types.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ChatRequest(nil), m.requests...)
}

// recordingNotifier collects notices.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// harness wires a store, sender and controller over a mock backend.
type harness struct {
	store      *conversation.Store
	sender     *Sender
	controller *Controller
	notifier   *recordingNotifier
	loading    []bool

	mu       sync.Mutex
	requests []types.ChatRequest
}

// Requests returns what the backend received.
func (h *harness) Requests() []types.ChatRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]types.ChatRequest(nil), h.requests...)
}

// newHTTPHarness runs the full stack against an httptest backend answering
// every /chat with status and body.
func newHTTPHarness(t *testing.T, status int, body string) *harness {
	t.Helper()
	h := &harness{notifier: &recordingNotifier{}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		decodeJSON(t, r, &req)
		h.mu.Lock()
		h.requests = append(h.requests, req)
		h.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	client := transport.NewClientWithHTTP(transport.Config{BaseURL: server.URL}, server.Client())
	t.Cleanup(func() {
		client.CloseIdleConnections()
		server.Close()
	})

	h.store = conversation.NewStore(storage.NewMemoryStorage(), conversation.WithConversationID("test-conv"))
	h.sender = NewSender(client, h.store, h.notifier)
	h.sender.OnLoading(func(v bool) { h.loading = append(h.loading, v) })
	h.controller = NewController(h.store, h.sender, "")
	return h
}

func newMockHarness(client *MockChatClient) *harness {
	h := &harness{notifier: &recordingNotifier{}}
	h.store = conversation.NewStore(storage.NewMemoryStorage())
	h.sender = NewSender(client, h.store, h.notifier)
	h.controller = NewController(h.store, h.sender, "")
	return h
}
