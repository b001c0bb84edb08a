package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"shopchat/internal/transport"
	"shopchat/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func decodeJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Errorf("decode request: %v", err)
	}
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestSubmit_HelloRoundTrip(t *testing.T) {
	h := newHTTPHarness(t, http.StatusOK, `{"response":"Hi there"}`)
	h.controller.SetText("Hello")

	res, submitted := h.controller.Submit(context.Background())
	require.True(t, submitted)
	require.NoError(t, res.Err)

	want := []types.Message{
		{Role: types.RoleUser, Message: "Hello"},
		{Role: types.RoleAssistant, Message: "Hi there"},
	}
	if diff := cmp.Diff(want, h.store.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}

	// The backend saw the full sequence including the user message
	reqs := h.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []types.Message{types.UserMessage("Hello")}, reqs[0].Messages)
	assert.Equal(t, "test-conv", reqs[0].ConversationID)
	assert.NotNil(t, reqs[0].Metadata)

	assert.Equal(t, []bool{true, false}, h.loading)
	assert.False(t, h.sender.Loading())
	assert.Empty(t, h.controller.Text())
	assert.Empty(t, h.notifier.All())
}

func TestSubmit_ServerError(t *testing.T) {
	h := newHTTPHarness(t, http.StatusInternalServerError, `{"response":"internal error"}`)
	h.controller.SetText("Hello")

	res, submitted := h.controller.Submit(context.Background())
	require.True(t, submitted)

	assert.ErrorIs(t, res.Err, transport.ErrServerError)
	assert.False(t, res.Appended())
	assert.Equal(t, []Notice{NoticeServerFailure}, h.notifier.All())
	assert.Equal(t, []types.Message{types.UserMessage("Hello")}, h.store.Messages())
	assert.Equal(t, []bool{true, false}, h.loading)
}

func TestSubmit_RequiresCustomerID(t *testing.T) {
	h := newHTTPHarness(t, http.StatusOK, `{"requires_customer_id":true}`)
	h.controller.SetText("Where is my order?")

	res, _ := h.controller.Submit(context.Background())

	assert.NoError(t, res.Err)
	assert.Equal(t, []Notice{NoticeCustomerIDRequired}, h.notifier.All())
	assert.Len(t, h.store.Messages(), 1)
	assert.False(t, h.sender.Loading())
}

func TestSubmit_RequiresCustomerIDStillAppliesReply(t *testing.T) {
	h := newHTTPHarness(t, http.StatusOK, `{"requires_customer_id":true,"response":"Which account?"}`)
	h.controller.SetText("Where is my order?")

	res, _ := h.controller.Submit(context.Background())

	assert.True(t, res.Appended())
	assert.Equal(t, []Notice{NoticeCustomerIDRequired}, res.Notices)
	assert.Equal(t, types.AssistantMessage("Which account?"), h.store.Messages()[1])
}

func TestSubmit_ClientErrorStatus(t *testing.T) {
	h := newHTTPHarness(t, http.StatusUnprocessableEntity, `{"response":"nope","requires_customer_id":true}`)
	h.controller.SetText("hi")

	res, _ := h.controller.Submit(context.Background())

	assert.ErrorIs(t, res.Err, transport.ErrUnexpectedStatus)
	assert.False(t, res.Appended())
	assert.Equal(t, []Notice{NoticeRequestFailed, NoticeCustomerIDRequired}, h.notifier.All())
	assert.Len(t, h.store.Messages(), 1)
}

func TestSubmit_CustomerIDForwarded(t *testing.T) {
	h := newHTTPHarness(t, http.StatusOK, `{"response":"ok"}`)
	h.controller.SetCustomerID("  CUST-42 ")
	h.controller.SetText("status")

	h.controller.Submit(context.Background())

	reqs := h.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "CUST-42", reqs[0].CustomerID)
}

// =============================================================================
// SENDER
// =============================================================================

func TestSend_NetworkFailureIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	client := &MockChatClient{
		ChatFunc: func(context.Context, types.ChatRequest) (*types.ChatResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := newMockHarness(client)
	h.sender.SetLogger(zap.New(core))

	res := h.sender.Send(context.Background(), types.ChatRequest{})

	assert.Error(t, res.Err)
	assert.Empty(t, res.Notices)
	assert.Empty(t, h.notifier.All())
	assert.Empty(t, h.store.Messages())
	assert.False(t, h.sender.Loading())
	assert.Equal(t, 1, logs.FilterMessage("chat request failed").Len())
}

func TestSend_LoadingTrueDuringCall(t *testing.T) {
	var h *harness
	var during bool
	client := &MockChatClient{
		ChatFunc: func(context.Context, types.ChatRequest) (*types.ChatResponse, error) {
			during = h.sender.Loading()
			return &types.ChatResponse{Response: "ok"}, nil
		},
	}
	h = newMockHarness(client)

	h.sender.Send(context.Background(), types.ChatRequest{})
	assert.True(t, during)
	assert.False(t, h.sender.Loading())
}

func TestSend_NilResponse(t *testing.T) {
	h := newMockHarness(&MockChatClient{
		ChatFunc: func(context.Context, types.ChatRequest) (*types.ChatResponse, error) {
			return nil, nil
		},
	})

	res := h.sender.Send(context.Background(), types.ChatRequest{})
	assert.ErrorIs(t, res.Err, transport.ErrDecode)
	assert.Empty(t, h.store.Messages())
}

func TestSend_ConcurrentSendRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	client := &MockChatClient{
		ChatFunc: func(context.Context, types.ChatRequest) (*types.ChatResponse, error) {
			once.Do(func() { close(started) })
			<-release
			return &types.ChatResponse{Response: "first"}, nil
		},
	}
	h := newMockHarness(client)

	done := make(chan Result, 1)
	go func() { done <- h.sender.Send(context.Background(), types.ChatRequest{}) }()
	<-started

	second := h.sender.Send(context.Background(), types.ChatRequest{})
	assert.ErrorIs(t, second.Err, ErrSendInFlight)
	assert.True(t, h.sender.Loading())

	close(release)
	select {
	case first := <-done:
		assert.Equal(t, "first", first.Reply)
	case <-time.After(5 * time.Second):
		t.Fatal("first send did not finish")
	}

	assert.Len(t, client.Requests(), 1)
	assert.Equal(t, []types.Message{types.AssistantMessage("first")}, h.store.Messages())

	// The guard is released afterwards; release is closed so this returns at once
	third := h.sender.Send(context.Background(), types.ChatRequest{})
	assert.NoError(t, third.Err)
	assert.Len(t, client.Requests(), 2)
}

func TestNotifierFunc(t *testing.T) {
	var got Notice
	NotifierFunc(func(n Notice) { got = n }).Notify(NoticeServerFailure)
	assert.Equal(t, NoticeServerFailure, got)
}
