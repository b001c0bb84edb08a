// Package session drives a single chat exchange: it owns the in-flight flag,
// turns backend outcomes into user notices, and commits replies to the
// conversation store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"shopchat/internal/conversation"
	"shopchat/internal/logging"
	"shopchat/internal/transport"
	"shopchat/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrSendInFlight is reported when Send is called while another send is outstanding.
var ErrSendInFlight = errors.New("a message is already being sent")

// ChatClient is the slice of transport.Client the sender needs.
type ChatClient interface {
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
}

// Notice is a user-facing message that must be acknowledged.
type Notice string

const (
	NoticeServerFailure      Notice = "Something went wrong"
	NoticeCustomerIDRequired Notice = "Please provide your customer id"
	NoticeRequestFailed      Notice = "The chat service could not handle your message"
)

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

// Result describes how a send ended. Err is informational only: it has
// already been logged and any notice has already been raised.
type Result struct {
	Reply   string
	Notices []Notice
	Err     error
}

// Appended reports whether the send committed an assistant message.
func (r Result) Appended() bool {
	return r.Reply != ""
}

// Sender posts the conversation to the backend and applies the outcome.
// At most one send is outstanding at a time; extra calls are rejected.
type Sender struct {
	client   ChatClient
	store    *conversation.Store
	notifier Notifier
	logger   *zap.Logger

	guard   *semaphore.Weighted
	loading atomic.Bool

	obsMu     sync.Mutex
	observers []func(bool)
}

// NewSender creates a sender. A nil notifier drops notices; they are still
// reported in each Result.
func NewSender(client ChatClient, store *conversation.Store, notifier Notifier) *Sender {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Sender{
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   logging.Get(logging.CategorySession),
		guard:    semaphore.NewWeighted(1),
	}
}

// SetLogger replaces the sender logger.
func (s *Sender) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Loading reports whether a send is outstanding.
func (s *Sender) Loading() bool {
	return s.loading.Load()
}

// OnLoading registers fn to be called with every in-flight transition.
func (s *Sender) OnLoading(fn func(bool)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Sender) setLoading(v bool) {
	s.loading.Store(v)
	s.obsMu.Lock()
	fns := append([]func(bool){}, s.observers...)
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Send posts req and applies the outcome:
//   - a reply is appended to the store as an assistant message
//   - requires_customer_id raises NoticeCustomerIDRequired, and any reply is still applied
//   - 5xx raises NoticeServerFailure and appends nothing
//   - other non-2xx raise NoticeRequestFailed and append nothing
//   - network and decode failures are logged only
//
// The in-flight flag is true for the duration of the call and false again on every exit.
func (s *Sender) Send(ctx context.Context, req types.ChatRequest) Result {
	if !s.guard.TryAcquire(1) {
		s.logger.Warn("send rejected", zap.Error(ErrSendInFlight))
		return Result{Err: ErrSendInFlight}
	}
	defer s.guard.Release(1)

	s.setLoading(true)
	defer s.setLoading(false)

	s.logger.Debug("sending conversation",
		zap.Int("messages", len(req.Messages)),
		zap.String("conversation_id", req.ConversationID))

	resp, err := s.client.Chat(ctx, req)
	return s.apply(ctx, resp, err)
}

func (s *Sender) apply(ctx context.Context, resp *types.ChatResponse, err error) Result {
	var res Result

	if err != nil {
		res.Err = err
		var se *transport.StatusError
		switch {
		case errors.Is(err, transport.ErrServerError):
			s.logger.Error("chat backend server error", zap.Error(err))
			res.Notices = append(res.Notices, NoticeServerFailure)
		case errors.As(err, &se):
			s.logger.Error("chat backend rejected request", zap.Int("status", se.StatusCode), zap.Error(err))
			res.Notices = append(res.Notices, NoticeRequestFailed)
			if resp != nil && resp.RequiresCustomerID {
				res.Notices = append(res.Notices, NoticeCustomerIDRequired)
			}
		default:
			s.logger.Error("chat request failed", zap.Error(err))
		}
		s.raise(res.Notices)
		return res
	}

	if resp == nil {
		res.Err = fmt.Errorf("%w: empty response", transport.ErrDecode)
		s.logger.Error("chat request failed", zap.Error(res.Err))
		return res
	}

	if resp.RequiresCustomerID {
		s.logger.Info("backend requires a customer id")
		res.Notices = append(res.Notices, NoticeCustomerIDRequired)
	}
	s.raise(res.Notices)

	if resp.HasReply() {
		s.store.Append(ctx, types.AssistantMessage(resp.Response))
		res.Reply = resp.Response
	}
	return res
}

func (s *Sender) raise(notices []Notice) {
	for _, n := range notices {
		s.notifier.Notify(n)
	}
}
