package conversation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"shopchat/internal/logging"
	"shopchat/internal/storage"
	"shopchat/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultKey is the storage key the snapshot lives under.
const DefaultKey = "chatState"

// Store owns the in-memory conversation and persists every committed change.
// Mutations never return errors: storage failures are logged and the in-memory
// state still advances.
type Store struct {
	mu       sync.RWMutex
	state    types.ConversationState
	backend  storage.Storage
	key      string
	logger   *zap.Logger
	newID    func() string
	pinnedID string

	// synced is the raw snapshot storage held when memory last matched it,
	// either written by persist or read by Load. Guarded by mu.
	synced string
	// rev counts committed changes. Guarded by mu.
	rev uint64

	subMu   sync.Mutex
	subs    map[int]func(types.ConversationState)
	nextSub int

	// deliverMu serializes notifications so subscribers see commits in order.
	deliverMu sync.Mutex
	delivered uint64
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the conversation ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithConversationID pins the conversation ID instead of generating one.
func WithConversationID(id string) Option {
	return func(s *Store) {
		s.pinnedID = id
	}
}

// NewStore creates a store over backend with an empty state. Call Load to
// rehydrate. A nil backend behaves like storage.Unavailable.
func NewStore(backend storage.Storage, opts ...Option) *Store {
	if backend == nil {
		backend = storage.Unavailable{}
	}
	s := &Store{
		state:   types.EmptyState(),
		backend: backend,
		key:     DefaultKey,
		logger:  logging.Get(logging.CategoryStore),
		newID:   uuid.NewString,
		subs:    make(map[int]func(types.ConversationState)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.ConversationID = s.pinnedID
	return s
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// Load reads the persisted snapshot and replaces the in-memory state with it.
// Missing, unreadable or malformed snapshots yield the empty default. When
// storage still holds the snapshot this store last wrote or read, Load keeps
// the in-memory state. The read and the swap happen under one lock so a
// concurrent Append is never overwritten.
func (s *Store) Load(ctx context.Context) types.ConversationState {
	s.mu.Lock()
	raw, err := s.backend.GetItem(ctx, s.key)
	if err == nil && s.synced != "" && raw == s.synced {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}

	loaded := s.decode(raw, err)
	if s.pinnedID != "" {
		loaded.ConversationID = s.pinnedID
	}
	if err == nil {
		s.synced = raw
	}
	changed := !equal(s.state, loaded)
	s.state = loaded
	if changed {
		s.rev++
	}
	rev := s.rev
	snap := loaded.Clone()
	s.mu.Unlock()

	if changed {
		s.notify(snap, rev)
	}
	return snap
}

func (s *Store) decode(raw string, err error) types.ConversationState {
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("no persisted conversation", zap.String("key", s.key))
		} else {
			s.logger.Warn("failed to read persisted conversation", zap.String("key", s.key), zap.Error(err))
		}
		return types.EmptyState()
	}

	state, err := Decode(raw)
	if err != nil {
		s.logger.Warn("discarding malformed conversation snapshot", zap.String("key", s.key), zap.Error(err))
		return types.EmptyState()
	}
	return state
}

// Append commits msg at the end of the conversation and persists the full
// state before returning. The first message of a conversation assigns its ID.
func (s *Store) Append(ctx context.Context, msg types.Message) types.ConversationState {
	s.mu.Lock()
	next := Append(s.state, msg)
	if next.ConversationID == "" {
		next.ConversationID = s.newID()
	}
	s.state = next
	s.persist(ctx, next)
	s.rev++
	rev := s.rev
	snap := next.Clone()
	s.mu.Unlock()

	s.logger.Debug("message appended", zap.String("role", string(msg.Role)), zap.Int("count", snap.Len()))
	s.notify(snap, rev)
	return snap
}

// Clear empties the conversation and persists the empty state. Callers are
// responsible for confirming with the user first.
func (s *Store) Clear(ctx context.Context) types.ConversationState {
	s.mu.Lock()
	next := Clear(s.state)
	next.ConversationID = s.pinnedID
	s.state = next
	s.persist(ctx, next)
	s.rev++
	rev := s.rev
	snap := next.Clone()
	s.mu.Unlock()

	s.logger.Debug("conversation cleared")
	s.notify(snap, rev)
	return snap
}

// persist writes the whole snapshot. Caller holds s.mu.
func (s *Store) persist(ctx context.Context, state types.ConversationState) {
	raw, err := Encode(state)
	if err != nil {
		s.logger.Error("failed to encode conversation", zap.Error(err))
		return
	}
	if err := s.backend.SetItem(ctx, s.key, raw); err != nil {
		s.logger.Warn("failed to persist conversation", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.synced = raw
}

// State returns a copy of the current state.
func (s *Store) State() types.ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Messages returns a copy of the current message sequence.
func (s *Store) Messages() []types.Message {
	return s.State().Messages
}

// ConversationID returns the ID of the current conversation, empty until the
// first append unless pinned.
func (s *Store) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ConversationID
}

// Subscribe registers fn to run after every committed change. The returned
// function unregisters it. Notifications arrive in commit order; one that was
// overtaken by a newer commit is dropped. fn must not mutate the store.
func (s *Store) Subscribe(fn func(types.ConversationState)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(state types.ConversationState, rev uint64) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if rev <= s.delivered {
		return
	}
	s.delivered = rev

	s.subMu.Lock()
	fns := make([]func(types.ConversationState), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(state.Clone())
	}
}

func equal(a, b types.ConversationState) bool {
	return a.ConversationID == b.ConversationID && slices.Equal(a.Messages, b.Messages)
}
