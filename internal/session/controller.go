package session

import (
	"context"
	"strings"
	"sync"

	"shopchat/internal/conversation"
	"shopchat/internal/logging"
	"shopchat/internal/types"

	"go.uber.org/zap"
)

// ClearPrompt is the question asked before a conversation is cleared.
const ClearPrompt = "Are you sure you want to clear the conversation?"

// Confirmer asks the user a yes/no question.
type Confirmer func(prompt string) bool

// Controller holds the pending input and the customer identifier, and turns a
// submit into a store append followed by a send.
type Controller struct {
	mu         sync.Mutex
	text       string
	customerID string

	store  *conversation.Store
	sender *Sender
	logger *zap.Logger
}

// NewController creates a controller. customerID seeds the identifier field.
func NewController(store *conversation.Store, sender *Sender, customerID string) *Controller {
	return &Controller{
		customerID: customerID,
		store:      store,
		sender:     sender,
		logger:     logging.Get(logging.CategorySession),
	}
}

// SetText replaces the pending input.
func (c *Controller) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

// Text returns the pending input.
func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// SetCustomerID replaces the customer identifier.
func (c *Controller) SetCustomerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customerID = strings.TrimSpace(id)
}

// CustomerID returns the customer identifier.
func (c *Controller) CustomerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerID
}

// SubmitDisabled is true while a send is outstanding.
func (c *Controller) SubmitDisabled() bool {
	return c.sender.Loading()
}

// Prepare performs the synchronous half of a submit: it appends the trimmed
// input as a user message, clears the input and returns the request to send.
// It returns false, touching nothing, when the input is blank or a send is
// outstanding.
func (c *Controller) Prepare(ctx context.Context) (types.ChatRequest, bool) {
	if c.SubmitDisabled() {
		c.logger.Debug("submit ignored while sending")
		return types.ChatRequest{}, false
	}

	c.mu.Lock()
	text := strings.TrimSpace(c.text)
	if text == "" {
		c.mu.Unlock()
		return types.ChatRequest{}, false
	}
	c.text = ""
	customerID := c.customerID
	c.mu.Unlock()

	state := c.store.Append(ctx, types.UserMessage(text))
	return types.NewChatRequest(state.Messages, state.ConversationID, customerID), true
}

// Submit prepares the input and sends it. The bool is false when nothing was
// submitted.
func (c *Controller) Submit(ctx context.Context) (Result, bool) {
	req, ok := c.Prepare(ctx)
	if !ok {
		return Result{}, false
	}
	return c.sender.Send(ctx, req), true
}

// ClearConversation clears the store if confirm agrees. A nil confirm never
// clears.
func (c *Controller) ClearConversation(ctx context.Context, confirm Confirmer) bool {
	if confirm == nil || !confirm(ClearPrompt) {
		return false
	}
	c.store.Clear(ctx)
	c.logger.Info("conversation cleared by user")
	return true
}
