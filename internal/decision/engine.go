// Package decision turns an inbound message into exactly one verdict: call
// a tool, or reply with text.
package decision

import (
	"context"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/tools"
)

// Request carries everything the engine needs for one verdict. The engine
// holds no conversation state of its own.
type Request struct {
	Text   string
	Memory *model.WorkingMemory
	Tools  []tools.Contract
}

// Engine produces one decision per inbound message. Tool-call arguments in
// the decision are untrusted; tools validate them again before use.
type Engine interface {
	Decide(ctx context.Context, req Request) (model.Decision, error)
}

// FallbackReply is the fixed response used when no engine verdict is available.
const FallbackReply = "Sorry, I'm having trouble understanding right now. Please try again in a moment."
