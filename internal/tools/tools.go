// Package tools holds the assistant's callable capabilities and the
// registry the decision engine picks them from.
package tools

import (
	"context"

	"github.com/pkg/errors"

	"github.com/centsible/centsible/internal/model"
)

// Param describes one argument a tool accepts. Type uses JSON schema scalar
// names: string, number, boolean, array.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Contract is the declarative surface advertised to the decision engine.
// It carries no execution capability.
type Contract struct {
	Name        string
	Description string
	Params      []Param
}

// ToolContext carries the identity of the request being served. Unlike the
// argument map, which comes from the model, this is trusted input set by
// the orchestrator.
type ToolContext struct {
	ProjectID    string
	UserID       string
	ChatID       string
	PayerName    string
	Participants []string
}

// Tool is one capability the assistant can execute on the user's behalf.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Param
	Execute(ctx context.Context, args map[string]any, tc ToolContext) model.ToolResult
}

// Registry indexes tools by name. Registration order is preserved so the
// engine always sees the same contract ordering.
type Registry struct {
	order  []string
	byName map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Registering a second tool under the same name is an error.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return errors.New("tool has an empty name")
	}
	if _, exists := r.byName[name]; exists {
		return errors.Errorf("tool %q already registered", name)
	}
	r.byName[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the named tool, if registered.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// All returns every registered tool in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Contracts returns the engine-facing view of every tool in registration order.
func (r *Registry) Contracts() []Contract {
	out := make([]Contract, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		out = append(out, Contract{Name: t.Name(), Description: t.Description(), Params: t.Parameters()})
	}
	return out
}
