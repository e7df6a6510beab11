package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/tools"
)

// Gemini is the production engine. It maps registry contracts to native
// function declarations and lets the model pick one, with working memory
// folded into the system instruction.
type Gemini struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewGemini(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	return &Gemini{client: client, model: modelName, log: log}, nil
}

func (g *Gemini) Decide(ctx context.Context, req Request) (model.Decision, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt(req.Memory)}}},
		Temperature:       genai.Ptr[float32](0.2),
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: declarations(req.Tools)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, conversation(req), cfg)
	if err != nil {
		g.log.Error().Err(err).Msg("gemini generate content failed")
		return model.Decision{}, errors.Wrap(model.ErrExternalService, err.Error())
	}
	return decisionFromResponse(resp), nil
}

func systemPrompt(mem *model.WorkingMemory) string {
	var b strings.Builder
	b.WriteString("You are Centsible, a chat assistant managing a shared expense ledger. " +
		"Decide whether the user's message maps to one of the available tools and call it with precise arguments; " +
		"reply with plain text only when no tool applies. " +
		"When the user corrects a value right after an expense was recorded, prefer the modify tools with target=last. " +
		"A bare number following a recorded expense is usually an amount correction.")
	if mem != nil {
		if lt := mem.LastTransaction; lt != nil {
			fmt.Fprintf(&b, "\nMost recent transaction: %s %s (id %s).",
				lt.Merchant, model.FormatAmount(lt.Amount, lt.Currency), lt.ID)
		}
		if pc := mem.PendingClarification; pc != nil {
			fmt.Fprintf(&b, "\nThere is an open question to the user about the %s of transaction %s: %s",
				pc.Field, pc.TransactionID, pc.Question)
		}
	}
	return b.String()
}

// conversation renders the recent window plus the current message in the
// chat format the API expects. Assistant turns use the "model" role.
func conversation(req Request) []*genai.Content {
	var contents []*genai.Content
	if req.Memory != nil {
		for _, m := range req.Memory.RecentMessages {
			role := "user"
			if m.Role == model.RoleAssistant {
				role = "model"
			}
			contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: req.Text}}})
}

func declarations(contracts []tools.Contract) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(contracts))
	for _, c := range contracts {
		props := make(map[string]*genai.Schema, len(c.Params))
		var required []string
		for _, p := range c.Params {
			s := &genai.Schema{Description: p.Description}
			switch p.Type {
			case "number":
				s.Type = genai.TypeNumber
			case "boolean":
				s.Type = genai.TypeBoolean
			case "array":
				s.Type = genai.TypeArray
				s.Items = &genai.Schema{Type: genai.TypeString}
			default:
				s.Type = genai.TypeString
			}
			if len(p.Enum) > 0 {
				s.Enum = p.Enum
			}
			props[p.Name] = s
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required},
		})
	}
	return out
}

// decisionFromResponse maps the model output onto the decision variant.
// A function call wins over any accompanying text; an entirely empty
// response degrades to the fixed fallback reply.
func decisionFromResponse(resp *genai.GenerateContentResponse) model.Decision {
	if calls := resp.FunctionCalls(); len(calls) > 0 {
		args := calls[0].Args
		if args == nil {
			args = map[string]any{}
		}
		return model.ToolCallDecision(calls[0].Name, args)
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return model.TextReplyDecision(text)
	}
	return model.TextReplyDecision(FallbackReply)
}
