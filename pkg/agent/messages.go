package agent

import (
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/cloudwego/eino/schema"
)

// toSchema replays stored history to the model. Responses follow their parent turn.
func toSchema(tree domain.MessageTree) []*schema.Message {
	flat := domain.Flatten(tree)
	out := make([]*schema.Message, 0, len(flat))
	for _, m := range flat {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, toSchemaCalls(m.ToolCalls)))
		case domain.RoleTool:
			out = append(out, schema.ToolMessage(m.Content, m.ToolCallID))
		case domain.RoleSystem:
			// Stored system messages are superseded by the node's current directive.
		}
	}
	return out
}

func toSchemaCalls(calls []domain.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = schema.ToolCall{
			ID:   c.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		}
	}
	return out
}

func fromSchemaCalls(calls []schema.ToolCall) []domain.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]domain.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = domain.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		}
	}
	return out
}
