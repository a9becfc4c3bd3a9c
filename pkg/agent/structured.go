package agent

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/internal/jsonutil"
	"github.com/aretw0/canopy/pkg/domain"
)

// schemaDirective is appended to the system message of agents with an output schema.
const schemaDirective = "\n\nRespond only with a JSON value that conforms to this JSON schema:\n"

// conform checks a reply against the agent's output schema. A valid reply is returned as
// the JSON that was decoded, so repaired output reaches the caller in clean form.
func (e *Executor) conform(ctx context.Context, a *domain.Agent, reply string) (string, error) {
	if a.OutputSchema == nil || a.OutputSchema.Schema == nil {
		return reply, nil
	}

	var value any
	normalized, err := jsonutil.Unmarshal(reply, &value)
	if err == nil {
		err = a.OutputSchema.Schema.VisitJSON(value)
	}
	if err == nil {
		return normalized, nil
	}

	if a.Strict {
		return "", fmt.Errorf("%w: %v", domain.ErrOutputSchema, err)
	}
	e.logger.WarnContext(ctx, "agent output does not match its schema, passing it through",
		"agent", a.Name(),
		"err", err,
	)
	return reply, nil
}
