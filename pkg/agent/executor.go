package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/canopy/internal/jsonutil"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// DefaultMaxToolRounds bounds how many times one turn may go back to the model after tool calls.
const DefaultMaxToolRounds = 10

// ErrToolRounds is returned when a model keeps requesting tools past the round limit.
var ErrToolRounds = errors.New("tool round limit reached")

// Conversation is the history a run reads from and commits turns to.
type Conversation interface {
	History(node string) domain.MessageTree
	Commit(ctx context.Context, n domain.WorkerNode, turn domain.Message) error
}

// turnTemplate lays out every model request. Only placeholders are used, so braces in
// directives or user text are never interpreted.
var turnTemplate = prompt.FromMessages(schema.FString,
	schema.MessagesPlaceholder("system", false),
	schema.MessagesPlaceholder("history", true),
	schema.MessagesPlaceholder("query", false),
)

// Executor runs chat invocations over a compiled hierarchy.
type Executor struct {
	models        ModelSource
	logger        *slog.Logger
	maxToolRounds int
}

// Option configures the Executor.
type Option func(*Executor)

// WithLogger configures a logger for the Executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMaxToolRounds overrides DefaultMaxToolRounds.
func WithMaxToolRounds(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxToolRounds = n
		}
	}
}

// NewExecutor creates an Executor that obtains chat models from models.
func NewExecutor(models ModelSource, opts ...Option) *Executor {
	e := &Executor{
		models:        models,
		logger:        logging.NewNop(),
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run answers query starting at entry, emitting events as the hierarchy works.
// Failures are returned as *domain.InvocationError and reported with an ERROR event.
func (e *Executor) Run(ctx context.Context, conv Conversation, entry domain.WorkerNode, query string, emit domain.Emitter) (string, error) {
	if emit == nil {
		emit = func(domain.Event) {}
	}
	entryRef := domain.RefOf(entry)
	emit(domain.NewEvent(domain.EventWorkflowStart, domain.EventData{
		Target:    &entryRef,
		UserQuery: query,
	}))

	answer, err := e.turn(ctx, conv, entry, nil, query, emit)
	if err != nil {
		var inv *domain.InvocationError
		if !errors.As(err, &inv) {
			err = &domain.InvocationError{Node: entry.Name(), Err: err}
		}
		emit(domain.NewEvent(domain.EventError, domain.EventData{
			Source:       &entryRef,
			ErrorMessage: err.Error(),
		}))
		return "", err
	}

	emit(domain.NewEvent(domain.EventFinalResponse, domain.EventData{
		Source:  &entryRef,
		Content: answer,
	}))
	return answer, nil
}

// turn runs one node on one query: model calls, tool rounds, schema check and commit.
// caller is nil for the entry node.
func (e *Executor) turn(ctx context.Context, conv Conversation, n domain.WorkerNode, caller domain.WorkerNode, query string, emit domain.Emitter) (string, error) {
	fail := func(err error) error {
		return &domain.InvocationError{Node: n.Name(), Err: err}
	}

	chat, err := e.models.Model(ctx, n.LLM())
	if err != nil {
		return "", fail(err)
	}
	tb, err := toolsFor(n)
	if err != nil {
		return "", fail(err)
	}

	system := n.SystemMessage()
	if a, ok := n.(*domain.Agent); ok && a.OutputSchema != nil {
		system += schemaDirective + string(a.OutputSchema.Raw)
	}
	msgs, err := turnTemplate.Format(ctx, map[string]any{
		"system":  []*schema.Message{schema.SystemMessage(system)},
		"history": toSchema(conv.History(n.Name())),
		"query":   []*schema.Message{schema.UserMessage(query)},
	})
	if err != nil {
		return "", fail(fmt.Errorf("failed to build prompt: %w", err))
	}

	record := domain.Message{
		Role:      domain.RoleUser,
		Content:   query,
		Timestamp: time.Now().UTC(),
	}
	if caller != nil {
		record.SenderName = caller.Name()
		record.SenderType = caller.Kind().String()
	} else {
		record.SenderName = domain.RoleUser
		record.SenderType = domain.RoleUser
	}

	self := domain.RefOf(n)
	var answer string
	for round := 0; ; round++ {
		if round > e.maxToolRounds {
			return "", fail(ErrToolRounds)
		}
		reply, err := e.generate(ctx, chat, msgs, tb.infos)
		if err != nil {
			return "", fail(err)
		}
		msgs = append(msgs, reply)
		record.Responses = append(record.Responses, domain.Message{
			Role:       domain.RoleAssistant,
			Content:    reply.Content,
			Timestamp:  time.Now().UTC(),
			SenderName: n.Name(),
			SenderType: n.Kind().String(),
			ToolCalls:  fromSchemaCalls(reply.ToolCalls),
		})

		if len(reply.ToolCalls) == 0 {
			answer = reply.Content
			break
		}

		for _, call := range reply.ToolCalls {
			result, err := e.call(ctx, conv, n, tb, call, emit)
			if err != nil {
				return "", err
			}
			msgs = append(msgs, schema.ToolMessage(result, call.ID))
			record.Responses = append(record.Responses, domain.Message{
				Role:       domain.RoleTool,
				Content:    result,
				Timestamp:  time.Now().UTC(),
				SenderName: call.Function.Name,
				SenderType: domain.RoleTool,
				ToolCallID: call.ID,
			})
		}
	}

	if a, ok := n.(*domain.Agent); ok {
		answer, err = e.conform(ctx, a, answer)
		if err != nil {
			return "", fail(err)
		}
	}

	if err := conv.Commit(ctx, n, record); err != nil {
		return "", fail(fmt.Errorf("failed to record turn: %w", err))
	}

	if caller != nil {
		callerRef := domain.RefOf(caller)
		emit(domain.NewEvent(domain.EventAgentResponse, domain.EventData{
			Source:  &self,
			Target:  &callerRef,
			Content: answer,
		}))
	}
	return answer, nil
}

// generate calls the model with the turn's tools bound.
func (e *Executor) generate(ctx context.Context, chat model.BaseChatModel, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	if len(tools) == 0 {
		return chat.Generate(ctx, msgs)
	}
	if tcm, ok := chat.(model.ToolCallingChatModel); ok {
		bound, err := tcm.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		return bound.Generate(ctx, msgs)
	}
	return chat.Generate(ctx, msgs, model.WithTools(tools))
}

// call executes one requested tool. Delegation failures abort the turn; capability
// failures are handed back to the model as text.
func (e *Executor) call(ctx context.Context, conv Conversation, n domain.WorkerNode, tb *toolbox, call schema.ToolCall, emit domain.Emitter) (string, error) {
	self := domain.RefOf(n)
	name := call.Function.Name

	route, ok := tb.routes[name]
	if !ok {
		e.logger.WarnContext(ctx, "model requested an unknown tool", "node", n.Name(), "tool", name)
		return fmt.Sprintf("Error: unknown tool %q", name), nil
	}

	if route.child != nil {
		var args delegateArgs
		if _, err := jsonutil.Unmarshal(call.Function.Arguments, &args); err != nil || args.Query == "" {
			return "Error: delegation requires a non-empty \"query\" argument", nil
		}
		target := domain.RefOf(route.child)
		emit(domain.NewEvent(domain.EventSupervisorDelegate, domain.EventData{
			Source:        &self,
			Target:        &target,
			Reasoning:     args.Reasoning,
			QueryForAgent: args.Query,
		}))
		return e.turn(ctx, conv, route.child, n, args.Query, emit)
	}

	emit(domain.NewEvent(domain.EventAgentToolCall, domain.EventData{
		Source:    &self,
		ToolName:  name,
		Arguments: displayArgs(call.Function.Arguments),
	}))
	result, err := route.toolset.Call(ctx, name, call.Function.Arguments)
	isError := err != nil
	if isError {
		e.logger.WarnContext(ctx, "tool call failed", "node", n.Name(), "tool", name, "err", err)
		if result == "" {
			result = err.Error()
		}
		result = "Error: " + result
	}
	emit(domain.NewEvent(domain.EventAgentToolResponse, domain.EventData{
		Source:   &self,
		ToolName: name,
		Result:   result,
		IsError:  isError,
	}))
	return result, nil
}

// displayArgs decodes tool arguments for events, falling back to the raw text.
func displayArgs(raw string) any {
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
