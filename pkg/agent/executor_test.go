package agent_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/session"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// request is what the fake model saw on one call.
type request struct {
	msgs  []*schema.Message
	tools []*schema.ToolInfo
}

func (r request) system() string { return r.msgs[0].Content }
func (r request) last() *schema.Message {
	return r.msgs[len(r.msgs)-1]
}

// fakeModel answers with a script keyed by the caller's system message.
type fakeModel struct {
	mu      sync.Mutex
	calls   []request
	respond func(r request) (*schema.Message, error)
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	r := request{msgs: input, tools: o.Tools}
	f.mu.Lock()
	f.calls = append(f.calls, r)
	f.mu.Unlock()
	return f.respond(r)
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type fakeSource struct{ m *fakeModel }

func (s fakeSource) Model(ctx context.Context, cfg *domain.LLMConfig) (model.BaseChatModel, error) {
	return s.m, nil
}

type events struct {
	mu   sync.Mutex
	list []domain.Event
}

func (e *events) emit(ev domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, ev)
}

func (e *events) types() []domain.EventType {
	out := make([]domain.EventType, len(e.list))
	for i, ev := range e.list {
		out[i] = ev.Type
	}
	return out
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

var llm = &domain.LLMConfig{Model: "fake"}

func conversation(t *testing.T, wf *domain.Workflow) (*session.Manager, *session.Conversation) {
	t.Helper()
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())
	require.NoError(t, mgr.Ensure(ctx, "s1"))
	conv, err := mgr.Rehydrate(ctx, wf, "s1")
	require.NoError(t, err)
	return mgr, conv
}

func TestRun_AgentAnswersDirectly(t *testing.T) {
	a := domain.NewAgent("Solo", "You are Solo.", llm)
	wf := domain.NewWorkflow(a, 1)
	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return schema.AssistantMessage("hello there", nil), nil
	}}
	mgr, conv := conversation(t, wf)
	ev := &events{}

	out, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, a, "hi", ev.emit)
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, []domain.EventType{domain.EventWorkflowStart, domain.EventFinalResponse}, ev.types())
	assert.Equal(t, "hi", ev.list[0].Data.UserQuery)

	require.Len(t, m.calls, 1)
	assert.Equal(t, "You are Solo.", m.calls[0].system())
	assert.Equal(t, schema.User, m.calls[0].last().Role)
	assert.Empty(t, m.calls[0].tools)

	tree, err := mgr.LoadHistory(context.Background(), "s1", "Solo")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "hi", tree[0].Content)
	assert.Equal(t, "user", tree[0].SenderName)
	require.Len(t, tree[0].Responses, 1)
	assert.Equal(t, "hello there", tree[0].Responses[0].Content)
}

func TestRun_SupervisorDelegates(t *testing.T) {
	sup := domain.NewSupervisor("A", "You are A.", llm)
	sup.RootEntry = true
	b := domain.NewAgent("Agent B", "You are Agent B.", llm)
	sup.Register(b)
	wf := domain.NewWorkflow(sup, 1)

	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		switch {
		case r.system() == "You are Agent B.":
			return schema.AssistantMessage("sunny", nil), nil
		case r.last().Role == schema.Tool:
			return schema.AssistantMessage("B says "+r.last().Content, nil), nil
		default:
			return toolCall("c1", "delegate_to_Agent_B", `{"reasoning": "weather expert", "query": "weather in Lisbon?"}`), nil
		}
	}}
	mgr, conv := conversation(t, wf)
	ev := &events{}

	out, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, sup, "weather?", ev.emit)
	require.NoError(t, err)
	assert.Equal(t, "B says sunny", out)

	assert.Equal(t, []domain.EventType{
		domain.EventWorkflowStart,
		domain.EventSupervisorDelegate,
		domain.EventAgentResponse,
		domain.EventFinalResponse,
	}, ev.types())
	delegate := ev.list[1].Data
	assert.Equal(t, "A", delegate.Source.Name)
	assert.Equal(t, "Agent B", delegate.Target.Name)
	assert.Equal(t, "weather expert", delegate.Reasoning)
	assert.Equal(t, "weather in Lisbon?", delegate.QueryForAgent)
	assert.Equal(t, "sunny", ev.list[2].Data.Content)

	require.Len(t, m.calls[0].tools, 1)
	assert.Equal(t, "delegate_to_Agent_B", m.calls[0].tools[0].Name)

	ctx := context.Background()
	supTree, err := mgr.LoadHistory(ctx, "s1", "A")
	require.NoError(t, err)
	require.Len(t, supTree, 1)
	roles := []string{}
	for _, r := range supTree[0].Responses {
		roles = append(roles, r.Role)
	}
	assert.Equal(t, []string{"assistant", "tool", "assistant"}, roles)

	bTree, err := mgr.LoadHistory(ctx, "s1", "Agent B")
	require.NoError(t, err)
	require.Len(t, bTree, 1)
	assert.Equal(t, "weather in Lisbon?", bTree[0].Content)
	assert.Equal(t, "A", bTree[0].SenderName)
	assert.Equal(t, "supervisor", bTree[0].SenderType)
}

func TestRun_SupervisorWithoutAgents(t *testing.T) {
	sup := domain.NewSupervisor("A", "You are A.", llm)
	sup.UseAgents = false
	sup.Register(domain.NewAgent("B", "", llm))
	wf := domain.NewWorkflow(sup, 1)

	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return schema.AssistantMessage("myself", nil), nil
	}}
	_, conv := conversation(t, wf)
	out, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, sup, "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "myself", out)
	assert.Empty(t, m.calls[0].tools)
}

type fakeToolset struct {
	fail bool
}

func (f *fakeToolset) Tools() []*schema.ToolInfo {
	return []*schema.ToolInfo{{Name: "forecast", Desc: "Forecast"}}
}

func (f *fakeToolset) Call(ctx context.Context, name, args string) (string, error) {
	if f.fail {
		return "", errors.New("server down")
	}
	return "22C for " + args, nil
}

func (f *fakeToolset) Close() error { return nil }

func TestRun_AgentToolCalls(t *testing.T) {
	for _, tc := range []struct {
		name    string
		fail    bool
		result  string
		isError bool
	}{
		{name: "success", result: `22C for {"city":"Porto"}`},
		{name: "failure is returned to the model", fail: true, result: "Error: server down", isError: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := domain.NewAgent("Weather", "", llm)
			a.Toolsets = []domain.Toolset{&fakeToolset{fail: tc.fail}}
			wf := domain.NewWorkflow(a, 1)

			m := &fakeModel{respond: func(r request) (*schema.Message, error) {
				if r.last().Role == schema.Tool {
					return schema.AssistantMessage("tool said: "+r.last().Content, nil), nil
				}
				return toolCall("t1", "forecast", `{"city":"Porto"}`), nil
			}}
			_, conv := conversation(t, wf)
			ev := &events{}

			out, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, a, "weather?", ev.emit)
			require.NoError(t, err)
			assert.Equal(t, "tool said: "+tc.result, out)

			assert.Equal(t, []domain.EventType{
				domain.EventWorkflowStart,
				domain.EventAgentToolCall,
				domain.EventAgentToolResponse,
				domain.EventFinalResponse,
			}, ev.types())
			assert.Equal(t, map[string]any{"city": "Porto"}, ev.list[1].Data.Arguments)
			assert.Equal(t, tc.result, ev.list[2].Data.Result)
			assert.Equal(t, tc.isError, ev.list[2].Data.IsError)
			assert.Equal(t, "t1", m.calls[1].last().ToolCallID)
		})
	}
}

func TestRun_ToolRoundLimit(t *testing.T) {
	a := domain.NewAgent("Loop", "", llm)
	a.Toolsets = []domain.Toolset{&fakeToolset{}}
	wf := domain.NewWorkflow(a, 1)

	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return toolCall("t", "forecast", `{}`), nil
	}}
	_, conv := conversation(t, wf)
	ev := &events{}

	_, err := agent.NewExecutor(fakeSource{m}, agent.WithMaxToolRounds(3)).Run(context.Background(), conv, a, "go", ev.emit)
	assert.ErrorIs(t, err, agent.ErrToolRounds)
	var inv *domain.InvocationError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "Loop", inv.Node)
	assert.Len(t, m.calls, 4)
	assert.Equal(t, domain.EventError, ev.list[len(ev.list)-1].Type)
}

func TestRun_ModelFailure(t *testing.T) {
	a := domain.NewAgent("X", "", llm)
	wf := domain.NewWorkflow(a, 1)
	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return nil, errors.New("401 unauthorized")
	}}
	mgr, conv := conversation(t, wf)
	ev := &events{}

	_, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, a, "hi", ev.emit)
	assert.ErrorContains(t, err, "401 unauthorized")
	assert.Equal(t, []domain.EventType{domain.EventWorkflowStart, domain.EventError}, ev.types())

	nodes, err := mgr.Store().Nodes(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, nodes, "failed turns are not recorded")
}

func TestRun_StructuredOutput(t *testing.T) {
	out, err := compiler.ParseOutputSchema(`{"type":"object","required":["temp"],"properties":{"temp":{"type":"number"}}}`)
	require.NoError(t, err)

	run := func(t *testing.T, strict bool, reply string) (string, *fakeModel, error) {
		a := domain.NewAgent("Struct", "Report.", llm)
		a.OutputSchema = out
		a.Strict = strict
		wf := domain.NewWorkflow(a, 1)
		m := &fakeModel{respond: func(r request) (*schema.Message, error) {
			return schema.AssistantMessage(reply, nil), nil
		}}
		_, conv := conversation(t, wf)
		res, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, a, "temp?", nil)
		return res, m, err
	}

	t.Run("repaired output is normalized", func(t *testing.T) {
		res, m, err := run(t, true, "```json\n{\"temp\": 21,}\n```")
		require.NoError(t, err)
		assert.JSONEq(t, `{"temp": 21}`, res)
		assert.True(t, strings.HasPrefix(m.calls[0].system(), "Report."))
		assert.Contains(t, m.calls[0].system(), `"required":["temp"]`, "schema is appended to the directive")
	})

	t.Run("strict rejects invalid output", func(t *testing.T) {
		_, _, err := run(t, true, `{"temp": "warm"}`)
		assert.ErrorIs(t, err, domain.ErrOutputSchema)
	})

	t.Run("lenient passes invalid output through", func(t *testing.T) {
		res, _, err := run(t, false, "it is warm")
		require.NoError(t, err)
		assert.Equal(t, "it is warm", res)
	})
}

func TestRun_ReplaysHistory(t *testing.T) {
	a := domain.NewAgent("Mem", "Remember {things}.", llm)
	wf := domain.NewWorkflow(a, 1)
	ctx := context.Background()

	mgr := session.NewManager(memory.NewStore())
	require.NoError(t, mgr.Ensure(ctx, "s1"))
	require.NoError(t, mgr.Record(ctx, "s1", "Mem", domain.Message{
		Role: domain.RoleUser, Content: "my name is Ana",
		Responses: []domain.Message{{Role: domain.RoleAssistant, Content: "hi Ana"}},
	}))

	conv, err := mgr.Rehydrate(ctx, wf, "s1")
	require.NoError(t, err)

	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return schema.AssistantMessage("Ana", nil), nil
	}}
	_, err = agent.NewExecutor(fakeSource{m}).Run(ctx, conv, a, "who am I?", nil)
	require.NoError(t, err)

	msgs := m.calls[0].msgs
	require.Len(t, msgs, 4)
	assert.Equal(t, "Remember {things}.", msgs[0].Content, "directives are not treated as templates")
	assert.Equal(t, "my name is Ana", msgs[1].Content)
	assert.Equal(t, "hi Ana", msgs[2].Content)
	assert.Equal(t, "who am I?", msgs[3].Content)

	tree, err := mgr.LoadHistory(ctx, "s1", "Mem")
	require.NoError(t, err)
	assert.Len(t, tree, 2)
}

func TestRun_KeepHistoryFalse(t *testing.T) {
	a := domain.NewAgent("Forgetful", "", llm)
	a.KeepHistory = false
	wf := domain.NewWorkflow(a, 1)
	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return schema.AssistantMessage("ok", nil), nil
	}}
	mgr, conv := conversation(t, wf)
	exec := agent.NewExecutor(fakeSource{m})

	for i := 0; i < 2; i++ {
		_, err := exec.Run(context.Background(), conv, a, "again", nil)
		require.NoError(t, err)
	}
	assert.Len(t, m.calls[1].msgs, 2, "no history is replayed")

	nodes, err := mgr.Store().Nodes(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestRun_ClashingDelegationToolsFail(t *testing.T) {
	sup := domain.NewSupervisor("Boss", "", llm)
	sup.Register(domain.NewAgent("a b", "", llm))
	sup.Register(domain.NewAgent("a_b", "", llm))
	wf := domain.NewWorkflow(sup, 1)

	m := &fakeModel{respond: func(r request) (*schema.Message, error) {
		return schema.AssistantMessage("unreachable", nil), nil
	}}
	_, conv := conversation(t, wf)

	_, err := agent.NewExecutor(fakeSource{m}).Run(context.Background(), conv, sup, "q", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToolNameClash)
	assert.Empty(t, m.calls, "no model call is made with a partial tool list")
}

func TestDelegateToolName(t *testing.T) {
	assert.Equal(t, "delegate_to_Web_Agent_v2", agent.DelegateToolName("Web Agent.v2"))
	assert.Len(t, agent.DelegateToolName(strings.Repeat("x", 100)), 64)
}
