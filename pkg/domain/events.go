package domain

import "time"

// EventType defines the category of an intermediate event.
type EventType string

const (
	EventWorkflowStart      EventType = "WORKFLOW_START"
	EventSupervisorDelegate EventType = "SUPERVISOR_DELEGATE"
	EventAgentToolCall      EventType = "AGENT_TOOL_CALL"
	EventAgentToolResponse  EventType = "AGENT_TOOL_RESPONSE"
	EventAgentResponse      EventType = "AGENT_RESPONSE"
	EventFinalResponse      EventType = "FINAL_RESPONSE"
	EventError              EventType = "ERROR"
)

// Event is emitted by a running invocation before its final response.
type Event struct {
	Type      EventType `json:"type"`
	Data      EventData `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// EventData carries the fields relevant to each event type.
type EventData struct {
	Source *Ref `json:"source,omitempty"`
	Target *Ref `json:"target,omitempty"`

	UserQuery     string `json:"user_query,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
	QueryForAgent string `json:"query_for_agent,omitempty"`

	ToolName  string `json:"tool_name,omitempty"`
	Arguments any    `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	Content      string `json:"content,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, data EventData) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// Emitter receives events from a running invocation, in emission order.
type Emitter func(Event)
