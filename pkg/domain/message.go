package domain

import (
	"sort"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Message is one record of a conversation. Responses hold nested follow-up turns.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	SenderName string     `json:"sender_name,omitempty"`
	SenderType string     `json:"sender_type,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Responses  []Message  `json:"responses,omitempty"`
}

// MessageTree is the ordered, branching history of one node in one session.
type MessageTree []Message

// Flatten emits every message without its responses, each followed depth-first by
// its flattened responses. The input is not modified.
func Flatten(tree MessageTree) []Message {
	out := make([]Message, 0, len(tree))
	var walk func([]Message)
	walk = func(msgs []Message) {
		for _, m := range msgs {
			responses := m.Responses
			m.Responses = nil
			out = append(out, m)
			if len(responses) > 0 {
				walk(responses)
			}
		}
	}
	walk(tree)
	return out
}

// SortByTimestamp orders messages by ascending timestamp. Ties keep their input order.
func SortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// Chronological flattens a tree and sorts the result by timestamp.
func Chronological(tree MessageTree) []Message {
	flat := Flatten(tree)
	SortByTimestamp(flat)
	return flat
}

// Clone returns a deep copy of the message, including tool calls and nested responses.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.Responses != nil {
		responses := make([]Message, len(m.Responses))
		for i, r := range m.Responses {
			responses[i] = r.Clone()
		}
		m.Responses = responses
	}
	return m
}

// Clone returns a deep copy of the tree.
func (t MessageTree) Clone() MessageTree {
	if t == nil {
		return nil
	}
	out := make(MessageTree, len(t))
	for i, m := range t {
		out[i] = m.Clone()
	}
	return out
}
