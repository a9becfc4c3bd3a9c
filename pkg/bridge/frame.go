package bridge

import (
	"encoding/json"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// Terminal is the last frame of an invocation: either a response or an error.
type Terminal struct {
	Response  string
	Error     string
	Timestamp time.Time
}

// MarshalJSON emits {"response", "timestamp"} or {"error", "timestamp"}.
func (t Terminal) MarshalJSON() ([]byte, error) {
	if t.Error != "" {
		return json.Marshal(struct {
			Error     string    `json:"error"`
			Timestamp time.Time `json:"timestamp"`
		}{t.Error, t.Timestamp})
	}
	return json.Marshal(struct {
		Response  string    `json:"response"`
		Timestamp time.Time `json:"timestamp"`
	}{t.Response, t.Timestamp})
}

// Rejection reports a query that was refused before it was queued, for example because
// the connection's lane was full. It is not the terminal frame of any invocation: it may
// arrive between the frames of the query that is running.
type Rejection struct {
	Query     string
	Reason    string
	Timestamp time.Time
}

// MarshalJSON emits {"rejected", "reason", "timestamp"}.
func (r Rejection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rejected  string    `json:"rejected"`
		Reason    string    `json:"reason"`
		Timestamp time.Time `json:"timestamp"`
	}{r.Query, r.Reason, r.Timestamp})
}

// Frame is one unit delivered to a connection. Exactly one field is set.
type Frame struct {
	Event    *domain.Event
	Final    *Terminal
	Rejected *Rejection
}

// IsTerminal reports whether the frame ends the invocation.
func (f Frame) IsTerminal() bool { return f.Final != nil }

// MarshalJSON encodes whichever payload is set.
func (f Frame) MarshalJSON() ([]byte, error) {
	switch {
	case f.Final != nil:
		return json.Marshal(f.Final)
	case f.Rejected != nil:
		return json.Marshal(f.Rejected)
	default:
		return json.Marshal(f.Event)
	}
}

// ErrorFrame builds a terminal error frame.
func ErrorFrame(msg string) Frame {
	return Frame{Final: &Terminal{Error: msg, Timestamp: time.Now().UTC()}}
}

// RejectionFrame builds the frame refusing query.
func RejectionFrame(query, reason string) Frame {
	return Frame{Rejected: &Rejection{Query: query, Reason: reason, Timestamp: time.Now().UTC()}}
}
