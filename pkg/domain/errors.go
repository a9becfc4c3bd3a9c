package domain

import (
	"errors"
	"fmt"
)

// Structural error kinds. A *StructuralError unwraps to exactly one of these.
var (
	ErrInvalidDocument = errors.New("invalid graph document")
	ErrDuplicateName   = errors.New("duplicate node name")
	ErrMissingUserNode = errors.New("workflow must have exactly one user node")
	ErrUnresolvedEntry = errors.New("user node must be connected to an agent or supervisor")
	ErrCyclicHierarchy = errors.New("cyclic hierarchy")
	ErrSchemaParse     = errors.New("malformed output schema")
	ErrToolNameClash   = errors.New("children share a delegation tool name")
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoWorkflow is returned when a chat is requested before any workflow was compiled.
var ErrNoWorkflow = errors.New("no workflow compiled")

// ErrDeliveryFailed marks a frame that could not be sent to a closed or failing connection.
var ErrDeliveryFailed = errors.New("delivery failed")

// ErrOutputSchema is returned when a strict agent produces output that violates its schema.
var ErrOutputSchema = errors.New("output does not match schema")

// StructuralError reports a malformed or inconsistent graph. It is always fatal to a compile.
type StructuralError struct {
	Kind   error
	Node   string
	Reason string
}

func (e *StructuralError) Error() string {
	msg := e.Kind.Error()
	if e.Node != "" {
		msg = fmt.Sprintf("%s: '%s'", msg, e.Node)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *StructuralError) Unwrap() error { return e.Kind }

// Structural builds a StructuralError.
func Structural(kind error, node, reason string) *StructuralError {
	return &StructuralError{Kind: kind, Node: node, Reason: reason}
}

// IsStructural reports whether err is a graph structure error.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// CapabilityError reports a capability server that failed to resolve for one agent.
// It is logged and tolerated.
type CapabilityError struct {
	Agent      string
	Descriptor CapabilityDescriptor
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s for agent '%s': %v", e.Descriptor.Label(), e.Agent, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// InvocationError wraps any failure raised while computing a chat response.
type InvocationError struct {
	Node string
	Err  error
}

func (e *InvocationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("invocation failed: %v", e.Err)
	}
	return fmt.Sprintf("invocation failed at '%s': %v", e.Node, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
