package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// GraphFormatError reports a malformed flow-graph representation. It aborts
// the step before any state mutation.
type GraphFormatError struct {
	Reason string
	Err    error
}

func (e *GraphFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid flow graph: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid flow graph: %s", e.Reason)
}

func (e *GraphFormatError) Unwrap() error { return e.Err }

// NodeNotFoundError reports that the current or temp node id does not
// resolve against the graph.
type NodeNotFoundError struct {
	NodeID string
}

func (e *NodeNotFoundError) Error() string {
	if e.NodeID == "" {
		return "no entry node found in flow graph"
	}
	return fmt.Sprintf("node not found: %s", e.NodeID)
}

// ExternalServiceError wraps a failed language-service call. Handlers absorb
// it locally with a fallback message; it never escapes a step.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("language service %s failed: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
