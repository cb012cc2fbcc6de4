package rig

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDanglingEdge  = errors.New("edge endpoint not in graph")
	ErrInvalidPort   = errors.New("invalid port for node kind")
	ErrNoFreePort    = errors.New("no free valve port")
	ErrBadDocument   = errors.New("malformed graph document")
)

// GraphError provides structured error information for graph operations.
type GraphError struct {
	Op    string // Operation that failed (e.g. "New", "LoadNodeLink")
	Node  string // Node id (if applicable)
	Port  string // Port name (for port validation failures)
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Node != "" {
		if e.Port != "" {
			return fmt.Sprintf("%s: node %s port %q: %v", e.Op, e.Node, e.Port, e.Cause)
		}
		return fmt.Sprintf("%s: node %s: %v", e.Op, e.Node, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}
