// Package models defines the document and graph models for the workflow
// canvas editor.
package models

import (
	"errors"
	"fmt"
)

// Standard editor error types shared by the codec, importer and canvas.
var (
	// ErrMalformedDocument indicates a document that cannot be imported at
	// all: nodes is not an object, a node is not an object, a node lacks a
	// type, or start_node is not a string.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrDanglingReference indicates a connection field pointing at a node id
	// that does not exist. Non-fatal: the edge is still materialized so the
	// user can fix it visually.
	ErrDanglingReference = errors.New("dangling node reference")

	// ErrInvalidMutation indicates a rejected canvas mutation: an id
	// collision, an unknown node or edge id, or a bad argument.
	ErrInvalidMutation = errors.New("invalid mutation")

	// ErrUnparsableFieldJSON indicates a JSON-typed editor field that fails
	// to parse. The raw value is kept so nothing is lost.
	ErrUnparsableFieldJSON = errors.New("unparsable field JSON")
)

// DocumentError wraps editor errors with document and node context.
type DocumentError struct {
	Op         string // Operation being performed (e.g., "Import", "RenameNode")
	DocumentID string // Document ID if applicable
	NodeID     string // Node ID if applicable
	Err        error  // Underlying error
}

func (e *DocumentError) Error() string {
	target := e.DocumentID
	if e.NodeID != "" {
		target = fmt.Sprintf("node %s", e.NodeID)
	}

	if target == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s failed for %s: %v", e.Op, target, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for document errors.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, documentID string, err error) *DocumentError {
	return &DocumentError{
		Op:         op,
		DocumentID: documentID,
		Err:        err,
	}
}

// NewNodeError creates a new document error scoped to a single node.
func NewNodeError(op, nodeID string, err error) *DocumentError {
	return &DocumentError{
		Op:     op,
		NodeID: nodeID,
		Err:    err,
	}
}

// IsMalformedDocument checks if an error indicates a document that cannot be imported.
func IsMalformedDocument(err error) bool {
	return errors.Is(err, ErrMalformedDocument)
}

// IsInvalidMutation checks if an error indicates a rejected canvas mutation.
func IsInvalidMutation(err error) bool {
	return errors.Is(err, ErrInvalidMutation)
}

// IsDanglingReference checks if an error indicates a connection to a missing node.
func IsDanglingReference(err error) bool {
	return errors.Is(err, ErrDanglingReference)
}

// IsUnparsableFieldJSON checks if an error indicates an unparsable JSON field value.
func IsUnparsableFieldJSON(err error) bool {
	return errors.Is(err, ErrUnparsableFieldJSON)
}
