package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentAlreadyExists indicates a document with the same identifier already exists.
	ErrDocumentAlreadyExists = errors.New("document already exists")

	// ErrInvalidDocument indicates a stored document could not be decoded.
	ErrInvalidDocument = errors.New("invalid stored document")
)

// StoreError wraps storage-related errors with additional context.
type StoreError struct {
	Op         string // Operation being performed (e.g., "DocumentByID", "Save", "Delete")
	DocumentID string // Document ID if applicable
	Err        error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.DocumentID, e.Err)
	}

	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, documentID string, err error) *StoreError {
	return &StoreError{
		Op:         op,
		DocumentID: documentID,
		Err:        err,
	}
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsInvalidDocument checks if an error indicates a stored document could not be decoded.
func IsInvalidDocument(err error) bool {
	return errors.Is(err, ErrInvalidDocument)
}
