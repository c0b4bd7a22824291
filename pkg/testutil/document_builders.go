// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ckpd/flowcanvas/pkg/models"
)

// CreateTestDocument creates a two-node document (sequence into terminate)
// with default values that can be overridden.
func CreateTestDocument(overrides ...func(*models.Document)) *models.Document {
	doc, err := models.ParseDocument([]byte(`{
		"start_node": "intake",
		"nodes": {
			"intake": {"type": "sequence", "next_node": "done"},
			"done": {"type": "terminate", "status": "success"}
		}
	}`))
	if err != nil {
		panic(fmt.Sprintf("testutil: invalid built-in document: %v", err))
	}

	for _, override := range overrides {
		override(doc)
	}

	return doc
}

// WithStartNode sets the document's start node reference.
func WithStartNode(id string) func(*models.Document) {
	return func(d *models.Document) {
		d.StartNode = id
	}
}

// WithNode appends a node to the document, preserving insertion order.
func WithNode(id string, node *models.Node) func(*models.Document) {
	return func(d *models.Document) {
		if _, exists := d.Nodes[id]; !exists {
			d.Order = append(d.Order, id)
		}

		d.Nodes[id] = node
	}
}

// CreateTestRecord creates a DocumentRecord wrapping a test document, with
// default values that can be overridden.
func CreateTestRecord(overrides ...func(*models.DocumentRecord)) *models.DocumentRecord {
	record := &models.DocumentRecord{
		ID:         uuid.New().String(),
		Name:       "Test Document",
		Definition: CreateTestDocument(),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// WithRecordID sets the record identifier.
func WithRecordID(id string) func(*models.DocumentRecord) {
	return func(r *models.DocumentRecord) {
		r.ID = id
	}
}

// WithRecordName sets the record name.
func WithRecordName(name string) func(*models.DocumentRecord) {
	return func(r *models.DocumentRecord) {
		r.Name = name
	}
}

// WithDefinition sets the record's document definition.
func WithDefinition(doc *models.Document) func(*models.DocumentRecord) {
	return func(r *models.DocumentRecord) {
		r.Definition = doc
	}
}

// WithMetadata sets the record metadata.
func WithMetadata(metadata map[string]any) func(*models.DocumentRecord) {
	return func(r *models.DocumentRecord) {
		r.Metadata = metadata
	}
}
