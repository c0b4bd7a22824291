package models

import "time"

// DocumentRecord is the persistence envelope around a document definition.
// The definition itself is the document JSON; the editor never interprets
// the metadata beyond round-tripping it.
type DocumentRecord struct {
	ID         string         `json:"id"         validate:"required"`
	Name       string         `json:"name"       validate:"required,min=3"`
	Definition *Document      `json:"definition" validate:"required"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
