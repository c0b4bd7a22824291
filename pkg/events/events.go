// Package events defines event types and structures for editor session notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all editor events published by open sessions.
const Topic = "flowcanvas.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Document lifecycle events.
	DocumentOpenedEvent EventType = "document.opened"
	DocumentSavedEvent  EventType = "document.saved"

	// Node mutation events.
	NodeAddedEvent   EventType = "node.added"
	NodeRenamedEvent EventType = "node.renamed"
	NodeDeletedEvent EventType = "node.deleted"

	// Edge mutation events.
	EdgeConnectedEvent EventType = "edge.connected"
	EdgeRelabeledEvent EventType = "edge.relabeled"
	EdgeDeletedEvent   EventType = "edge.deleted"

	StartChangedEvent EventType = "start.changed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	DocumentID string         `json:"document_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type DocumentOpened struct {
	BaseEvent

	DocumentName string `json:"document_name,omitempty"`
	NodeCount    int    `json:"node_count"`
	EdgeCount    int    `json:"edge_count"`
}

func (d DocumentOpened) GetType() EventType {
	return DocumentOpenedEvent
}

type DocumentSaved struct {
	BaseEvent

	DocumentName string `json:"document_name,omitempty"`
	NodeCount    int    `json:"node_count"`
	EdgeCount    int    `json:"edge_count"`
}

func (d DocumentSaved) GetType() EventType {
	return DocumentSavedEvent
}

// Node mutation events

type NodeAdded struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
}

func (n NodeAdded) GetType() EventType {
	return NodeAddedEvent
}

type NodeRenamed struct {
	BaseEvent

	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

func (n NodeRenamed) GetType() EventType {
	return NodeRenamedEvent
}

type NodeDeleted struct {
	BaseEvent

	NodeID       string `json:"node_id"`
	EdgesRemoved int    `json:"edges_removed"`
}

func (n NodeDeleted) GetType() EventType {
	return NodeDeletedEvent
}

// Edge mutation events

type EdgeConnected struct {
	BaseEvent

	EdgeID string `json:"edge_id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

func (e EdgeConnected) GetType() EventType {
	return EdgeConnectedEvent
}

type EdgeRelabeled struct {
	BaseEvent

	EdgeID   string `json:"edge_id"`
	OldLabel string `json:"old_label"`
	NewLabel string `json:"new_label"`
}

func (e EdgeRelabeled) GetType() EventType {
	return EdgeRelabeledEvent
}

type EdgeDeleted struct {
	BaseEvent

	EdgeID string `json:"edge_id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

func (e EdgeDeleted) GetType() EventType {
	return EdgeDeletedEvent
}

type StartChanged struct {
	BaseEvent

	OldStart string `json:"old_start,omitempty"`
	NewStart string `json:"new_start"`
}

func (s StartChanged) GetType() EventType {
	return StartChangedEvent
}

func NewBaseEvent(eventType EventType, documentID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		DocumentID: documentID,
		Metadata:   make(map[string]any),
	}
}
