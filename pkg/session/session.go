package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/eventbus"
	"github.com/ckpd/flowcanvas/pkg/events"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/otelhelper"
)

// Session is one open editing surface over a document. Structural mutations
// go through the session so they are republished as events; non-structural
// edits (selection, data fields, positions) go straight to the canvas.
type Session struct {
	ID         string
	DocumentID string

	manager *Manager
	record  *models.DocumentRecord
	canvas  *canvas.Canvas
}

// Canvas exposes the underlying editor state for reads and non-structural edits.
func (s *Session) Canvas() *canvas.Canvas {
	return s.canvas
}

// Record returns the persistence envelope the session was opened from.
func (s *Session) Record() *models.DocumentRecord {
	return s.record
}

// AddNode adds a node of the given variant and announces it.
func (s *Session) AddNode(ctx context.Context, nodeType string) (*models.GraphNode, error) {
	node, err := s.canvas.AddNode(nodeType)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NodeAdded{
		BaseEvent: s.newBaseEvent(events.NodeAddedEvent),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})

	return node, nil
}

// RenameNode renames a node and announces it.
func (s *Session) RenameNode(ctx context.Context, oldID, newID string) error {
	err := s.canvas.RenameNode(oldID, newID)
	if err != nil {
		return err
	}

	if oldID == newID {
		return nil
	}

	s.publish(ctx, events.NodeRenamed{
		BaseEvent: s.newBaseEvent(events.NodeRenamedEvent),
		OldID:     oldID,
		NewID:     newID,
	})

	return nil
}

// DeleteNode removes a node, cascading to its edges, and announces it.
func (s *Session) DeleteNode(ctx context.Context, id string) error {
	removed := 0

	for _, edge := range s.canvas.Graph().Edges {
		if edge.Source == id || edge.Target == id {
			removed++
		}
	}

	err := s.canvas.DeleteNode(id)
	if err != nil {
		return err
	}

	s.publish(ctx, events.NodeDeleted{
		BaseEvent:    s.newBaseEvent(events.NodeDeletedEvent),
		NodeID:       id,
		EdgesRemoved: removed,
	})

	return nil
}

// SetStart moves the start flag and announces it.
func (s *Session) SetStart(ctx context.Context, id string) error {
	oldStart := ""
	if node := s.canvas.Graph().StartNode(); node != nil {
		oldStart = node.ID
	}

	err := s.canvas.SetStart(id)
	if err != nil {
		return err
	}

	s.publish(ctx, events.StartChanged{
		BaseEvent: s.newBaseEvent(events.StartChangedEvent),
		OldStart:  oldStart,
		NewStart:  id,
	})

	return nil
}

// Connect adds an edge with the variant's default label and announces it.
func (s *Session) Connect(ctx context.Context, source, target string) (*models.Edge, error) {
	edge, err := s.canvas.Connect(source, target)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EdgeConnected{
		BaseEvent: s.newBaseEvent(events.EdgeConnectedEvent),
		EdgeID:    edge.ID,
		Source:    edge.Source,
		Target:    edge.Target,
		Label:     edge.Label,
	})

	return edge, nil
}

// RelabelEdge changes an edge label and announces it.
func (s *Session) RelabelEdge(ctx context.Context, id, label string) error {
	oldLabel := ""
	if edge := s.canvas.Graph().EdgeByID(id); edge != nil {
		oldLabel = edge.Label
	}

	err := s.canvas.RelabelEdge(id, label)
	if err != nil {
		return err
	}

	s.publish(ctx, events.EdgeRelabeled{
		BaseEvent: s.newBaseEvent(events.EdgeRelabeledEvent),
		EdgeID:    id,
		OldLabel:  oldLabel,
		NewLabel:  label,
	})

	return nil
}

// DeleteEdge removes an edge and announces it.
func (s *Session) DeleteEdge(ctx context.Context, id string) error {
	var source, target, label string

	if edge := s.canvas.Graph().EdgeByID(id); edge != nil {
		source, target, label = edge.Source, edge.Target, edge.Label
	}

	err := s.canvas.DeleteEdge(id)
	if err != nil {
		return err
	}

	s.publish(ctx, events.EdgeDeleted{
		BaseEvent: s.newBaseEvent(events.EdgeDeletedEvent),
		EdgeID:    id,
		Source:    source,
		Target:    target,
		Label:     label,
	})

	return nil
}

// Save exports the canvas back to document form, persists the record and
// announces the save.
func (s *Session) Save(ctx context.Context) error {
	ctx, span := otelhelper.StartSpan(ctx, s.manager.tracer, "session.save",
		attribute.String(otelhelper.DocumentIDKey, s.DocumentID),
		attribute.String(otelhelper.SessionIDKey, s.ID))
	defer span.End()

	doc, err := s.manager.exporter.Export(s.canvas.Graph())
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	s.record.Definition = doc

	err = s.manager.persistence.SaveDocument(ctx, s.record)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	graph := s.canvas.Graph()
	s.publish(ctx, events.DocumentSaved{
		BaseEvent:    s.newBaseEvent(events.DocumentSavedEvent),
		DocumentName: s.record.Name,
		NodeCount:    len(graph.Nodes),
		EdgeCount:    len(graph.Edges),
	})

	return nil
}

func (s *Session) newBaseEvent(eventType events.EventType) events.BaseEvent {
	base := events.NewBaseEvent(eventType, s.DocumentID)
	base.SessionID = s.ID

	return base
}

// publish is best-effort: a mutation that already succeeded is not rolled
// back because the bus refused the notification. Failures go to the caller's
// context logger so they carry the caller's attributes.
func (s *Session) publish(ctx context.Context, event eventbus.Event) {
	err := s.manager.eventBus.Publish(ctx, s.DocumentID, event)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "failed to publish session event",
			"event_type", event.GetType(),
			"document_id", s.DocumentID,
			"error", err)
	}
}
