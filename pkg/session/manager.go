// Package session serializes document editing: one writer per document,
// mutations flowing out as events.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/eventbus"
	"github.com/ckpd/flowcanvas/pkg/events"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/otelhelper"
	"github.com/ckpd/flowcanvas/pkg/persistence"
	"github.com/ckpd/flowcanvas/pkg/registry"
)

var (
	// ErrDocumentLocked indicates the document is already open in another session.
	ErrDocumentLocked = errors.New("document already open in another session")

	// ErrSessionNotFound indicates no open session matches the given identifier.
	ErrSessionNotFound = errors.New("session not found")
)

// Manager owns the single-writer-per-document serialization. Core editing
// packages assume one writer; the manager enforces it.
type Manager struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *registry.Registry
	importer    *canvas.Importer
	exporter    *canvas.Exporter
	tracer      trace.Tracer

	mu   sync.Mutex
	open map[string]*Session // keyed by document ID
}

// NewManager creates a session manager. A nil tracer disables tracing.
func NewManager(
	logger *slog.Logger,
	p persistence.Persistence,
	bus eventbus.EventBus,
	reg *registry.Registry,
	importer *canvas.Importer,
	exporter *canvas.Exporter,
	tracer trace.Tracer,
) *Manager {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("flowcanvas")
	}

	return &Manager{
		logger:      logger,
		persistence: p,
		eventBus:    bus,
		registry:    reg,
		importer:    importer,
		exporter:    exporter,
		tracer:      tracer,
		open:        make(map[string]*Session),
	}
}

// OpenSession loads a document, imports it into a canvas and claims the
// document's writer slot.
func (m *Manager) OpenSession(ctx context.Context, documentID string) (*Session, error) {
	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "session.open",
		attribute.String(otelhelper.DocumentIDKey, documentID))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.open[documentID]; exists {
		otelhelper.SetError(span, ErrDocumentLocked)

		return nil, fmt.Errorf("failed to open document %s: %w", documentID, ErrDocumentLocked)
	}

	record, err := m.persistence.DocumentByID(ctx, documentID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	if record == nil {
		otelhelper.SetError(span, persistence.ErrDocumentNotFound)

		return nil, persistence.NewStoreError("OpenSession", documentID, persistence.ErrDocumentNotFound)
	}

	graph, err := m.importer.Import(record.Definition)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to import document %s: %w", documentID, err)
	}

	session := &Session{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		manager:    m,
		record:     record,
		canvas:     canvas.NewCanvas(m.logger, m.registry, graph),
	}

	m.open[documentID] = session
	span.SetAttributes(attribute.String(otelhelper.SessionIDKey, session.ID))

	ctx = log.IntoContext(ctx, m.logger.With(
		"document_id", documentID, "session_id", session.ID))

	session.publish(ctx, events.DocumentOpened{
		BaseEvent:    session.newBaseEvent(events.DocumentOpenedEvent),
		DocumentName: record.Name,
		NodeCount:    len(graph.Nodes),
		EdgeCount:    len(graph.Edges),
	})

	return session, nil
}

// CloseSession releases the writer slot held by the given session.
func (m *Manager) CloseSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for documentID, session := range m.open {
		if session.ID == sessionID {
			delete(m.open, documentID)

			return nil
		}
	}

	return fmt.Errorf("failed to close session %s: %w", sessionID, ErrSessionNotFound)
}
