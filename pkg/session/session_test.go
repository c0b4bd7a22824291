package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/channels/gochannel"
	"github.com/ckpd/flowcanvas/pkg/eventbus"
	"github.com/ckpd/flowcanvas/pkg/events"
	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence"
	"github.com/ckpd/flowcanvas/pkg/persistence/file"
	"github.com/ckpd/flowcanvas/pkg/registry"
	"github.com/ckpd/flowcanvas/pkg/testutil"
)

type eventRecorder struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *eventRecorder) record(eventType events.EventType) eventbus.EventHandler {
	return func(_ context.Context, _ interface{}) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.types = append(r.types, eventType)

		return nil
	}
}

func (r *eventRecorder) seen() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]events.EventType(nil), r.types...)
}

func (r *eventRecorder) waitFor(t *testing.T, eventType events.EventType) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, seen := range r.seen() {
			if seen == eventType {
				return
			}
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for event %s", eventType)
}

func newTestManager(t *testing.T) (*Manager, persistence.Persistence, *eventRecorder) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := file.NewPersistence(t.TempDir())

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	recorder := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.DocumentOpenedEvent, events.DocumentSavedEvent,
		events.NodeAddedEvent, events.NodeRenamedEvent, events.NodeDeletedEvent,
		events.EdgeConnectedEvent, events.EdgeRelabeledEvent, events.EdgeDeletedEvent,
		events.StartChangedEvent,
	} {
		require.NoError(t, bus.Handle(eventType, recorder.record(eventType)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, bus.Subscribe(ctx))

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultVariants()

	engine, err := layout.NewEngine(layout.DefaultOptions())
	require.NoError(t, err)

	importer := canvas.NewImporter(logger, reg, engine)
	exporter := canvas.NewExporter(logger, reg)

	manager := NewManager(logger, p, bus, reg, importer, exporter, nil)

	return manager, p, recorder
}

func seedDocument(t *testing.T, p persistence.Persistence, id string) {
	t.Helper()

	doc, err := models.ParseDocument([]byte(`{
		"start_node": "intake",
		"nodes": {
			"intake": {"type": "sequence", "next_node": "review"},
			"review": {"type": "human_approval", "on_approve": "done", "on_reject": "intake"},
			"done": {"type": "terminate", "status": "success"}
		}
	}`))
	require.NoError(t, err)

	record := testutil.CreateTestRecord(
		testutil.WithRecordID(id),
		testutil.WithRecordName("Session Test"),
		testutil.WithDefinition(doc),
	)
	require.NoError(t, p.SaveDocument(context.Background(), record))
}

func TestManager_OpenSession(t *testing.T) {
	manager, p, recorder := newTestManager(t)
	seedDocument(t, p, "doc-1")

	session, err := manager.OpenSession(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "doc-1", session.DocumentID)
	assert.Len(t, session.Canvas().Graph().Nodes, 3)

	recorder.waitFor(t, events.DocumentOpenedEvent)
}

func TestManager_OpenSession_MissingDocument(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.OpenSession(context.Background(), "no-such-doc")
	require.Error(t, err)
	assert.True(t, persistence.IsDocumentNotFound(err))
}

func TestManager_SingleWriterPerDocument(t *testing.T) {
	manager, p, _ := newTestManager(t)
	seedDocument(t, p, "doc-1")

	ctx := context.Background()

	first, err := manager.OpenSession(ctx, "doc-1")
	require.NoError(t, err)

	_, err = manager.OpenSession(ctx, "doc-1")
	require.ErrorIs(t, err, ErrDocumentLocked)

	require.NoError(t, manager.CloseSession(first.ID))

	second, err := manager.OpenSession(ctx, "doc-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestManager_CloseSession_Unknown(t *testing.T) {
	manager, _, _ := newTestManager(t)

	err := manager.CloseSession("no-such-session")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_MutationsPublishEvents(t *testing.T) {
	manager, p, recorder := newTestManager(t)
	seedDocument(t, p, "doc-1")

	ctx := context.Background()

	session, err := manager.OpenSession(ctx, "doc-1")
	require.NoError(t, err)

	node, err := session.AddNode(ctx, "processing")
	require.NoError(t, err)
	recorder.waitFor(t, events.NodeAddedEvent)

	edge, err := session.Connect(ctx, "done", node.ID)
	require.NoError(t, err)
	recorder.waitFor(t, events.EdgeConnectedEvent)

	require.NoError(t, session.RelabelEdge(ctx, edge.ID, "retry"))
	recorder.waitFor(t, events.EdgeRelabeledEvent)

	require.NoError(t, session.DeleteEdge(ctx, edge.ID))
	recorder.waitFor(t, events.EdgeDeletedEvent)

	require.NoError(t, session.RenameNode(ctx, node.ID, "enrich"))
	recorder.waitFor(t, events.NodeRenamedEvent)

	require.NoError(t, session.SetStart(ctx, "review"))
	recorder.waitFor(t, events.StartChangedEvent)

	require.NoError(t, session.DeleteNode(ctx, "enrich"))
	recorder.waitFor(t, events.NodeDeletedEvent)
}

func TestSession_RejectedMutationPublishesNothing(t *testing.T) {
	manager, p, recorder := newTestManager(t)
	seedDocument(t, p, "doc-1")

	ctx := context.Background()

	session, err := manager.OpenSession(ctx, "doc-1")
	require.NoError(t, err)
	recorder.waitFor(t, events.DocumentOpenedEvent)

	_, err = session.AddNode(ctx, "not_a_variant")
	require.Error(t, err)

	err = session.RenameNode(ctx, "intake", "review")
	require.Error(t, err)

	for _, seen := range recorder.seen() {
		assert.NotContains(t, []events.EventType{events.NodeAddedEvent, events.NodeRenamedEvent}, seen)
	}
}

func TestSession_SaveRoundTripsDocument(t *testing.T) {
	manager, p, recorder := newTestManager(t)
	seedDocument(t, p, "doc-1")

	ctx := context.Background()

	session, err := manager.OpenSession(ctx, "doc-1")
	require.NoError(t, err)

	require.NoError(t, session.RenameNode(ctx, "intake", "triage"))
	require.NoError(t, session.Save(ctx))
	recorder.waitFor(t, events.DocumentSavedEvent)

	stored, err := p.DocumentByID(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "triage", stored.Definition.StartNode)
	assert.Contains(t, stored.Definition.Nodes, "triage")
	assert.NotContains(t, stored.Definition.Nodes, "intake")
	assert.Equal(t, "triage", stored.Definition.Nodes["review"].Connections["on_reject"])
}
