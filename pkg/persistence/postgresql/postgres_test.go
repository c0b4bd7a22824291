package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"documents", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowcanvas_test"),
			postgres.WithUsername("flowcanvas"),
			postgres.WithPassword("flowcanvas"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func testDocumentRecord(t *testing.T, id string) *models.DocumentRecord {
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

	return &models.DocumentRecord{
		ID:         id,
		Name:       "Integration Test Document",
		Definition: doc,
		Metadata:   map[string]any{"team": "payments"},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var version int

	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPersistence_DocumentLifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	record := testDocumentRecord(t, "doc-lifecycle")
	require.NoError(t, p.SaveDocument(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	loaded, err := p.DocumentByID(ctx, "doc-lifecycle")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Integration Test Document", loaded.Name)
	assert.Equal(t, "payments", loaded.Metadata["team"])
	require.NotNil(t, loaded.Definition)
	assert.Equal(t, "intake", loaded.Definition.StartNode)
	assert.Len(t, loaded.Definition.Nodes, 3)

	// Update and re-save should upsert, not duplicate.
	loaded.Name = "Renamed Document"
	require.NoError(t, p.SaveDocument(ctx, loaded))

	all, err := p.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed Document", all[0].Name)

	require.NoError(t, p.DeleteDocument(ctx, "doc-lifecycle"))

	missing, err := p.DocumentByID(ctx, "doc-lifecycle")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPersistence_DefinitionRoundTripsThroughJSONB(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	doc, err := models.ParseDocument([]byte(`{
		"start_node": "gate",
		"nodes": {
			"gate": {
				"type": "logic",
				"condition": "amount > 100",
				"rules": [
					{"condition": "amount > 1000", "next_node": "manual"},
					{"condition": "amount > 100", "next_node": "auto"}
				],
				"sla_hours": 4
			},
			"manual": {"type": "terminate"},
			"auto": {"type": "terminate"}
		}
	}`))
	require.NoError(t, err)

	record := &models.DocumentRecord{ID: "doc-rt", Name: "Round Trip", Definition: doc}
	require.NoError(t, p.SaveDocument(ctx, record))

	loaded, err := p.DocumentByID(ctx, "doc-rt")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	gate := loaded.Definition.Nodes["gate"]
	require.NotNil(t, gate)
	require.Len(t, gate.Rules, 2)
	assert.Equal(t, "manual", gate.Rules[0].NextNode)
	assert.Contains(t, gate.Rest, "sla_hours")
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))
}
