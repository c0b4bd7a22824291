// Package postgresql provides PostgreSQL persistence for workflow documents.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	documentRepo *DocumentRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	documentRepo := NewDocumentRepository(database, logger)

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		documentRepo: documentRepo,
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Documents returns all documents from the database.
func (p *Persistence) Documents(ctx context.Context) ([]*models.DocumentRecord, error) {
	return p.documentRepo.GetAll(ctx)
}

// DocumentByID returns a document by its ID.
func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	return p.documentRepo.GetByID(ctx, id)
}

// SaveDocument saves a document to the database.
func (p *Persistence) SaveDocument(ctx context.Context, record *models.DocumentRecord) error {
	return p.documentRepo.Save(ctx, record)
}

// DeleteDocument removes a document by its ID.
func (p *Persistence) DeleteDocument(ctx context.Context, id string) error {
	return p.documentRepo.Delete(ctx, id)
}
