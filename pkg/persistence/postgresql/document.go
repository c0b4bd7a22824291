package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence"
)

// DocumentRepository handles document-related database operations.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

// GetAll returns all documents from the database.
func (r *DocumentRepository) GetAll(ctx context.Context) ([]*models.DocumentRecord, error) {
	query := `
		SELECT
			id
		  , name
		  , definition
		  , metadata
		  , created_at
		  , updated_at
		FROM documents
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence.NewStoreError("Documents", "", fmt.Errorf("failed to query documents: %w", err))
	}

	defer func(ctx context.Context, r *DocumentRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	records := make([]*models.DocumentRecord, 0)

	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, persistence.NewStoreError("Documents", "", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("Documents", "", fmt.Errorf("error iterating documents: %w", err))
	}

	return records, nil
}

// GetByID retrieves a document by its ID. Returns (nil, nil) when the
// document does not exist.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	query := `
		SELECT
			id
		  , name
		  , definition
		  , metadata
		  , created_at
		  , updated_at
		FROM documents
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	record, err := r.scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("DocumentByID", id, err)
	}

	return record, nil
}

// Save upserts a document in the database.
func (r *DocumentRepository) Save(ctx context.Context, record *models.DocumentRecord) error {
	now := time.Now().UTC()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	definition, err := json.Marshal(record.Definition)
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to marshal definition: %w", err))
	}

	var metadata []byte
	if record.Metadata != nil {
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to marshal metadata: %w", err))
		}
	}

	query := `
		INSERT INTO documents (id, name, definition, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			definition = EXCLUDED.definition,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.Name, definition, metadata, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to upsert document: %w", err))
	}

	return nil
}

// Delete removes a document by its ID. Deleting a missing document is a no-op.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", id, fmt.Errorf("failed to delete document: %w", err))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DocumentRepository) scanRecord(row rowScanner) (*models.DocumentRecord, error) {
	var (
		record     models.DocumentRecord
		definition []byte
		metadata   sql.NullString
	)

	err := row.Scan(&record.ID, &record.Name, &definition, &metadata, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	record.Definition = &models.Document{}

	err = json.Unmarshal(definition, record.Definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrInvalidDocument, err)
	}

	if metadata.Valid && metadata.String != "" {
		err = json.Unmarshal([]byte(metadata.String), &record.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &record, nil
}
