// Package redis provides Redis persistence for workflow documents.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence"
)

const keyPrefix = "flowcanvas:documents:"

// Persistence implements the persistence layer on top of Redis. Each
// document is one JSON value under flowcanvas:documents:<id>.
type Persistence struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

// NewPersistence creates a new Redis persistence layer from a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck verifies the Redis connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Documents returns all stored documents, sorted by ID.
func (p *Persistence) Documents(ctx context.Context) ([]*models.DocumentRecord, error) {
	var (
		cursor uint64
		keys   []string
	)

	for {
		batch, next, err := p.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, persistence.NewStoreError("Documents", "", fmt.Errorf("failed to scan document keys: %w", err))
		}

		keys = append(keys, batch...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Strings(keys)

	records := make([]*models.DocumentRecord, 0, len(keys))

	for _, key := range keys {
		record, err := p.DocumentByID(ctx, key[len(keyPrefix):])
		if err != nil {
			return nil, err
		}

		if record != nil {
			records = append(records, record)
		}
	}

	return records, nil
}

// DocumentByID returns a document by its ID, or nil if it does not exist.
func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	body, err := p.client.Get(ctx, keyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("DocumentByID", id, fmt.Errorf("failed to get document: %w", err))
	}

	var record models.DocumentRecord

	err = json.Unmarshal([]byte(body), &record)
	if err != nil {
		return nil, persistence.NewStoreError("DocumentByID", id,
			fmt.Errorf("%w: %w", persistence.ErrInvalidDocument, err))
	}

	return &record, nil
}

// SaveDocument stores a document.
func (p *Persistence) SaveDocument(ctx context.Context, record *models.DocumentRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	data, err := json.Marshal(record)
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to marshal document: %w", err))
	}

	err = p.client.Set(ctx, keyPrefix+record.ID, data, 0).Err()
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to set document: %w", err))
	}

	return nil
}

// DeleteDocument removes a document by its ID. Deleting a missing document
// is a no-op.
func (p *Persistence) DeleteDocument(ctx context.Context, id string) error {
	err := p.client.Del(ctx, keyPrefix+id).Err()
	if err != nil {
		return persistence.NewStoreError("Delete", id, fmt.Errorf("failed to delete document: %w", err))
	}

	return nil
}
