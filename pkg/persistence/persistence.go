// Package persistence provides the data storage abstraction layer for workflow documents.
package persistence

import (
	"context"

	"github.com/ckpd/flowcanvas/pkg/models"
)

type Persistence interface {
	Documents(ctx context.Context) ([]*models.DocumentRecord, error)
	SaveDocument(ctx context.Context, record *models.DocumentRecord) error
	DocumentByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	DeleteDocument(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
