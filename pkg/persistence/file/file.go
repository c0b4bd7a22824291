// Package file provides file-based persistence for workflow documents.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	documentRepo *DocumentRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		documentRepo: NewDocumentRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Documents returns all stored documents.
func (fp *Persistence) Documents(ctx context.Context) ([]*models.DocumentRecord, error) {
	return fp.documentRepo.GetAll(ctx)
}

// DocumentByID returns a document by its ID, or nil if it does not exist.
func (fp *Persistence) DocumentByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	return fp.documentRepo.GetByID(ctx, id)
}

// SaveDocument saves a document to the file system.
func (fp *Persistence) SaveDocument(ctx context.Context, record *models.DocumentRecord) error {
	return fp.documentRepo.Save(ctx, record)
}

// DeleteDocument removes a document by its ID.
func (fp *Persistence) DeleteDocument(ctx context.Context, id string) error {
	return fp.documentRepo.Delete(ctx, id)
}
