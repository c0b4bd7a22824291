package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence"
)

// DocumentRepository handles document-related file operations. Each document
// lives in its own JSON file under <root>/documents/.
type DocumentRepository struct {
	root string
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{root: root}
}

// GetAll returns all documents from the file system, sorted by ID.
func (dr *DocumentRepository) GetAll(ctx context.Context) ([]*models.DocumentRecord, error) {
	root := os.DirFS(dr.documentsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewStoreError("Documents", "", fmt.Errorf("failed to list document files: %w", err))
	}

	sort.Strings(jsonFiles)

	records := make([]*models.DocumentRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		documentID := file[:len(file)-5] // Remove .json extension

		record, err := dr.GetByID(ctx, documentID)
		if err != nil {
			return nil, err
		}

		if record != nil {
			records = append(records, record)
		}
	}

	return records, nil
}

// GetByID retrieves a document by its ID from the file system. Returns
// (nil, nil) when the document does not exist.
func (dr *DocumentRepository) GetByID(_ context.Context, documentID string) (*models.DocumentRecord, error) {
	filePath := filepath.Clean(path.Join(dr.documentsDir(), documentID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("DocumentByID", documentID, fmt.Errorf("failed to read document file: %w", err))
	}

	var record models.DocumentRecord

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, persistence.NewStoreError("DocumentByID", documentID,
			fmt.Errorf("%w: %w", persistence.ErrInvalidDocument, err))
	}

	return &record, nil
}

// Save writes a document to the file system. The write goes through a
// temporary file and rename so a crash never leaves a truncated document.
func (dr *DocumentRepository) Save(_ context.Context, record *models.DocumentRecord) error {
	err := os.MkdirAll(dr.documentsDir(), 0750)
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to create documents directory: %w", err))
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to marshal document: %w", err))
	}

	filePath := path.Join(dr.documentsDir(), record.ID+".json")

	tmp, err := os.CreateTemp(dr.documentsDir(), record.ID+".*.tmp")
	if err != nil {
		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to create temp file: %w", err))
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to write document: %w", err))
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to close temp file: %w", err))
	}

	err = os.Rename(tmp.Name(), filePath)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.NewStoreError("Save", record.ID, fmt.Errorf("failed to replace document file: %w", err))
	}

	return nil
}

// Delete removes a document by its ID. Deleting a missing document is a no-op.
func (dr *DocumentRepository) Delete(_ context.Context, id string) error {
	filePath := path.Join(dr.documentsDir(), id+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewStoreError("Delete", id, fmt.Errorf("failed to delete document file: %w", err))
	}

	return nil
}

func (dr *DocumentRepository) documentsDir() string {
	return path.Join(dr.root, "documents")
}
