package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStore keeps each table as one CSV file under a data directory
type FilesystemStore struct {
	dataPath string
}

// NewFilesystemStore creates a filesystem-backed table store, creating
// the data directory if absent
func NewFilesystemStore(dataPath string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FilesystemStore{dataPath: dataPath}, nil
}

func (fs *FilesystemStore) tablePath(tableID string) string {
	return filepath.Join(fs.dataPath, tableID+".csv")
}

// Put replaces the table by writing to a temp file and renaming it into
// place, so a crash mid-write never leaves a truncated table behind
func (fs *FilesystemStore) Put(ctx context.Context, tableID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fs.dataPath, tableID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for table %s: %w", tableID, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write table %s: %w", tableID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close table %s: %w", tableID, err)
	}

	if err := os.Rename(tmp.Name(), fs.tablePath(tableID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace table %s: %w", tableID, err)
	}
	return nil
}

// Get reads the full contents of a table
func (fs *FilesystemStore) Get(ctx context.Context, tableID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.tablePath(tableID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", tableID, err)
	}
	return data, nil
}
