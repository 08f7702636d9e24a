package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonathan/jobtriage/internal/types"
)

// Store persists the whole queue. Callers do read-modify-write under the
// queue mutex, so implementations need not be safe for concurrent writers.
type Store interface {
	Load(ctx context.Context) ([]types.Submission, error)
	Save(ctx context.Context, subs []types.Submission) error
}

// FileStore keeps the queue as a pretty-printed JSON array on disk
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns an empty queue when the file does not exist yet.
func (s *FileStore) Load(_ context.Context) ([]types.Submission, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.Submission{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	if len(data) == 0 {
		return []types.Submission{}, nil
	}

	var subs []types.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse queue file %s: %w", s.Path, err)
	}
	return subs, nil
}

// Save writes to a temp file in the same directory and renames it over the
// queue file, so readers never see a partial write.
func (s *FileStore) Save(_ context.Context, subs []types.Submission) error {
	if subs == nil {
		subs = []types.Submission{}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create queue directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace queue file: %w", err)
	}
	return nil
}
