package records

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/TobiSchelling/wonderpick/internal/recommend"
)

// FileStore keeps records as a JSON array in a single file, the format of
// the original data/wonder.json.
type FileStore struct {
	path string

	// mu serializes read-modify-write cycles so concurrent appends are not lost.
	mu sync.Mutex
}

// NewFileStore creates a FileStore backed by path. The file is created on first use.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (fs *FileStore) Path() string {
	return fs.path
}

// ReadAll returns all records, creating an empty file if none exists yet.
func (fs *FileStore) ReadAll(ctx context.Context) ([]recommend.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.load()
	if errors.Is(err, os.ErrNotExist) {
		if err := fs.write([]recommend.Record{}); err != nil {
			return nil, err
		}
		return []recommend.Record{}, nil
	}
	return recs, err
}

// Append adds rec to the end of the file.
func (fs *FileStore) Append(ctx context.Context, rec recommend.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return fs.write(append(recs, rec))
}

func (fs *FileStore) load() ([]recommend.Record, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, err
	}
	recs := []recommend.Record{}
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fs.path, err)
	}
	return recs, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (fs *FileStore) write(recs []recommend.Record) error {
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("replacing %s: %w", fs.path, err)
	}
	return nil
}

// LoadFile reads a wonder.json file without creating it and validates every record.
func LoadFile(path string) ([]recommend.Record, error) {
	fs := NewFileStore(path)
	recs, err := fs.load()
	if err != nil {
		return nil, err
	}
	for i, rec := range recs {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
	}
	return recs, nil
}
