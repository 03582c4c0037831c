package repo

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

// FileStore keeps one gob-encoded value in a file. Writes go to a
// temporary sibling that is renamed over the target.
type FileStore[T any] struct {
	path string
}

func NewFileStore[T any](path string) *FileStore[T] {
	return &FileStore[T]{path: path}
}

// Read reports ok=false when the file is missing or empty.
func (s *FileStore[T]) Read(ctx context.Context) (v T, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return v, false, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return v, true, nil
}

func (s *FileStore[T]) Write(ctx context.Context, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Remove deletes the file. A missing file is not an error.
func (s *FileStore[T]) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}

// RecordFile is the binary snapshot of all records.
type RecordFile struct {
	file *FileStore[[]model.Record]
}

func NewRecordFile(path string) *RecordFile {
	return &RecordFile{file: NewFileStore[[]model.Record](path)}
}

func (r *RecordFile) Load(ctx context.Context) ([]model.Record, error) {
	recs, ok, err := r.file.Read(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return recs, nil
}

func (r *RecordFile) Save(ctx context.Context, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	return r.file.Write(ctx, records)
}
