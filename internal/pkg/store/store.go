package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"ratewatch/internal/pkg/models"
)

// All store failures wrap this sentinel; they are fatal to the run.
var ErrPersistence = errors.New("persistence failed")

const (
	recordFile = "last_download.json"
	lockFile   = "last_download.lock"
)

// Keeps the singleton DownloadRecord in a JSON file under the data
// directory, guarded by a cross-process file lock so overlapping
// scheduler invocations cannot race the read-decide-write cycle.
type Store struct {
	dir  string
	lock *flock.Flock
}

// Creates a record store rooted at dir, creating the directory when
// missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", ErrPersistence, err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

// Acquires the exclusive lock, waiting up to the context deadline.
// Callers must hold the lock across Load and Save of one run.
func (s *Store) Lock(ctx context.Context) error {
	ok, err := s.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w: acquire lock: %v", ErrPersistence, err)
	}
	if !ok {
		return fmt.Errorf("%w: lock held by another invocation", ErrPersistence)
	}
	return nil
}

// Releases the exclusive lock.
func (s *Store) Unlock() {
	// Unlock on a held flock only fails if the descriptor is gone,
	// which the run cannot recover from anyway.
	_ = s.lock.Unlock()
}

// Loads the persisted record. found is false on the very first run,
// before any record has been written.
func (s *Store) Load() (*models.DownloadRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, recordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: read record: %v", ErrPersistence, err)
	}

	var rec models.DownloadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: decode record: %v", ErrPersistence, err)
	}
	return &rec, true, nil
}

// Saves the record with a temp-file write followed by an atomic
// rename, so a crash mid-save leaves the previous record intact.
func (s *Store) Save(rec *models.DownloadRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(s.dir, recordFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp record: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp record: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp record: %v", ErrPersistence, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, recordFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: swap record: %v", ErrPersistence, err)
	}
	return nil
}
