// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package casestore persists classified case records and serves them back
// to the browse views. The file backend keeps the table as one delimited
// text file; the sqlite backend keeps it in an insertion-ordered table.
// Both expose a single Append call to writers so the read-merge-write
// sequence never leaks into callers.
package casestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/pkg/types"
)

// Loader reads the whole case table.
type Loader interface {
	LoadTable(ctx context.Context) (*types.Table, error)
}

// Appender appends records to the case table as one unit: either all of
// them become visible to readers or none do.
type Appender interface {
	Append(ctx context.Context, records []types.CaseRecord) error
}

// Store is a case table backend.
type Store interface {
	Loader
	Appender
	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(cfg types.StoreConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Backend {
	case types.StoreCSV, "":
		return NewCSVStore(cfg, logger), nil
	case types.StoreSQLite:
		return NewSQLiteStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported store backend %q: use csv or sqlite", cfg.Backend)
	}
}

// AppendRecords returns a new table holding existing's rows followed by
// records, in order. A nil existing table is treated as empty. Neither
// input is modified and nothing is deduplicated.
func AppendRecords(existing *types.Table, records []types.CaseRecord) *types.Table {
	out := types.NewTable()
	if existing != nil {
		out.Columns = append([]string(nil), existing.Columns...)
		out.Records = make([]types.CaseRecord, 0, len(existing.Records)+len(records))
		out.Records = append(out.Records, existing.Records...)
	}
	for _, rec := range records {
		for name := range rec.Extra {
			out.AddColumn(name)
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// CheckRecords reports the first record that may not enter the case table:
// every record needs text and a category a record may carry.
func CheckRecords(records []types.CaseRecord) error {
	for i, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			return types.NewValidationError("text", fmt.Sprintf("record %d has no text", i+1))
		}
		if !rec.Category.IsRecordCategory() {
			return types.NewValidationError("category", fmt.Sprintf("record %d has unknown category %q", i+1, rec.Category))
		}
	}
	return nil
}

const defaultLockTimeout = 5 * time.Second

// CSVStore keeps the case table in a single delimited file.
type CSVStore struct {
	path        string
	lockTimeout time.Duration
	logger      *logrus.Logger

	// mu serializes Append within the process; the file lock covers
	// other processes sharing the same file.
	mu   sync.Mutex
	lock *flock.Flock

	// rename is os.Rename; tests replace it to simulate a failed write.
	rename func(oldpath, newpath string) error
}

// NewCSVStore returns a store backed by cfg.CasesPath. The file need not exist.
func NewCSVStore(cfg types.StoreConfig, logger *logrus.Logger) *CSVStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &CSVStore{
		path:        cfg.CasesPath,
		lockTimeout: timeout,
		logger:      logger,
		lock:        flock.New(cfg.CasesPath + ".lock"),
		rename:      os.Rename,
	}
}

// Path returns the backing file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Close releases the advisory lock handle.
func (s *CSVStore) Close() error {
	return s.lock.Close()
}

// LoadTable reads the full table. It returns types.ErrStoreUnavailable
// when the backing file does not exist.
func (s *CSVStore) LoadTable(ctx context.Context) (*types.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("opening %s: %w", s.path, types.ErrStoreUnavailable)
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return table, nil
}

// PersistTable overwrites the backing file with table. The content is
// written to a temporary file in the same directory and renamed over the
// old file, so a failure leaves the previous content in place.
func (s *CSVStore) PersistTable(ctx context.Context, table *types.Table) error {
	if err := s.persist(table); err != nil {
		return &types.PersistenceError{Op: "persist table", Err: err}
	}
	return nil
}

func (s *CSVStore) persist(table *types.Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := WriteCSV(tmp, table); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := s.rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	committed = true
	return nil
}

// Append loads the current table (empty when the file does not exist yet),
// appends records and persists the result, holding both the in-process
// mutex and the advisory file lock for the whole sequence. Records failing
// CheckRecords are refused with a ValidationError before anything is read.
func (s *CSVStore) Append(ctx context.Context, records []types.CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := CheckRecords(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &types.PersistenceError{Op: "lock table", Err: err}
	}
	locked, err := s.lock.TryLockContext(lockCtx, 20*time.Millisecond)
	if err != nil || !locked {
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return &types.PersistenceError{Op: "lock table", Err: err}
	}
	defer s.lock.Unlock()

	existing, err := s.LoadTable(ctx)
	if err != nil && !errors.Is(err, types.ErrStoreUnavailable) {
		return &types.PersistenceError{Op: "load table", Err: err}
	}

	if err := s.PersistTable(ctx, AppendRecords(existing, records)); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"path":     s.path,
		"appended": len(records),
		"total":    existing.Len() + len(records),
	}).Debug("Appended case records")
	return nil
}
