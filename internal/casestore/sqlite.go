// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/pkg/types"
)

// SQLiteStore keeps the case table in SQLite. Rows are keyed by an
// autoincrement sequence so LoadTable returns them in insertion order,
// and each Append runs in one transaction.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens or creates the database at cfg.SQLitePath and
// creates the schema if it does not exist.
func NewSQLiteStore(cfg types.StoreConfig, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(cfg.SQLitePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.SQLitePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection makes every Append a single writer.
	db.SetMaxOpenConns(1)

	s := newSQLiteStore(db, logger)
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func newSQLiteStore(db *sql.DB, logger *logrus.Logger) *SQLiteStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SQLiteStore{db: db, logger: logger}
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS case_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			diseases TEXT NOT NULL DEFAULT '',
			symptoms TEXT NOT NULL DEFAULT '',
			medicines TEXT NOT NULL DEFAULT '',
			feedback TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL DEFAULT '',
			extra TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_records_category ON case_records(category)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// LoadTable returns every row in insertion order. It reports
// types.ErrStoreUnavailable while the table is empty, matching the file
// backend before its first save.
func (s *SQLiteStore) LoadTable(ctx context.Context) (*types.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, category, diseases, symptoms, medicines, feedback, author, timestamp, extra
		 FROM case_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying case records: %w", err)
	}
	defer rows.Close()

	table := types.NewTable()
	var extraColumns []string
	seen := make(map[string]bool)

	for rows.Next() {
		var (
			rec       types.CaseRecord
			category  string
			timestamp string
			extraJSON sql.NullString
		)
		if err := rows.Scan(
			&rec.Text, &category, &rec.Diseases, &rec.Symptoms, &rec.Medicines,
			&rec.Feedback, &rec.Author, &timestamp, &extraJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Category = types.Category(category)

		setTimestamp(&rec, timestamp)

		if extraJSON.Valid && extraJSON.String != "" {
			if err := json.Unmarshal([]byte(extraJSON.String), &rec.Extra); err != nil {
				return nil, fmt.Errorf("decoding extra columns: %w", err)
			}
			for name := range rec.Extra {
				if !seen[name] {
					seen[name] = true
					extraColumns = append(extraColumns, name)
				}
			}
		}

		table.Records = append(table.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating case records: %w", err)
	}

	if len(table.Records) == 0 {
		return nil, fmt.Errorf("case_records is empty: %w", types.ErrStoreUnavailable)
	}

	sort.Strings(extraColumns)
	for _, name := range extraColumns {
		table.AddColumn(name)
	}
	return table, nil
}

// Append inserts records in one transaction. Any failure rolls back
// every row of the call.
func (s *SQLiteStore) Append(ctx context.Context, records []types.CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := CheckRecords(records); err != nil {
		return err
	}
	if err := s.insert(ctx, records); err != nil {
		return &types.PersistenceError{Op: "append records", Err: err}
	}

	s.logger.WithField("appended", len(records)).Debug("Appended case records")
	return nil
}

func (s *SQLiteStore) insert(ctx context.Context, records []types.CaseRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO case_records (text, category, diseases, symptoms, medicines, feedback, author, timestamp, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		var extra sql.NullString
		if len(rec.Extra) > 0 {
			data, err := json.Marshal(rec.Extra)
			if err != nil {
				return fmt.Errorf("encoding extra columns of record %d: %w", i, err)
			}
			extra = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Text, string(rec.Category), rec.Diseases, rec.Symptoms, rec.Medicines,
			rec.Feedback, rec.Author, timestampCell(rec), extra,
		); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Import copies every row readable from src into dst as one append and
// returns the number of rows copied. A missing source imports nothing.
func Import(ctx context.Context, src Loader, dst Appender) (int, error) {
	table, err := src.LoadTable(ctx)
	if err != nil {
		if errors.Is(err, types.ErrStoreUnavailable) {
			return 0, nil
		}
		return 0, fmt.Errorf("loading source table: %w", err)
	}
	if err := dst.Append(ctx, table.Records); err != nil {
		return 0, err
	}
	return table.Len(), nil
}
