package casestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medonboard/pkg/types"
)

func testSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := types.StoreConfig{
		Backend:    types.StoreSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "index", "cases.db"),
	}
	s, err := NewSQLiteStore(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreEmptyIsUnavailable(t *testing.T) {
	s := testSQLiteStore(t)
	_, err := s.LoadTable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStoreUnavailable))
}

func TestSQLiteStoreAppendAndLoad(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	recs := sampleRecords("expert")
	recs[1].Extra = map[string]string{"ward": "3"}
	require.NoError(t, s.Append(ctx, recs))
	require.NoError(t, s.Append(ctx, sampleRecords("trainee")))

	table, err := s.LoadTable(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, table.Len())

	assert.Equal(t, recs[0].Text, table.Records[0].Text)
	assert.Equal(t, types.CategoryCaseStudy, table.Records[0].Category)
	assert.Equal(t, "Flu", table.Records[0].Diseases)
	assert.Equal(t, "3", table.Records[1].Extra["ward"])
	assert.Equal(t, "trainee", table.Records[5].Author)
	assert.True(t, stamp().Equal(table.Records[0].Timestamp))
	assert.Contains(t, table.Columns, "ward")
}

func TestSQLiteStoreKeepsUnparsedTimestamp(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStore(t)

	rec := types.CaseRecord{Text: "Flu", Category: types.CategoryDisease, RawTimestamp: "sometime in May"}
	require.NoError(t, s.Append(ctx, []types.CaseRecord{rec}))

	table, err := s.LoadTable(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.True(t, table.Records[0].Timestamp.IsZero())
	assert.Equal(t, "sometime in May", table.Records[0].RawTimestamp)
}

func TestSQLiteStoreAppendRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLiteStore(db, testLogger())

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO case_records")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = s.Append(context.Background(), sampleRecords("expert"))
	require.Error(t, err)
	assert.True(t, types.IsPersistence(err))
	assert.Contains(t, err.Error(), "inserting record 1")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreLoadQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLiteStore(db, testLogger())
	mock.ExpectQuery("SELECT text, category").WillReturnError(errors.New("database is locked"))

	_, err = s.LoadTable(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportCopiesCSVIntoSQLite(t *testing.T) {
	ctx := context.Background()
	src := testCSVStore(t)
	dst := testSQLiteStore(t)

	n, err := Import(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "missing source imports nothing")

	require.NoError(t, src.Append(ctx, sampleRecords("expert")))
	n, err = Import(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	table, err := dst.LoadTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
}
