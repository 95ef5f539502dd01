// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package casestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medonboard/pkg/types"
)

// --- test helpers ---

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func testCSVStore(t *testing.T) *CSVStore {
	t.Helper()
	cfg := types.StoreConfig{
		Backend:     types.StoreCSV,
		CasesPath:   filepath.Join(t.TempDir(), "data", "classified_data.csv"),
		LockTimeout: time.Second,
	}
	s := NewCSVStore(cfg, testLogger())
	t.Cleanup(func() { s.Close() })
	return s
}

func stamp() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.Local)
}

func sampleRecords(author string) []types.CaseRecord {
	ts := stamp()
	return []types.CaseRecord{
		{
			Text:      "Patient has Flu, prescribed Paracetamol",
			Category:  types.CategoryCaseStudy,
			Diseases:  "Flu",
			Medicines: "Paracetamol",
			Feedback:  "missed \"fever\", please retrain",
			Author:    author,
			Timestamp: ts,
		},
		{Text: "Flu", Category: types.CategoryDisease, Author: author, Timestamp: ts},
		{Text: "Paracetamol", Category: types.CategoryMedicine, Author: author, Timestamp: ts},
	}
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// --- csv codec ---

func TestReadCSVMissingColumnsAreEmpty(t *testing.T) {
	input := "text,category,author,timestamp\n" +
		"Flu,Disease,expert,2024-05-01 10:00:00.123456\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	rec := table.Records[0]
	assert.Equal(t, "Flu", rec.Text)
	assert.Equal(t, types.CategoryDisease, rec.Category)
	assert.Empty(t, rec.Diseases)
	assert.Empty(t, rec.Feedback)
	assert.Equal(t, 123456000, rec.Timestamp.Nanosecond())
	assert.Equal(t, types.CaseColumns, table.Columns)
}

func TestReadCSVKeepsUnknownColumns(t *testing.T) {
	input := "\ufefftext,category,source,author\n" +
		"Some note,Case Study,ward-3,expert\n" +
		"Other,Disease,,trainee\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "source", table.Columns[len(table.Columns)-1])
	assert.Equal(t, "Some note", table.Records[0].Text)
	assert.Equal(t, map[string]string{"source": "ward-3"}, table.Records[0].Extra)
	assert.Nil(t, table.Records[1].Extra)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Contains(t, buf.String(), "Some note,Case Study,,,,,expert,,ward-3")
}

func TestReadCSVTimestampLayouts(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantRaw string
	}{
		{"pandas microseconds", "2024-05-01 10:00:00.123456", time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.Local), ""},
		{"seconds", "2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local), ""},
		{"zoned microseconds", "2024-05-01 10:00:00.123456+00:00", time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), ""},
		{"zoned seconds", "2024-05-01 10:00:00-05:00", time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC), ""},
		{"rfc3339", "2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ""},
		{"date only", "2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local), ""},
		{"empty", "", time.Time{}, ""},
		{"unknown layout kept raw", "yesterday", time.Time{}, "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "text,category,timestamp\nx,Disease," + tt.value + "\n"
			table, err := ReadCSV(strings.NewReader(input))
			require.NoError(t, err)
			require.Equal(t, 1, table.Len())
			rec := table.Records[0]
			assert.True(t, tt.want.Equal(rec.Timestamp), "got %v", rec.Timestamp)
			assert.Equal(t, tt.wantRaw, rec.RawTimestamp)
		})
	}
}

func TestUnparsedTimestampRoundTrips(t *testing.T) {
	input := "text,category,timestamp\nx,Disease,last tuesday\n"
	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Contains(t, buf.String(), "x,Disease,,,,,,last tuesday\n")
}

func TestAppendAfterForeignTimestamp(t *testing.T) {
	s := testCSVStore(t)
	writeRaw(t, s.Path(), "text,category,author,timestamp\n"+
		"Patient has Flu,Case Study,expert,2024-05-01 10:00:00.123456+00:00\n"+
		"Old row,Disease,expert,sometime in May\n")

	require.NoError(t, s.Append(context.Background(), sampleRecords("expert")))

	table, err := s.LoadTable(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2+len(sampleRecords("expert")), table.Len())
	assert.False(t, table.Records[0].Timestamp.IsZero())
	assert.Equal(t, "sometime in May", table.Records[1].RawTimestamp)
}

func TestReadCSVEmptyInput(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestWriteCSVQuotesMultilineText(t *testing.T) {
	table := types.NewTable()
	table.Records = []types.CaseRecord{{
		Text:     "line one,\nline \"two\"",
		Category: types.CategoryCaseStudy,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, "line one,\nline \"two\"", back.Records[0].Text)
}

// --- AppendRecords ---

func TestAppendRecords(t *testing.T) {
	existing := types.NewTable()
	existing.Records = sampleRecords("expert")[:1]

	dup := sampleRecords("expert")[:1]
	dup[0].Extra = map[string]string{"source": "import"}

	got := AppendRecords(existing, dup)

	assert.Equal(t, 2, got.Len(), "duplicates are not removed")
	assert.Equal(t, 1, existing.Len(), "input table is not modified")
	assert.Contains(t, got.Columns, "source")
	assert.NotContains(t, existing.Columns, "source")
}

func TestAppendRecordsNilExisting(t *testing.T) {
	got := AppendRecords(nil, sampleRecords("expert"))
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, types.CaseColumns, got.Columns)
}

// --- CSVStore ---

func TestLoadTableMissingFileIsUnavailable(t *testing.T) {
	s := testCSVStore(t)
	_, err := s.LoadTable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStoreUnavailable))
}

func TestAppendCreatesFileAndPreservesOrder(t *testing.T) {
	s := testCSVStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleRecords("expert")))
	require.NoError(t, s.Append(ctx, sampleRecords("second")))

	table, err := s.LoadTable(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, table.Len())

	assert.Equal(t, "Patient has Flu, prescribed Paracetamol", table.Records[0].Text)
	assert.Equal(t, "Paracetamol", table.Records[2].Text)
	assert.Equal(t, "second", table.Records[3].Author)
	assert.Equal(t, `missed "fever", please retrain`, table.Records[0].Feedback)
	assert.True(t, stamp().Equal(table.Records[0].Timestamp))
}

func TestAppendNothingLeavesStoreAbsent(t *testing.T) {
	s := testCSVStore(t)
	require.NoError(t, s.Append(context.Background(), nil))
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestPersistLoadRoundTripIsIdempotent(t *testing.T) {
	s := testCSVStore(t)
	ctx := context.Background()

	writeRaw(t, s.Path(), "text,category,diseases,symptoms,medicines,feedback,author,timestamp,ward\n"+
		"\"Fever, cough\",Case Study,,\"fever, cough\",,,expert,2024-05-01 10:00:00.000001,A\n"+
		"fever,Symptom,,,,,expert,2024-05-01 10:00:00.000001,\n")

	first, err := s.LoadTable(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PersistTable(ctx, first))
	once, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	second, err := s.LoadTable(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PersistTable(ctx, second))
	twice, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Equal(t, first, second)
}

func TestPersistFailureLeavesPreviousContent(t *testing.T) {
	s := testCSVStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleRecords("expert")))
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	s.rename = func(string, string) error { return errors.New("disk full") }

	err = s.Append(ctx, sampleRecords("lost"))
	require.Error(t, err)
	assert.True(t, types.IsPersistence(err))

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	table, err := s.LoadTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files are removed on failure")
}

func TestAppendUnreadableTableFails(t *testing.T) {
	s := testCSVStore(t)
	writeRaw(t, s.Path(), "text,category\nx,Dis\"ease\n")

	err := s.Append(context.Background(), sampleRecords("expert"))
	require.Error(t, err)
	assert.True(t, types.IsPersistence(err))
}

// TestUnsynchronizedReadModifyWriteLosesRows shows why writers must go
// through Append: two sessions that each load, append and persist on
// their own both start from the same prior table, and the second
// overwrite silently drops the first session's rows.
func TestUnsynchronizedReadModifyWriteLosesRows(t *testing.T) {
	s := testCSVStore(t)
	ctx := context.Background()
	require.NoError(t, s.PersistTable(ctx, types.NewTable()))

	tableA, err := s.LoadTable(ctx)
	require.NoError(t, err)
	tableB, err := s.LoadTable(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PersistTable(ctx, AppendRecords(tableA, sampleRecords("session-a"))))
	require.NoError(t, s.PersistTable(ctx, AppendRecords(tableB, sampleRecords("session-b"))))

	final, err := s.LoadTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, final.Len(), "session-a's three rows were overwritten")
	for _, rec := range final.Records {
		assert.Equal(t, "session-b", rec.Author)
	}
}

func TestConcurrentAppendKeepsEveryRow(t *testing.T) {
	s := testCSVStore(t)
	ctx := context.Background()

	const sessions = 8
	var wg sync.WaitGroup
	errs := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Append(ctx, sampleRecords(fmt.Sprintf("session-%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	table, err := s.LoadTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, sessions*3, table.Len())
}

func TestConcurrentAppendAcrossStoreInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")
	cfg := types.StoreConfig{CasesPath: path, LockTimeout: 5 * time.Second}
	a := NewCSVStore(cfg, testLogger())
	b := NewCSVStore(cfg, testLogger())
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); assert.NoError(t, a.Append(ctx, sampleRecords("a"))) }()
		go func() { defer wg.Done(); assert.NoError(t, b.Append(ctx, sampleRecords("b"))) }()
	}
	wg.Wait()

	table, err := a.LoadTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, table.Len())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(types.StoreConfig{Backend: "parquet"}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store backend")
}

func TestAppendRefusesInvalidRecords(t *testing.T) {
	tests := []struct {
		name  string
		rec   types.CaseRecord
		field string
	}{
		{"blank text", types.CaseRecord{Text: "  ", Category: types.CategoryDisease}, "text"},
		{"unknown category", types.CaseRecord{Text: "Flu", Category: "Organ"}, "category"},
		{"missing category", types.CaseRecord{Text: "Flu"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testCSVStore(t)
			records := append(sampleRecords("expert"), tt.rec)

			err := s.Append(context.Background(), records)
			var ve *types.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)

			_, err = s.LoadTable(context.Background())
			assert.True(t, errors.Is(err, types.ErrStoreUnavailable), "nothing written")
		})
	}

	assert.NoError(t, CheckRecords([]types.CaseRecord{{Text: "fever", Category: types.CategorySymptom}}))
}
