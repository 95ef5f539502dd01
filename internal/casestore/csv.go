// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package casestore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/medonboard/pkg/types"
)

// TimestampLayout is the layout timestamps are written with.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// readLayouts are tried in order when parsing a timestamp cell.
var readLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ReadCSV parses a delimited case table. Columns are matched by name;
// columns missing from the header read as empty, and columns this version
// does not know are kept in CaseRecord.Extra. A timestamp cell in no known
// layout is kept verbatim in CaseRecord.RawTimestamp. An empty input is an
// empty table.
func ReadCSV(r io.Reader) (*types.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return types.NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := types.NewTable()
	for _, name := range header {
		table.AddColumn(name)
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		table.Records = append(table.Records, recordFromRow(header, row))
	}

	return table, nil
}

func recordFromRow(header, row []string) types.CaseRecord {
	var rec types.CaseRecord
	for i, name := range header {
		if i >= len(row) {
			break
		}
		value := row[i]
		switch name {
		case types.ColText:
			rec.Text = value
		case types.ColCategory:
			rec.Category = types.Category(value)
		case types.ColDiseases:
			rec.Diseases = value
		case types.ColSymptoms:
			rec.Symptoms = value
		case types.ColMedicines:
			rec.Medicines = value
		case types.ColFeedback:
			rec.Feedback = value
		case types.ColAuthor:
			rec.Author = value
		case types.ColTimestamp:
			setTimestamp(&rec, value)
		default:
			if value == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = value
		}
	}
	return rec
}

// setTimestamp parses value into rec.Timestamp, falling back to
// rec.RawTimestamp so a foreign cell survives a rewrite of the table.
func setTimestamp(rec *types.CaseRecord, value string) {
	ts, err := parseTimestamp(value)
	if err != nil {
		rec.RawTimestamp = value
		return
	}
	rec.Timestamp = ts
}

// timestampCell is the inverse of setTimestamp.
func timestampCell(rec types.CaseRecord) string {
	if rec.Timestamp.IsZero() && rec.RawTimestamp != "" {
		return rec.RawTimestamp
	}
	return formatTimestamp(rec.Timestamp)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range readLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q: unknown layout", s)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(TimestampLayout)
}

// WriteCSV serializes table with a header row. It is used both to persist
// the store and to produce downloads, so the two are byte-identical.
func WriteCSV(w io.Writer, table *types.Table) error {
	columns := types.CaseColumns
	if table != nil && len(table.Columns) > 0 {
		columns = table.Columns
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if table != nil {
		row := make([]string, len(columns))
		for i, rec := range table.Records {
			for j, name := range columns {
				row[j] = cellValue(rec, name)
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing row %d: %w", i+1, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func cellValue(rec types.CaseRecord, column string) string {
	switch column {
	case types.ColText:
		return rec.Text
	case types.ColCategory:
		return string(rec.Category)
	case types.ColDiseases:
		return rec.Diseases
	case types.ColSymptoms:
		return rec.Symptoms
	case types.ColMedicines:
		return rec.Medicines
	case types.ColFeedback:
		return rec.Feedback
	case types.ColAuthor:
		return rec.Author
	case types.ColTimestamp:
		return timestampCell(rec)
	}
	return rec.Extra[column]
}
