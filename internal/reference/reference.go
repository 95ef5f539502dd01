// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reference loads the curated disease and medicine knowledge bases.
// Both are delimited files read wholesale; parsed tables are cached and
// reused until the file changes on disk.
package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/medonboard/pkg/types"
)

// Column names of the knowledge base files. The disease file uses
// capitalized headers, the medicine file lowercase ones.
const (
	diseaseName       = "Name"
	diseaseSymptoms   = "Symptoms"
	diseaseTreatments = "Treatments"

	medicineName        = "name"
	medicineDescription = "description"
	medicineIndication  = "indication"
	medicineDosage      = "dosage"
)

const defaultCacheSize = 8

// Library serves the disease and medicine knowledge bases.
type Library struct {
	diseasePath  string
	medicinePath string

	mu    sync.Mutex
	cache *lru.Cache[string, cachedFile]
}

type cachedFile struct {
	modTime time.Time
	size    int64
	rows    []map[string]string
}

// NewLibrary returns a library reading the files named in cfg.
func NewLibrary(cfg types.ReferenceConfig) (*Library, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, cachedFile](size)
	if err != nil {
		return nil, fmt.Errorf("creating reference cache: %w", err)
	}
	return &Library{
		diseasePath:  cfg.DiseasePath,
		medicinePath: cfg.MedicinePath,
		cache:        cache,
	}, nil
}

// Diseases returns every disease fact in file order. It returns
// types.ErrStoreUnavailable when the file does not exist.
func (l *Library) Diseases() ([]types.DiseaseFact, error) {
	rows, err := l.rows(l.diseasePath)
	if err != nil {
		return nil, err
	}
	facts := make([]types.DiseaseFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, types.DiseaseFact{
			Name:       row[diseaseName],
			Symptoms:   row[diseaseSymptoms],
			Treatments: row[diseaseTreatments],
		})
	}
	return facts, nil
}

// Medicines returns every medicine fact in file order. It returns
// types.ErrStoreUnavailable when the file does not exist.
func (l *Library) Medicines() ([]types.MedicineFact, error) {
	rows, err := l.rows(l.medicinePath)
	if err != nil {
		return nil, err
	}
	facts := make([]types.MedicineFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, types.MedicineFact{
			Name:        row[medicineName],
			Description: row[medicineDescription],
			Indication:  row[medicineIndication],
			Dosage:      row[medicineDosage],
		})
	}
	return facts, nil
}

// Disease returns the first fact named name.
func (l *Library) Disease(name string) (types.DiseaseFact, bool, error) {
	facts, err := l.Diseases()
	if err != nil {
		return types.DiseaseFact{}, false, err
	}
	for _, f := range facts {
		if f.Name == name {
			return f, true, nil
		}
	}
	return types.DiseaseFact{}, false, nil
}

// Medicine returns the first fact named name.
func (l *Library) Medicine(name string) (types.MedicineFact, bool, error) {
	facts, err := l.Medicines()
	if err != nil {
		return types.MedicineFact{}, false, err
	}
	for _, f := range facts {
		if f.Name == name {
			return f, true, nil
		}
	}
	return types.MedicineFact{}, false, nil
}

func (l *Library) rows(path string) ([]map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, types.ErrStoreUnavailable)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if hit, ok := l.cache.Get(path); ok && hit.modTime.Equal(info.ModTime()) && hit.size == info.Size() {
		return hit.rows, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	l.cache.Add(path, cachedFile{modTime: info.ModTime(), size: info.Size(), rows: rows})
	return rows, nil
}

// readRows parses a headed delimited file into one map per row.
func readRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
