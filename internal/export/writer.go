// Package export persists feature rows incrementally to a JSON store
// (an object keyed by username) and a CSV store (header plus one row
// per username). Both files are rewritten through a temporary file and
// an atomic rename, so a concurrent reader never observes a partial
// write.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

const (
	jsonSuffix = "_features.json"
	csvSuffix  = "_ml_features.csv"
)

// Writer is the exclusive-write handle to the output stores of one run.
// Append calls are serialized internally; workers may call it
// concurrently.
type Writer struct {
	mu       sync.Mutex
	jsonPath string
	csvPath  string
	columns  []string
	rows     map[string]domain.FeatureRow
	order    []string // first-append order, drives CSV row order
}

// NewWriter opens the stores for the given filename prefix. An existing
// JSON store is loaded so an interrupted run can be resumed and
// re-processed targets overwrite their previous rows.
func NewWriter(prefix string, columns []string) (*Writer, error) {
	w := &Writer{
		jsonPath: prefix + jsonSuffix,
		csvPath:  prefix + csvSuffix,
		columns:  columns,
		rows:     make(map[string]domain.FeatureRow),
	}

	if err := w.loadExisting(); err != nil {
		return nil, apperrors.NewPersistenceError("load existing JSON store", err)
	}
	return w, nil
}

// JSONPath returns the path of the JSON store
func (w *Writer) JSONPath() string { return w.jsonPath }

// CSVPath returns the path of the CSV store
func (w *Writer) CSVPath() string { return w.csvPath }

// Len returns the number of rows currently held
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

// Append merges the row into both stores and flushes them. Rows for
// distinct usernames union; a repeated username overwrites its previous
// row (last-write-wins, CSV rebuilt deduplicated). On a flush failure
// the in-memory row is kept, so it reaches disk with the next
// successful Append, but the failure is surfaced as a persistence
// error for this call.
func (w *Writer) Append(row domain.FeatureRow) error {
	key, ok := row["username"].(string)
	if !ok || key == "" {
		return apperrors.NewInternalError("feature row has no username", nil)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.rows[key]; !exists {
		w.order = append(w.order, key)
	}
	w.rows[key] = row

	if err := w.flushJSON(); err != nil {
		return apperrors.NewPersistenceError("write JSON store", err)
	}
	if err := w.flushCSV(); err != nil {
		return apperrors.NewPersistenceError("write CSV store", err)
	}
	return nil
}

func (w *Writer) loadExisting() error {
	data, err := os.ReadFile(w.jsonPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &w.rows); err != nil {
		return err
	}
	for key := range w.rows {
		w.order = append(w.order, key)
	}
	sort.Strings(w.order)
	return nil
}

func (w *Writer) flushJSON() error {
	data, err := json.MarshalIndent(w.rows, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(w.jsonPath, data)
}

func (w *Writer) flushCSV() error {
	tmp, err := os.CreateTemp(filepath.Dir(w.csvPath), ".csv-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(w.columns); err != nil {
		tmp.Close()
		return err
	}

	for _, key := range w.order {
		row := w.rows[key]
		record := make([]string, len(w.columns))
		for i, col := range w.columns {
			record[i] = formatCell(row[col])
		}
		if err := cw.Write(record); err != nil {
			tmp.Close()
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), w.csvPath)
}

func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".json-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// formatCell renders one scalar as a CSV cell. JSON round-trips turn
// counts into float64, so integral floats print without a fraction.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
