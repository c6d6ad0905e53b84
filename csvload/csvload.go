// Package csvload is the default CSV loader collaborator (spec.md §6
// `importTable`): it parses a declared-schema CSV stream into a
// diffql.ColumnTable, grounded on the teacher's CSVImporter
// (cmd/sample/csv_importer.go) tolerant-row-skipping discipline.
package csvload

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/outlierql/diffql"
	"go.uber.org/zap"
)

// ColumnSpec declares one expected output column: its name (matched against
// the CSV header) and its scalar type.
type ColumnSpec struct {
	Name string
	Type diffql.ScalarType
}

// ImportError describes one CSV row that failed to import.
type ImportError struct {
	RowNumber int    // CSV row number (1-based, including header)
	Column    string // declared column that failed to parse, if applicable
	RawValue  string // original CSV value
	Reason    string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("row %d, column %q: value %q - %s", e.RowNumber, e.Column, e.RawValue, e.Reason)
}

// ImportResult summarizes one Import call.
type ImportResult struct {
	TotalRows    int
	SuccessCount int
	FailedCount  int
	Errors       []*ImportError
	Duration     time.Duration
}

// Summary returns a human-readable one-line summary.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf("import completed: %d/%d rows successful, %d failed, duration: %v",
		r.SuccessCount, r.TotalRows, r.FailedCount, r.Duration)
}

// Importer loads CSV data into a ColumnTable against a declared schema.
type Importer struct {
	logger *zap.SugaredLogger
}

// NewImporter constructs an Importer. A nil logger falls back to a no-op logger.
func NewImporter(logger *zap.SugaredLogger) *Importer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Importer{logger: logger}
}

// SetLogger replaces the importer's logger.
func (imp *Importer) SetLogger(logger *zap.SugaredLogger) {
	imp.logger = logger
}

// Import parses r against spec. A row that fails to parse a declared Double
// column is skipped and recorded in the returned ImportResult, not fatal to
// the import; an unreadable stream or a header missing a declared column
// fails fast with a diffql.QueryError{Kind: ImportError}.
func (imp *Importer) Import(r io.Reader, spec []ColumnSpec) (*diffql.ColumnTable, *ImportResult, error) {
	start := time.Now()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, diffql.NewQueryError(diffql.ImportError, "failed to read CSV header").WithCause(err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}
	for _, cs := range spec {
		if _, ok := colIndex[cs.Name]; !ok {
			return nil, nil, diffql.NewQueryError(diffql.ImportError, fmt.Sprintf("CSV header missing declared column %q", cs.Name)).WithIdentifier(cs.Name)
		}
	}

	doubles := make([][]float64, len(spec))
	strs := make([][]string, len(spec))
	for i, cs := range spec {
		if cs.Type == diffql.Double {
			doubles[i] = []float64{}
		} else {
			strs[i] = []string{}
		}
	}

	result := &ImportResult{Errors: []*ImportError{}}
	rowNum := 1 // header is row 1

	for {
		rowNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			imp.logger.Warnw("CSV parsing error", "row", rowNum, "error", err)
			result.FailedCount++
			result.Errors = append(result.Errors, &ImportError{RowNumber: rowNum, Reason: fmt.Sprintf("CSV parsing error: %v", err)})
			continue
		}
		result.TotalRows++

		rowDoubles := make([]float64, len(spec))
		rowStrs := make([]string, len(spec))
		failed := false
		for i, cs := range spec {
			raw := record[colIndex[cs.Name]]
			if cs.Type == diffql.Double {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					imp.logger.Warnw("CSV row rejected", "row", rowNum, "column", cs.Name, "value", raw)
					result.Errors = append(result.Errors, &ImportError{RowNumber: rowNum, Column: cs.Name, RawValue: raw, Reason: "not a valid double"})
					failed = true
					break
				}
				rowDoubles[i] = v
			} else {
				rowStrs[i] = raw
			}
		}
		if failed {
			result.FailedCount++
			continue
		}

		for i, cs := range spec {
			if cs.Type == diffql.Double {
				doubles[i] = append(doubles[i], rowDoubles[i])
			} else {
				strs[i] = append(strs[i], rowStrs[i])
			}
		}
		result.SuccessCount++
	}

	cols := make([]*diffql.Column, len(spec))
	for i, cs := range spec {
		if cs.Type == diffql.Double {
			cols[i] = &diffql.Column{Name: cs.Name, Type: diffql.Double, Doubles: doubles[i]}
		} else {
			cols[i] = &diffql.Column{Name: cs.Name, Type: diffql.String, Strings: strs[i]}
		}
	}
	result.Duration = time.Since(start)
	imp.logger.Infow("CSV import finished", "summary", result.Summary())

	return diffql.NewColumnTable(cols), result, nil
}
