// Command diffqldemo runs a single SPLIT...DIFF explanation query against
// either a user-supplied CSV file or a small built-in sample table, and
// prints the result table. Grounded on cmd/sample/main.go's flag-driven,
// non-interactive shape, adapted from a database-backed importer to an
// in-memory query engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/outlierql/diffql"
	"github.com/outlierql/diffql/csvload"
	"github.com/outlierql/diffql/internal/engine"
	"github.com/outlierql/diffql/internal/explain"
	"go.uber.org/zap"
)

func main() {
	csvFile := flag.String("csv", "", "Path to a CSV file to load (columns: state,city,metric). Defaults to a built-in sample.")
	attrs := flag.String("attrs", "state,city", "Comma-separated list of candidate explain attributes")
	minSupport := flag.Float64("min-support", 0.1, "Minimum support threshold")
	minRatio := flag.Float64("min-ratio", 2.0, "Minimum ratio-metric threshold")
	maxOrder := flag.Int("max-order", 1, "Maximum attribute combination order")
	verbose := flag.Bool("verbose", false, "Enable debug-level logging")
	flag.Parse()

	zapCfg := zap.NewProductionConfig()
	if *verbose {
		zapCfg.Level.SetLevel(zap.DebugLevel)
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	table, err := loadTable(*csvFile, logger)
	if err != nil {
		logger.Fatalw("failed to load table", "error", err)
	}

	store := engine.NewTableStore(logger)
	store.Import("t", table)

	cfg := diffql.DefaultEngineConfig()
	disp := engine.NewDispatcher(store, explain.NewEngine(logger), cfg, logger)

	body := &diffql.DiffQuerySpec{
		Split: &diffql.SplitClause{
			From: &diffql.TableRef{Name: "t"},
			Where: &diffql.Comparison{
				Left:  &diffql.Identifier{Name: "metric"},
				Op:    diffql.OpGt,
				Right: &diffql.DoubleLiteral{Value: 5},
			},
		},
		Attributes:  strings.Split(*attrs, ","),
		RatioMetric: "global_ratio",
		MaxOrder:    *maxOrder,
		MinSupport:  *minSupport,
		MinRatio:    *minRatio,
		Select:      []diffql.SelectItem{diffql.AllColumns{}},
	}

	result, err := disp.Execute(context.Background(), body)
	if err != nil {
		logger.Fatalw("query failed", "error", err)
	}

	printTable(result)
}

func loadTable(csvFile string, logger *zap.SugaredLogger) (*diffql.ColumnTable, error) {
	if csvFile == "" {
		return sampleTable(), nil
	}
	f, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	importer := csvload.NewImporter(logger)
	table, result, err := importer.Import(f, []csvload.ColumnSpec{
		{Name: "state", Type: diffql.String},
		{Name: "city", Type: diffql.String},
		{Name: "metric", Type: diffql.Double},
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("CSV import finished", "summary", result.Summary())
	if result.FailedCount > 0 {
		for _, e := range result.Errors {
			logger.Warnw("skipped row", "error", e.Error())
		}
	}
	return table, nil
}

func sampleTable() *diffql.ColumnTable {
	return diffql.NewColumnTable([]*diffql.Column{
		{Name: "state", Type: diffql.String, Strings: []string{"CA", "CA", "CA", "TX", "TX", "FL"}},
		{Name: "city", Type: diffql.String, Strings: []string{"SF", "SF", "LA", "AUS", "AUS", "MIA"}},
		{Name: "metric", Type: diffql.Double, Doubles: []float64{10, 12, 11, 1, 2, 1}},
	})
}

func printTable(t *diffql.ColumnTable) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fields := t.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))

	for row := 0; row < t.NumRows(); row++ {
		cells := make([]string, len(fields))
		for i, f := range fields {
			col := t.ColumnByName(f.Name)
			if f.Type == diffql.Double {
				cells[i] = fmt.Sprintf("%g", col.Doubles[row])
			} else {
				cells[i] = col.Strings[row]
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}
