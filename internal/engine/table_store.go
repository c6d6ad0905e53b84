package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/outlierql/diffql"
	"go.uber.org/zap"
)

// TableStore is a process-local mapping from table name to an immutable
// ColumnTable (spec.md §2 component 1, §3 "tablesInMemory"). Reads return an
// independent shallow copy so that a caller's subsequent addColumn cannot
// leak back into the cached table (spec.md §8 invariant 5). Mutation is
// confined to table-import operations (spec.md §5); the mutex exists so a
// multi-threaded host can safely share one TableStore, as §5 recommends.
type TableStore struct {
	mu     sync.RWMutex
	tables map[string]*diffql.ColumnTable
	logger *zap.SugaredLogger
}

// NewTableStore constructs an empty store. A nil logger falls back to a
// no-op logger.
func NewTableStore(logger *zap.SugaredLogger) *TableStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TableStore{tables: make(map[string]*diffql.ColumnTable), logger: logger}
}

// Import registers table under name, replacing any existing table of that
// name. Each import is tagged with a generation id purely for log
// correlation across concurrent imports.
func (s *TableStore) Import(name string, table *diffql.ColumnTable) {
	genID := uuid.New()
	s.mu.Lock()
	s.tables[name] = table
	s.mu.Unlock()
	s.logger.Infow("table imported", "table", name, "rows", table.NumRows(), "generation", genID)
}

// Get returns a shallow copy of the named table, or TableNotFound.
func (s *TableStore) Get(name string) (*diffql.ColumnTable, error) {
	s.mu.RLock()
	t, ok := s.tables[name]
	s.mu.RUnlock()
	if !ok {
		return nil, diffql.NewQueryError(diffql.TableNotFound, "table not found").WithIdentifier(name)
	}
	return t.Copy(), nil
}

// Names returns every registered table name. Iteration order is
// non-deterministic, matching spec.md §5 ("iteration order over the table
// store is not observable externally").
func (s *TableStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MapKeys(s.tables)
}
