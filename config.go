package diffql

// EngineConfig consolidates engine-wide tunables, following the teacher's
// nested Config/QueryConfig grouping.
type EngineConfig struct {
	Diff       DiffConfig       `json:"diff"`
	AutoSelect AutoSelectConfig `json:"autoSelect"`
	Logging    LoggingConfig    `json:"logging"`
}

// DiffConfig holds default DIFF/DIFF-JOIN thresholds plus the thread count
// forwarded to the explanation engine (spec.md §5). Only ThreadCount is read
// by the engine; the DIFF evaluators take MaxOrder, MinSupport and MinRatio
// from the query itself and do not fall back to the Default* fields.
type DiffConfig struct {
	DefaultMaxOrder   int     `json:"defaultMaxOrder"`
	DefaultMinSupport float64 `json:"defaultMinSupport"`
	DefaultMinRatio   float64 `json:"defaultMinRatio"`
	ThreadCount       int     `json:"threadCount"`
}

// AutoSelectConfig parameterizes the `ON *` auto attribute-selection
// heuristic (spec.md §4.5 step 1).
type AutoSelectConfig struct {
	SampleSize       int     `json:"sampleSize"`       // default 1000
	MaxDistinctRatio float64 `json:"maxDistinctRatio"` // default 0.25 (distinct < sampleSize/4)
}

// LoggingConfig names a sugared-zap logger level. The engine does not read
// it: every component logs through the *zap.SugaredLogger it is given.
type LoggingConfig struct {
	Level string `json:"level"`
}

// DefaultEngineConfig returns the engine's documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Diff: DiffConfig{
			DefaultMaxOrder:   1,
			DefaultMinSupport: 0.1,
			DefaultMinRatio:   1.0,
			ThreadCount:       1,
		},
		AutoSelect: AutoSelectConfig{
			SampleSize:       1000,
			MaxDistinctRatio: 0.25,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
