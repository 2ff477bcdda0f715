package core

// Summary is the raw output of a statistics engine for one batch request.
type Summary struct {
	// Metrics holds the engine's metric names in the engine's own order.
	Metrics []string

	// Values maps each requested column to one value per metric, aligned
	// with Metrics.
	Values map[string][]float64
}

// Engine is the opaque statistics capability. Implementations compute a
// fixed set of metrics for every requested numeric column of a table in a
// single batched call. They must not mutate the table, and their metric
// names and ordering are preserved verbatim by the caller.
type Engine interface {
	Summarize(t *Table, columns []string) (*Summary, error)
}
