// Package stats implements the statistics engine on top of gonum.
//
// The engine produces a describe-style summary for each requested numeric
// column: count, mean, sample standard deviation, minimum, the quartiles,
// and maximum. Null cells are excluded from every metric.
package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tabstats/tabstats/internal/core"
)

// metricNames is the engine's metric set, in presentation order.
// Callers preserve these names and this order verbatim.
var metricNames = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Engine computes summary statistics using gonum.
type Engine struct{}

// New returns a gonum-backed engine.
func New() *Engine { return &Engine{} }

// Summarize computes the full metric set for every requested column in one
// batched call. The table is read, never mutated. A requested column with no
// numeric values is an engine failure; callers are expected to have
// validated column types beforehand.
func (e *Engine) Summarize(t *core.Table, columns []string) (*core.Summary, error) {
	values := make(map[string][]float64, len(columns))

	for _, name := range columns {
		if _, done := values[name]; done {
			continue
		}

		xs := t.NumericValues(name)
		if len(xs) == 0 {
			return nil, fmt.Errorf("column %q has no numeric values", name)
		}

		sorted := make([]float64, len(xs))
		copy(sorted, xs)
		sort.Float64s(sorted)

		values[name] = []float64{
			float64(len(xs)),
			stat.Mean(xs, nil),
			stat.StdDev(xs, nil),
			floats.Min(sorted),
			stat.Quantile(0.25, stat.LinInterp, sorted, nil),
			stat.Quantile(0.50, stat.LinInterp, sorted, nil),
			stat.Quantile(0.75, stat.LinInterp, sorted, nil),
			floats.Max(sorted),
		}
	}

	metrics := make([]string, len(metricNames))
	copy(metrics, metricNames)

	return &core.Summary{Metrics: metrics, Values: values}, nil
}
