package core

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Element is one row of a ResultSet: the metrics computed for one requested
// source column.
type Element struct {
	Name   string
	Values []float64 // aligned with the ResultSet's MetricColumns
}

// ResultSet is an immutable statistics table: one element per requested
// column, in request order, one column per engine metric.
type ResultSet struct {
	SourceDatasetID string
	MetricColumns   []string
	Elements        []Element
}

// WriteCSV serializes the result as a CSV document. The header row is
// "element" followed by the metric names; data rows follow in element order.
// Numbers are formatted with strconv's shortest round-trippable
// representation, so a re-parse reproduces the exact float64 values.
func (r *ResultSet) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(r.MetricColumns)+1)
	header = append(header, "element")
	header = append(header, r.MetricColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for _, el := range r.Elements {
		record = record[:0]
		record = append(record, el.Name)
		for _, v := range el.Values {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
