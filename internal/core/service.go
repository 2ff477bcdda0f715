package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tabstats/tabstats/internal/logging"
)

// DefaultMaxUploadBytes is the default upload size limit (20MB).
const DefaultMaxUploadBytes int64 = 20 << 20

// DefaultPreviewRows is the default number of preview rows.
const DefaultPreviewRows = 5

// DefaultTTL is the default lifetime for datasets and results.
const DefaultTTL = time.Hour

// Dataset is an uploaded file in canonical form, together with the name it
// was uploaded under. It is never mutated after creation.
type Dataset struct {
	Table          *Table
	SourceFilename string
}

// ColumnInfo describes one column of an uploaded dataset.
type ColumnInfo struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// UploadReceipt is the outcome of a successful upload: the generated
// dataset identifier plus a bounded, non-destructive preview.
type UploadReceipt struct {
	DatasetID      string
	SourceFilename string
	Columns        []ColumnInfo
	RowCount       int
	Preview        []Row
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	MaxUploadBytes int64
	PreviewRows    int
	DatasetTTL     time.Duration
	ResultTTL      time.Duration
}

// Service provides the core business logic: dataset ingestion, statistics
// requests, and result downloads. It owns both TTL stores and the engine.
type Service struct {
	engine         Engine
	maxUploadBytes int64
	previewRows    int

	datasets *Store[*Dataset]
	results  *Store[*ResultSet]
}

// NewService creates a Service around the given statistics engine.
func NewService(engine Engine, opts Options) *Service {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.DatasetTTL <= 0 {
		opts.DatasetTTL = DefaultTTL
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultTTL
	}

	return &Service{
		engine:         engine,
		maxUploadBytes: opts.MaxUploadBytes,
		previewRows:    opts.PreviewRows,
		datasets:       NewStore[*Dataset](opts.DatasetTTL),
		results:        NewStore[*ResultSet](opts.ResultTTL),
	}
}

// MaxUploadBytes returns the configured upload size limit.
func (s *Service) MaxUploadBytes() int64 { return s.maxUploadBytes }

// UploadDataset validates, decodes, and stores one uploaded file.
//
// The extension gate runs before any byte is read, and the size gate runs
// against the declared size before reading and again while reading, so an
// oversized body is never fully buffered. On success the canonical table is
// stored under a fresh dataset identifier.
func (s *Service) UploadDataset(ctx context.Context, filename string, declaredSize int64, r io.Reader) (*UploadReceipt, error) {
	if _, err := decoderFor(filename); err != nil {
		return nil, err
	}
	if declaredSize > s.maxUploadBytes {
		return nil, &FileTooLargeError{Size: declaredSize, Limit: s.maxUploadBytes}
	}

	data, err := readLimited(r, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	table, err := decodeUpload(filename, data)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Table: table, SourceFilename: filename}
	id := s.datasets.Put(ds)

	logging.FromContext(ctx).Info("dataset stored",
		"dataset_id", id,
		"file", filename,
		"rows", table.NumRows(),
		"columns", len(table.Columns),
	)

	columns := make([]ColumnInfo, len(table.Columns))
	for i, name := range table.Columns {
		columns[i] = ColumnInfo{Name: name, Type: table.Types[i]}
	}

	return &UploadReceipt{
		DatasetID:      id,
		SourceFilename: filename,
		Columns:        columns,
		RowCount:       table.NumRows(),
		Preview:        table.Preview(s.previewRows),
	}, nil
}

// Summarize runs the statistics engine over the requested columns of a
// stored dataset and stores the assembled result.
//
// Validation is strict and all-or-nothing: every requested column must exist
// and be numeric-typed, or the whole request fails and no result identifier
// is issued. Request order is preserved in the result, including explicit
// duplicates; the engine is invoked once for the deduplicated column set.
func (s *Service) Summarize(ctx context.Context, datasetID string, columns []string) (string, *ResultSet, error) {
	requested := cleanColumns(columns)
	if len(requested) == 0 {
		return "", nil, ErrNoColumns
	}

	ds, ok := s.datasets.Get(datasetID)
	if !ok {
		return "", nil, ErrNotFound
	}
	table := ds.Table

	for _, name := range requested {
		if !table.HasColumn(name) {
			return "", nil, &ColumnNotFoundError{Column: name}
		}
	}

	unique := uniqueInOrder(requested)

	var offenders []string
	for _, name := range unique {
		if typ, _ := table.Type(name); typ != ColumnNumeric {
			offenders = append(offenders, name)
		}
	}
	if len(offenders) > 0 {
		return "", nil, &NonNumericColumnError{Columns: offenders}
	}

	summary, err := s.engine.Summarize(table, unique)
	if err != nil {
		logging.FromContext(ctx).Error("statistics engine failed",
			"dataset_id", datasetID,
			"columns", unique,
			"error", err,
		)
		return "", nil, &ComputationError{Err: err}
	}
	if err := checkSummary(summary, unique); err != nil {
		logging.FromContext(ctx).Error("statistics engine returned a malformed summary",
			"dataset_id", datasetID,
			"error", err,
		)
		return "", nil, &ComputationError{Err: err}
	}

	elements := make([]Element, len(requested))
	for i, name := range requested {
		elements[i] = Element{Name: name, Values: summary.Values[name]}
	}

	rs := &ResultSet{
		SourceDatasetID: datasetID,
		MetricColumns:   summary.Metrics,
		Elements:        elements,
	}
	id := s.results.Put(rs)

	logging.FromContext(ctx).Info("result stored",
		"result_id", id,
		"dataset_id", datasetID,
		"elements", len(elements),
	)

	return id, rs, nil
}

// Stats returns access-counter snapshots for the dataset and result stores.
func (s *Service) Stats() (datasets, results StoreStats) {
	return s.datasets.Stats(), s.results.Stats()
}

// Result returns a stored result set, or ErrNotFound if it is missing or
// expired.
func (s *Service) Result(resultID string) (*ResultSet, error) {
	rs, ok := s.results.Get(resultID)
	if !ok {
		return nil, ErrNotFound
	}
	return rs, nil
}

// cleanColumns trims requested column names and drops blank entries while
// preserving order and explicit duplicates.
func cleanColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// uniqueInOrder returns the distinct names in first-occurrence order.
func uniqueInOrder(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// checkSummary verifies the engine honored its contract: a non-empty metric
// set and one aligned value row per requested column.
func checkSummary(sum *Summary, columns []string) error {
	if sum == nil || len(sum.Metrics) == 0 {
		return fmt.Errorf("engine returned an empty summary")
	}
	for _, name := range columns {
		values, ok := sum.Values[name]
		if !ok {
			return fmt.Errorf("engine returned no values for column %q", name)
		}
		if len(values) != len(sum.Metrics) {
			return fmt.Errorf("engine returned %d values for column %q, want %d",
				len(values), name, len(sum.Metrics))
		}
	}
	return nil
}
