package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tabstats/tabstats/internal/core"
	"github.com/tabstats/tabstats/internal/logging"
)

// uploadResponse is the JSON body for a successful dataset upload.
type uploadResponse struct {
	DatasetID      string       `json:"dataset_id"`
	SourceFilename string       `json:"source_filename"`
	Columns        []columnInfo `json:"columns"`
	RowCount       int          `json:"row_count"`
	PreviewRows    []core.Row   `json:"preview_rows"`
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// statisticsRequest is the JSON body for a statistics request.
type statisticsRequest struct {
	DatasetID string   `json:"dataset_id"`
	Columns   []string `json:"columns"`
}

// statisticsResponse is the JSON body for a successful statistics request.
type statisticsResponse struct {
	ResultID      string    `json:"result_id"`
	MetricColumns []string  `json:"metric_columns"`
	Elements      []element `json:"elements"`
}

type element struct {
	Name    string                 `json:"name"`
	Metrics map[string]metricValue `json:"metrics"`
}

// metricValue marshals non-finite floats as JSON null instead of failing,
// since a single-row column legitimately has an undefined std.
type metricValue float64

func (v metricValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// handleUploadDataset accepts a multipart upload, parses it into a dataset,
// and returns the generated identifier with a bounded preview.
func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.service.MaxUploadBytes()

	// Cap the request body a little above the file limit so the service's
	// own size gate produces the user-facing message.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, &core.FileTooLargeError{Size: maxErr.Limit, Limit: maxBytes})
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "invalid upload request body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "choose a CSV or Excel file before submitting")
		return
	}
	defer file.Close()

	receipt, err := s.service.UploadDataset(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	columns := make([]columnInfo, len(receipt.Columns))
	for i, c := range receipt.Columns {
		columns[i] = columnInfo{Name: c.Name, Type: c.Type.String()}
	}

	writeJSONStatus(w, http.StatusCreated, uploadResponse{
		DatasetID:      receipt.DatasetID,
		SourceFilename: receipt.SourceFilename,
		Columns:        columns,
		RowCount:       receipt.RowCount,
		PreviewRows:    receipt.Preview,
	})
}

// handleStatistics runs the statistics engine for the requested columns of
// an uploaded dataset.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	var req statisticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DatasetID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing dataset context; upload a file and try again")
		return
	}

	resultID, rs, err := s.service.Summarize(r.Context(), req.DatasetID, req.Columns)
	if err != nil {
		writeError(w, r, err)
		return
	}

	elements := make([]element, len(rs.Elements))
	for i, el := range rs.Elements {
		metrics := make(map[string]metricValue, len(rs.MetricColumns))
		for j, name := range rs.MetricColumns {
			metrics[name] = metricValue(el.Values[j])
		}
		elements[i] = element{Name: el.Name, Metrics: metrics}
	}

	writeJSON(w, statisticsResponse{
		ResultID:      resultID,
		MetricColumns: rs.MetricColumns,
		Elements:      elements,
	})
}

// handleDownloadResult serves a stored result as a CSV attachment.
func (s *Server) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")
	if resultID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing result ID")
		return
	}

	rs, err := s.service.Result(resultID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	short := resultID
	if len(short) > 8 {
		short = short[:8]
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis_%s.csv"`, short))

	if err := rs.WriteCSV(w); err != nil {
		// Headers are already sent; log and give up on this response.
		logging.FromContext(r.Context()).Error("csv write failed", "error", err)
	}
}
