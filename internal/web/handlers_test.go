package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabstats/tabstats/internal/config"
	"github.com/tabstats/tabstats/internal/core"
	"github.com/tabstats/tabstats/internal/stats"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

const sampleCSV = "A,B,C,Label\n" +
	"1,10,100,x\n" +
	"2,20,200,y\n" +
	"3,30,300,z\n" +
	"4,40,400,w\n" +
	"5,50,500,v\n" +
	"6,60,600,u\n" +
	"7,70,700,t\n" +
	"8,80,800,s\n" +
	"9,90,900,r\n" +
	"10,100,1000,q\n"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Rate.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, opts core.Options) *Server {
	t.Helper()
	return NewServer(core.NewService(stats.New(), opts), testConfig())
}

// multipartBody builds a multipart request body with a single form file.
func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadCSV(t *testing.T, srv *Server, filename, content string) map[string]any {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "upload body: %s", rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func postStatistics(t *testing.T, srv *Server, datasetID string, columns []string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"dataset_id": datasetID,
		"columns":    columns,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/statistics", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadDataset(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)

	assert.Regexp(t, idPattern, resp["dataset_id"])
	assert.Equal(t, "sales.csv", resp["source_filename"])
	assert.EqualValues(t, 10, resp["row_count"])

	columns := resp["columns"].([]any)
	require.Len(t, columns, 4)
	first := columns[0].(map[string]any)
	assert.Equal(t, "A", first["name"])
	assert.Equal(t, "numeric", first["type"])
	last := columns[3].(map[string]any)
	assert.Equal(t, "Label", last["name"])
	assert.Equal(t, "text", last["type"])

	preview := resp["preview_rows"].([]any)
	assert.Len(t, preview, 5)
	firstRow := preview[0].(map[string]any)
	assert.EqualValues(t, 1, firstRow["A"])
	assert.Equal(t, "x", firstRow["Label"])
}

func TestUploadDataset_UnsupportedExtension(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	body, contentType := multipartBody(t, "notes.txt", "A\n1\n")
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestUploadDataset_TooLarge(t *testing.T) {
	srv := newTestServer(t, core.Options{MaxUploadBytes: 256})

	var sb strings.Builder
	sb.WriteString("A\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	body, contentType := multipartBody(t, "big.csv", sb.String())
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func TestUploadDataset_MalformedMultipart(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	body := strings.NewReader("this is not a multipart body")
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=nope")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid upload request body")
}

func TestUploadDataset_BodyOverCap(t *testing.T) {
	// A body past the MaxBytesReader cap (limit + 1MB) must still surface
	// as 413, not as a generic parse failure.
	srv := newTestServer(t, core.Options{MaxUploadBytes: 1024})

	huge := strings.Repeat("x", 1024+(1<<20)+4096)
	body, contentType := multipartBody(t, "huge.csv", huge)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func TestUploadDataset_MissingFileField(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "nope"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatistics(t *testing.T) {
	srv := newTestServer(t, core.Options{})
	datasetID := uploadCSV(t, srv, "sales.csv", sampleCSV)["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, []string{"C", "A"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp statisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Regexp(t, idPattern, resp.ResultID)
	assert.Equal(t,
		[]string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"},
		resp.MetricColumns)

	require.Len(t, resp.Elements, 2)
	assert.Equal(t, "C", resp.Elements[0].Name, "request order preserved")
	assert.Equal(t, "A", resp.Elements[1].Name)
	assert.EqualValues(t, 10, resp.Elements[0].Metrics["count"])
	assert.EqualValues(t, 5.5, resp.Elements[1].Metrics["mean"])
}

func TestStatistics_NaNMarshalsAsNull(t *testing.T) {
	srv := newTestServer(t, core.Options{})
	datasetID := uploadCSV(t, srv, "one.csv", "A\n7\n")["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, []string{"A"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	metrics := resp["elements"].([]any)[0].(map[string]any)["metrics"].(map[string]any)
	assert.Nil(t, metrics["std"], "std of a single value serializes as null")
	assert.EqualValues(t, 1, metrics["count"])
}

func TestStatistics_UnknownColumn(t *testing.T) {
	srv := newTestServer(t, core.Options{})
	datasetID := uploadCSV(t, srv, "sales.csv", sampleCSV)["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, []string{"A", "Z"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Z"`)
}

func TestStatistics_NonNumericColumn(t *testing.T) {
	srv := newTestServer(t, core.Options{})
	datasetID := uploadCSV(t, srv, "sales.csv", sampleCSV)["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, []string{"Label"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Label")
	assert.Contains(t, rec.Body.String(), "no numeric values")
}

func TestStatistics_NoColumns(t *testing.T) {
	srv := newTestServer(t, core.Options{})
	datasetID := uploadCSV(t, srv, "sales.csv", sampleCSV)["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one column")
}

func TestStatistics_UnknownDataset(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	rec := postStatistics(t, srv, "deadbeefdeadbeefdeadbeefdeadbeef", []string{"A"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatistics_MissingDatasetID(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	rec := postStatistics(t, srv, "", []string{"A"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload a file")
}

func TestDownloadResult(t *testing.T) {
	srv := newTestServer(t, core.Options{})
	datasetID := uploadCSV(t, srv, "sales.csv", sampleCSV)["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, []string{"A", "B"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/results/"+resp.ResultID+"/download", nil)
	dl := httptest.NewRecorder()
	srv.Router().ServeHTTP(dl, req)

	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "text/csv", dl.Header().Get("Content-Type"))
	assert.Equal(t,
		fmt.Sprintf(`attachment; filename="analysis_%s.csv"`, resp.ResultID[:8]),
		dl.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(dl.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t,
		[]string{"element", "count", "mean", "std", "min", "25%", "50%", "75%", "max"},
		records[0])
	assert.Equal(t, "A", records[1][0])
	assert.Equal(t, "B", records[2][0])
}

func TestDownloadResult_Expired(t *testing.T) {
	srv := newTestServer(t, core.Options{ResultTTL: 10 * time.Millisecond})
	datasetID := uploadCSV(t, srv, "sales.csv", sampleCSV)["dataset_id"].(string)

	rec := postStatistics(t, srv, datasetID, []string{"A"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	time.Sleep(30 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/results/"+resp.ResultID+"/download", nil)
	dl := httptest.NewRecorder()
	srv.Router().ServeHTTP(dl, req)

	assert.Equal(t, http.StatusNotFound, dl.Code)
}

func TestDownloadResult_Unknown(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/results/deadbeefdeadbeefdeadbeefdeadbeef/download", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable or has expired")
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, core.Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 3
	srv := NewServer(core.NewService(stats.New(), core.Options{}), cfg)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiterCleanupStops(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)

	done := make(chan struct{})
	go func() {
		rl.cleanup()
		close(done)
	}()

	rl.close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup goroutine did not stop after close")
	}
}

func TestShutdownStopsRateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 10
	srv := NewServer(core.NewService(stats.New(), core.Options{}), cfg)

	limiter := srv.limiter
	require.NotNil(t, limiter)

	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case <-limiter.stop:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not release the rate limiter")
	}
}
