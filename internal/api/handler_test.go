package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/0xPuncker/jobspec-watcher/internal/config"
	"github.com/0xPuncker/jobspec-watcher/internal/cron"
	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/internal/testutil"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiPath = "/api/v1"

func setupTestHandler(t *testing.T) (*Handler, *testutil.StaticSource) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	source := testutil.NewStaticSource()
	source.PutSpec(testutil.LegacyJobSpec("abc"))
	source.PutJob(testutil.FluxMonitorJob("1", "eth-usd", types.FluxMonitorSpec{}))
	source.PutJob(testutil.OCRJob("2", "ocr"))
	source.PutJob(types.Job{ID: "3", Type: "webhook"})

	cfg := config.DefaultConfig()
	scheduler := cron.NewScheduler(logger, cfg.Jobs)
	t.Cleanup(scheduler.Stop)

	return NewHandler(source, definition.NewGenerator(nil, logger), scheduler, logger), source
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	return response["error"]
}

func TestHealthCheck(t *testing.T) {
	handler, _ := setupTestHandler(t)

	rr := do(t, handler, http.MethodGet, apiPath+"/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Status            string          `json:"status"`
		SupportedJobTypes []types.JobType `json:"supported_job_types"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.ElementsMatch(t, []types.JobType{types.JobTypeFluxMonitor, types.JobTypeOffChainReporting}, response.SupportedJobTypes)
}

func TestGetDefinitions(t *testing.T) {
	handler, _ := setupTestHandler(t)

	testCases := []struct {
		name        string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"legacy spec", "/specs/abc/definition", http.StatusOK, "application/json", `"type": "httpget"`},
		{"legacy spec with refresh", "/specs/abc/definition?refresh=true", http.StatusOK, "application/json", `"initiators"`},
		{"fluxmonitor job", "/jobs/1/definition", http.StatusOK, "application/toml", "contractAddress = "},
		{"ocr job", "/jobs/2/definition", http.StatusOK, "application/toml", "p2pPeerID = "},
		{"unsupported job type", "/jobs/3/definition", http.StatusUnprocessableEntity, "application/json", "unsupported job type"},
		{"missing spec", "/specs/nope/definition", http.StatusNotFound, "application/json", "job not found"},
		{"missing job", "/jobs/nope/definition", http.StatusNotFound, "application/json", "job not found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, handler, http.MethodGet, apiPath+tc.path, nil)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.contentType, rr.Header().Get("Content-Type"))
			assert.Contains(t, rr.Body.String(), tc.contains)
		})
	}
}

func TestGetDefinition_NodeFailure(t *testing.T) {
	handler, source := setupTestHandler(t)
	source.FailWith(errors.New("connection refused"))

	rr := do(t, handler, http.MethodGet, apiPath+"/jobs/1/definition", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "connection refused", errorBody(t, rr))
}

func TestGetDefinition_TOMLBody(t *testing.T) {
	handler, _ := setupTestHandler(t)

	rr := do(t, handler, http.MethodGet, apiPath+"/jobs/1/definition", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "typed-1.toml")

	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(rr.Body.Bytes(), &decoded))
	assert.Equal(t, "fluxmonitor", decoded["type"])
	assert.Equal(t, "eth-usd", decoded["name"])
}

func TestPostLegacyDefinition(t *testing.T) {
	handler, _ := setupTestHandler(t)

	doc := testutil.JobSpecDocument(testutil.LegacyJobSpec("def"))
	rr := do(t, handler, http.MethodPost, apiPath+"/definitions/legacy", doc)
	require.Equal(t, http.StatusOK, rr.Code)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	assert.NotContains(t, decoded, "name", "generated names are dropped")
	assert.Contains(t, decoded, "tasks")
	assert.NotContains(t, rr.Body.String(), "CreatedAt")

	rr = do(t, handler, http.MethodPost, apiPath+"/definitions/legacy", []byte(`{"data":`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, http.MethodPost, apiPath+"/definitions/legacy", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "request body is empty", errorBody(t, rr))
}

func TestPostTypedDefinition(t *testing.T) {
	handler, _ := setupTestHandler(t)

	testCases := []struct {
		name   string
		body   []byte
		status int
	}{
		{"fluxmonitor", testutil.JobDocument(testutil.FluxMonitorJob("7", "btc-usd", types.FluxMonitorSpec{})), http.StatusOK},
		{"offchainreporting", testutil.JobDocument(testutil.OCRJob("8", "ocr")), http.StatusOK},
		{"unsupported type", testutil.JobDocument(types.Job{ID: "9", Type: "webhook"}), http.StatusUnprocessableEntity},
		{"missing variant spec", testutil.JobDocument(types.Job{ID: "10", Type: types.JobTypeFluxMonitor}), http.StatusUnprocessableEntity},
		{"malformed body", []byte("not json"), http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, handler, http.MethodPost, apiPath+"/definitions/typed", tc.body)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.True(t, strings.HasPrefix(rr.Body.String(), "type = "))
			}
		})
	}
}

func TestPostTypedDefinition_TooLarge(t *testing.T) {
	handler, _ := setupTestHandler(t)

	rr := do(t, handler, http.MethodPost, apiPath+"/definitions/typed", bytes.Repeat([]byte("a"), maxBodySize+1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	handler, _ := setupTestHandler(t)
	handler.Scheduler.RegisterTask(cron.ExportTaskName, func() error { return nil })
	require.NoError(t, handler.Scheduler.LoadPredefinedJobs([]types.ScheduledJob{{
		Name:     "export",
		Schedule: "0 */5 * * * *",
		TaskName: cron.ExportTaskName,
		Enabled:  true,
	}}))

	rr := do(t, handler, http.MethodGet, apiPath+"/scheduler/jobs", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var listing struct {
		Jobs    []types.ScheduledJob `json:"jobs"`
		Running bool                 `json:"running"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	require.Len(t, listing.Jobs, 1)
	assert.Equal(t, cron.ExportTaskName, listing.Jobs[0].TaskName)
	assert.False(t, listing.Running)

	rr = do(t, handler, http.MethodPost, apiPath+"/scheduler/start", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, handler.Scheduler.IsRunning())

	rr = do(t, handler, http.MethodPost, apiPath+"/scheduler/start", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, handler, http.MethodPost, apiPath+"/scheduler/stop", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, handler.Scheduler.IsRunning())
}

func TestRouterMiddleware(t *testing.T) {
	handler, _ := setupTestHandler(t)
	router := NewRouter(handler)

	rr := do(t, router, http.MethodGet, apiPath+"/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, rr.Header().Get(requestIDHeader), 36)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, apiPath+"/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestRouterPreflight(t *testing.T) {
	handler, _ := setupTestHandler(t)
	router := NewRouter(handler)

	for _, path := range []string{"/definitions/typed", "/definitions/legacy", "/jobs/1/definition"} {
		t.Run(path, func(t *testing.T) {
			rr := do(t, router, http.MethodOptions, apiPath+path, nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
			assert.Empty(t, rr.Body.String())
		})
	}

	rr := do(t, router, http.MethodDelete, apiPath+"/definitions/typed", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
