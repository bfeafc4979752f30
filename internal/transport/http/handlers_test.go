package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "bizpulse/internal/errors"
	"bizpulse/internal/middleware"
	"bizpulse/internal/operations"
	"bizpulse/pkg/contracts/domain"
)

// MockRunner is a mock implementation of operations.Runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req operations.RunRequest) *domain.RunResult {
	args := m.Called(ctx, req)
	return args.Get(0).(*domain.RunResult)
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) Enqueue(job *operations.Job) error {
	return m.Called(job).Error(0)
}

func (m *MockJobService) GetJob(id string) (*operations.Job, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.Job), args.Error(1)
}

func (m *MockJobService) ListJobs(filter operations.JobFilter) ([]*operations.Job, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*operations.Job), args.Error(1)
}

func (m *MockJobService) CancelJob(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockJobService) GetQueueStats() map[string]interface{} {
	return map[string]interface{}{"workers": 4}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(runner operations.Runner, jobs JobService) chi.Router {
	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/processing", NewProcessingHandler(runner, jobs, errorHandler, 0, logger).Routes())
	r.Mount("/api/utilities", NewUtilitiesHandler(errorHandler, 0, logger).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestProcessingHandler_StartRun(t *testing.T) {
	completed := &domain.RunResult{
		RunID:                "run-1",
		Industry:             domain.IndustryBanking,
		Status:               domain.RunStatusCompleted,
		ProcessedRecordCount: 1000,
		Metrics:              map[string]interface{}{"chunks_processed": 2},
	}
	failed := &domain.RunResult{
		RunID:                "run-2",
		Industry:             domain.IndustryHealthcare,
		Status:               domain.RunStatusFailed,
		ProcessedRecordCount: 200,
		Errors:               []string{"[execution] healthcare: sink failed"},
	}

	tests := []struct {
		name       string
		body       string
		result     *domain.RunResult
		wantStatus int
		wantType   string
	}{
		{
			name:       "completed run",
			body:       `{"industry":"banking","record_count":1000}`,
			result:     completed,
			wantStatus: http.StatusOK,
		},
		{
			name:       "failed run",
			body:       `{"industry":"healthcare","record_count":500}`,
			result:     failed,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeRunFailed,
		},
		{
			name:       "missing industry",
			body:       `{"record_count":10}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "negative record count",
			body:       `{"industry":"banking","record_count":-1}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unsupported industry",
			body:       `{"industry":"retail"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeUnsupportedIndustry,
		},
		{
			name:       "malformed json",
			body:       `{"industry":`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{}
			if tt.result != nil {
				runner.On("Run", mock.Anything, mock.AnythingOfType("operations.RunRequest")).Return(tt.result).Once()
			}

			w := do(t, setupRouter(runner, nil), http.MethodPost, "/api/processing/runs", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			body := decodeBody(t, w)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			}
			runner.AssertExpectations(t)
		})
	}
}

func TestProcessingHandler_StartRunPassesRequest(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(req operations.RunRequest) bool {
		return req.Industry == domain.IndustryEcommerce &&
			req.RecordCount == 50 &&
			req.OrderCount == 20 &&
			req.Seed == 7
	})).Return(&domain.RunResult{RunID: "r", Industry: domain.IndustryEcommerce, Status: domain.RunStatusCompleted})

	w := do(t, setupRouter(runner, nil), http.MethodPost, "/api/processing/runs",
		`{"industry":"ecommerce","record_count":50,"order_count":20,"seed":7}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	runner.AssertExpectations(t)
}

func TestProcessingHandler_StartRunFailureCarriesResult(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, mock.Anything).Return(&domain.RunResult{
		RunID:                "run-9",
		Industry:             domain.IndustryBanking,
		Status:               domain.RunStatusFailed,
		ProcessedRecordCount: 500,
		Errors:               []string{"[execution] banking: chunk 1 failed", "detail"},
	})

	w := do(t, setupRouter(runner, nil), http.MethodPost, "/api/processing/runs", `{"industry":"banking"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "[execution] banking: chunk 1 failed", body["detail"])

	result, ok := body["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-9", result["run_id"])
	assert.Equal(t, float64(500), result["processed_record_count"])
}

func TestProcessingHandler_SubmitJob(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		jobs := &MockJobService{}
		jobs.On("Enqueue", mock.MatchedBy(func(job *operations.Job) bool {
			return job.Industry == domain.IndustryHealthcare && job.Request != nil && job.Request.RecordCount == 300
		})).Return(nil)

		w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodPost, "/api/processing/jobs",
			`{"industry":"healthcare","record_count":300}`)

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		body := decodeBody(t, w)
		id, _ := body["id"].(string)
		assert.NotEmpty(t, id)
		assert.Equal(t, "pending", body["status"])
		assert.Equal(t, "/api/processing/jobs/"+id, w.Header().Get("Location"))
		jobs.AssertExpectations(t)
	})

	t.Run("queue full", func(t *testing.T) {
		jobs := &MockJobService{}
		jobs.On("Enqueue", mock.Anything).Return(operations.ErrQueueFull)

		w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodPost, "/api/processing/jobs", `{"industry":"banking"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, apierrors.TypeQueueFull, decodeBody(t, w)["type"])
	})

	t.Run("queue stopped", func(t *testing.T) {
		jobs := &MockJobService{}
		jobs.On("Enqueue", mock.Anything).Return(operations.ErrQueueStopped)

		w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodPost, "/api/processing/jobs", `{"industry":"banking"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, apierrors.TypeServiceDown, decodeBody(t, w)["type"])
	})

	t.Run("invalid request never reaches the queue", func(t *testing.T) {
		jobs := &MockJobService{}

		w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodPost, "/api/processing/jobs", `{"industry":"retail"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		jobs.AssertNotCalled(t, "Enqueue", mock.Anything)
	})

	t.Run("no queue", func(t *testing.T) {
		w := do(t, setupRouter(&MockRunner{}, nil), http.MethodPost, "/api/processing/jobs", `{"industry":"banking"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestProcessingHandler_GetJob(t *testing.T) {
	now := time.Now()
	jobs := &MockJobService{}
	jobs.On("GetJob", "job-1").Return(&operations.Job{
		ID:        "job-1",
		Industry:  domain.IndustryBanking,
		Status:    operations.JobStatusRunning,
		Progress:  40,
		CreatedAt: now,
	}, nil)
	jobs.On("GetJob", "missing").Return(nil, fmt.Errorf("%w: %s", operations.ErrJobNotFound, "missing"))

	router := setupRouter(&MockRunner{}, jobs)

	w := do(t, router, http.MethodGet, "/api/processing/jobs/job-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(40), body["progress"])

	w = do(t, router, http.MethodGet, "/api/processing/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeJobNotFound, decodeBody(t, w)["type"])
}

func TestProcessingHandler_ListJobs(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		jobs := &MockJobService{}
		jobs.On("ListJobs", operations.JobFilter{
			Status:   operations.JobStatusCompleted,
			Industry: domain.IndustryEcommerce,
			Limit:    10,
		}).Return([]*operations.Job{{ID: "a"}, {ID: "b"}}, nil)

		w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodGet,
			"/api/processing/jobs?status=completed&industry=ecommerce&limit=10", "")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, float64(2), body["count"])
		assert.Len(t, body["jobs"], 2)
		assert.NotNil(t, body["queue"])
		jobs.AssertExpectations(t)
	})

	t.Run("default limit", func(t *testing.T) {
		jobs := &MockJobService{}
		jobs.On("ListJobs", operations.JobFilter{Limit: defaultJobListLimit}).Return([]*operations.Job{}, nil)

		w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodGet, "/api/processing/jobs", "")

		require.Equal(t, http.StatusOK, w.Code)
		jobs.AssertExpectations(t)
	})

	badQueries := []string{
		"status=done",
		"industry=retail",
		"limit=0",
		"limit=abc",
		fmt.Sprintf("limit=%d", maxJobListLimit+1),
	}
	for _, q := range badQueries {
		t.Run(q, func(t *testing.T) {
			jobs := &MockJobService{}

			w := do(t, setupRouter(&MockRunner{}, jobs), http.MethodGet, "/api/processing/jobs?"+q, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			jobs.AssertNotCalled(t, "ListJobs", mock.Anything)
		})
	}
}

func TestProcessingHandler_CancelJob(t *testing.T) {
	jobs := &MockJobService{}
	jobs.On("CancelJob", "job-1").Return(nil)
	jobs.On("GetJob", "job-1").Return(&operations.Job{ID: "job-1", Status: operations.JobStatusCancelled}, nil)
	jobs.On("CancelJob", "job-2").Return(fmt.Errorf("%w: job job-2 is completed", operations.ErrJobFinished))
	jobs.On("CancelJob", "job-3").Return(fmt.Errorf("%w: job-3", operations.ErrJobNotFound))

	router := setupRouter(&MockRunner{}, jobs)

	w := do(t, router, http.MethodDelete, "/api/processing/jobs/job-1", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "cancelled", decodeBody(t, w)["status"])

	w = do(t, router, http.MethodDelete, "/api/processing/jobs/job-2", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierrors.TypeJobFinished, decodeBody(t, w)["type"])

	w = do(t, router, http.MethodDelete, "/api/processing/jobs/job-3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUtilitiesHandler(t *testing.T) {
	router := setupRouter(&MockRunner{}, nil)

	t.Run("redact", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/redact", `{"text":"call 555-123-4567 or mail a@b.com"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "call [REDACTED] or mail [REDACTED]", decodeBody(t, w)["text"])
	})

	t.Run("redact clean text", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/redact", `{"text":"no identifiers here"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no identifiers here", decodeBody(t, w)["text"])
	})

	t.Run("mask default fields", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/mask",
			`{"records":[{"accountNumber":"1234567890","name":"x"}]}`)

		require.Equal(t, http.StatusOK, w.Code)
		records := decodeBody(t, w)["records"].([]interface{})
		require.Len(t, records, 1)
		record := records[0].(map[string]interface{})
		assert.Equal(t, "12******90", record["accountNumber"])
		assert.Equal(t, "x", record["name"])
	})

	t.Run("mask named fields", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/mask",
			`{"records":[{"card":"4111222233334444"}],"fields":["card"]}`)

		require.Equal(t, http.StatusOK, w.Code)
		record := decodeBody(t, w)["records"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "41************44", record["card"])
	})

	t.Run("mask without records", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/mask", `{"fields":["card"]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inventory alerts", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/inventory-alerts", `{"products":[
			{"id":"p1","name":"a","inventory":0},
			{"id":"p2","name":"b","inventory":5},
			{"id":"p3","name":"c","inventory":50}
		]}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, []interface{}{"p1"}, body["out_of_stock"])
		assert.Equal(t, []interface{}{"p2"}, body["low_stock"])
	})

	t.Run("anonymize", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/utilities/anonymize", `{"patients":[{
			"id":"pat-1",
			"first_name":"Jane",
			"last_name":"Doe",
			"gender":"F",
			"date_of_birth":"1980-04-02T00:00:00Z",
			"contact":{"address":{"state":"CA"}}
		}]}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotContains(t, w.Body.String(), "Jane")
		assert.NotContains(t, w.Body.String(), "pat-1")

		patients := decodeBody(t, w)["patients"].([]interface{})
		require.Len(t, patients, 1)
		p := patients[0].(map[string]interface{})
		assert.Equal(t, "F", p["gender"])
		assert.Equal(t, float64(1980), p["birth_year"])
		assert.Equal(t, "CA", p["state"])
		assert.NotEmpty(t, p["anonymized_id"])
	})

	t.Run("oversized body", func(t *testing.T) {
		logger := testLogger()
		h := NewUtilitiesHandler(apierrors.NewErrorHandler(logger, false), 16, logger)

		w := do(t, h.Routes(), http.MethodPost, "/redact", `{"text":"this body is longer than sixteen bytes"}`)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(time.Now().Add(-time.Minute), map[string]StatsFunc{
		"queue": func() map[string]interface{} { return map[string]interface{}{"workers": 2} },
	}, testLogger())

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Version.Version)
	assert.GreaterOrEqual(t, resp.Runtime.UptimeSeconds, 60.0)
	assert.Equal(t, float64(2), resp.Components["queue"]["workers"])

	w = httptest.NewRecorder()
	h.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Contains(t, w.Body.String(), `"api_version"`)
}

func TestMetricsHandler(t *testing.T) {
	errorHandler := apierrors.NewErrorHandler(testLogger(), false)

	w := httptest.NewRecorder()
	NewMetricsHandler(nil, errorHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP up\n"))
	})
	w = httptest.NewRecorder()
	NewMetricsHandler(exporter, errorHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("# HELP")))
}
