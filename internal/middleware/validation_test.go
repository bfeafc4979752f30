package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "bizpulse/internal/errors"
)

type createRunBody struct {
	Industry    string  `json:"industry" validate:"required,oneof=banking ecommerce healthcare"`
	RecordCount int     `json:"record_count" validate:"gte=0"`
	Threshold   float64 `json:"threshold" validate:"finite"`
}

func newValidation(t *testing.T, maxBody int64) *ValidationMiddleware {
	t.Helper()
	logger, _ := newTestLogger()
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false), maxBody)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
		wantNext    bool
	}{
		{name: "get passes", method: http.MethodGet, wantStatus: http.StatusOK, wantNext: true},
		{name: "valid json", method: http.MethodPost, body: `{"industry":"banking"}`, wantStatus: http.StatusOK, wantNext: true},
		{name: "invalid json", method: http.MethodPost, body: `{"industry":`, wantStatus: http.StatusBadRequest},
		{name: "too large", method: http.MethodPost, body: strings.Repeat("x", 64), wantStatus: http.StatusRequestEntityTooLarge},
		{
			name:        "multipart skipped",
			method:      http.MethodPost,
			body:        "--b\r\n",
			contentType: "multipart/form-data; boundary=b",
			wantStatus:  http.StatusOK,
			wantNext:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newValidation(t, 32)
			called := false
			h := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/processing/runs", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantNext, called)
		})
	}
}

func TestDecode(t *testing.T) {
	m := newValidation(t, 0)

	t.Run("valid", func(t *testing.T) {
		var body createRunBody
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"industry":"healthcare","record_count":5}`))

		require.NoError(t, m.Decode(req, &body))
		assert.Equal(t, "healthcare", body.Industry)
		assert.Equal(t, 5, body.RecordCount)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		var body createRunBody
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"industry":"retail","record_count":-1}`))

		err := m.Decode(req, &body)
		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

		details, ok := apiErr.Details.(apierrors.ValidationErrors)
		require.True(t, ok)
		fields := make([]string, 0, len(details.Errors))
		for _, e := range details.Errors {
			fields = append(fields, e.Field)
		}
		assert.Equal(t, []string{"industry", "record_count"}, fields)
	})

	t.Run("empty body", func(t *testing.T) {
		var body createRunBody
		err := m.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Request body is empty", apiErr.Message)
	})

	t.Run("wrong types", func(t *testing.T) {
		var body createRunBody
		err := m.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"record_count":"many"}`)), &body)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INVALID_REQUEST", apiErr.ErrorCode)
	})
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "get skipped", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "json", method: http.MethodPost, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "missing", method: http.MethodPost, wantStatus: http.StatusBadRequest},
		{name: "unsupported", method: http.MethodPost, contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := newTestLogger()
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("int default and bounds", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/jobs", nil), "limit", 1, 100, 20)
		assert.True(t, ok)
		assert.Equal(t, 20, got)

		got, ok = v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/jobs?limit=50", nil), "limit", 1, 100, 20)
		assert.True(t, ok)
		assert.Equal(t, 50, got)

		w = httptest.NewRecorder()
		_, ok = v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/jobs?limit=500", nil), "limit", 1, 100, 20)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var problem map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
		assert.Equal(t, apierrors.TypeValidation, problem["type"])
	})

	t.Run("enum", func(t *testing.T) {
		allowed := []string{"pending", "running"}

		got, ok := v.ValidateEnum(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs?status=running", nil), "status", allowed, "")
		assert.True(t, ok)
		assert.Equal(t, "running", got)

		w := httptest.NewRecorder()
		_, ok = v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/jobs?status=done", nil), "status", allowed, "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
