package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{name: "bad request", apiError: ErrInvalidRequest, wantStatus: http.StatusBadRequest},
		{name: "job not found", apiError: ErrJobNotFound, wantStatus: http.StatusNotFound},
		{name: "job finished", apiError: ErrJobFinished, wantStatus: http.StatusConflict},
		{name: "unsupported industry", apiError: ErrUnsupportedIndustry, wantStatus: http.StatusUnprocessableEntity},
		{name: "queue full", apiError: ErrQueueFull, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/processing/jobs", nil)

			require.NoError(t, render.Render(w, r, tt.apiError))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
			assert.Equal(t, tt.apiError.Message, body.Error())
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "invalid request",
			err:        InvalidRequestWithError(assert.AnError),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
			wantMsg:    "Invalid request format",
		},
		{
			name:       "not found",
			err:        NotFoundError("job"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "job not found",
		},
		{
			name:       "run execution",
			err:        ErrRunExecution(assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "RUN_EXECUTION_FAILED",
			wantMsg:    "Processing run failed",
		},
		{
			name:       "import",
			err:        ImportError(assert.AnError),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "IMPORT_FAILED",
			wantMsg:    "Dataset could not be imported",
		},
		{
			name:       "simple validation",
			err:        NewValidationError("record_count must be positive"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantMsg:    "record_count must be positive",
		},
		{
			name:       "internal",
			err:        NewInternalError("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
			wantMsg:    "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, tt.wantMsg, tt.err.Message)
		})
	}

	assert.Equal(t, assert.AnError.Error(), ErrRunExecution(assert.AnError).Details)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("industry", "is required")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, ValidationError{Field: "industry", Message: "is required"}, err.Details)
}

func TestFromValidator(t *testing.T) {
	type request struct {
		Industry string `validate:"required"`
		Kind     string `validate:"oneof=credit debit"`
		Workers  int    `validate:"lte=64"`
	}

	err := validator.New().Struct(request{Kind: "wire", Workers: 100})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	apiErr := FromValidator(validationErrs)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	details, ok := apiErr.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, []ValidationError{
		{Field: "Industry", Message: "is required"},
		{Field: "Kind", Message: "must be one of [credit debit]"},
		{Field: "Workers", Message: "must be at most 64"},
	}, details.Errors)
}

func TestErrPanic(t *testing.T) {
	err := ErrPanic("nil map write")

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, PanicRecovery{Message: "nil map write"}, err.Details)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, NotFoundError("job abc"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Success bool     `json:"success"`
		Error   APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Error.ErrorCode)
	assert.Equal(t, "job abc not found", resp.Error.Message)
	assert.Equal(t, "job abc", resp.Error.Details)
}

func TestErrorResponse_Render(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/processing/jobs", nil)

	require.NoError(t, render.Render(w, r, NewErrorResponse(ErrRateLimitExceeded)))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}
