package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"bizpulse/internal/industry/banking"
	"bizpulse/internal/industry/healthcare"
)

const (
	maxLoggedBodyBytes = 1 << 20
	maxLoggedBodyChars = 500
)

// Request body keys, compared after lowercasing and dropping '_' and '-'.
// Hidden keys are replaced with the redaction marker, masked keys keep their
// outer characters the way account numbers are shown to operators.
var (
	hiddenBodyKeys = map[string]bool{
		"password": true, "token": true, "secret": true, "apikey": true,
		"authorization": true, "notes": true, "diagnoses": true,
	}
	maskedBodyKeys = map[string]bool{
		"accountnumber": true, "accountid": true, "creditcard": true,
		"ssn": true, "patientid": true, "customerid": true,
	}
)

// ErrorMiddleware recovers handler panics and logs every request, with the
// redacted body attached to failed ones.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		body := captureBody(r)
		start := time.Now()

		defer func() {
			if err := recover(); err != nil {
				m.handler.HandlePanic(ww, r, err)
			}
		}()

		next.ServeHTTP(ww, r)
		m.logRequest(r, ww, time.Since(start), body)
	})
}

// captureBody reads a small request body and puts an equivalent reader back
// for the next handler.
func captureBody(r *http.Request) []byte {
	if r.Body == nil || r.ContentLength <= 0 || r.ContentLength >= maxLoggedBodyBytes {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

func (m *ErrorMiddleware) logRequest(r *http.Request, ww middleware.WrapResponseWriter, elapsed time.Duration, body []byte) {
	status := ww.Status()

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}
	if status >= 400 && len(body) > 0 {
		logged := sanitizeRequestBody(string(body))
		if runes := []rune(logged); len(runes) > maxLoggedBodyChars {
			logged = string(runes[:maxLoggedBodyChars]) + "..."
		}
		attrs = append(attrs, slog.String("request_body", logged))
	}

	m.logger.LogAttrs(r.Context(), level, "http request", attrs...)
}

// sanitizeRequestBody redacts a request body for logging. JSON bodies are
// walked at every depth; sensitive keys are hidden or masked and all other
// strings go through the free-text PHI redaction. Other bodies are redacted
// as plain text.
func sanitizeRequestBody(body string) string {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil || dec.More() {
		return healthcare.RedactSensitiveInformation(body)
	}

	sanitized, err := json.Marshal(redactValue(data))
	if err != nil {
		return healthcare.RedactionMarker
	}
	return string(sanitized)
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for key, field := range val {
			val[key] = redactField(key, field)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = redactValue(item)
		}
		return val
	case string:
		return healthcare.RedactSensitiveInformation(val)
	default:
		return v
	}
}

func redactField(key string, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(key))
	switch {
	case hiddenBodyKeys[norm]:
		return healthcare.RedactionMarker
	case maskedBodyKeys[norm]:
		switch val := v.(type) {
		case string:
			return banking.MaskValue(val)
		case json.Number:
			return banking.MaskValue(val.String())
		default:
			return healthcare.RedactionMarker
		}
	default:
		return redactValue(v)
	}
}
