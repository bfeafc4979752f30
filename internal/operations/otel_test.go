package operations

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizpulse/internal/config"
	"bizpulse/internal/infrastructure"
	"bizpulse/pkg/contracts/domain"
)

func TestRunTracerExportsRunMetrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(
		infrastructure.NewOTelConfig(config.Default().Telemetry),
		infrastructure.NewLoggerWithWriter(io.Discard, "error"),
	)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	tracer, err := NewRunTracer(providers)
	require.NoError(t, err)

	orch := NewOrchestrator(testProcessingConfig(), WithTracer(tracer))
	ok := orch.Run(context.Background(), RunRequest{Industry: domain.IndustryBanking, RecordCount: 100, Seed: 1})
	require.True(t, ok.Succeeded())
	failed := orch.Run(context.Background(), RunRequest{Industry: "retail"})
	require.False(t, failed.Succeeded())
	tracer.RecordJob(context.Background(), domain.IndustryBanking, JobStatusCompleted)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "processing_runs")
	assert.Contains(t, body, `status="completed"`)
	assert.Contains(t, body, `status="failed"`)
	assert.Contains(t, body, `industry="retail"`)
	assert.Contains(t, body, "processing_chunks")
	assert.Contains(t, body, "processing_records")
	assert.Contains(t, body, "processing_jobs")
}

func TestNoopRunTracer(t *testing.T) {
	tracer := NoopRunTracer()
	require.NotNil(t, tracer.Metrics())

	ctx, span := tracer.StartRun(context.Background(), "run-1", domain.IndustryHealthcare)
	tracer.RecordChunk(ctx, domain.IndustryHealthcare, 0, 1)
	tracer.RecordProgress(ctx, 100)
	tracer.FinishRun(ctx, span, &domain.RunResult{
		RunID:    "run-1",
		Industry: domain.IndustryHealthcare,
		Status:   domain.RunStatusCompleted,
	}, nil)
	span.End()

	assert.False(t, span.IsRecording())
}
