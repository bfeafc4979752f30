package operations

import (
	"context"

	"bizpulse/pkg/contracts/domain"
)

// Event types sent to live progress subscribers
const (
	EventProcessingProgress = "processing:progress"
	EventProcessingComplete = "processing:complete"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, runID, status string, metadata interface{})
}

// Runner executes one processing run. *Orchestrator is the production implementation.
type Runner interface {
	Run(ctx context.Context, req RunRequest) *domain.RunResult
}
