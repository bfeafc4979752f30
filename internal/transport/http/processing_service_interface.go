package http

import (
	"bizpulse/internal/operations"
)

// JobService is the part of the job queue the processing handler drives
type JobService interface {
	Enqueue(job *operations.Job) error
	GetJob(id string) (*operations.Job, error)
	ListJobs(filter operations.JobFilter) ([]*operations.Job, error)
	CancelJob(id string) error
	GetQueueStats() map[string]interface{}
}
