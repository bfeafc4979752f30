package domain

// Industry selects which domain handler processes a data set
type Industry string

const (
	IndustryBanking    Industry = "banking"
	IndustryEcommerce  Industry = "ecommerce"
	IndustryHealthcare Industry = "healthcare"
)

// Industries lists every supported industry in a stable order
func Industries() []Industry {
	return []Industry{IndustryBanking, IndustryEcommerce, IndustryHealthcare}
}

// Valid reports whether i names a supported industry
func (i Industry) Valid() bool {
	switch i {
	case IndustryBanking, IndustryEcommerce, IndustryHealthcare:
		return true
	}
	return false
}

// RunStatus is the terminal state of a processing run
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult summarizes a processing run for the caller.
// A failed run always carries at least one error message, which is what
// distinguishes it from a completed run over zero records.
type RunResult struct {
	RunID                string                 `json:"run_id"`
	Industry             Industry               `json:"industry"`
	Status               RunStatus              `json:"status"`
	ProcessedRecordCount int                    `json:"processed_record_count"`
	ElapsedMs            int64                  `json:"elapsed_ms"`
	Errors               []string               `json:"errors,omitempty"`
	Metrics              map[string]interface{} `json:"metrics,omitempty"`
}

// Succeeded reports whether the run completed
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Status == RunStatusCompleted
}
