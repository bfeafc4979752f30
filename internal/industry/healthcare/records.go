// Package healthcare processes clinical records. Free-text notes are redacted
// before records leave the handler, and patient demographics can be reduced to
// an anonymized research projection.
package healthcare

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"bizpulse/internal/dataprocessing"
	"bizpulse/internal/industry"
	"bizpulse/pkg/contracts/domain"
)

// DefaultChunkSize is the smallest of the handlers; clinical records are sensitive and heavy
const DefaultChunkSize = 200

var validate = industry.NewValidator()

// Sink consumes a chunk of records whose notes were already redacted
type Sink func(ctx context.Context, records []domain.MedicalRecord) error

// DiagnosisCount is one row of Summary.TopDiagnoses
type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

// Summary aggregates what a run processed
type Summary struct {
	TotalRecords    int            `json:"total_records"`
	RedactedNotes   int            `json:"redacted_notes"`
	DiagnosisCounts map[string]int `json:"diagnosis_counts"`

	mu sync.Mutex
}

func newSummary() *Summary {
	return &Summary{DiagnosisCounts: make(map[string]int)}
}

func (s *Summary) add(records []domain.MedicalRecord, redacted int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalRecords += len(records)
	s.RedactedNotes += redacted
	for _, r := range records {
		for _, d := range r.Diagnoses {
			s.DiagnosisCounts[d]++
		}
	}
}

// TopDiagnoses returns the n most frequent diagnoses, ties broken alphabetically
func (s *Summary) TopDiagnoses(n int) []DiagnosisCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make([]DiagnosisCount, 0, len(s.DiagnosisCounts))
	for d, c := range s.DiagnosisCounts {
		counts = append(counts, DiagnosisCount{Diagnosis: d, Count: c})
	}
	slices.SortFunc(counts, func(a, b DiagnosisCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Diagnosis, b.Diagnosis)
	})

	if n >= 0 && n < len(counts) {
		counts = counts[:n]
	}
	return counts
}

// ValidateMedicalRecords requires record, patient and provider ids, a date and
// a name on every medication. All violations are collected.
func ValidateMedicalRecords(records []domain.MedicalRecord) dataprocessing.ValidationResult {
	var errors []string
	for i, r := range records {
		label := industry.RecordLabel("medical record", r.ID, i)
		errors = append(errors, industry.Violations(validate, label, r)...)
		if r.Date.IsZero() {
			errors = append(errors, fmt.Sprintf("%s: date is required", label))
		}
	}
	return dataprocessing.NewValidationResult(errors)
}

// ProcessMedicalRecords validates src, redacts the notes of every record and
// hands the redacted copies to sink chunk by chunk. The input records are not
// modified.
func ProcessMedicalRecords(
	ctx context.Context,
	src dataprocessing.Source[domain.MedicalRecord],
	sink Sink,
	onProgress func(percent int),
	opts ...industry.Option,
) (*Summary, error) {
	settings := industry.Apply(DefaultChunkSize, opts...)
	summary := newSummary()

	err := dataprocessing.ProcessInChunks(ctx, src,
		func(ctx context.Context, chunk []domain.MedicalRecord) error {
			redacted, changed := redactNotes(chunk)
			if sink != nil {
				if err := sink(ctx, redacted); err != nil {
					return err
				}
			}
			summary.add(redacted, changed)
			return nil
		},
		dataprocessing.Options[domain.MedicalRecord]{
			ChunkSize:        settings.ChunkSize,
			OnProgress:       onProgress,
			OnChunkProcessed: industry.ChunkHook[domain.MedicalRecord](settings, nil),
			Validate:         ValidateMedicalRecords,
			Workers:          settings.Workers,
			Logger:           settings.Logger,
		})
	if err != nil {
		return summary, fmt.Errorf("healthcare: %w", err)
	}
	return summary, nil
}

func redactNotes(records []domain.MedicalRecord) ([]domain.MedicalRecord, int) {
	out := make([]domain.MedicalRecord, len(records))
	changed := 0
	for i, r := range records {
		if r.Notes != "" {
			notes := RedactSensitiveInformation(r.Notes)
			if notes != r.Notes {
				changed++
			}
			r.Notes = notes
		}
		out[i] = r
	}
	return out, changed
}
