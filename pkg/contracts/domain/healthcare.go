package domain

import (
	"time"
)

// MedicalRecord represents one clinical encounter
type MedicalRecord struct {
	ID          string                   `json:"id" validate:"required"`
	PatientID   string                   `json:"patient_id" validate:"required"`
	Date        time.Time                `json:"date"`
	ProviderID  string                   `json:"provider_id" validate:"required"`
	Diagnoses   []string                 `json:"diagnoses,omitempty"`
	Procedures  []string                 `json:"procedures,omitempty"`
	Medications []MedicationPrescription `json:"medications,omitempty" validate:"dive"`
	Notes       string                   `json:"notes,omitempty"`
}

// MedicationPrescription describes a prescribed medication
type MedicationPrescription struct {
	Name      string     `json:"name" validate:"required"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// PatientData holds the direct identifiers of a patient.
// It is never stored next to clinical records once anonymized.
type PatientData struct {
	ID                  string         `json:"id"`
	MedicalRecordNumber string         `json:"medical_record_number"`
	FirstName           string         `json:"first_name"`
	LastName            string         `json:"last_name"`
	DateOfBirth         time.Time      `json:"date_of_birth"`
	Gender              string         `json:"gender"`
	Contact             ContactInfo    `json:"contact"`
	Insurance           *InsuranceInfo `json:"insurance,omitempty"`
}

// ContactInfo holds patient contact details
type ContactInfo struct {
	Phone   string  `json:"phone"`
	Email   string  `json:"email"`
	Address Address `json:"address"`
}

// InsuranceInfo holds insurance coverage details
type InsuranceInfo struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policy_number"`
	GroupNumber  string `json:"group_number,omitempty"`
}

// AnonymizedPatient is the research-safe projection of PatientData
type AnonymizedPatient struct {
	AnonymizedID string `json:"anonymized_id"`
	Gender       string `json:"gender"`
	BirthYear    int    `json:"birth_year"`
	State        string `json:"state"`
}
