package healthcare

import (
	"github.com/google/uuid"

	"bizpulse/pkg/contracts/domain"
)

// AnonymizePatientData projects patients onto gender, birth year and state.
// Every output gets a fresh random id, so the result cannot be joined back to
// the input by id. Names, record numbers, contact and insurance data are dropped.
func AnonymizePatientData(patients []domain.PatientData) []domain.AnonymizedPatient {
	out := make([]domain.AnonymizedPatient, 0, len(patients))
	for _, p := range patients {
		birthYear := 0
		if !p.DateOfBirth.IsZero() {
			birthYear = p.DateOfBirth.Year()
		}
		out = append(out, domain.AnonymizedPatient{
			AnonymizedID: uuid.NewString(),
			Gender:       p.Gender,
			BirthYear:    birthYear,
			State:        p.Contact.Address.State,
		})
	}
	return out
}
