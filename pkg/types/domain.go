package types

import "time"

// Patient is a health record subject.
type Patient struct {
	// Stable identifier (ULID).
	// example: 01HZX3J8Q0R6W6S2B3N1C9D7VE
	ID string `json:"id" example:"01HZX3J8Q0R6W6S2B3N1C9D7VE"`
	// example: MRN-0042
	MRN string `json:"mrn" example:"MRN-0042"`
	// example: Ada Lovelace
	Name string `json:"name" example:"Ada Lovelace"`
	// example: 1815-12-10
	BirthDate string    `json:"birth_date,omitempty" example:"1815-12-10"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Note is a clinical note attached to a patient.
type Note struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
