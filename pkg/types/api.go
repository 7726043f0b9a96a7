package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// PatientInput is the body accepted by patient/create and
// patient/edit-patient-record.
type PatientInput struct {
	// Medical record number, unique per patient.
	// example: MRN-0042
	MRN string `json:"mrn" example:"MRN-0042"`
	// Full display name.
	// example: Ada Lovelace
	Name string `json:"name" example:"Ada Lovelace"`
	// Birth date in YYYY-MM-DD form.
	// example: 1815-12-10
	BirthDate string `json:"birth_date,omitempty" example:"1815-12-10"`
}

// NoteInput is the body accepted by notes/add-note.
type NoteInput struct {
	// Free-text clinical note.
	// example: Patient reports improved sleep.
	Body string `json:"body" example:"Patient reports improved sleep."`
}

// PatientsResponse wraps the list returned by patient/index.
type PatientsResponse struct {
	Patients []Patient `json:"patients"`
}

// NotesResponse wraps the list returned by notes/view.notes.
type NotesResponse struct {
	PatientID string `json:"patient_id"`
	Notes     []Note `json:"notes"`
}

// RouteInfo describes one dispatchable controller for GET /routes.
type RouteInfo struct {
	// example: patient
	Controller string `json:"controller" example:"patient"`
	// Action method names the controller handles.
	// example: ["editPatientRecordAction","indexAction"]
	Actions []string `json:"actions,omitempty"`
}
