// Package records is the health-records domain served by chartd: an
// in-memory patient and note store plus the controllers that expose it.
package records

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"chartd/pkg/types"
)

// notFoundError signals a missing patient or note.
type notFoundError struct{ kind, id string }

func (e notFoundError) Error() string { return e.kind + " not found: " + e.id }

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

// invalidError signals input that fails validation.
type invalidError struct{ msg string }

func (e invalidError) Error() string { return e.msg }

// IsInvalid reports whether err indicates rejected input.
func IsInvalid(err error) bool {
	var iv invalidError
	return errors.As(err, &iv)
}

type snapshot struct {
	Patients map[string]types.Patient `json:"patients"`
	Notes    map[string][]types.Note  `json:"notes"`
}

// Store keeps patients and notes in memory. When path is set every mutation
// rewrites a JSON snapshot there.
type Store struct {
	mu       sync.RWMutex
	path     string
	patients map[string]types.Patient
	notes    map[string][]types.Note
	now      func() time.Time
	entropy  *ulid.MonotonicEntropy
}

// NewStore returns an empty store persisting to path ("" disables it).
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		patients: make(map[string]types.Patient),
		notes:    make(map[string][]types.Note),
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Load reads the snapshot file. A missing file is not an error.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Patients != nil {
		s.patients = snap.Patients
	}
	if snap.Notes != nil {
		s.notes = snap.Notes
	}
	return nil
}

// save must be called with s.mu held.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(snapshot{Patients: s.patients, Notes: s.notes}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// ListPatients returns patients sorted by name, then ID.
func (s *Store) ListPatients() []types.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Patient(id string) (types.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return types.Patient{}, notFoundError{kind: "patient", id: id}
	}
	return p, nil
}

// CreatePatient validates in and stores a new patient.
func (s *Store) CreatePatient(in types.PatientInput) (types.Patient, error) {
	if err := validatePatient(in); err != nil {
		return types.Patient{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mrnTaken(in.MRN, "") {
		return types.Patient{}, invalidError{msg: "mrn already in use: " + in.MRN}
	}
	p := types.Patient{
		ID:        s.newID(),
		MRN:       strings.TrimSpace(in.MRN),
		Name:      strings.TrimSpace(in.Name),
		BirthDate: in.BirthDate,
		UpdatedAt: s.now().UTC(),
	}
	s.patients[p.ID] = p
	if err := s.save(); err != nil {
		delete(s.patients, p.ID)
		return types.Patient{}, err
	}
	return p, nil
}

// UpdatePatient replaces the editable fields of patient id.
func (s *Store) UpdatePatient(id string, in types.PatientInput) (types.Patient, error) {
	if err := validatePatient(in); err != nil {
		return types.Patient{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.patients[id]
	if !ok {
		return types.Patient{}, notFoundError{kind: "patient", id: id}
	}
	p := prev
	if s.mrnTaken(in.MRN, id) {
		return types.Patient{}, invalidError{msg: "mrn already in use: " + in.MRN}
	}
	p.MRN = strings.TrimSpace(in.MRN)
	p.Name = strings.TrimSpace(in.Name)
	p.BirthDate = in.BirthDate
	p.UpdatedAt = s.now().UTC()
	s.patients[id] = p
	if err := s.save(); err != nil {
		s.patients[id] = prev
		return types.Patient{}, err
	}
	return p, nil
}

// Notes returns the notes for patient id, oldest first.
func (s *Store) Notes(patientID string) ([]types.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, notFoundError{kind: "patient", id: patientID}
	}
	return append([]types.Note{}, s.notes[patientID]...), nil
}

// AddNote appends a note authored by author.
func (s *Store) AddNote(patientID, author string, in types.NoteInput) (types.Note, error) {
	if strings.TrimSpace(in.Body) == "" {
		return types.Note{}, invalidError{msg: "note body is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok {
		return types.Note{}, notFoundError{kind: "patient", id: patientID}
	}
	n := types.Note{
		ID:        s.newID(),
		PatientID: patientID,
		Author:    author,
		Body:      in.Body,
		CreatedAt: s.now().UTC(),
	}
	prev, had := s.notes[patientID]
	s.notes[patientID] = append(prev[:len(prev):len(prev)], n)
	if err := s.save(); err != nil {
		if had {
			s.notes[patientID] = prev
		} else {
			delete(s.notes, patientID)
		}
		return types.Note{}, err
	}
	return n, nil
}

// mrnTaken must be called with s.mu held.
func (s *Store) mrnTaken(mrn, exceptID string) bool {
	mrn = strings.TrimSpace(mrn)
	for id, p := range s.patients {
		if id != exceptID && p.MRN == mrn {
			return true
		}
	}
	return false
}

func validatePatient(in types.PatientInput) error {
	if strings.TrimSpace(in.MRN) == "" {
		return invalidError{msg: "mrn is required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return invalidError{msg: "name is required"}
	}
	if in.BirthDate != "" {
		if _, err := time.Parse(time.DateOnly, in.BirthDate); err != nil {
			return invalidError{msg: "birth_date must be YYYY-MM-DD"}
		}
	}
	return nil
}
