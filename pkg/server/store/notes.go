package store

import (
	"errors"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ErrNoteNotFound is returned when a clinical note doesn't exist
var ErrNoteNotFound = errors.New("clinical note not found")

// ErrNoteImmutable is returned when modifying a signed or finalized note
var ErrNoteImmutable = errors.New("clinical note is signed and cannot be modified")

// ErrNoteNotCurrent is returned when acting on a superseded note version
var ErrNoteNotCurrent = errors.New("clinical note version is not current")

// NoteFilter narrows note listings. Zero values mean no filtering.
type NoteFilter struct {
	PatientID         uint
	HospitalizationID uint
	AuthorID          uint
	State             string
	Type              string
	CurrentOnly       bool
	Limit             int
	Offset            int
}

// NotesStore abstracts clinical note storage operations
type NotesStore interface {
	// GetByID retrieves a note by primary key.
	// Returns ErrNoteNotFound if the note doesn't exist.
	GetByID(id uint) (*model.Note, error)

	// List returns notes matching the filter and the total count.
	List(filter NoteFilter) ([]model.Note, int64, error)

	// Create inserts a new draft note at version 1.
	Create(note *model.Note) error

	// Update persists body changes to a draft note.
	// Returns ErrNoteImmutable if the note is signed or final.
	Update(note *model.Note) error

	// Sign finalizes a note: computes the signature hash, marks it
	// FINAL and records the signing time. Signed notes are immutable.
	Sign(id uint, signatureHash string) (*model.Note, error)

	// NewVersion forks a signed note into a new current draft version.
	// The previous version keeps its content but loses is_current.
	// Returns ErrNoteNotCurrent if the source is already superseded.
	NewVersion(id uint, body string, authorID uint, authorName string) (*model.Note, error)

	// History returns every version of a note lineage, oldest first.
	History(id uint) ([]model.Note, error)

	// Stats returns current note counts keyed by state.
	Stats() (map[string]int64, error)
}
