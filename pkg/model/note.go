package model

import "time"

// Note states
const (
	NoteStateDraft = "DRAFT"
	NoteStateFinal = "FINAL"
)

// Note types
const (
	NoteTypeProgress     = "01"
	NoteTypeConsultation = "02"
)

// Note is a hospitalization note. Notes are versioned: editing a FINAL note
// forks a new current version pointing back at the original.
type Note struct {
	ID                uint   `gorm:"column:id;primaryKey"`
	HospitalizationID uint   `gorm:"column:hospitalization_id;not null;index"`
	AccountNumber     string `gorm:"column:account_number;size:20;index"`

	PatientID   uint   `gorm:"column:patient_id;index"`
	PatientName string `gorm:"column:patient_name;size:200"`

	NoteType string `gorm:"column:note_type;size:2;not null;index"`

	Body         string `gorm:"column:body;not null"`
	Observations string `gorm:"column:observations"`

	State string `gorm:"column:state;size:10;not null;default:DRAFT"`

	CreatedBy       uint   `gorm:"column:created_by;not null"`
	AuthorName      string `gorm:"column:author_name;size:200"`
	AuthorSpecialty string `gorm:"column:author_specialty;size:100"`
	AuthorLicense   string `gorm:"column:author_license;size:50"`

	HasAudio   bool   `gorm:"column:has_audio;default:false"`
	AudioPath  string `gorm:"column:audio_path;size:255"`
	Transcript string `gorm:"column:transcript"`

	Signed        bool       `gorm:"column:signed;default:false"`
	SignedAt      *time.Time `gorm:"column:signed_at"`
	SignatureHash string     `gorm:"column:signature_hash;size:255"`

	Version        int   `gorm:"column:version;default:1"`
	IsCurrent      bool  `gorm:"column:is_current;default:true"`
	OriginalNoteID *uint `gorm:"column:original_note_id"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	FinalizedAt *time.Time `gorm:"column:finalized_at"`
}

func (Note) TableName() string {
	return "notes"
}

// TypeDescription returns the human-readable note type.
func (n Note) TypeDescription() string {
	switch n.NoteType {
	case NoteTypeProgress:
		return "Progress"
	case NoteTypeConsultation:
		return "Consultation"
	}
	return "Unknown"
}

// Editable reports whether the note may be modified in place.
// Signed notes are immutable; FINAL notes may only be forked.
func (n Note) Editable() bool {
	return n.State == NoteStateDraft && !n.Signed
}

// Summary returns a truncated body for listings.
func (n Note) Summary() string {
	if len(n.Body) <= 100 {
		return n.Body
	}
	return n.Body[:97] + "..."
}
