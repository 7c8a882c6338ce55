package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure NotesStore implements store.NotesStore
var _ store.NotesStore = (*NotesStore)(nil)

// NotesStore implements store.NotesStore using GORM
type NotesStore struct {
	db *gorm.DB
}

// NewNotesStore creates a new NotesStore
func NewNotesStore(db *gorm.DB) *NotesStore {
	return &NotesStore{db: db}
}

// GetByID retrieves a note by primary key.
func (s *NotesStore) GetByID(id uint) (*model.Note, error) {
	var note model.Note
	tx := s.db.First(&note, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNoteNotFound
		}
		return nil, tx.Error
	}
	return &note, nil
}

// List returns notes matching the filter and the total count.
func (s *NotesStore) List(filter store.NoteFilter) ([]model.Note, int64, error) {
	query := s.db.Model(&model.Note{})

	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.HospitalizationID != 0 {
		query = query.Where("hospitalization_id = ?", filter.HospitalizationID)
	}
	if filter.AuthorID != 0 {
		query = query.Where("created_by = ?", filter.AuthorID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Type != "" {
		query = query.Where("note_type = ?", filter.Type)
	}
	if filter.CurrentOnly {
		query = query.Where("is_current = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var notes []model.Note
	if err := query.Order("created_at desc").Find(&notes).Error; err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// Create inserts a new draft note at version 1.
func (s *NotesStore) Create(note *model.Note) error {
	note.State = model.NoteStateDraft
	note.Version = 1
	note.IsCurrent = true
	note.Signed = false
	return s.db.Create(note).Error
}

// Update persists body changes to a draft note.
func (s *NotesStore) Update(note *model.Note) error {
	var existing model.Note
	if err := s.db.First(&existing, note.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.ErrNoteNotFound
		}
		return err
	}
	if !existing.Editable() {
		return store.ErrNoteImmutable
	}

	now := time.Now()
	note.UpdatedAt = &now
	return s.db.Model(&model.Note{}).Where("id = ?", note.ID).
		Updates(map[string]interface{}{
			"body":         note.Body,
			"observations": note.Observations,
			"note_type":    note.NoteType,
			"has_audio":    note.HasAudio,
			"audio_path":   note.AudioPath,
			"transcript":   note.Transcript,
			"updated_at":   now,
		}).Error
}

// Sign finalizes a note. Signed notes are immutable.
func (s *NotesStore) Sign(id uint, signatureHash string) (*model.Note, error) {
	var note model.Note
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&note, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNoteNotFound
			}
			return err
		}
		if note.Signed {
			return store.ErrNoteImmutable
		}
		if !note.IsCurrent {
			return store.ErrNoteNotCurrent
		}

		now := time.Now()
		note.Signed = true
		note.SignedAt = &now
		note.SignatureHash = signatureHash
		note.State = model.NoteStateFinal
		note.FinalizedAt = &now
		note.UpdatedAt = &now
		return tx.Save(&note).Error
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// NewVersion forks a signed note into a new current draft version.
func (s *NotesStore) NewVersion(id uint, body string, authorID uint, authorName string) (*model.Note, error) {
	var next model.Note
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var prev model.Note
		if err := tx.First(&prev, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNoteNotFound
			}
			return err
		}
		if !prev.IsCurrent {
			return store.ErrNoteNotCurrent
		}

		if err := tx.Model(&model.Note{}).Where("id = ?", prev.ID).
			Update("is_current", false).Error; err != nil {
			return err
		}

		originalID := prev.ID
		if prev.OriginalNoteID != nil {
			originalID = *prev.OriginalNoteID
		}

		next = model.Note{
			HospitalizationID: prev.HospitalizationID,
			AccountNumber:     prev.AccountNumber,
			PatientID:         prev.PatientID,
			PatientName:       prev.PatientName,
			NoteType:          prev.NoteType,
			Body:              body,
			Observations:      prev.Observations,
			State:             model.NoteStateDraft,
			CreatedBy:         authorID,
			AuthorName:        authorName,
			AuthorSpecialty:   prev.AuthorSpecialty,
			AuthorLicense:     prev.AuthorLicense,
			Version:           prev.Version + 1,
			IsCurrent:         true,
			OriginalNoteID:    &originalID,
		}
		return tx.Create(&next).Error
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// Stats returns current note counts keyed by state.
func (s *NotesStore) Stats() (map[string]int64, error) {
	type row struct {
		State string
		Count int64
	}
	var rows []row
	err := s.db.Model(&model.Note{}).
		Where("is_current = ?", true).
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.State] = r.Count
	}
	return stats, nil
}

// History returns every version of a note lineage, oldest first.
func (s *NotesStore) History(id uint) ([]model.Note, error) {
	var note model.Note
	if err := s.db.First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNoteNotFound
		}
		return nil, err
	}

	originalID := note.ID
	if note.OriginalNoteID != nil {
		originalID = *note.OriginalNoteID
	}

	var versions []model.Note
	err := s.db.Where("id = ? OR original_note_id = ?", originalID, originalID).
		Order("version").
		Find(&versions).Error
	return versions, err
}
