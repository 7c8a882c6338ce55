package gorm

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure PrescriptionsStore implements store.PrescriptionsStore
var _ store.PrescriptionsStore = (*PrescriptionsStore)(nil)

// PrescriptionsStore implements store.PrescriptionsStore using GORM
type PrescriptionsStore struct {
	db *gorm.DB
}

// NewPrescriptionsStore creates a new PrescriptionsStore
func NewPrescriptionsStore(db *gorm.DB) *PrescriptionsStore {
	return &PrescriptionsStore{db: db}
}

// GetByID retrieves a prescription with its items.
func (s *PrescriptionsStore) GetByID(id uint) (*model.Prescription, error) {
	var p model.Prescription
	tx := s.db.Preload("Items").First(&p, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrPrescriptionNotFound
		}
		return nil, tx.Error
	}
	return &p, nil
}

// GetByNumber retrieves a prescription by its RX number.
func (s *PrescriptionsStore) GetByNumber(number string) (*model.Prescription, error) {
	var p model.Prescription
	tx := s.db.Preload("Items").Where("number = ?", number).First(&p)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrPrescriptionNotFound
		}
		return nil, tx.Error
	}
	return &p, nil
}

// List returns prescriptions matching the filter and the total count.
func (s *PrescriptionsStore) List(filter store.PrescriptionFilter) ([]model.Prescription, int64, error) {
	query := s.db.Model(&model.Prescription{})

	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.PrescriberID != 0 {
		query = query.Where("created_by = ?", filter.PrescriberID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Origin != "" {
		query = query.Where("origin_type = ?", filter.Origin)
	}
	if filter.Number != "" {
		query = query.Where("number = ?", filter.Number)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To)
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

	var prescriptions []model.Prescription
	if err := query.Preload("Items").Order("created_at desc").Find(&prescriptions).Error; err != nil {
		return nil, 0, err
	}
	return prescriptions, total, nil
}

// nextNumber generates a sequential document number like RX-20260829-0001.
// The count runs inside the caller's transaction so concurrent writers
// cannot observe the same sequence value.
func nextNumber(tx *gorm.DB, modelValue interface{}, prefix string) (string, error) {
	today := time.Now().Format("20060102")

	var count int64
	err := tx.Model(modelValue).
		Where("number LIKE ?", fmt.Sprintf("%s-%s-%%", prefix, today)).
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%04d", prefix, today, count+1), nil
}

// Create inserts a new active prescription with its items.
func (s *PrescriptionsStore) Create(p *model.Prescription) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		number, err := nextNumber(tx, &model.Prescription{}, "RX")
		if err != nil {
			return err
		}
		p.Number = number
		p.State = model.PrescriptionStateActive
		p.Signed = false
		return tx.Create(p).Error
	})
}

// Update persists header changes on an active, unsigned prescription.
func (s *PrescriptionsStore) Update(p *model.Prescription) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current model.Prescription
		if err := tx.First(&current, p.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrPrescriptionNotFound
			}
			return err
		}
		if !current.Editable() {
			return store.ErrPrescriptionNotEditable
		}

		now := time.Now()
		p.UpdatedAt = &now
		return tx.Model(&model.Prescription{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"diagnosis":    p.Diagnosis,
				"instructions": p.Instructions,
				"expires_at":   p.ExpiresAt,
				"updated_at":   now,
			}).Error
	})
}

// Sign records the prescriber signature hash on an active prescription.
func (s *PrescriptionsStore) Sign(id uint, signatureHash string) (*model.Prescription, error) {
	var p model.Prescription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrPrescriptionNotFound
			}
			return err
		}
		if p.State != model.PrescriptionStateActive {
			return store.ErrPrescriptionNotEditable
		}

		now := time.Now()
		p.Signed = true
		p.SignedAt = &now
		p.SignatureHash = signatureHash
		p.UpdatedAt = &now
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DispenseItem records a dispensation against one item.
func (s *PrescriptionsStore) DispenseItem(prescriptionID, itemID uint, quantity int) (*model.Prescription, error) {
	var p model.Prescription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&p, prescriptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrPrescriptionNotFound
			}
			return err
		}
		if p.State != model.PrescriptionStateActive {
			return store.ErrPrescriptionNotEditable
		}

		var item *model.PrescriptionItem
		for i := range p.Items {
			if p.Items[i].ID == itemID {
				item = &p.Items[i]
				break
			}
		}
		if item == nil {
			return store.ErrItemNotFound
		}

		// Controlled medications may only leave the pharmacy against a
		// signed prescription.
		if item.MedicationID != nil && !p.Signed {
			var med model.Medication
			if err := tx.First(&med, *item.MedicationID).Error; err == nil && med.Controlled {
				return store.ErrPrescriptionUnsigned
			}
		}

		now := time.Now()
		item.DispensedQuantity += quantity
		if item.DispensedQuantity >= item.Quantity {
			item.DispensedQuantity = item.Quantity
			item.Dispensed = true
			item.DispensedAt = &now
		}
		item.UpdatedAt = &now
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		allDispensed := true
		for i := range p.Items {
			if !p.Items[i].Dispensed {
				allDispensed = false
				break
			}
		}
		if allDispensed {
			p.State = model.PrescriptionStateDispensed
			p.UpdatedAt = &now
			return tx.Model(&model.Prescription{}).Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"state":      model.PrescriptionStateDispensed,
					"updated_at": now,
				}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Void cancels an active prescription.
func (s *PrescriptionsStore) Void(id uint, reason string) (*model.Prescription, error) {
	var p model.Prescription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrPrescriptionNotFound
			}
			return err
		}
		if p.State != model.PrescriptionStateActive {
			return store.ErrPrescriptionNotEditable
		}

		now := time.Now()
		p.State = model.PrescriptionStateVoided
		if reason != "" {
			if p.Instructions != "" {
				p.Instructions += "\n"
			}
			p.Instructions += "Voided: " + reason
		}
		p.UpdatedAt = &now
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ExpireOverdue moves active prescriptions past their expiry date to the
// expired state.
func (s *PrescriptionsStore) ExpireOverdue() (int64, error) {
	now := time.Now()
	tx := s.db.Model(&model.Prescription{}).
		Where("state = ? AND expires_at IS NOT NULL AND expires_at < ?",
			model.PrescriptionStateActive, now).
		Updates(map[string]interface{}{
			"state":      model.PrescriptionStateExpired,
			"updated_at": now,
		})
	return tx.RowsAffected, tx.Error
}

// Stats returns prescription counts keyed by state code.
func (s *PrescriptionsStore) Stats(prescriberID uint) (map[string]int64, error) {
	type row struct {
		State string
		Count int64
	}
	query := s.db.Model(&model.Prescription{})
	if prescriberID != 0 {
		query = query.Where("created_by = ?", prescriberID)
	}
	var rows []row
	err := query.
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

// MostPrescribed returns the medications with the highest prescribed
// quantities.
func (s *PrescriptionsStore) MostPrescribed(limit int) ([]store.MedicationCount, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []store.MedicationCount
	err := s.db.Model(&model.PrescriptionItem{}).
		Select("medication_code, medication_name, count(*) as prescriptions, sum(quantity) as total_quantity").
		Group("medication_code, medication_name").
		Order("prescriptions desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
