package gorm

import (
	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure HealthStore implements store.HealthStore
var _ store.HealthStore = (*HealthStore)(nil)

// HealthStore provides health check operations using GORM
type HealthStore struct {
	db *gorm.DB
}

// NewHealthStore creates a new HealthStore
func NewHealthStore(db *gorm.DB) *HealthStore {
	return &HealthStore{db: db}
}

// CheckConnectivity verifies database connectivity
func (s *HealthStore) CheckConnectivity() error {
	return s.db.Exec("SELECT 1").Error
}

// Counts returns record counts for the health report
func (s *HealthStore) Counts() (store.HealthCounts, error) {
	var counts store.HealthCounts
	if err := s.db.Model(&model.User{}).Count(&counts.Users).Error; err != nil {
		return counts, err
	}
	if err := s.db.Model(&model.Bed{}).Count(&counts.Beds).Error; err != nil {
		return counts, err
	}
	err := s.db.Model(&model.Prescription{}).
		Where("state = ?", model.PrescriptionStateActive).
		Count(&counts.ActivePrescriptions).Error
	return counts, err
}
