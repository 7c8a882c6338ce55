package gorm

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure the implementations satisfy the store interfaces
var _ store.CatalogsStore = (*CatalogsStore)(nil)
var _ store.MedicationsStore = (*MedicationsStore)(nil)

// CatalogsStore implements store.CatalogsStore using GORM
type CatalogsStore struct {
	db *gorm.DB
}

// NewCatalogsStore creates a new CatalogsStore
func NewCatalogsStore(db *gorm.DB) *CatalogsStore {
	return &CatalogsStore{db: db}
}

// GetByCode retrieves a catalog entry by its unique code.
func (s *CatalogsStore) GetByCode(code string) (*model.Catalog, error) {
	var entry model.Catalog
	tx := s.db.Where("code = ?", code).First(&entry)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrCatalogNotFound
		}
		return nil, tx.Error
	}
	return &entry, nil
}

// List returns catalog entries matching the filter and the total count.
func (s *CatalogsStore) List(filter store.CatalogFilter) ([]model.Catalog, int64, error) {
	query := s.db.Model(&model.Catalog{}).Where("active = ?", true)

	if filter.SourceTable != "" {
		query = query.Where("source_table = ?", filter.SourceTable)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("lower(code) LIKE ? OR lower(description) LIKE ?", pattern, pattern)
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

	var entries []model.Catalog
	if err := query.Order("code").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SourceTables returns the distinct source tables present.
func (s *CatalogsStore) SourceTables() ([]string, error) {
	var tables []string
	err := s.db.Model(&model.Catalog{}).
		Distinct("source_table").
		Order("source_table").
		Pluck("source_table", &tables).Error
	return tables, err
}

// Upsert inserts or updates an entry keyed by code.
func (s *CatalogsStore) Upsert(entry *model.Catalog) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "source_table", "category", "kind",
			"numeric_value", "notes", "active",
		}),
	}).Create(entry).Error
}

// MedicationsStore implements store.MedicationsStore using GORM
type MedicationsStore struct {
	db *gorm.DB
}

// NewMedicationsStore creates a new MedicationsStore
func NewMedicationsStore(db *gorm.DB) *MedicationsStore {
	return &MedicationsStore{db: db}
}

// GetByID retrieves a medication by primary key.
func (s *MedicationsStore) GetByID(id uint) (*model.Medication, error) {
	var med model.Medication
	tx := s.db.First(&med, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrMedicationNotFound
		}
		return nil, tx.Error
	}
	return &med, nil
}

// GetByCode retrieves a medication by its unique code.
func (s *MedicationsStore) GetByCode(code string) (*model.Medication, error) {
	var med model.Medication
	tx := s.db.Where("code = ?", code).First(&med)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrMedicationNotFound
		}
		return nil, tx.Error
	}
	return &med, nil
}

// List returns medications matching the filter and the total count.
func (s *MedicationsStore) List(filter store.MedicationFilter) ([]model.Medication, int64, error) {
	query := s.db.Model(&model.Medication{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"lower(code) LIKE ? OR lower(commercial_name) LIKE ? OR lower(generic_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.TherapeuticCategory != "" {
		query = query.Where("therapeutic_category = ?", filter.TherapeuticCategory)
	}
	if filter.Controlled != nil {
		query = query.Where("controlled = ?", *filter.Controlled)
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

	var meds []model.Medication
	if err := query.Order("commercial_name").Find(&meds).Error; err != nil {
		return nil, 0, err
	}
	return meds, total, nil
}

// Upsert inserts or updates a medication keyed by code.
func (s *MedicationsStore) Upsert(med *model.Medication) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"commercial_name", "generic_name", "pharmaceutical_form",
			"concentration", "laboratory", "therapeutic_category",
			"indications", "contraindications", "dosage",
			"requires_prescription", "controlled", "active",
			"reference_price", "stock",
		}),
	}).Create(med).Error
}
