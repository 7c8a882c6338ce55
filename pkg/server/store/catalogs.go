package store

import (
	"errors"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ErrCatalogNotFound is returned when a catalog entry doesn't exist
var ErrCatalogNotFound = errors.New("catalog entry not found")

// ErrMedicationNotFound is returned when a medication doesn't exist
var ErrMedicationNotFound = errors.New("medication not found")

// CatalogFilter narrows catalog listings. Zero values mean no filtering.
type CatalogFilter struct {
	SourceTable string
	Category    string
	Kind        string
	Search      string // matches code or description
	Limit       int
	Offset      int
}

// MedicationFilter narrows vademecum listings
type MedicationFilter struct {
	Search              string // matches code, commercial or generic name
	TherapeuticCategory string
	Controlled          *bool
	Limit               int
	Offset              int
}

// CatalogsStore abstracts clinical catalog storage operations
type CatalogsStore interface {
	// GetByCode retrieves a catalog entry by its unique code.
	// Returns ErrCatalogNotFound if the entry doesn't exist.
	GetByCode(code string) (*model.Catalog, error)

	// List returns catalog entries matching the filter and the total count.
	List(filter CatalogFilter) ([]model.Catalog, int64, error)

	// SourceTables returns the distinct source tables present.
	SourceTables() ([]string, error)

	// Upsert inserts or updates an entry keyed by code.
	Upsert(entry *model.Catalog) error
}

// MedicationsStore abstracts vademecum storage operations
type MedicationsStore interface {
	// GetByID retrieves a medication by primary key.
	// Returns ErrMedicationNotFound if the medication doesn't exist.
	GetByID(id uint) (*model.Medication, error)

	// GetByCode retrieves a medication by its unique code.
	GetByCode(code string) (*model.Medication, error)

	// List returns medications matching the filter and the total count.
	List(filter MedicationFilter) ([]model.Medication, int64, error)

	// Upsert inserts or updates a medication keyed by code.
	Upsert(med *model.Medication) error
}
