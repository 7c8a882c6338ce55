package store

import (
	"errors"
	"time"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ErrBedNotFound is returned when a bed doesn't exist
var ErrBedNotFound = errors.New("bed not found")

// ErrBedOccupied is returned when assigning a patient to a non-assignable bed
var ErrBedOccupied = errors.New("bed is not available")

// ErrBedVacant is returned when releasing a bed that has no patient
var ErrBedVacant = errors.New("bed is not occupied")

// ErrPatientAlreadyAdmitted is returned when assigning a patient who
// already occupies another bed
var ErrPatientAlreadyAdmitted = errors.New("patient already occupies a bed")

// ErrStructureNotFound is returned when the hospital structure row is missing
var ErrStructureNotFound = errors.New("hospital structure not configured")

// BedFilter narrows bed listings. Zero values mean no filtering.
type BedFilter struct {
	Service  string
	Floor    string
	State    string
	BedType  string
	Occupied *bool
	Search   string // matches the occupying patient's name or document
	Limit    int
	Offset   int
}

// MovementFilter narrows bed movement listings
type MovementFilter struct {
	BedID     uint
	PatientID uint
	Kind      string
	From      time.Time // inclusive lower bound on movement time
	To        time.Time // exclusive upper bound on movement time
	Limit     int
	Offset    int
}

// BedSummary aggregates bed counts per service for occupancy reporting
type BedSummary struct {
	Service   string `json:"service"`
	Total     int64  `json:"total"`
	Occupied  int64  `json:"occupied"`
	Available int64  `json:"available"`
}

// BedsStore abstracts bed management storage operations.
//
// Assign, Release and Transfer run in a single database transaction that
// also recomputes the hospital structure counters and appends a movement
// journal entry.
type BedsStore interface {
	// GetByID retrieves a bed by primary key.
	// Returns ErrBedNotFound if the bed doesn't exist.
	GetByID(id uint) (*model.Bed, error)

	// GetByNumber retrieves a bed by its unique number.
	GetByNumber(number string) (*model.Bed, error)

	// List returns beds matching the filter and the total count.
	List(filter BedFilter) ([]model.Bed, int64, error)

	// Create inserts a new bed.
	Create(bed *model.Bed) error

	// SetState moves an empty bed between AVAILABLE, MAINTENANCE and
	// CLEANING. Returns ErrBedOccupied when the bed holds a patient.
	SetState(id uint, state string) (*model.Bed, error)

	// Assign places a patient in an available bed.
	// Returns ErrBedOccupied if the bed is not assignable and
	// ErrPatientAlreadyAdmitted if the patient holds another bed.
	Assign(id uint, occupancy model.Occupancy, actorID uint, actorName string) (*model.Bed, error)

	// Release discharges the patient from an occupied bed.
	// Returns ErrBedVacant if the bed has no patient.
	Release(id uint, actorID uint, actorName string) (*model.Bed, error)

	// Transfer moves the patient from one bed to another atomically.
	Transfer(fromID, toID uint, actorID uint, actorName string) (*model.Bed, error)

	// Structure returns the hospital structure singleton.
	Structure() (*model.HospitalStructure, error)

	// SaveStructure inserts or updates the hospital structure.
	SaveStructure(structure *model.HospitalStructure) error

	// Movements returns journal entries matching the filter, newest first.
	Movements(filter MovementFilter) ([]model.BedMovement, int64, error)

	// SummaryByService aggregates bed counts per service.
	SummaryByService() ([]BedSummary, error)

	// Services returns the distinct services with at least one bed.
	Services() ([]string, error)
}
