package store

import (
	"errors"
	"time"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ErrPrescriptionNotFound is returned when a prescription doesn't exist
var ErrPrescriptionNotFound = errors.New("prescription not found")

// ErrPrescriptionNotEditable is returned when modifying a non-active prescription
var ErrPrescriptionNotEditable = errors.New("prescription is not in an editable state")

// ErrPrescriptionUnsigned is returned when dispensing controlled items
// from a prescription that has not been signed
var ErrPrescriptionUnsigned = errors.New("prescription must be signed before dispensing controlled medications")

// ErrItemNotFound is returned when a prescription item doesn't exist
var ErrItemNotFound = errors.New("prescription item not found")

// PrescriptionFilter narrows prescription listings
type PrescriptionFilter struct {
	PatientID    uint
	PrescriberID uint
	State        string
	Origin       string
	Number       string
	From         time.Time // inclusive lower bound on creation time
	To           time.Time // exclusive upper bound on creation time
	Limit        int
	Offset       int
}

// PrescriptionsStore abstracts prescription storage operations
type PrescriptionsStore interface {
	// GetByID retrieves a prescription with its items.
	// Returns ErrPrescriptionNotFound if the prescription doesn't exist.
	GetByID(id uint) (*model.Prescription, error)

	// GetByNumber retrieves a prescription by its RX number.
	GetByNumber(number string) (*model.Prescription, error)

	// List returns prescriptions matching the filter and the total count.
	List(filter PrescriptionFilter) ([]model.Prescription, int64, error)

	// Create inserts a new active prescription with its items and
	// assigns a sequential RX number.
	Create(p *model.Prescription) error

	// Update persists header changes on an active, unsigned
	// prescription. Returns ErrPrescriptionNotEditable otherwise.
	Update(p *model.Prescription) error

	// Sign records the prescriber signature hash on an active prescription.
	Sign(id uint, signatureHash string) (*model.Prescription, error)

	// DispenseItem records a dispensation against one item. When every
	// item is fully dispensed the prescription moves to the dispensed
	// state. Controlled medications require a signed prescription.
	DispenseItem(prescriptionID, itemID uint, quantity int) (*model.Prescription, error)

	// Void cancels an active prescription.
	Void(id uint, reason string) (*model.Prescription, error)

	// ExpireOverdue moves active prescriptions past their expiry date to
	// the expired state and returns how many were affected.
	ExpireOverdue() (int64, error)

	// Stats returns prescription counts keyed by state code, optionally
	// scoped to one prescriber (0 means all).
	Stats(prescriberID uint) (map[string]int64, error)

	// MostPrescribed returns the medications with the highest prescribed
	// quantities, at most limit rows.
	MostPrescribed(limit int) ([]MedicationCount, error)
}

// MedicationCount is an aggregation row for prescription reporting
type MedicationCount struct {
	MedicationCode string `json:"medication_code"`
	MedicationName string `json:"medication_name"`
	Prescriptions  int64  `json:"prescriptions"`
	TotalQuantity  int64  `json:"total_quantity"`
}
