package model

import (
	"fmt"
	"time"
)

// Prescription states
const (
	PrescriptionStateActive    = "01"
	PrescriptionStateDispensed = "02"
	PrescriptionStateExpired   = "03"
	PrescriptionStateVoided    = "04"
)

// Origin types shared by prescriptions, notes and orders
const (
	OriginHospitalization = "HOS"
	OriginConsultation    = "CON"
	OriginEmergency       = "EME"
)

// Prescription is a prescription header. Item rows carry the prescribed
// medications.
type Prescription struct {
	ID     uint   `gorm:"column:id;primaryKey"`
	Number string `gorm:"column:number;uniqueIndex;size:20;not null"`

	OriginType string `gorm:"column:origin_type;size:10;not null;index"`
	OriginID   uint   `gorm:"column:origin_id;not null;index"`

	PatientID       uint   `gorm:"column:patient_id;index"`
	PatientName     string `gorm:"column:patient_name;size:200"`
	PatientDocument string `gorm:"column:patient_document;size:20"`

	Diagnosis    string `gorm:"column:diagnosis"`
	Instructions string `gorm:"column:instructions"`

	State     string     `gorm:"column:state;size:2;not null;default:01"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`

	CreatedBy         uint   `gorm:"column:created_by;not null"`
	PrescriberName    string `gorm:"column:prescriber_name;size:200"`
	PrescriberLicense string `gorm:"column:prescriber_license;size:50"`

	Signed        bool       `gorm:"column:signed;default:false"`
	SignedAt      *time.Time `gorm:"column:signed_at"`
	SignatureHash string     `gorm:"column:signature_hash;size:255"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`

	Items []PrescriptionItem `gorm:"foreignKey:PrescriptionID"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

// StateDescription returns the human-readable state.
func (p Prescription) StateDescription() string {
	switch p.State {
	case PrescriptionStateActive:
		return "Active"
	case PrescriptionStateDispensed:
		return "Dispensed"
	case PrescriptionStateExpired:
		return "Expired"
	case PrescriptionStateVoided:
		return "Voided"
	}
	return "Unknown"
}

// Editable reports whether the prescription may still be modified.
func (p Prescription) Editable() bool {
	return p.State == PrescriptionStateActive && !p.Signed
}

// PrescriptionItem is a prescribed medication line.
type PrescriptionItem struct {
	ID             uint `gorm:"column:id;primaryKey"`
	PrescriptionID uint `gorm:"column:prescription_id;not null;index"`

	MedicationID   *uint  `gorm:"column:medication_id"`
	MedicationCode string `gorm:"column:medication_code;size:20"`
	MedicationName string `gorm:"column:medication_name;size:200;not null"`

	Quantity int    `gorm:"column:quantity;not null"`
	Unit     string `gorm:"column:unit;size:20;default:UNIT"`
	Dosage   string `gorm:"column:dosage"`
	Duration string `gorm:"column:duration;size:50"`

	DispensedQuantity int        `gorm:"column:dispensed_quantity;default:0"`
	Dispensed         bool       `gorm:"column:dispensed;default:false"`
	DispensedAt       *time.Time `gorm:"column:dispensed_at"`

	Notes         string `gorm:"column:notes"`
	Substitutable bool   `gorm:"column:substitutable;default:true"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (PrescriptionItem) TableName() string {
	return "prescription_items"
}

// FullInstruction returns the item formatted for display.
func (i PrescriptionItem) FullInstruction() string {
	desc := fmt.Sprintf("%s - %d %s", i.MedicationName, i.Quantity, i.Unit)
	if i.Dosage != "" {
		desc += " - " + i.Dosage
	}
	return desc
}
