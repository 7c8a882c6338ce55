package model

import "time"

// Bed states
const (
	BedStateAvailable   = "AVAILABLE"
	BedStateOccupied    = "OCCUPIED"
	BedStateMaintenance = "MAINTENANCE"
	BedStateCleaning    = "CLEANING"
)

// Bed movement kinds
const (
	MovementAssign   = "ASSIGN"
	MovementRelease  = "RELEASE"
	MovementTransfer = "TRANSFER"
)

// Bed is one physical bed and, when occupied, a snapshot of its patient.
type Bed struct {
	ID     uint   `gorm:"column:id;primaryKey"`
	Number string `gorm:"column:number;uniqueIndex;size:10;not null"`

	Occupied bool   `gorm:"column:occupied;not null;default:false"`
	State    string `gorm:"column:state;size:20;default:AVAILABLE"`

	PatientID       *uint  `gorm:"column:patient_id;index"`
	PatientName     string `gorm:"column:patient_name;size:200"`
	PatientDocument string `gorm:"column:patient_document;size:20;index"`
	PatientPhone    string `gorm:"column:patient_phone;size:20"`

	HospitalizationID  *uint      `gorm:"column:hospitalization_id;index"`
	AccountNumber      string     `gorm:"column:account_number;size:20;index"`
	AdmittedAt         *time.Time `gorm:"column:admitted_at"`
	PlannedDischargeAt *time.Time `gorm:"column:planned_discharge_at"`

	AttendingClinician string `gorm:"column:attending_clinician;size:200"`
	Specialty          string `gorm:"column:specialty;size:100"`
	Diagnosis          string `gorm:"column:diagnosis"`

	Floor   string `gorm:"column:floor;size:10"`
	Wing    string `gorm:"column:wing;size:50"`
	Service string `gorm:"column:service;size:100;index"`
	Room    string `gorm:"column:room;size:10"`

	StructureID *uint `gorm:"column:structure_id"`

	BedType    string `gorm:"column:bed_type;size:50"`
	HasOxygen  bool   `gorm:"column:has_oxygen;default:false"`
	HasMonitor bool   `gorm:"column:has_monitor;default:false"`
	Isolation  bool   `gorm:"column:isolation;default:false"`

	Notes        string `gorm:"column:notes"`
	Restrictions string `gorm:"column:restrictions"`

	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	LastChangeAt *time.Time `gorm:"column:last_change_at"`
}

func (Bed) TableName() string {
	return "beds"
}

// Description returns the bed formatted for display.
func (b Bed) Description() string {
	desc := "Bed " + b.Number
	if b.Room != "" {
		desc += " - Room " + b.Room
	}
	if b.Service != "" {
		desc += " (" + b.Service + ")"
	}
	return desc
}

// Assignable reports whether a patient may be placed in the bed.
func (b Bed) Assignable() bool {
	return !b.Occupied && b.State == BedStateAvailable
}

// Occupancy is the patient snapshot applied when a bed is assigned.
type Occupancy struct {
	PatientID          uint
	PatientName        string
	PatientDocument    string
	PatientPhone       string
	HospitalizationID  uint
	AccountNumber      string
	AdmittedAt         time.Time
	AttendingClinician string
	Specialty          string
	Diagnosis          string
}

// Occupy fills the bed with a patient snapshot.
func (b *Bed) Occupy(o Occupancy) {
	now := time.Now()
	b.Occupied = true
	b.State = BedStateOccupied
	b.PatientID = &o.PatientID
	b.PatientName = o.PatientName
	b.PatientDocument = o.PatientDocument
	b.PatientPhone = o.PatientPhone
	b.HospitalizationID = &o.HospitalizationID
	b.AccountNumber = o.AccountNumber
	admitted := o.AdmittedAt
	if admitted.IsZero() {
		admitted = now
	}
	b.AdmittedAt = &admitted
	b.AttendingClinician = o.AttendingClinician
	b.Specialty = o.Specialty
	b.Diagnosis = o.Diagnosis
	b.LastChangeAt = &now
}

// Release clears the patient snapshot and sends the bed to cleaning.
// Cleaning staff mark it available again through a state change.
func (b *Bed) Release() {
	now := time.Now()
	b.Occupied = false
	b.State = BedStateCleaning
	b.PatientID = nil
	b.PatientName = ""
	b.PatientDocument = ""
	b.PatientPhone = ""
	b.HospitalizationID = nil
	b.AccountNumber = ""
	b.AdmittedAt = nil
	b.PlannedDischargeAt = nil
	b.AttendingClinician = ""
	b.Diagnosis = ""
	b.LastChangeAt = &now
}

// HospitalStructure is the singleton row describing the facility and its
// aggregate bed capacity. Counters are recomputed from bed rows whenever
// occupancy changes.
type HospitalStructure struct {
	ID         uint   `gorm:"column:id;primaryKey"`
	HospitalID uint   `gorm:"column:hospital_id;uniqueIndex;not null"`
	Name       string `gorm:"column:name;size:200;not null"`

	Address  string `gorm:"column:address"`
	Phone    string `gorm:"column:phone;size:20"`
	Email    string `gorm:"column:email;size:100"`
	Director string `gorm:"column:director;size:200"`

	TotalBeds       int `gorm:"column:total_beds;default:0"`
	AvailableBeds   int `gorm:"column:available_beds;default:0"`
	OccupiedBeds    int `gorm:"column:occupied_beds;default:0"`
	MaintenanceBeds int `gorm:"column:maintenance_beds;default:0"`

	Services    StringList `gorm:"column:services;type:jsonb"`
	Specialties StringList `gorm:"column:specialties;type:jsonb"`

	Floors int `gorm:"column:floors"`
	Rooms  int `gorm:"column:rooms"`

	GeneralBeds   int `gorm:"column:general_beds;default:0"`
	ICUBeds       int `gorm:"column:icu_beds;default:0"`
	PediatricBeds int `gorm:"column:pediatric_beds;default:0"`
	MaternityBeds int `gorm:"column:maternity_beds;default:0"`
	SurgeryBeds   int `gorm:"column:surgery_beds;default:0"`

	HasLaboratory bool `gorm:"column:has_laboratory;default:false"`
	HasImaging    bool `gorm:"column:has_imaging;default:false"`
	HasPharmacy   bool `gorm:"column:has_pharmacy;default:false"`
	HasEmergency  bool `gorm:"column:has_emergency;default:false"`

	Active   bool   `gorm:"column:active;not null;default:true"`
	Level    string `gorm:"column:level;size:20"`
	Category string `gorm:"column:category;size:50"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (HospitalStructure) TableName() string {
	return "hospital_structure"
}

// OccupancyPercent returns the occupied share of total beds.
func (h HospitalStructure) OccupancyPercent() float64 {
	if h.TotalBeds == 0 {
		return 0
	}
	return float64(h.OccupiedBeds) / float64(h.TotalBeds) * 100
}

// BedMovement is an append-only journal entry for bed occupancy changes.
type BedMovement struct {
	ID        uint   `gorm:"column:id;primaryKey"`
	BedID     uint   `gorm:"column:bed_id;not null;index"`
	BedNumber string `gorm:"column:bed_number;size:10"`

	PatientID   uint   `gorm:"column:patient_id;index"`
	PatientName string `gorm:"column:patient_name;size:200"`

	Kind        string `gorm:"column:kind;size:10;not null"`
	FromService string `gorm:"column:from_service;size:100"`
	ToService   string `gorm:"column:to_service;size:100"`

	HospitalizationID uint `gorm:"column:hospitalization_id;index"`

	ActorID   uint   `gorm:"column:actor_id"`
	ActorName string `gorm:"column:actor_name;size:200"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (BedMovement) TableName() string {
	return "bed_movements"
}
