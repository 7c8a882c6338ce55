package model

import "time"

// Order states (header and items share the same set)
const (
	OrderStatePending    = "PENDING"
	OrderStateInProgress = "IN_PROGRESS"
	OrderStateCompleted  = "COMPLETED"
	OrderStateCancelled  = "CANCELLED"
)

// Order priorities
const (
	OrderPriorityUrgent = "URGENT"
	OrderPriorityNormal = "NORMAL"
	OrderPriorityLow    = "LOW"
)

// Order types
const (
	OrderTypeLaboratory   = "01"
	OrderTypeImaging      = "02"
	OrderTypeProcedure    = "03"
	OrderTypeConsultation = "04"
)

// Order is a lab/imaging/procedure order header.
type Order struct {
	ID     uint   `gorm:"column:id;primaryKey"`
	Number string `gorm:"column:number;uniqueIndex;size:20;not null"`

	HospitalizationID uint   `gorm:"column:hospitalization_id;not null;index"`
	AccountNumber     string `gorm:"column:account_number;size:20;index"`

	PatientID       uint   `gorm:"column:patient_id;index"`
	PatientName     string `gorm:"column:patient_name;size:200"`
	PatientDocument string `gorm:"column:patient_document;size:20"`

	OrderType string `gorm:"column:order_type;size:2;not null;index"`

	Diagnosis    string `gorm:"column:diagnosis"`
	Indications  string `gorm:"column:indications"`
	Observations string `gorm:"column:observations"`

	State    string `gorm:"column:state;size:15;not null;default:PENDING"`
	Priority string `gorm:"column:priority;size:10;default:NORMAL"`

	CreatedBy          uint   `gorm:"column:created_by;not null"`
	RequesterName      string `gorm:"column:requester_name;size:200"`
	RequesterSpecialty string `gorm:"column:requester_specialty;size:100"`
	RequesterLicense   string `gorm:"column:requester_license;size:50"`

	RequestedAt *time.Time `gorm:"column:requested_at"`
	ScheduledAt *time.Time `gorm:"column:scheduled_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	DestinationService  string `gorm:"column:destination_service;size:100"`
	PerformingClinician string `gorm:"column:performing_clinician;size:200"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// TypeDescription returns the human-readable order type.
func (o Order) TypeDescription() string {
	switch o.OrderType {
	case OrderTypeLaboratory:
		return "Laboratory"
	case OrderTypeImaging:
		return "Imaging"
	case OrderTypeProcedure:
		return "Procedure"
	case OrderTypeConsultation:
		return "Consultation"
	}
	return "Unknown"
}

// Editable reports whether the order may still be modified.
func (o Order) Editable() bool {
	return o.State == OrderStatePending || o.State == OrderStateInProgress
}

// OrderItem is a requested exam or procedure line.
type OrderItem struct {
	ID      uint `gorm:"column:id;primaryKey"`
	OrderID uint `gorm:"column:order_id;not null;index"`

	ExamID       *uint  `gorm:"column:exam_id"`
	ExamCode     string `gorm:"column:exam_code;size:20"`
	ExamName     string `gorm:"column:exam_name;size:200;not null"`
	ExamCategory string `gorm:"column:exam_category;size:100"`

	Specifications      string `gorm:"column:specifications"`
	RequiredPreparation string `gorm:"column:required_preparation"`

	State string `gorm:"column:state;size:15;not null;default:PENDING"`

	Result         string   `gorm:"column:result"`
	NumericValue   *float64 `gorm:"column:numeric_value;type:numeric(10,3)"`
	Unit           string   `gorm:"column:unit;size:20"`
	ReferenceRange string   `gorm:"column:reference_range;size:100"`
	Interpretation string   `gorm:"column:interpretation"`

	SampleTakenAt *time.Time `gorm:"column:sample_taken_at"`
	ResultAt      *time.Time `gorm:"column:result_at"`
	Responsible   string     `gorm:"column:responsible;size:200"`

	ResultFilePath string `gorm:"column:result_file_path;size:255"`
	ResultFileType string `gorm:"column:result_file_type;size:20"`

	Validated   bool       `gorm:"column:validated;default:false"`
	ValidatedAt *time.Time `gorm:"column:validated_at"`
	ValidatedBy string     `gorm:"column:validated_by;size:200"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// HasResult reports whether the item carries a result.
func (i OrderItem) HasResult() bool {
	return i.Result != "" || i.NumericValue != nil
}

// Terminal reports whether the item is in a terminal state.
func (i OrderItem) Terminal() bool {
	return i.State == OrderStateCompleted || i.State == OrderStateCancelled
}
