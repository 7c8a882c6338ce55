package model

import "time"

// Catalog is a coded entry in one of the medical catalogs. Entries are
// partitioned by SourceTable (EXA for exams, DIA for diagnoses, and so on).
type Catalog struct {
	ID          uint   `gorm:"column:id;primaryKey"`
	Code        string `gorm:"column:code;uniqueIndex;size:20;not null"`
	Description string `gorm:"column:description;not null"`

	SourceTable string `gorm:"column:source_table;size:50;index"`
	Category    string `gorm:"column:category;size:100;index"`
	Kind        string `gorm:"column:kind;size:50;index"`

	Active bool `gorm:"column:active;not null;default:true"`

	NumericValue *float64 `gorm:"column:numeric_value;type:numeric(10,2)"`
	Extra1       string   `gorm:"column:extra1;size:100"`
	Extra2       string   `gorm:"column:extra2;size:100"`
	Notes        string   `gorm:"column:notes"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Catalog) TableName() string {
	return "catalogs"
}

// Medication is an entry in the medication formulary (vademecum).
type Medication struct {
	ID             uint   `gorm:"column:id;primaryKey"`
	Code           string `gorm:"column:code;uniqueIndex;size:20;not null"`
	CommercialName string `gorm:"column:commercial_name;size:200;not null;index"`
	GenericName    string `gorm:"column:generic_name;size:200;index"`

	PharmaceuticalForm  string `gorm:"column:pharmaceutical_form;size:100"`
	Concentration       string `gorm:"column:concentration;size:100"`
	Laboratory          string `gorm:"column:laboratory;size:100"`
	TherapeuticCategory string `gorm:"column:therapeutic_category;size:150;index"`

	Indications       string `gorm:"column:indications"`
	Contraindications string `gorm:"column:contraindications"`
	Dosage            string `gorm:"column:dosage"`

	RequiresPrescription bool `gorm:"column:requires_prescription;default:true"`
	Controlled           bool `gorm:"column:controlled;default:false"`
	Active               bool `gorm:"column:active;not null;default:true"`

	ReferencePrice *float64 `gorm:"column:reference_price;type:numeric(10,2)"`
	Stock          int      `gorm:"column:stock;default:0"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Medication) TableName() string {
	return "medications"
}

// FullDescription returns the medication name with concentration and form.
func (m Medication) FullDescription() string {
	desc := m.CommercialName
	if m.Concentration != "" {
		desc += " " + m.Concentration
	}
	if m.PharmaceuticalForm != "" {
		desc += " (" + m.PharmaceuticalForm + ")"
	}
	return desc
}
