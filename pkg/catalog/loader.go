// Package catalog loads clinical catalog and vademecum seed files into the
// database. Seed files are YAML and are applied idempotently: entries are
// upserted by code, so reloading a file after an edit updates rows in place.
package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Seed is the YAML document layout for catalog seed files.
type Seed struct {
	Catalogs    []CatalogEntry    `yaml:"catalogs"`
	Medications []MedicationEntry `yaml:"medications"`
}

// CatalogEntry is one coded catalog row in a seed file.
type CatalogEntry struct {
	Code        string   `yaml:"code"`
	Description string   `yaml:"description"`
	SourceTable string   `yaml:"source_table"`
	Category    string   `yaml:"category"`
	Kind        string   `yaml:"kind"`
	Active      *bool    `yaml:"active"`
	Numeric     *float64 `yaml:"numeric_value"`
	Notes       string   `yaml:"notes"`
}

// MedicationEntry is one vademecum row in a seed file.
type MedicationEntry struct {
	Code                 string   `yaml:"code"`
	CommercialName       string   `yaml:"commercial_name"`
	GenericName          string   `yaml:"generic_name"`
	PharmaceuticalForm   string   `yaml:"pharmaceutical_form"`
	Concentration        string   `yaml:"concentration"`
	Laboratory           string   `yaml:"laboratory"`
	TherapeuticCategory  string   `yaml:"therapeutic_category"`
	Indications          string   `yaml:"indications"`
	Contraindications    string   `yaml:"contraindications"`
	Dosage               string   `yaml:"dosage"`
	RequiresPrescription *bool    `yaml:"requires_prescription"`
	Controlled           bool     `yaml:"controlled"`
	Active               *bool    `yaml:"active"`
	ReferencePrice       *float64 `yaml:"reference_price"`
	Stock                int      `yaml:"stock"`
}

// Result contains the counts of applied entries.
type Result struct {
	Catalogs    int
	Medications int
}

// Loader applies catalog seed files against the stores.
type Loader struct {
	catalogs    store.CatalogsStore
	medications store.MedicationsStore
}

// NewLoader creates a new seed loader.
func NewLoader(catalogs store.CatalogsStore, medications store.MedicationsStore) *Loader {
	return &Loader{catalogs: catalogs, medications: medications}
}

// LoadFile reads and applies a seed file.
func (l *Loader) LoadFile(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return l.LoadFromReader(file)
}

// LoadFromReader parses and applies seed documents from an io.Reader.
// A file may contain multiple YAML documents separated by "---".
func (l *Loader) LoadFromReader(r io.Reader) (*Result, error) {
	result := &Result{}
	decoder := yaml.NewDecoder(r)

	for {
		var seed Seed
		if err := decoder.Decode(&seed); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to parse seed file: %w", err)
		}
		if err := l.apply(&seed, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (l *Loader) apply(seed *Seed, result *Result) error {
	for i, entry := range seed.Catalogs {
		if entry.Code == "" || entry.Description == "" {
			return fmt.Errorf("catalog entry %d: code and description are required", i)
		}

		active := true
		if entry.Active != nil {
			active = *entry.Active
		}

		err := l.catalogs.Upsert(&model.Catalog{
			Code:         entry.Code,
			Description:  entry.Description,
			SourceTable:  entry.SourceTable,
			Category:     entry.Category,
			Kind:         entry.Kind,
			Active:       active,
			NumericValue: entry.Numeric,
			Notes:        entry.Notes,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert catalog entry %q: %w", entry.Code, err)
		}
		result.Catalogs++
	}

	for i, entry := range seed.Medications {
		if entry.Code == "" || entry.CommercialName == "" {
			return fmt.Errorf("medication entry %d: code and commercial_name are required", i)
		}

		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		requiresPrescription := true
		if entry.RequiresPrescription != nil {
			requiresPrescription = *entry.RequiresPrescription
		}

		err := l.medications.Upsert(&model.Medication{
			Code:                 entry.Code,
			CommercialName:       entry.CommercialName,
			GenericName:          entry.GenericName,
			PharmaceuticalForm:   entry.PharmaceuticalForm,
			Concentration:        entry.Concentration,
			Laboratory:           entry.Laboratory,
			TherapeuticCategory:  entry.TherapeuticCategory,
			Indications:          entry.Indications,
			Contraindications:    entry.Contraindications,
			Dosage:               entry.Dosage,
			RequiresPrescription: requiresPrescription,
			Controlled:           entry.Controlled,
			Active:               active,
			ReferencePrice:       entry.ReferencePrice,
			Stock:                entry.Stock,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert medication %q: %w", entry.Code, err)
		}
		result.Medications++
	}

	return nil
}
