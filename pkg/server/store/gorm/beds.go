package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure BedsStore implements store.BedsStore
var _ store.BedsStore = (*BedsStore)(nil)

// BedsStore implements store.BedsStore using GORM
type BedsStore struct {
	db *gorm.DB
}

// NewBedsStore creates a new BedsStore
func NewBedsStore(db *gorm.DB) *BedsStore {
	return &BedsStore{db: db}
}

// GetByID retrieves a bed by primary key.
func (s *BedsStore) GetByID(id uint) (*model.Bed, error) {
	var bed model.Bed
	tx := s.db.First(&bed, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrBedNotFound
		}
		return nil, tx.Error
	}
	return &bed, nil
}

// GetByNumber retrieves a bed by its unique number.
func (s *BedsStore) GetByNumber(number string) (*model.Bed, error) {
	var bed model.Bed
	tx := s.db.Where("number = ?", number).First(&bed)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrBedNotFound
		}
		return nil, tx.Error
	}
	return &bed, nil
}

// List returns beds matching the filter and the total count.
func (s *BedsStore) List(filter store.BedFilter) ([]model.Bed, int64, error) {
	query := s.db.Model(&model.Bed{})

	if filter.Service != "" {
		query = query.Where("service = ?", filter.Service)
	}
	if filter.Floor != "" {
		query = query.Where("floor = ?", filter.Floor)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Occupied != nil {
		query = query.Where("occupied = ?", *filter.Occupied)
	}
	if filter.BedType != "" {
		query = query.Where("bed_type = ?", filter.BedType)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("occupied AND (patient_name ILIKE ? OR patient_document ILIKE ?)",
			pattern, pattern)
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

	var beds []model.Bed
	if err := query.Order("number").Find(&beds).Error; err != nil {
		return nil, 0, err
	}
	return beds, total, nil
}

// Create inserts a new bed and refreshes the structure counters.
func (s *BedsStore) Create(bed *model.Bed) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if bed.State == "" {
			bed.State = model.BedStateAvailable
		}
		if err := tx.Create(bed).Error; err != nil {
			return err
		}
		return refreshStructureCounters(tx)
	})
}

// SetState moves an empty bed between AVAILABLE, MAINTENANCE and CLEANING.
func (s *BedsStore) SetState(id uint, state string) (*model.Bed, error) {
	var bed model.Bed
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bed, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrBedNotFound
			}
			return err
		}
		if bed.Occupied {
			return store.ErrBedOccupied
		}

		now := time.Now()
		bed.State = state
		bed.LastChangeAt = &now
		bed.UpdatedAt = &now
		if err := tx.Save(&bed).Error; err != nil {
			return err
		}
		return refreshStructureCounters(tx)
	})
	if err != nil {
		return nil, err
	}
	return &bed, nil
}

// Assign places a patient in an available bed.
func (s *BedsStore) Assign(id uint, occupancy model.Occupancy, actorID uint, actorName string) (*model.Bed, error) {
	var bed model.Bed
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bed, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrBedNotFound
			}
			return err
		}
		if !bed.Assignable() {
			return store.ErrBedOccupied
		}

		// A patient occupies at most one bed.
		var occupied int64
		err := tx.Model(&model.Bed{}).
			Where("occupied AND patient_id = ?", occupancy.PatientID).
			Count(&occupied).Error
		if err != nil {
			return err
		}
		if occupied > 0 {
			return store.ErrPatientAlreadyAdmitted
		}

		bed.Occupy(occupancy)
		if err := tx.Save(&bed).Error; err != nil {
			return err
		}

		movement := model.BedMovement{
			BedID:             bed.ID,
			BedNumber:         bed.Number,
			PatientID:         occupancy.PatientID,
			PatientName:       occupancy.PatientName,
			Kind:              model.MovementAssign,
			ToService:         bed.Service,
			HospitalizationID: occupancy.HospitalizationID,
			ActorID:           actorID,
			ActorName:         actorName,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		return refreshStructureCounters(tx)
	})
	if err != nil {
		return nil, err
	}
	return &bed, nil
}

// Release discharges the patient from an occupied bed.
func (s *BedsStore) Release(id uint, actorID uint, actorName string) (*model.Bed, error) {
	var bed model.Bed
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bed, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrBedNotFound
			}
			return err
		}
		if !bed.Occupied {
			return store.ErrBedVacant
		}

		movement := model.BedMovement{
			BedID:       bed.ID,
			BedNumber:   bed.Number,
			PatientName: bed.PatientName,
			Kind:        model.MovementRelease,
			FromService: bed.Service,
			ActorID:     actorID,
			ActorName:   actorName,
		}
		if bed.PatientID != nil {
			movement.PatientID = *bed.PatientID
		}
		if bed.HospitalizationID != nil {
			movement.HospitalizationID = *bed.HospitalizationID
		}

		bed.Release()
		if err := tx.Save(&bed).Error; err != nil {
			return err
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		return refreshStructureCounters(tx)
	})
	if err != nil {
		return nil, err
	}
	return &bed, nil
}

// Transfer moves the patient from one bed to another atomically.
func (s *BedsStore) Transfer(fromID, toID uint, actorID uint, actorName string) (*model.Bed, error) {
	var target model.Bed
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var source model.Bed
		if err := tx.First(&source, fromID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrBedNotFound
			}
			return err
		}
		if !source.Occupied {
			return store.ErrBedVacant
		}

		if err := tx.First(&target, toID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrBedNotFound
			}
			return err
		}
		if !target.Assignable() {
			return store.ErrBedOccupied
		}

		occupancy := model.Occupancy{
			PatientName:        source.PatientName,
			PatientDocument:    source.PatientDocument,
			PatientPhone:       source.PatientPhone,
			AccountNumber:      source.AccountNumber,
			AttendingClinician: source.AttendingClinician,
			Specialty:          source.Specialty,
			Diagnosis:          source.Diagnosis,
		}
		if source.PatientID != nil {
			occupancy.PatientID = *source.PatientID
		}
		if source.HospitalizationID != nil {
			occupancy.HospitalizationID = *source.HospitalizationID
		}
		if source.AdmittedAt != nil {
			occupancy.AdmittedAt = *source.AdmittedAt
		}

		movement := model.BedMovement{
			BedID:             target.ID,
			BedNumber:         target.Number,
			PatientID:         occupancy.PatientID,
			PatientName:       occupancy.PatientName,
			Kind:              model.MovementTransfer,
			FromService:       source.Service,
			ToService:         target.Service,
			HospitalizationID: occupancy.HospitalizationID,
			ActorID:           actorID,
			ActorName:         actorName,
		}

		source.Release()
		if err := tx.Save(&source).Error; err != nil {
			return err
		}

		target.Occupy(occupancy)
		if err := tx.Save(&target).Error; err != nil {
			return err
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		return refreshStructureCounters(tx)
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// Structure returns the hospital structure singleton.
func (s *BedsStore) Structure() (*model.HospitalStructure, error) {
	var structure model.HospitalStructure
	tx := s.db.First(&structure)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrStructureNotFound
		}
		return nil, tx.Error
	}
	return &structure, nil
}

// SaveStructure inserts or updates the hospital structure singleton.
func (s *BedsStore) SaveStructure(structure *model.HospitalStructure) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.HospitalStructure
		err := tx.First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(structure).Error; err != nil {
					return err
				}
				return refreshStructureCounters(tx)
			}
			return err
		}
		structure.ID = existing.ID
		structure.TotalBeds = existing.TotalBeds
		structure.AvailableBeds = existing.AvailableBeds
		structure.OccupiedBeds = existing.OccupiedBeds
		structure.MaintenanceBeds = existing.MaintenanceBeds
		structure.CreatedAt = existing.CreatedAt
		return tx.Save(structure).Error
	})
}

// Movements returns journal entries matching the filter, newest first.
func (s *BedsStore) Movements(filter store.MovementFilter) ([]model.BedMovement, int64, error) {
	query := s.db.Model(&model.BedMovement{})

	if filter.BedID != 0 {
		query = query.Where("bed_id = ?", filter.BedID)
	}
	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To)
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

	var movements []model.BedMovement
	if err := query.Order("created_at desc").Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// SummaryByService aggregates bed counts per service.
func (s *BedsStore) SummaryByService() ([]store.BedSummary, error) {
	var summaries []store.BedSummary
	err := s.db.Model(&model.Bed{}).
		Select(`service,
			count(*) as total,
			count(*) filter (where occupied) as occupied,
			count(*) filter (where state = ?) as available`, model.BedStateAvailable).
		Group("service").
		Order("service").
		Scan(&summaries).Error
	return summaries, err
}

// Services returns the distinct services with at least one bed.
func (s *BedsStore) Services() ([]string, error) {
	var services []string
	err := s.db.Model(&model.Bed{}).
		Distinct("service").
		Where("service <> ''").
		Order("service").
		Pluck("service", &services).Error
	return services, err
}

// refreshStructureCounters recomputes the aggregate bed counters from the
// bed rows. Runs inside the caller's transaction so the counters stay
// consistent with the change that triggered them.
func refreshStructureCounters(tx *gorm.DB) error {
	var structure model.HospitalStructure
	if err := tx.First(&structure).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No structure row yet, nothing to refresh.
			return nil
		}
		return err
	}

	type counts struct {
		Total       int
		Occupied    int
		Available   int
		Maintenance int
	}
	var c counts
	err := tx.Model(&model.Bed{}).
		Select(`count(*) as total,
			count(*) filter (where occupied) as occupied,
			count(*) filter (where state = ?) as available,
			count(*) filter (where state = ?) as maintenance`,
			model.BedStateAvailable, model.BedStateMaintenance).
		Scan(&c).Error
	if err != nil {
		return err
	}

	now := time.Now()
	return tx.Model(&model.HospitalStructure{}).Where("id = ?", structure.ID).
		Updates(map[string]interface{}{
			"total_beds":       c.Total,
			"available_beds":   c.Available,
			"occupied_beds":    c.Occupied,
			"maintenance_beds": c.Maintenance,
			"updated_at":       now,
		}).Error
}
