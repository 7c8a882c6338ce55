package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure OrdersStore implements store.OrdersStore
var _ store.OrdersStore = (*OrdersStore)(nil)

// OrdersStore implements store.OrdersStore using GORM
type OrdersStore struct {
	db *gorm.DB
}

// NewOrdersStore creates a new OrdersStore
func NewOrdersStore(db *gorm.DB) *OrdersStore {
	return &OrdersStore{db: db}
}

// GetByID retrieves an order with its items.
func (s *OrdersStore) GetByID(id uint) (*model.Order, error) {
	var order model.Order
	tx := s.db.Preload("Items").First(&order, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrOrderNotFound
		}
		return nil, tx.Error
	}
	return &order, nil
}

// GetByNumber retrieves an order by its ORD number.
func (s *OrdersStore) GetByNumber(number string) (*model.Order, error) {
	var order model.Order
	tx := s.db.Preload("Items").Where("number = ?", number).First(&order)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrOrderNotFound
		}
		return nil, tx.Error
	}
	return &order, nil
}

// List returns orders matching the filter and the total count.
func (s *OrdersStore) List(filter store.OrderFilter) ([]model.Order, int64, error) {
	query := s.db.Model(&model.Order{})

	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.HospitalizationID != 0 {
		query = query.Where("hospitalization_id = ?", filter.HospitalizationID)
	}
	if filter.Type != "" {
		query = query.Where("order_type = ?", filter.Type)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Number != "" {
		query = query.Where("number = ?", filter.Number)
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

	var orders []model.Order
	if err := query.Preload("Items").Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Create inserts a new pending order with its items. The same exam may
// not be requested for a patient twice on the same day.
func (s *OrdersStore) Create(order *model.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		seen := make(map[string]bool, len(order.Items))
		for i := range order.Items {
			code := order.Items[i].ExamCode
			if code == "" {
				continue
			}
			if seen[code] {
				return store.ErrDuplicateExam
			}
			seen[code] = true

			var count int64
			err := tx.Model(&model.OrderItem{}).
				Joins("JOIN orders ON orders.id = order_items.order_id").
				Where("orders.patient_id = ? AND order_items.exam_code = ?", order.PatientID, code).
				Where("order_items.state <> ?", model.OrderStateCancelled).
				Where("order_items.created_at >= ?", dayStart).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return store.ErrDuplicateExam
			}
		}

		number, err := nextNumber(tx, &model.Order{}, "ORD")
		if err != nil {
			return err
		}
		order.Number = number
		order.State = model.OrderStatePending
		if order.Priority == "" {
			order.Priority = model.OrderPriorityNormal
		}
		if order.RequestedAt == nil {
			order.RequestedAt = &now
		}
		for i := range order.Items {
			order.Items[i].State = model.OrderStatePending
		}
		return tx.Create(order).Error
	})
}

// Update persists header changes on a pending or in progress order.
func (s *OrdersStore) Update(order *model.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current model.Order
		if err := tx.First(&current, order.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrOrderNotFound
			}
			return err
		}
		if !current.Editable() {
			return store.ErrOrderTerminal
		}

		now := time.Now()
		order.UpdatedAt = &now
		return tx.Model(&model.Order{}).Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"diagnosis":           order.Diagnosis,
				"indications":         order.Indications,
				"observations":        order.Observations,
				"priority":            order.Priority,
				"scheduled_at":        order.ScheduledAt,
				"destination_service": order.DestinationService,
				"updated_at":          now,
			}).Error
	})
}

// allowedTransitions maps each order state to its permitted successors.
var allowedTransitions = map[string][]string{
	model.OrderStatePending:    {model.OrderStateInProgress, model.OrderStateCancelled},
	model.OrderStateInProgress: {model.OrderStateCompleted, model.OrderStateCancelled},
}

func transitionAllowed(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves an order to a new state.
func (s *OrdersStore) Transition(id uint, toState string, actorID uint) (*model.Order, error) {
	var order model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrOrderNotFound
			}
			return err
		}
		if order.State == model.OrderStateCompleted || order.State == model.OrderStateCancelled {
			return store.ErrOrderTerminal
		}
		if !transitionAllowed(order.State, toState) {
			return store.ErrInvalidTransition
		}
		if toState == model.OrderStateCompleted {
			for i := range order.Items {
				if !order.Items[i].Terminal() {
					return store.ErrItemsOpen
				}
			}
		}

		now := time.Now()
		order.State = toState
		order.UpdatedAt = &now
		if toState == model.OrderStateCompleted {
			order.CompletedAt = &now
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		// Cancelling the order cancels its open items.
		if toState == model.OrderStateCancelled {
			return tx.Model(&model.OrderItem{}).
				Where("order_id = ? AND state NOT IN ?", order.ID,
					[]string{model.OrderStateCompleted, model.OrderStateCancelled}).
				Updates(map[string]interface{}{
					"state":      model.OrderStateCancelled,
					"updated_at": now,
				}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetItemResult records a result on one order item.
func (s *OrdersStore) SetItemResult(orderID, itemID uint, result store.OrderResult) (*model.OrderItem, error) {
	var item model.OrderItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrOrderNotFound
			}
			return err
		}
		if order.State == model.OrderStateCompleted || order.State == model.OrderStateCancelled {
			return store.ErrOrderTerminal
		}

		if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrOrderItemNotFound
			}
			return err
		}

		now := time.Now()
		item.Result = result.Result
		item.NumericValue = result.NumericValue
		item.Unit = result.Unit
		item.ReferenceRange = result.ReferenceRange
		item.Interpretation = result.Interpretation
		item.Responsible = result.Responsible
		item.ResultFilePath = result.ResultFilePath
		item.ResultFileType = result.ResultFileType
		item.ResultAt = &now
		item.State = model.OrderStateCompleted
		item.UpdatedAt = &now
		if err := tx.Save(&item).Error; err != nil {
			return err
		}

		// First result moves a pending order into progress.
		if order.State == model.OrderStatePending {
			order.State = model.OrderStateInProgress
			order.UpdatedAt = &now
			return tx.Save(&order).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Stats returns order counts keyed by state.
func (s *OrdersStore) Stats(clinicianID uint) (map[string]int64, error) {
	type row struct {
		State string
		Count int64
	}
	query := s.db.Model(&model.Order{})
	if clinicianID != 0 {
		query = query.Where("created_by = ?", clinicianID)
	}
	var rows []row
	err := query.
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.State] = r.Count
	}
	return stats, nil
}

// MostRequested returns the most frequently ordered exams.
func (s *OrdersStore) MostRequested(limit int) ([]store.ExamCount, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []store.ExamCount
	err := s.db.Model(&model.OrderItem{}).
		Select("exam_code, exam_name, count(*) as requests").
		Group("exam_code, exam_name").
		Order("requests desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ValidateItem marks an item result as validated by a clinician.
func (s *OrdersStore) ValidateItem(orderID, itemID uint, validatorID uint, validatorName string) (*model.OrderItem, error) {
	var item model.OrderItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrOrderItemNotFound
			}
			return err
		}
		if !item.HasResult() {
			return store.ErrNoResult
		}

		now := time.Now()
		item.Validated = true
		item.ValidatedAt = &now
		item.ValidatedBy = validatorName
		item.UpdatedAt = &now
		return tx.Save(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
