package store

import (
	"errors"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ErrOrderNotFound is returned when an order doesn't exist
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderTerminal is returned when transitioning a completed or cancelled order
var ErrOrderTerminal = errors.New("order is in a terminal state")

// ErrInvalidTransition is returned for disallowed order state changes
var ErrInvalidTransition = errors.New("invalid order state transition")

// ErrItemsOpen is returned when completing an order that still has
// items awaiting a result
var ErrItemsOpen = errors.New("order has items in a non-terminal state")

// ErrDuplicateExam is returned when an order repeats an exam already
// requested for the same patient on the same day
var ErrDuplicateExam = errors.New("exam already requested for this patient today")

// ErrOrderItemNotFound is returned when an order item doesn't exist
var ErrOrderItemNotFound = errors.New("order item not found")

// ErrNoResult is returned when validating an item that has no result yet
var ErrNoResult = errors.New("order item has no result to validate")

// OrderResult carries a result to record against an order item
type OrderResult struct {
	Result         string
	NumericValue   *float64
	Unit           string
	ReferenceRange string
	Interpretation string
	Responsible    string
	ResultFilePath string
	ResultFileType string
}

// OrderFilter narrows order listings
type OrderFilter struct {
	PatientID         uint
	HospitalizationID uint
	Type              string
	State             string
	Priority          string
	Number            string
	Limit             int
	Offset            int
}

// OrdersStore abstracts lab and imaging order storage operations
type OrdersStore interface {
	// GetByID retrieves an order with its items.
	// Returns ErrOrderNotFound if the order doesn't exist.
	GetByID(id uint) (*model.Order, error)

	// GetByNumber retrieves an order by its ORD number.
	GetByNumber(number string) (*model.Order, error)

	// List returns orders matching the filter and the total count.
	List(filter OrderFilter) ([]model.Order, int64, error)

	// Create inserts a new pending order with its items and assigns a
	// sequential ORD number. Returns ErrDuplicateExam when an item
	// repeats an exam already requested for the patient today.
	Create(order *model.Order) error

	// Update persists header changes on a pending or in progress order.
	// Returns ErrOrderTerminal for completed or cancelled orders.
	Update(order *model.Order) error

	// Transition moves an order to a new state. Allowed transitions:
	// PENDING -> IN_PROGRESS | CANCELLED, IN_PROGRESS -> COMPLETED | CANCELLED.
	// Completing requires every item to be completed or cancelled.
	Transition(id uint, toState string, actorID uint) (*model.Order, error)

	// SetItemResult records a result on one order item and moves the
	// item to completed. The order moves to in progress if pending.
	SetItemResult(orderID, itemID uint, result OrderResult) (*model.OrderItem, error)

	// ValidateItem marks an item result as validated by a clinician.
	ValidateItem(orderID, itemID uint, validatorID uint, validatorName string) (*model.OrderItem, error)

	// Stats returns order counts keyed by state, optionally scoped to
	// one requesting clinician (0 means all).
	Stats(clinicianID uint) (map[string]int64, error)

	// MostRequested returns the most frequently ordered exams, at most
	// limit rows.
	MostRequested(limit int) ([]ExamCount, error)
}

// ExamCount is an aggregation row for order reporting
type ExamCount struct {
	ExamCode string `json:"exam_code"`
	ExamName string `json:"exam_name"`
	Requests int64  `json:"requests"`
}
