package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hospitaldigital/hospital-api/pkg/audit"
	"github.com/hospitaldigital/hospital-api/pkg/identity"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// OrderItemRequest is one requested exam or procedure line
type OrderItemRequest struct {
	ExamCode            string `json:"exam_code"`
	ExamName            string `json:"exam_name" validate:"required"`
	ExamCategory        string `json:"exam_category"`
	Specifications      string `json:"specifications"`
	RequiredPreparation string `json:"required_preparation"`
}

// OrderRequest is the payload for creating an order
type OrderRequest struct {
	HospitalizationID  uint               `json:"hospitalization_id" validate:"required"`
	AccountNumber      string             `json:"account_number"`
	PatientID          uint               `json:"patient_id" validate:"required"`
	PatientName        string             `json:"patient_name" validate:"required"`
	PatientDocument    string             `json:"patient_document"`
	OrderType          string             `json:"order_type" validate:"required,oneof=01 02 03 04"`
	Priority           string             `json:"priority" validate:"omitempty,oneof=URGENT NORMAL LOW"`
	Diagnosis          string             `json:"diagnosis"`
	Indications        string             `json:"indications"`
	Observations       string             `json:"observations"`
	DestinationService string             `json:"destination_service"`
	Items              []OrderItemRequest `json:"items" validate:"required,min=1,max=20,dive"`
}

// OrderUpdateRequest carries header changes for an open order. Omitted
// fields keep their stored value.
type OrderUpdateRequest struct {
	Diagnosis          *string `json:"diagnosis"`
	Indications        *string `json:"indications"`
	Observations       *string `json:"observations"`
	Priority           *string `json:"priority" validate:"omitempty,oneof=URGENT NORMAL LOW"`
	DestinationService *string `json:"destination_service"`
}

// TransitionRequest moves an order to a new state
type TransitionRequest struct {
	State string `json:"state" validate:"required,oneof=IN_PROGRESS COMPLETED CANCELLED"`
}

// OrderResultRequest records a result against one order item
type OrderResultRequest struct {
	Result         string   `json:"result"`
	NumericValue   *float64 `json:"numeric_value"`
	Unit           string   `json:"unit"`
	ReferenceRange string   `json:"reference_range"`
	Interpretation string   `json:"interpretation"`
	Responsible    string   `json:"responsible" validate:"required"`
	ResultFilePath string   `json:"result_file_path"`
	ResultFileType string   `json:"result_file_type"`
}

// RegisterOrdersEndpoints registers the lab and imaging order endpoints
func RegisterOrdersEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/orders").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	router.HandleFunc("", handleListOrders(s)).Methods("GET")
	router.HandleFunc("", handleCreateOrder(s)).Methods("POST")
	router.HandleFunc("/stats", handleOrderStats(s)).Methods("GET")
	router.HandleFunc("/most-requested", handleMostRequested(s)).Methods("GET")
	router.HandleFunc("/exams", handleSearchExams(s)).Methods("GET")
	router.HandleFunc("/number/{number}", handleGetOrderByNumber(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleGetOrder(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleUpdateOrder(s)).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}/transition", handleTransitionOrder(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/items/{itemID:[0-9]+}/result", handleSetItemResult(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/items/{itemID:[0-9]+}/validate", handleValidateItem(s)).Methods("POST")
}

func handleListOrders(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, s.Config)

		filter := store.OrderFilter{
			Type:     r.URL.Query().Get("type"),
			State:    r.URL.Query().Get("state"),
			Priority: r.URL.Query().Get("priority"),
			Number:   r.URL.Query().Get("number"),
			Limit:    limit,
			Offset:   offset,
		}
		if id, ok := pathID(r.URL.Query().Get("patient_id")); ok {
			filter.PatientID = id
		}
		if id, ok := pathID(r.URL.Query().Get("hospitalization_id")); ok {
			filter.HospitalizationID = id
		}

		orders, total, err := s.OrdersStore.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: orders, Total: total})
	}
}

func handleCreateOrder(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		if !id.Clinician {
			respondWithError(w, http.StatusForbidden, "only licensed clinicians may request orders")
			return
		}

		var req OrderRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		items := make([]model.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			item := model.OrderItem{
				ExamCode:            it.ExamCode,
				ExamName:            it.ExamName,
				ExamCategory:        it.ExamCategory,
				Specifications:      it.Specifications,
				RequiredPreparation: it.RequiredPreparation,
			}

			// Lines with a catalog code are resolved against the EXA
			// partition so the item carries the canonical exam.
			if it.ExamCode != "" {
				entry, err := s.CatalogsStore.GetByCode(it.ExamCode)
				if err != nil {
					if errors.Is(err, store.ErrCatalogNotFound) {
						respondWithError(w, http.StatusUnprocessableEntity,
							fmt.Sprintf("unknown exam code %q", it.ExamCode))
						return
					}
					respondWithError(w, http.StatusInternalServerError, err.Error())
					return
				}
				item.ExamID = &entry.ID
				item.ExamName = entry.Description
				if item.ExamCategory == "" {
					item.ExamCategory = entry.Category
				}
			}
			items = append(items, item)
		}

		order := &model.Order{
			HospitalizationID:  req.HospitalizationID,
			AccountNumber:      req.AccountNumber,
			PatientID:          req.PatientID,
			PatientName:        req.PatientName,
			PatientDocument:    req.PatientDocument,
			OrderType:          req.OrderType,
			Priority:           req.Priority,
			Diagnosis:          req.Diagnosis,
			Indications:        req.Indications,
			Observations:       req.Observations,
			DestinationService: req.DestinationService,
			CreatedBy:          id.UserID,
			RequesterName:      id.FullName,
			RequesterSpecialty: id.Specialty,
			RequesterLicense:   id.License,
			Items:              items,
		}

		if err := s.OrdersStore.Create(order); err != nil {
			respondWithOrderError(w, err)
			return
		}

		audit.Log(audit.OrderEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: order.Number, PatientID: fmt.Sprintf("%d", order.PatientID),
			FromState: "", ToState: model.OrderStatePending, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, order)
	}
}

func handleGetOrder(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		order, err := s.OrdersStore.GetByID(orderID)
		if err != nil {
			respondWithOrderError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, order)
	}
}

func handleGetOrderByNumber(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := s.OrdersStore.GetByNumber(mux.Vars(r)["number"])
		if err != nil {
			respondWithOrderError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, order)
	}
}

func handleUpdateOrder(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		orderID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		var req OrderUpdateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		order, err := s.OrdersStore.GetByID(orderID)
		if err != nil {
			respondWithOrderError(w, err)
			return
		}

		if req.Diagnosis != nil {
			order.Diagnosis = *req.Diagnosis
		}
		if req.Indications != nil {
			order.Indications = *req.Indications
		}
		if req.Observations != nil {
			order.Observations = *req.Observations
		}
		if req.Priority != nil {
			order.Priority = *req.Priority
		}
		if req.DestinationService != nil {
			order.DestinationService = *req.DestinationService
		}

		if err := s.OrdersStore.Update(order); err != nil {
			respondWithOrderError(w, err)
			return
		}

		updated, err := s.OrdersStore.GetByID(orderID)
		if err != nil {
			respondWithOrderError(w, err)
			return
		}

		audit.Log(audit.OrderEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: updated.Number, PatientID: fmt.Sprintf("%d", updated.PatientID),
			FromState: updated.State, ToState: updated.State, Success: true,
		})
		respondWithJSON(w, http.StatusOK, updated)
	}
}

func handleTransitionOrder(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		orderID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		var req TransitionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		before, err := s.OrdersStore.GetByID(orderID)
		if err != nil {
			respondWithOrderError(w, err)
			return
		}
		fromState := before.State

		order, err := s.OrdersStore.Transition(orderID, req.State, id.UserID)
		if err != nil {
			audit.Log(audit.OrderEvent{
				UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
				Number: before.Number, PatientID: fmt.Sprintf("%d", before.PatientID),
				FromState: fromState, ToState: req.State,
				Success: false, ErrorMessage: err.Error(),
			})
			respondWithOrderError(w, err)
			return
		}

		audit.Log(audit.OrderEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: order.Number, PatientID: fmt.Sprintf("%d", order.PatientID),
			FromState: fromState, ToState: order.State, Success: true,
		})
		respondWithJSON(w, http.StatusOK, order)
	}
}

func handleSetItemResult(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		orderID, ok := pathID(vars["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		itemID, ok := pathID(vars["itemID"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid item id")
			return
		}

		var req OrderResultRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		if req.Result == "" && req.NumericValue == nil {
			respondWithError(w, http.StatusUnprocessableEntity, "a textual or numeric result is required")
			return
		}

		item, err := s.OrdersStore.SetItemResult(orderID, itemID, store.OrderResult{
			Result:         req.Result,
			NumericValue:   req.NumericValue,
			Unit:           req.Unit,
			ReferenceRange: req.ReferenceRange,
			Interpretation: req.Interpretation,
			Responsible:    req.Responsible,
			ResultFilePath: req.ResultFilePath,
			ResultFileType: req.ResultFileType,
		})
		if err != nil {
			respondWithOrderError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, item)
	}
}

func handleValidateItem(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		if !id.Clinician {
			respondWithError(w, http.StatusForbidden, "only licensed clinicians may validate results")
			return
		}
		vars := mux.Vars(r)
		orderID, ok := pathID(vars["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		itemID, ok := pathID(vars["itemID"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid item id")
			return
		}

		item, err := s.OrdersStore.ValidateItem(orderID, itemID, id.UserID, id.FullName)
		if err != nil {
			if errors.Is(err, store.ErrNoResult) {
				respondWithError(w, http.StatusConflict, err.Error())
				return
			}
			respondWithOrderError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, item)
	}
}

func handleOrderStats(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var clinicianID uint
		if id, ok := pathID(r.URL.Query().Get("clinician_id")); ok {
			clinicianID = id
		}
		stats, err := s.OrdersStore.Stats(clinicianID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var total int64
		for _, n := range stats {
			total += n
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"total":       total,
			"pending":     stats[model.OrderStatePending],
			"in_progress": stats[model.OrderStateInProgress],
			"completed":   stats[model.OrderStateCompleted],
			"cancelled":   stats[model.OrderStateCancelled],
		})
	}
}

func handleMostRequested(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := listParams(r, s.Config)
		rows, err := s.OrdersStore.MostRequested(limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"exams": rows})
	}
}

// handleSearchExams exposes the EXA catalog partition so clients can
// pick exams while composing an order.
func handleSearchExams(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, s.Config)

		entries, total, err := s.CatalogsStore.List(store.CatalogFilter{
			SourceTable: "EXA",
			Category:    r.URL.Query().Get("category"),
			Search:      r.URL.Query().Get("search"),
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: entries, Total: total})
	}
}

func respondWithOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, store.ErrOrderItemNotFound):
		respondWithError(w, http.StatusNotFound, "order item not found")
	case errors.Is(err, store.ErrOrderTerminal):
		respondWithError(w, http.StatusConflict, "order is in a terminal state")
	case errors.Is(err, store.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, "invalid order state transition")
	case errors.Is(err, store.ErrItemsOpen):
		respondWithError(w, http.StatusConflict, "order has items in a non-terminal state")
	case errors.Is(err, store.ErrDuplicateExam):
		respondWithError(w, http.StatusConflict, "exam already requested for this patient today")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
