package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hospitaldigital/hospital-api/pkg/audit"
	"github.com/hospitaldigital/hospital-api/pkg/identity"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// PrescriptionItemRequest is one medication line on a new prescription
type PrescriptionItemRequest struct {
	MedicationCode string `json:"medication_code"`
	MedicationName string `json:"medication_name" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	Unit           string `json:"unit"`
	Dosage         string `json:"dosage" validate:"required"`
	Duration       string `json:"duration"`
	Notes          string `json:"notes"`
	Substitutable  *bool  `json:"substitutable"`
}

// PrescriptionRequest is the payload for creating a prescription
type PrescriptionRequest struct {
	OriginType      string                    `json:"origin_type" validate:"required,oneof=HOS CON EME"`
	OriginID        uint                      `json:"origin_id" validate:"required"`
	PatientID       uint                      `json:"patient_id" validate:"required"`
	PatientName     string                    `json:"patient_name" validate:"required"`
	PatientDocument string                    `json:"patient_document"`
	Diagnosis       string                    `json:"diagnosis"`
	Instructions    string                    `json:"instructions"`
	ValidityDays    int                       `json:"validity_days" validate:"omitempty,gt=0,lte=90"`
	Items           []PrescriptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PrescriptionUpdateRequest carries header changes for an unsigned
// prescription. Omitted fields keep their stored value.
type PrescriptionUpdateRequest struct {
	Diagnosis    *string `json:"diagnosis"`
	Instructions *string `json:"instructions"`
	ValidityDays *int    `json:"validity_days" validate:"omitempty,gt=0,lte=90"`
}

// DispenseRequest records a dispensation against one prescription item
type DispenseRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// VoidRequest cancels a prescription
type VoidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SendPrescriptionRequest emails the rendered prescription
type SendPrescriptionRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterPrescriptionsEndpoints registers the prescription endpoints
func RegisterPrescriptionsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/prescriptions").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	router.HandleFunc("", handleListPrescriptions(s)).Methods("GET")
	router.HandleFunc("", handleCreatePrescription(s)).Methods("POST")
	router.HandleFunc("/stats", handlePrescriptionStats(s)).Methods("GET")
	router.HandleFunc("/most-prescribed", handleMostPrescribed(s)).Methods("GET")
	router.HandleFunc("/expire", handleExpirePrescriptions(s)).Methods("POST")
	router.HandleFunc("/number/{number}", handleGetPrescriptionByNumber(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleGetPrescription(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleUpdatePrescription(s)).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}/sign", handleSignPrescription(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/void", handleVoidPrescription(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/items/{itemID:[0-9]+}/dispense", handleDispenseItem(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/pdf", handlePrescriptionPDF(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}/send", handleSendPrescription(s)).Methods("POST")
}

func handleListPrescriptions(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, s.Config)

		filter := store.PrescriptionFilter{
			State:  r.URL.Query().Get("state"),
			Origin: r.URL.Query().Get("origin"),
			Number: r.URL.Query().Get("number"),
			From:   dateParam(r, "from"),
			To:     dateParam(r, "to"),
			Limit:  limit,
			Offset: offset,
		}
		if id, ok := pathID(r.URL.Query().Get("patient_id")); ok {
			filter.PatientID = id
		}
		if id, ok := pathID(r.URL.Query().Get("prescriber_id")); ok {
			filter.PrescriberID = id
		}

		prescriptions, total, err := s.PrescriptionsStore.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: prescriptions, Total: total})
	}
}

func handleCreatePrescription(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		if !id.Clinician {
			respondWithError(w, http.StatusForbidden, "only licensed clinicians may prescribe")
			return
		}

		var req PrescriptionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		items := make([]model.PrescriptionItem, 0, len(req.Items))
		for _, it := range req.Items {
			item := model.PrescriptionItem{
				MedicationCode: it.MedicationCode,
				MedicationName: it.MedicationName,
				Quantity:       it.Quantity,
				Unit:           it.Unit,
				Dosage:         it.Dosage,
				Duration:       it.Duration,
				Notes:          it.Notes,
				Substitutable:  true,
			}
			if item.Unit == "" {
				item.Unit = "UNIT"
			}
			if it.Substitutable != nil {
				item.Substitutable = *it.Substitutable
			}

			// Lines with a vademecum code are resolved against the
			// catalog so dispensing can check the controlled flag.
			if it.MedicationCode != "" {
				med, err := s.MedicationsStore.GetByCode(it.MedicationCode)
				if err != nil {
					if errors.Is(err, store.ErrMedicationNotFound) {
						respondWithError(w, http.StatusUnprocessableEntity,
							fmt.Sprintf("unknown medication code %q", it.MedicationCode))
						return
					}
					respondWithError(w, http.StatusInternalServerError, err.Error())
					return
				}
				item.MedicationID = &med.ID
				item.MedicationName = med.CommercialName
			}
			items = append(items, item)
		}

		validity := req.ValidityDays
		if validity == 0 {
			validity = 30
		}
		expires := time.Now().AddDate(0, 0, validity)

		p := &model.Prescription{
			OriginType:        req.OriginType,
			OriginID:          req.OriginID,
			PatientID:         req.PatientID,
			PatientName:       req.PatientName,
			PatientDocument:   req.PatientDocument,
			Diagnosis:         req.Diagnosis,
			Instructions:      req.Instructions,
			ExpiresAt:         &expires,
			CreatedBy:         id.UserID,
			PrescriberName:    id.FullName,
			PrescriberLicense: id.License,
			Items:             items,
		}

		if err := s.PrescriptionsStore.Create(p); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.PrescriptionEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: p.Number, PatientID: fmt.Sprintf("%d", p.PatientID),
			Operation: "create", Success: true,
		})
		respondWithJSON(w, http.StatusCreated, p)
	}
}

func handleGetPrescription(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}
		p, err := s.PrescriptionsStore.GetByID(prescriptionID)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleGetPrescriptionByNumber(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.PrescriptionsStore.GetByNumber(mux.Vars(r)["number"])
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleUpdatePrescription(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		prescriptionID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}

		var req PrescriptionUpdateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		p, err := s.PrescriptionsStore.GetByID(prescriptionID)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}
		if p.CreatedBy != id.UserID {
			respondWithError(w, http.StatusForbidden, "only the prescriber may update")
			return
		}

		if req.Diagnosis != nil {
			p.Diagnosis = *req.Diagnosis
		}
		if req.Instructions != nil {
			p.Instructions = *req.Instructions
		}
		if req.ValidityDays != nil {
			expires := p.CreatedAt.AddDate(0, 0, *req.ValidityDays)
			p.ExpiresAt = &expires
		}

		if err := s.PrescriptionsStore.Update(p); err != nil {
			respondWithPrescriptionError(w, err)
			return
		}

		updated, err := s.PrescriptionsStore.GetByID(prescriptionID)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}

		audit.Log(audit.PrescriptionEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: updated.Number, PatientID: fmt.Sprintf("%d", updated.PatientID),
			Operation: "update", Success: true,
		})
		respondWithJSON(w, http.StatusOK, updated)
	}
}

func handleSignPrescription(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		prescriptionID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}

		p, err := s.PrescriptionsStore.GetByID(prescriptionID)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}
		if p.CreatedBy != id.UserID {
			respondWithError(w, http.StatusForbidden, "only the prescriber may sign")
			return
		}

		hash := contentHash(p.Number, p.PatientName, p.PrescriberLicense, p.Diagnosis)
		signed, err := s.PrescriptionsStore.Sign(prescriptionID, hash)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}

		audit.Log(audit.PrescriptionEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: signed.Number, PatientID: fmt.Sprintf("%d", signed.PatientID),
			Operation: "sign", Success: true,
		})
		respondWithJSON(w, http.StatusOK, signed)
	}
}

func handleDispenseItem(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		vars := mux.Vars(r)
		prescriptionID, ok := pathID(vars["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}
		itemID, ok := pathID(vars["itemID"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid item id")
			return
		}

		var req DispenseRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		p, err := s.PrescriptionsStore.DispenseItem(prescriptionID, itemID, req.Quantity)
		if err != nil {
			if errors.Is(err, store.ErrPrescriptionUnsigned) {
				respondWithError(w, http.StatusConflict, err.Error())
				return
			}
			if errors.Is(err, store.ErrItemNotFound) {
				respondWithError(w, http.StatusNotFound, "prescription item not found")
				return
			}
			respondWithPrescriptionError(w, err)
			return
		}

		audit.Log(audit.PrescriptionEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: p.Number, PatientID: fmt.Sprintf("%d", p.PatientID),
			Operation: "dispense", Success: true,
		})
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleVoidPrescription(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		prescriptionID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}

		var req VoidRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		p, err := s.PrescriptionsStore.Void(prescriptionID, req.Reason)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}

		audit.Log(audit.PrescriptionEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			Number: p.Number, PatientID: fmt.Sprintf("%d", p.PatientID),
			Operation: "void", Success: true,
		})
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleExpirePrescriptions(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.PrescriptionsStore.ExpireOverdue()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]int64{"expired": count})
	}
}

func handlePrescriptionStats(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var prescriberID uint
		if id, ok := pathID(r.URL.Query().Get("prescriber_id")); ok {
			prescriberID = id
		}
		stats, err := s.PrescriptionsStore.Stats(prescriberID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var total int64
		for _, n := range stats {
			total += n
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"total":     total,
			"active":    stats[model.PrescriptionStateActive],
			"dispensed": stats[model.PrescriptionStateDispensed],
			"expired":   stats[model.PrescriptionStateExpired],
			"voided":    stats[model.PrescriptionStateVoided],
		})
	}
}

func handleMostPrescribed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := listParams(r, s.Config)
		rows, err := s.PrescriptionsStore.MostPrescribed(limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"medications": rows})
	}
}

func handlePrescriptionPDF(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}

		p, err := s.PrescriptionsStore.GetByID(prescriptionID)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}

		data, err := s.PDF.Prescription(p)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to render pdf")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", p.Number))
		_, _ = w.Write(data)
	}
}

func handleSendPrescription(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Mailer == nil {
			respondWithError(w, http.StatusNotImplemented, "mail delivery is not configured")
			return
		}
		prescriptionID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid prescription id")
			return
		}

		var req SendPrescriptionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		p, err := s.PrescriptionsStore.GetByID(prescriptionID)
		if err != nil {
			respondWithPrescriptionError(w, err)
			return
		}

		data, err := s.PDF.Prescription(p)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to render pdf")
			return
		}
		if err := s.Mailer.SendPrescription(req.Email, p.PatientName, p.Number, data); err != nil {
			respondWithError(w, http.StatusBadGateway, "failed to send mail")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "sent", "email": req.Email})
	}
}

func respondWithPrescriptionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrPrescriptionNotFound):
		respondWithError(w, http.StatusNotFound, "prescription not found")
	case errors.Is(err, store.ErrPrescriptionNotEditable):
		respondWithError(w, http.StatusConflict, "prescription is not in an editable state")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
