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

// BedRequest is the payload for registering a bed
type BedRequest struct {
	Number     string `json:"number" validate:"required,max=10"`
	Floor      string `json:"floor"`
	Wing       string `json:"wing"`
	Service    string `json:"service" validate:"required"`
	Room       string `json:"room"`
	BedType    string `json:"bed_type"`
	HasOxygen  bool   `json:"has_oxygen"`
	HasMonitor bool   `json:"has_monitor"`
	Isolation  bool   `json:"isolation"`
	Notes      string `json:"notes"`
}

// AssignBedRequest places a patient in a bed
type AssignBedRequest struct {
	PatientID          uint   `json:"patient_id" validate:"required"`
	PatientName        string `json:"patient_name" validate:"required"`
	PatientDocument    string `json:"patient_document"`
	PatientPhone       string `json:"patient_phone"`
	HospitalizationID  uint   `json:"hospitalization_id" validate:"required"`
	AccountNumber      string `json:"account_number"`
	AttendingClinician string `json:"attending_clinician"`
	Specialty          string `json:"specialty"`
	Diagnosis          string `json:"diagnosis"`
}

// TransferBedRequest moves the patient to another bed
type TransferBedRequest struct {
	ToBedID uint `json:"to_bed_id" validate:"required"`
}

// BedStateRequest moves an empty bed between maintenance states
type BedStateRequest struct {
	State string `json:"state" validate:"required,oneof=AVAILABLE MAINTENANCE CLEANING"`
}

// StructureRequest configures the hospital structure singleton
type StructureRequest struct {
	HospitalID  uint     `json:"hospital_id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Director    string   `json:"director"`
	Services    []string `json:"services"`
	Specialties []string `json:"specialties"`
	Floors      int      `json:"floors"`
	Rooms       int      `json:"rooms"`
	Level       string   `json:"level"`
	Category    string   `json:"category"`
}

// RegisterBedsEndpoints registers the bed management endpoints
func RegisterBedsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/beds").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	router.HandleFunc("", handleListBeds(s)).Methods("GET")
	router.HandleFunc("", handleCreateBed(s)).Methods("POST")
	router.HandleFunc("/summary", handleBedSummary(s)).Methods("GET")
	router.HandleFunc("/services", handleBedServices(s)).Methods("GET")
	router.HandleFunc("/structure", handleGetStructure(s)).Methods("GET")
	router.HandleFunc("/structure", handleSaveStructure(s)).Methods("PUT")
	router.HandleFunc("/occupancy", handleOccupancyReport(s)).Methods("GET")
	router.HandleFunc("/movements", handleListMovements(s)).Methods("GET")
	router.HandleFunc("/number/{number}", handleGetBedByNumber(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleGetBed(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}/assign", handleAssignBed(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/release", handleReleaseBed(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/transfer", handleTransferBed(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/state", handleSetBedState(s)).Methods("PUT")
}

func handleListBeds(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, s.Config)

		filter := store.BedFilter{
			Service: r.URL.Query().Get("service"),
			Floor:   r.URL.Query().Get("floor"),
			State:   r.URL.Query().Get("state"),
			BedType: r.URL.Query().Get("type"),
			Search:  r.URL.Query().Get("search"),
			Limit:   limit,
			Offset:  offset,
		}
		switch r.URL.Query().Get("occupied") {
		case "true":
			occupied := true
			filter.Occupied = &occupied
		case "false":
			occupied := false
			filter.Occupied = &occupied
		}

		beds, total, err := s.BedsStore.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: beds, Total: total})
	}
}

func handleCreateBed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BedRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		bed := &model.Bed{
			Number:     req.Number,
			State:      model.BedStateAvailable,
			Floor:      req.Floor,
			Wing:       req.Wing,
			Service:    req.Service,
			Room:       req.Room,
			BedType:    req.BedType,
			HasOxygen:  req.HasOxygen,
			HasMonitor: req.HasMonitor,
			Isolation:  req.Isolation,
			Notes:      req.Notes,
		}
		if err := s.BedsStore.Create(bed); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusCreated, bed)
	}
}

func handleGetBed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bedID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid bed id")
			return
		}
		bed, err := s.BedsStore.GetByID(bedID)
		if err != nil {
			respondWithBedError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, bed)
	}
}

func handleGetBedByNumber(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bed, err := s.BedsStore.GetByNumber(mux.Vars(r)["number"])
		if err != nil {
			respondWithBedError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, bed)
	}
}

func handleAssignBed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		bedID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid bed id")
			return
		}

		var req AssignBedRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		occupancy := model.Occupancy{
			PatientID:          req.PatientID,
			PatientName:        req.PatientName,
			PatientDocument:    req.PatientDocument,
			PatientPhone:       req.PatientPhone,
			HospitalizationID:  req.HospitalizationID,
			AccountNumber:      req.AccountNumber,
			AdmittedAt:         time.Now(),
			AttendingClinician: req.AttendingClinician,
			Specialty:          req.Specialty,
			Diagnosis:          req.Diagnosis,
		}

		bed, err := s.BedsStore.Assign(bedID, occupancy, id.UserID, id.FullName)
		if err != nil {
			audit.Log(audit.BedMovementEvent{
				UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
				BedCode: fmt.Sprintf("%d", bedID), PatientID: fmt.Sprintf("%d", req.PatientID),
				Kind: "assign", Success: false, ErrorMessage: err.Error(),
			})
			respondWithBedError(w, err)
			return
		}

		audit.Log(audit.BedMovementEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			BedCode: bed.Number, PatientID: fmt.Sprintf("%d", req.PatientID),
			Kind: "assign", ToService: bed.Service, Success: true,
		})
		respondWithJSON(w, http.StatusOK, bed)
	}
}

func handleReleaseBed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		bedID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid bed id")
			return
		}

		bed, err := s.BedsStore.Release(bedID, id.UserID, id.FullName)
		if err != nil {
			respondWithBedError(w, err)
			return
		}

		audit.Log(audit.BedMovementEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			BedCode: bed.Number, Kind: "release",
			FromService: bed.Service, Success: true,
		})
		respondWithJSON(w, http.StatusOK, bed)
	}
}

func handleTransferBed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		fromID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid bed id")
			return
		}

		var req TransferBedRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		source, err := s.BedsStore.GetByID(fromID)
		if err != nil {
			respondWithBedError(w, err)
			return
		}
		fromService := source.Service
		patientID := ""
		if source.PatientID != nil {
			patientID = fmt.Sprintf("%d", *source.PatientID)
		}

		bed, err := s.BedsStore.Transfer(fromID, req.ToBedID, id.UserID, id.FullName)
		if err != nil {
			audit.Log(audit.BedMovementEvent{
				UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
				BedCode: source.Number, PatientID: patientID,
				Kind: "transfer", FromService: fromService,
				Success: false, ErrorMessage: err.Error(),
			})
			respondWithBedError(w, err)
			return
		}

		audit.Log(audit.BedMovementEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			BedCode: bed.Number, PatientID: patientID,
			Kind: "transfer", FromService: fromService, ToService: bed.Service,
			Success: true,
		})
		respondWithJSON(w, http.StatusOK, bed)
	}
}

func handleSetBedState(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bedID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid bed id")
			return
		}

		var req BedStateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		bed, err := s.BedsStore.SetState(bedID, req.State)
		if err != nil {
			respondWithBedError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, bed)
	}
}

func handleBedSummary(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.BedsStore.SummaryByService()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"services": summary})
	}
}

func handleBedServices(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := s.BedsStore.Services()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"services": services})
	}
}

func handleGetStructure(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		structure, err := s.BedsStore.Structure()
		if err != nil {
			if errors.Is(err, store.ErrStructureNotFound) {
				respondWithError(w, http.StatusNotFound, "hospital structure not configured")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, structure)
	}
}

func handleSaveStructure(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StructureRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		structure := &model.HospitalStructure{
			HospitalID:  req.HospitalID,
			Name:        req.Name,
			Address:     req.Address,
			Phone:       req.Phone,
			Email:       req.Email,
			Director:    req.Director,
			Services:    req.Services,
			Specialties: req.Specialties,
			Floors:      req.Floors,
			Rooms:       req.Rooms,
			Level:       req.Level,
			Category:    req.Category,
			Active:      true,
		}
		if err := s.BedsStore.SaveStructure(structure); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, structure)
	}
}

func handleOccupancyReport(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		structure, err := s.BedsStore.Structure()
		if err != nil {
			if errors.Is(err, store.ErrStructureNotFound) {
				respondWithError(w, http.StatusNotFound, "hospital structure not configured")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		services, err := s.BedsStore.SummaryByService()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"total_beds":        structure.TotalBeds,
			"available_beds":    structure.AvailableBeds,
			"occupied_beds":     structure.OccupiedBeds,
			"maintenance_beds":  structure.MaintenanceBeds,
			"occupancy_percent": structure.OccupancyPercent(),
			"services":          services,
		})
	}
}

func handleListMovements(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, s.Config)

		filter := store.MovementFilter{
			Kind:   r.URL.Query().Get("kind"),
			From:   dateParam(r, "from"),
			To:     dateParam(r, "to"),
			Limit:  limit,
			Offset: offset,
		}
		if id, ok := pathID(r.URL.Query().Get("bed_id")); ok {
			filter.BedID = id
		}
		if id, ok := pathID(r.URL.Query().Get("patient_id")); ok {
			filter.PatientID = id
		}

		movements, total, err := s.BedsStore.Movements(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: movements, Total: total})
	}
}

func respondWithBedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrBedNotFound):
		respondWithError(w, http.StatusNotFound, "bed not found")
	case errors.Is(err, store.ErrBedOccupied):
		respondWithError(w, http.StatusConflict, "bed is not available")
	case errors.Is(err, store.ErrBedVacant):
		respondWithError(w, http.StatusConflict, "bed is not occupied")
	case errors.Is(err, store.ErrPatientAlreadyAdmitted):
		respondWithError(w, http.StatusConflict, "patient already occupies a bed")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
