package endpoints

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hospitaldigital/hospital-api/pkg/config"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// MedicationRequest is the payload for creating or updating a medication
type MedicationRequest struct {
	Code                 string   `json:"code" validate:"required,max=20"`
	CommercialName       string   `json:"commercial_name" validate:"required,max=200"`
	GenericName          string   `json:"generic_name"`
	PharmaceuticalForm   string   `json:"pharmaceutical_form"`
	Concentration        string   `json:"concentration"`
	Laboratory           string   `json:"laboratory"`
	TherapeuticCategory  string   `json:"therapeutic_category"`
	Indications          string   `json:"indications"`
	Contraindications    string   `json:"contraindications"`
	Dosage               string   `json:"dosage"`
	RequiresPrescription *bool    `json:"requires_prescription"`
	Controlled           bool     `json:"controlled"`
	ReferencePrice       *float64 `json:"reference_price"`
	Stock                int      `json:"stock"`
}

// RegisterMedicationsEndpoints registers the vademecum endpoints
func RegisterMedicationsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/medications").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	meds := s.MedicationsStore
	cfg := s.Config

	router.HandleFunc("", handleListMedications(meds, cfg)).Methods("GET")
	router.HandleFunc("", handleCreateMedication(meds)).Methods("POST")
	router.HandleFunc("/categories", handleMedicationCategories(meds)).Methods("GET")
	router.HandleFunc("/forms", handleMedicationForms(meds)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleGetMedication(meds)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleUpdateMedication(meds)).Methods("PUT")
	router.HandleFunc("/code/{code}", handleGetMedicationByCode(meds)).Methods("GET")
}

func handleListMedications(meds store.MedicationsStore, cfg *config.HospitalConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, cfg)

		filter := store.MedicationFilter{
			Search:              r.URL.Query().Get("search"),
			TherapeuticCategory: r.URL.Query().Get("category"),
			Limit:               limit,
			Offset:              offset,
		}
		if v := r.URL.Query().Get("controlled"); v != "" {
			controlled := v == "true"
			filter.Controlled = &controlled
		}

		list, total, err := meds.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: list, Total: total})
	}
}

func handleGetMedication(meds store.MedicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid medication id")
			return
		}

		med, err := meds.GetByID(id)
		if err != nil {
			if errors.Is(err, store.ErrMedicationNotFound) {
				respondWithError(w, http.StatusNotFound, "medication not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, med)
	}
}

func handleGetMedicationByCode(meds store.MedicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		med, err := meds.GetByCode(mux.Vars(r)["code"])
		if err != nil {
			if errors.Is(err, store.ErrMedicationNotFound) {
				respondWithError(w, http.StatusNotFound, "medication not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, med)
	}
}

func handleCreateMedication(meds store.MedicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MedicationRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		if _, err := meds.GetByCode(req.Code); err == nil {
			respondWithError(w, http.StatusConflict, "medication code already exists")
			return
		}

		med := medicationFromRequest(&req)
		if err := meds.Upsert(med); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusCreated, med)
	}
}

func handleUpdateMedication(meds store.MedicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid medication id")
			return
		}

		existing, err := meds.GetByID(id)
		if err != nil {
			if errors.Is(err, store.ErrMedicationNotFound) {
				respondWithError(w, http.StatusNotFound, "medication not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var req MedicationRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		med := medicationFromRequest(&req)
		med.ID = existing.ID
		med.Code = existing.Code
		if err := meds.Upsert(med); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, med)
	}
}

func medicationFromRequest(req *MedicationRequest) *model.Medication {
	requiresPrescription := true
	if req.RequiresPrescription != nil {
		requiresPrescription = *req.RequiresPrescription
	}
	return &model.Medication{
		Code:                 req.Code,
		CommercialName:       req.CommercialName,
		GenericName:          req.GenericName,
		PharmaceuticalForm:   req.PharmaceuticalForm,
		Concentration:        req.Concentration,
		Laboratory:           req.Laboratory,
		TherapeuticCategory:  req.TherapeuticCategory,
		Indications:          req.Indications,
		Contraindications:    req.Contraindications,
		Dosage:               req.Dosage,
		RequiresPrescription: requiresPrescription,
		Controlled:           req.Controlled,
		Active:               true,
		ReferencePrice:       req.ReferencePrice,
		Stock:                req.Stock,
	}
}

func handleMedicationCategories(meds store.MedicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, _, err := meds.List(store.MedicationFilter{})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		seen := map[string]bool{}
		categories := []string{}
		for i := range list {
			if c := list[i].TherapeuticCategory; c != "" && !seen[c] {
				seen[c] = true
				categories = append(categories, c)
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
	}
}

func handleMedicationForms(meds store.MedicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, _, err := meds.List(store.MedicationFilter{})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		seen := map[string]bool{}
		forms := []string{}
		for i := range list {
			if f := list[i].PharmaceuticalForm; f != "" && !seen[f] {
				seen[f] = true
				forms = append(forms, f)
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"forms": forms})
	}
}
