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

// CatalogRequest is the payload for creating or updating a catalog entry
type CatalogRequest struct {
	Code         string   `json:"code" validate:"required,max=20"`
	Description  string   `json:"description" validate:"required"`
	SourceTable  string   `json:"source_table" validate:"required,max=50"`
	Category     string   `json:"category"`
	Kind         string   `json:"kind"`
	NumericValue *float64 `json:"numeric_value"`
}

// RegisterCatalogsEndpoints registers the clinical catalog endpoints
func RegisterCatalogsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/catalogs").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	catalogs := s.CatalogsStore
	cfg := s.Config

	router.HandleFunc("", handleListCatalogs(catalogs, cfg)).Methods("GET")
	router.HandleFunc("", handleCreateCatalog(catalogs)).Methods("POST")
	router.HandleFunc("/types", handleCatalogTypes(catalogs)).Methods("GET")
	router.HandleFunc("/{code}", handleGetCatalog(catalogs)).Methods("GET")
	router.HandleFunc("/{code}", handleUpdateCatalog(catalogs)).Methods("PUT")
	router.HandleFunc("/{code}", handleDeactivateCatalog(catalogs)).Methods("DELETE")
}

func handleListCatalogs(catalogs store.CatalogsStore, cfg *config.HospitalConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, cfg)

		filter := store.CatalogFilter{
			SourceTable: r.URL.Query().Get("type"),
			Category:    r.URL.Query().Get("category"),
			Kind:        r.URL.Query().Get("kind"),
			Search:      r.URL.Query().Get("search"),
			Limit:       limit,
			Offset:      offset,
		}

		entries, total, err := catalogs.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: entries, Total: total})
	}
}

func handleCatalogTypes(catalogs store.CatalogsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := catalogs.SourceTables()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"types": types})
	}
}

func handleGetCatalog(catalogs store.CatalogsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := catalogs.GetByCode(mux.Vars(r)["code"])
		if err != nil {
			if errors.Is(err, store.ErrCatalogNotFound) {
				respondWithError(w, http.StatusNotFound, "catalog entry not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, entry)
	}
}

func handleCreateCatalog(catalogs store.CatalogsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CatalogRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		if _, err := catalogs.GetByCode(req.Code); err == nil {
			respondWithError(w, http.StatusConflict, "catalog code already exists")
			return
		}

		entry := &model.Catalog{
			Code:         req.Code,
			Description:  req.Description,
			SourceTable:  req.SourceTable,
			Category:     req.Category,
			Kind:         req.Kind,
			NumericValue: req.NumericValue,
			Active:       true,
		}
		if err := catalogs.Upsert(entry); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusCreated, entry)
	}
}

func handleUpdateCatalog(catalogs store.CatalogsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]

		entry, err := catalogs.GetByCode(code)
		if err != nil {
			if errors.Is(err, store.ErrCatalogNotFound) {
				respondWithError(w, http.StatusNotFound, "catalog entry not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var req CatalogRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		entry.Description = req.Description
		entry.SourceTable = req.SourceTable
		entry.Category = req.Category
		entry.Kind = req.Kind
		entry.NumericValue = req.NumericValue

		if err := catalogs.Upsert(entry); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, entry)
	}
}

func handleDeactivateCatalog(catalogs store.CatalogsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := catalogs.GetByCode(mux.Vars(r)["code"])
		if err != nil {
			if errors.Is(err, store.ErrCatalogNotFound) {
				respondWithError(w, http.StatusNotFound, "catalog entry not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		entry.Active = false
		if err := catalogs.Upsert(entry); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "catalog entry deactivated"})
	}
}
