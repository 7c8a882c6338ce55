package endpoints

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hospitaldigital/hospital-api/pkg/config"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/password"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// UpdateUserRequest is the payload for PUT /users/{id}
type UpdateUserRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`
	Position      string `json:"position"`
	Phone         string `json:"phone"`
}

// ResetPasswordRequest is the payload for POST /users/{id}/reset-password
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// RegisterUsersEndpoints registers the user administration endpoints
func RegisterUsersEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/users").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	users := s.UsersStore
	cfg := s.Config

	router.HandleFunc("", handleListUsers(users, cfg)).Methods("GET")
	router.HandleFunc("/specialties", handleSpecialties(users)).Methods("GET")
	router.HandleFunc("/stats", handleUserStats(users)).Methods("GET")
	router.HandleFunc("/validate/{license}", handleValidateLicense(users)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleGetUser(users)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleUpdateUser(users)).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", handleDisableUser(users)).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/toggle-status", handleToggleUser(users)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/reset-password", handleResetPassword(users)).Methods("POST")
}

func handleListUsers(users store.UsersStore, cfg *config.HospitalConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, cfg)

		filter := store.UserFilter{
			Search:   r.URL.Query().Get("search"),
			Position: r.URL.Query().Get("position"),
			Limit:    limit,
			Offset:   offset,
		}
		if v := r.URL.Query().Get("active"); v != "" {
			active := v == "true"
			filter.Active = &active
		}

		list, total, err := users.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		items := make([]UserResponse, 0, len(list))
		for i := range list {
			items = append(items, userResponse(&list[i]))
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
	}
}

func handleGetUser(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		user, err := users.GetByID(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, userResponse(user))
	}
}

func handleUpdateUser(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		var req UpdateUserRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		user, err := users.GetByID(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if req.FirstName != "" {
			user.FirstName = req.FirstName
		}
		if req.LastName != "" {
			user.LastName = req.LastName
		}
		if user.ProfessionalData == nil {
			user.ProfessionalData = model.JSONMap{}
		}
		if req.Specialty != "" {
			user.ProfessionalData["specialty"] = req.Specialty
		}
		if req.LicenseNumber != "" {
			user.ProfessionalData["license_number"] = req.LicenseNumber
		}
		if req.Position != "" {
			user.ProfessionalData["position"] = req.Position
		}
		if req.Phone != "" {
			user.ProfessionalData["phone"] = req.Phone
		}

		if err := users.Update(user); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, userResponse(user))
	}
}

// handleDisableUser disables the account. Rows are never deleted so the
// audit trail stays intact.
func handleDisableUser(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		user, err := users.GetByID(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		user.Enabled = false
		if err := users.Update(user); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "user disabled"})
	}
}

func handleToggleUser(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		user, err := users.GetByID(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		user.Enabled = !user.Enabled
		if err := users.Update(user); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, userResponse(user))
	}
}

func handleResetPassword(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		var req ResetPasswordRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		if _, err := users.GetByID(id); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		hash, err := password.Hash(req.NewPassword)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		if err := users.SetPassword(id, hash); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
	}
}

func handleValidateLicense(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		license := mux.Vars(r)["license"]

		// License numbers are not indexed columns; scan the clinician list.
		list, _, err := users.List(store.UserFilter{})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		for i := range list {
			if list[i].LicenseNumber() == license {
				respondWithJSON(w, http.StatusOK, map[string]interface{}{
					"valid": true,
					"user":  userResponse(&list[i]),
				})
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"valid": false})
	}
}

func handleSpecialties(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, _, err := users.List(store.UserFilter{})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		counts := map[string]int{}
		for i := range list {
			if sp := list[i].Specialty(); sp != "" {
				counts[sp]++
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"specialties": counts})
	}
}

func handleUserStats(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, total, err := users.List(store.UserFilter{})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var active, clinicians int
		for i := range list {
			if list[i].IsActive() {
				active++
			}
			if list[i].IsClinician() {
				clinicians++
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"total":      total,
			"active":     active,
			"clinicians": clinicians,
		})
	}
}
