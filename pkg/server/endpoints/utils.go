package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hospitaldigital/hospital-api/pkg/config"
)

// validate checks request struct tags across all handlers.
var validate = validator.New()

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// decodeAndValidate decodes a JSON request body and runs struct validation.
// On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

// listParams extracts limit/offset query parameters, capping the limit at
// the configured maximum.
func listParams(r *http.Request, cfg *config.HospitalConfig) (limit, offset int) {
	limit = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			limit = i
		}
	}
	if cfg != nil && cfg.APIListLimitMax > 0 && limit > cfg.APIListLimitMax {
		limit = cfg.APIListLimitMax
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			offset = i
		}
	}
	return limit, offset
}

// dateParam parses a YYYY-MM-DD query parameter. The zero time means
// the parameter was absent or malformed.
func dateParam(r *http.Request, name string) time.Time {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// pathID parses a numeric path variable.
func pathID(value string) (uint, bool) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// listResponse is the standard envelope for paginated listings.
type listResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}
