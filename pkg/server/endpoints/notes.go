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

// NoteRequest is the payload for creating a clinical note
type NoteRequest struct {
	HospitalizationID uint   `json:"hospitalization_id" validate:"required"`
	AccountNumber     string `json:"account_number"`
	PatientID         uint   `json:"patient_id" validate:"required"`
	PatientName       string `json:"patient_name" validate:"required"`
	NoteType          string `json:"note_type" validate:"required,oneof=01 02"`
	Body              string `json:"body" validate:"required"`
	Observations      string `json:"observations"`
}

// NoteUpdateRequest is the payload for updating a draft note. Updating a
// FINAL note forks a new version instead.
type NoteUpdateRequest struct {
	Body         string `json:"body" validate:"required"`
	Observations string `json:"observations"`
}

// NoteAudioRequest attaches dictation metadata to a note
type NoteAudioRequest struct {
	AudioPath  string `json:"audio_path" validate:"required"`
	Transcript string `json:"transcript"`
}

// RegisterNotesEndpoints registers the clinical note endpoints
func RegisterNotesEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/notes").Subrouter()
	router.Use(s.AuthMiddleware.Middleware)

	router.HandleFunc("", handleListNotes(s)).Methods("GET")
	router.HandleFunc("", handleCreateNote(s)).Methods("POST")
	router.HandleFunc("/types", handleNoteTypes()).Methods("GET")
	router.HandleFunc("/stats", handleNoteStats(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleGetNote(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", handleUpdateNote(s)).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}/finalize", handleFinalizeNote(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/sign", handleSignNote(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/audio", handleNoteAudio(s)).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/history", handleNoteHistory(s)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}/pdf", handleNotePDF(s)).Methods("GET")
}

func handleListNotes(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := listParams(r, s.Config)

		filter := store.NoteFilter{
			State:       r.URL.Query().Get("state"),
			Type:        r.URL.Query().Get("type"),
			CurrentOnly: r.URL.Query().Get("all_versions") != "true",
			Limit:       limit,
			Offset:      offset,
		}
		if id, ok := pathID(r.URL.Query().Get("patient_id")); ok {
			filter.PatientID = id
		}
		if id, ok := pathID(r.URL.Query().Get("hospitalization_id")); ok {
			filter.HospitalizationID = id
		}
		if id, ok := pathID(r.URL.Query().Get("author_id")); ok {
			filter.AuthorID = id
		}

		notes, total, err := s.NotesStore.List(filter)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, listResponse{Items: notes, Total: total})
	}
}

func handleCreateNote(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		if !id.Clinician {
			respondWithError(w, http.StatusForbidden, "only licensed clinicians may create notes")
			return
		}

		var req NoteRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		note := &model.Note{
			HospitalizationID: req.HospitalizationID,
			AccountNumber:     req.AccountNumber,
			PatientID:         req.PatientID,
			PatientName:       req.PatientName,
			NoteType:          req.NoteType,
			Body:              req.Body,
			Observations:      req.Observations,
			CreatedBy:         id.UserID,
			AuthorName:        id.FullName,
			AuthorSpecialty:   id.Specialty,
			AuthorLicense:     id.License,
		}

		if err := s.NotesStore.Create(note); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.NoteEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			NoteID: note.ID, PatientID: fmt.Sprintf("%d", note.PatientID),
			Operation: "create", Success: true,
		})
		respondWithJSON(w, http.StatusCreated, note)
	}
}

func handleGetNote(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid note id")
			return
		}

		note, err := s.NotesStore.GetByID(noteID)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotFound) {
				respondWithError(w, http.StatusNotFound, "note not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, note)
	}
}

// handleUpdateNote edits a draft in place. A FINAL note is forked into a
// new current version carrying the lineage id.
func handleUpdateNote(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		noteID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid note id")
			return
		}

		var req NoteUpdateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		note, err := s.NotesStore.GetByID(noteID)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotFound) {
				respondWithError(w, http.StatusNotFound, "note not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if note.Editable() {
			note.Body = req.Body
			note.Observations = req.Observations
			if err := s.NotesStore.Update(note); err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			audit.Log(audit.NoteEvent{
				UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
				NoteID: note.ID, PatientID: fmt.Sprintf("%d", note.PatientID),
				Operation: "update", Success: true,
			})
			respondWithJSON(w, http.StatusOK, note)
			return
		}

		next, err := s.NotesStore.NewVersion(noteID, req.Body, id.UserID, id.FullName)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotCurrent) {
				respondWithError(w, http.StatusConflict, "note version is not current")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.NoteEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			NoteID: next.ID, PatientID: fmt.Sprintf("%d", next.PatientID),
			Operation: "version", Success: true,
		})
		respondWithJSON(w, http.StatusCreated, next)
	}
}

func handleFinalizeNote(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		noteID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid note id")
			return
		}

		note, err := s.NotesStore.GetByID(noteID)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotFound) {
				respondWithError(w, http.StatusNotFound, "note not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Finalizing also signs: the signature hash covers the body and
		// the author identity.
		hash := contentHash(note.Body, note.AuthorName, note.AuthorLicense)
		signed, err := s.NotesStore.Sign(noteID, hash)
		if err != nil {
			if errors.Is(err, store.ErrNoteImmutable) {
				respondWithError(w, http.StatusConflict, "note is already signed")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.NoteEvent{
			UserEmail: id.Email, ClientIP: id.RemoteIP.String(),
			NoteID: signed.ID, PatientID: fmt.Sprintf("%d", signed.PatientID),
			Operation: "sign", Success: true,
		})
		respondWithJSON(w, http.StatusOK, signed)
	}
}

func handleSignNote(s *server.Server) http.HandlerFunc {
	// Signing and finalizing are the same operation on this API: both
	// move DRAFT to FINAL and record the hash.
	return handleFinalizeNote(s)
}

func handleNoteAudio(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid note id")
			return
		}

		var req NoteAudioRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		note, err := s.NotesStore.GetByID(noteID)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotFound) {
				respondWithError(w, http.StatusNotFound, "note not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		note.HasAudio = true
		note.AudioPath = req.AudioPath
		note.Transcript = req.Transcript
		if err := s.NotesStore.Update(note); err != nil {
			if errors.Is(err, store.ErrNoteImmutable) {
				respondWithError(w, http.StatusConflict, "note is signed and cannot be modified")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, note)
	}
}

func handleNoteHistory(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid note id")
			return
		}

		versions, err := s.NotesStore.History(noteID)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotFound) {
				respondWithError(w, http.StatusNotFound, "note not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
	}
}

func handleNotePDF(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := pathID(mux.Vars(r)["id"])
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid note id")
			return
		}

		note, err := s.NotesStore.GetByID(noteID)
		if err != nil {
			if errors.Is(err, store.ErrNoteNotFound) {
				respondWithError(w, http.StatusNotFound, "note not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		data, err := s.PDF.Note(note)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to render pdf")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=note-%d.pdf", note.ID))
		_, _ = w.Write(data)
	}
}

func handleNoteStats(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.NotesStore.Stats()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var total int64
		for _, n := range stats {
			total += n
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"total": total,
			"draft": stats[model.NoteStateDraft],
			"final": stats[model.NoteStateFinal],
		})
	}
}

func handleNoteTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{
			model.NoteTypeProgress:     "Progress",
			model.NoteTypeConsultation: "Consultation",
		})
	}
}
