package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

func createTestPrescription(t *testing.T, router http.Handler, auth string, medicationCode string) model.Prescription {
	t.Helper()

	item := `{"medication_name": "Paracetamol 500mg", "quantity": 20, "dosage": "1 tablet every 8 hours"}`
	if medicationCode != "" {
		item = fmt.Sprintf(`{"medication_code": %q, "medication_name": "ignored", "quantity": 10, "dosage": "as directed"}`, medicationCode)
	}
	body := fmt.Sprintf(`{
		"origin_type": "HOS",
		"origin_id": 42,
		"patient_id": 7,
		"patient_name": "John Doe",
		"diagnosis": "Postoperative pain",
		"items": [%s]
	}`, item)

	req := httptest.NewRequest("POST", "/api/v1/prescriptions", strings.NewReader(body))
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p model.Prescription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestCreatePrescription(t *testing.T) {
	srv, _, clinicianAuth, adminAuth := newTestServer(t)
	RegisterPrescriptionsEndpoints(srv)

	t.Run("clinician creates an active prescription", func(t *testing.T) {
		p := createTestPrescription(t, srv.Router, clinicianAuth, "")

		assert.Equal(t, model.PrescriptionStateActive, p.State)
		assert.True(t, strings.HasPrefix(p.Number, "RX-"))
		assert.Equal(t, "Gregory House", p.PrescriberName)
		assert.NotNil(t, p.ExpiresAt)
		require.Len(t, p.Items, 1)
		assert.Equal(t, 20, p.Items[0].Quantity)
	})

	t.Run("administrative account is forbidden", func(t *testing.T) {
		body := `{"origin_type": "HOS", "origin_id": 1, "patient_id": 1, "patient_name": "X",
			"items": [{"medication_name": "A", "quantity": 1, "dosage": "x"}]}`
		req := httptest.NewRequest("POST", "/api/v1/prescriptions", strings.NewReader(body))
		req.Header.Set("Authorization", adminAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown medication code is rejected", func(t *testing.T) {
		body := `{"origin_type": "HOS", "origin_id": 1, "patient_id": 1, "patient_name": "X",
			"items": [{"medication_code": "NOPE", "medication_name": "A", "quantity": 1, "dosage": "x"}]}`
		req := httptest.NewRequest("POST", "/api/v1/prescriptions", strings.NewReader(body))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("empty item list fails validation", func(t *testing.T) {
		body := `{"origin_type": "HOS", "origin_id": 1, "patient_id": 1, "patient_name": "X", "items": []}`
		req := httptest.NewRequest("POST", "/api/v1/prescriptions", strings.NewReader(body))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDispenseControlledMedication(t *testing.T) {
	srv, stores, clinicianAuth, _ := newTestServer(t)
	RegisterPrescriptionsEndpoints(srv)

	require.NoError(t, stores.medications.Upsert(&model.Medication{
		Code: "MORPH10", CommercialName: "Morphine 10mg",
		Controlled: true, RequiresPrescription: true, Active: true,
	}))

	p := createTestPrescription(t, srv.Router, clinicianAuth, "MORPH10")
	require.Len(t, p.Items, 1)
	require.NotNil(t, p.Items[0].MedicationID)
	assert.Equal(t, "Morphine 10mg", p.Items[0].MedicationName)

	dispense := func(t *testing.T) *httptest.ResponseRecorder {
		t.Helper()
		url := fmt.Sprintf("/api/v1/prescriptions/%d/items/%d/dispense", p.ID, p.Items[0].ID)
		req := httptest.NewRequest("POST", url, strings.NewReader(`{"quantity": 10}`))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		return w
	}

	t.Run("unsigned prescription cannot dispense controlled items", func(t *testing.T) {
		w := dispense(t)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("signing unblocks dispensing", func(t *testing.T) {
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/prescriptions/%d/sign", p.ID), nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = dispense(t)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var dispensed model.Prescription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dispensed))
		assert.Equal(t, model.PrescriptionStateDispensed, dispensed.State)
		assert.True(t, dispensed.Items[0].Dispensed)
	})
}

func TestUpdatePrescription(t *testing.T) {
	srv, _, clinicianAuth, adminAuth := newTestServer(t)
	RegisterPrescriptionsEndpoints(srv)

	p := createTestPrescription(t, srv.Router, clinicianAuth, "")

	update := func(t *testing.T, auth, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest("PUT", fmt.Sprintf("/api/v1/prescriptions/%d", p.ID),
			strings.NewReader(body))
		req.Header.Set("Authorization", auth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		return w
	}

	t.Run("prescriber updates an unsigned prescription", func(t *testing.T) {
		w := update(t, clinicianAuth, `{"diagnosis": "Chronic pain", "validity_days": 60}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated model.Prescription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, "Chronic pain", updated.Diagnosis)
		require.NotNil(t, updated.ExpiresAt)
		assert.Equal(t, updated.CreatedAt.AddDate(0, 0, 60).Unix(), updated.ExpiresAt.Unix())
	})

	t.Run("other users cannot update", func(t *testing.T) {
		w := update(t, adminAuth, `{"diagnosis": "tampered"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("signed prescription is immutable", func(t *testing.T) {
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/prescriptions/%d/sign", p.ID), nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w2 := update(t, clinicianAuth, `{"diagnosis": "too late"}`)
		assert.Equal(t, http.StatusConflict, w2.Code)
	})
}

func TestVoidPrescription(t *testing.T) {
	srv, _, clinicianAuth, _ := newTestServer(t)
	RegisterPrescriptionsEndpoints(srv)

	p := createTestPrescription(t, srv.Router, clinicianAuth, "")

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/prescriptions/%d/void", p.ID),
		strings.NewReader(`{"reason": "duplicate order"}`))
	req.Header.Set("Authorization", clinicianAuth)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var voided model.Prescription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &voided))
	assert.Equal(t, model.PrescriptionStateVoided, voided.State)

	t.Run("voided prescription cannot be signed", func(t *testing.T) {
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/prescriptions/%d/sign", p.ID), nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPrescriptionPDF(t *testing.T) {
	srv, _, clinicianAuth, _ := newTestServer(t)
	RegisterPrescriptionsEndpoints(srv)

	p := createTestPrescription(t, srv.Router, clinicianAuth, "")

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/v1/prescriptions/%d/pdf", p.ID), nil)
	req.Header.Set("Authorization", clinicianAuth)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), p.Number)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestPrescriptionStats(t *testing.T) {
	srv, _, clinicianAuth, _ := newTestServer(t)
	RegisterPrescriptionsEndpoints(srv)

	createTestPrescription(t, srv.Router, clinicianAuth, "")
	p := createTestPrescription(t, srv.Router, clinicianAuth, "")

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/prescriptions/%d/void", p.ID),
		strings.NewReader(`{"reason": "entered in error"}`))
	req.Header.Set("Authorization", clinicianAuth)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/prescriptions/stats", nil)
	req.Header.Set("Authorization", clinicianAuth)
	w = httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
		Voided int64 `json:"voided"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Voided)

	t.Run("scoped to a prescriber", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/prescriptions/stats?prescriber_id=99", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, int64(0), stats.Total)
	})
}
