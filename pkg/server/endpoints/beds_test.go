package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

func seedBeds(t *testing.T, stores *fakeStores) {
	t.Helper()

	require.NoError(t, stores.beds.SaveStructure(&model.HospitalStructure{
		HospitalID: 1, Name: "Test General Hospital", Active: true,
	}))
	require.NoError(t, stores.beds.Create(&model.Bed{Number: "101-A", Service: "Internal Medicine", Floor: "1"}))
	require.NoError(t, stores.beds.Create(&model.Bed{Number: "101-B", Service: "Internal Medicine", Floor: "1"}))
	require.NoError(t, stores.beds.Create(&model.Bed{Number: "201-A", Service: "ICU", Floor: "2", HasMonitor: true}))
}

func assignBed(t *testing.T, router http.Handler, auth, bedPath string) model.Bed {
	t.Helper()

	body := `{
		"patient_id": 7,
		"patient_name": "John Doe",
		"hospitalization_id": 42,
		"attending_clinician": "Gregory House",
		"diagnosis": "Pneumonia"
	}`
	req := httptest.NewRequest("POST", bedPath+"/assign", strings.NewReader(body))
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var bed model.Bed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bed))
	return bed
}

func TestAssignAndReleaseBed(t *testing.T) {
	srv, stores, clinicianAuth, _ := newTestServer(t)
	RegisterBedsEndpoints(srv)
	seedBeds(t, stores)

	t.Run("assign places the patient and updates counters", func(t *testing.T) {
		bed := assignBed(t, srv.Router, clinicianAuth, "/api/v1/beds/1")

		assert.True(t, bed.Occupied)
		assert.Equal(t, model.BedStateOccupied, bed.State)
		assert.Equal(t, "John Doe", bed.PatientName)
		assert.NotNil(t, bed.AdmittedAt)

		structure, err := stores.beds.Structure()
		require.NoError(t, err)
		assert.Equal(t, 3, structure.TotalBeds)
		assert.Equal(t, 1, structure.OccupiedBeds)
		assert.Equal(t, 2, structure.AvailableBeds)
	})

	t.Run("double assignment conflicts", func(t *testing.T) {
		body := `{"patient_id": 8, "patient_name": "Jane Doe", "hospitalization_id": 43}`
		req := httptest.NewRequest("POST", "/api/v1/beds/1/assign", strings.NewReader(body))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("patient cannot occupy a second bed", func(t *testing.T) {
		body := `{"patient_id": 7, "patient_name": "John Doe", "hospitalization_id": 42}`
		req := httptest.NewRequest("POST", "/api/v1/beds/2/assign", strings.NewReader(body))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "patient already occupies a bed")

		second, err := stores.beds.GetByID(2)
		require.NoError(t, err)
		assert.False(t, second.Occupied)
	})

	t.Run("release sends the bed to cleaning", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/beds/1/release", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var bed model.Bed
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bed))
		assert.False(t, bed.Occupied)
		assert.Empty(t, bed.PatientName)
		assert.Equal(t, model.BedStateCleaning, bed.State)
	})

	t.Run("releasing a vacant bed conflicts", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/beds/1/release", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTransferBed(t *testing.T) {
	srv, stores, clinicianAuth, _ := newTestServer(t)
	RegisterBedsEndpoints(srv)
	seedBeds(t, stores)

	assignBed(t, srv.Router, clinicianAuth, "/api/v1/beds/1")

	req := httptest.NewRequest("POST", "/api/v1/beds/1/transfer",
		strings.NewReader(`{"to_bed_id": 3}`))
	req.Header.Set("Authorization", clinicianAuth)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var destination model.Bed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &destination))
	assert.Equal(t, "201-A", destination.Number)
	assert.True(t, destination.Occupied)
	assert.Equal(t, "John Doe", destination.PatientName)

	// The source bed goes to cleaning, not straight back into service.
	source, err := stores.beds.GetByID(1)
	require.NoError(t, err)
	assert.False(t, source.Occupied)
	assert.Equal(t, model.BedStateCleaning, source.State)

	// The journal records the move between services.
	movements, _, err := stores.beds.Movements(store.MovementFilter{Kind: model.MovementTransfer})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "Internal Medicine", movements[0].FromService)
	assert.Equal(t, "ICU", movements[0].ToService)
}

func TestBedStateAndOccupancy(t *testing.T) {
	srv, stores, clinicianAuth, _ := newTestServer(t)
	RegisterBedsEndpoints(srv)
	seedBeds(t, stores)

	t.Run("empty bed moves to maintenance", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/v1/beds/2/state",
			strings.NewReader(`{"state": "MAINTENANCE"}`))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("occupied bed refuses state changes", func(t *testing.T) {
		assignBed(t, srv.Router, clinicianAuth, "/api/v1/beds/1")

		req := httptest.NewRequest("PUT", "/api/v1/beds/1/state",
			strings.NewReader(`{"state": "CLEANING"}`))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("occupancy report reflects counters", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/beds/occupancy", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var report struct {
			TotalBeds        int     `json:"total_beds"`
			OccupiedBeds     int     `json:"occupied_beds"`
			MaintenanceBeds  int     `json:"maintenance_beds"`
			OccupancyPercent float64 `json:"occupancy_percent"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, 3, report.TotalBeds)
		assert.Equal(t, 1, report.OccupiedBeds)
		assert.Equal(t, 1, report.MaintenanceBeds)
		assert.InDelta(t, 33.3, report.OccupancyPercent, 0.5)
	})

	t.Run("summary groups by service", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/beds/summary", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Internal Medicine")
		assert.Contains(t, w.Body.String(), "ICU")
	})

	t.Run("services list is distinct and sorted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/beds/services", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Services []string `json:"services"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"ICU", "Internal Medicine"}, resp.Services)
	})

	t.Run("patient search matches occupied beds only", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/beds?search=john", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.Total)

		req = httptest.NewRequest("GET", "/api/v1/beds?search=nobody", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w = httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(0), resp.Total)
	})
}

func TestSaveStructureUpdatesSingleton(t *testing.T) {
	srv, stores, clinicianAuth, _ := newTestServer(t)
	RegisterBedsEndpoints(srv)
	seedBeds(t, stores)

	before, err := stores.beds.Structure()
	require.NoError(t, err)
	require.Equal(t, 3, before.TotalBeds)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PUT", "/api/v1/beds/structure", strings.NewReader(body))
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		return w
	}

	w := put(`{"hospital_id": 1, "name": "Test General Hospital", "director": "Lisa Cuddy"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = put(`{"hospital_id": 1, "name": "Test General Hospital", "director": "Eric Foreman", "floors": 4}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	after, err := stores.beds.Structure()
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "Eric Foreman", after.Director)
	assert.Equal(t, 4, after.Floors)
	assert.Equal(t, 3, after.TotalBeds)
}
