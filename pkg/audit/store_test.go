package audit

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := PrescriptionEvent{
		UserEmail: "doctor@hospital.local",
		ClientIP:  "10.0.0.1",
		Number:    "RX-20260103-0001",
		PatientID: "P-1001",
		Operation: "dispense",
		Success:   true,
	}

	mock.ExpectExec(`INSERT INTO audit_messages`).
		WithArgs(
			FacilityLocal0,    // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			"hospital-api",    // appname
			sqlmock.AnyArg(),  // procid
			"prescription",    // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			sqlmock.AnyArg(),  // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveNilDB(t *testing.T) {
	store := &Store{}
	event := AuthenticateEvent{Email: "doctor@hospital.local", Success: true}
	if err := store.Save(event); err != nil {
		t.Errorf("Save() with nil db should be a no-op, got %v", err)
	}
}
