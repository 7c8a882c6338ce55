package audit

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	event := AuthenticateEvent{
		Email:    "doctor@hospital.local",
		ClientIP: "192.168.1.1",
		Method:   "password",
		Success:  true,
	}

	logger.Log(event)

	output := buf.String()

	// Check RFC5424 format components
	if !strings.Contains(output, "hospital-api") {
		t.Error("Expected app name 'hospital-api' in output")
	}
	if !strings.Contains(output, "authn") {
		t.Error("Expected message ID 'authn' in output")
	}
	if !strings.Contains(output, "doctor@hospital.local") {
		t.Error("Expected user email in output")
	}
	if !strings.Contains(output, "192.168.1.1") {
		t.Error("Expected client IP in output")
	}
	if !strings.Contains(output, "successfully authenticated") {
		t.Error("Expected success message in output")
	}
}

func TestAuthenticateEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     AuthenticateEvent
		wantMsg   string
		wantSev   Severity
		wantFac   int
		wantMsgID string
	}{
		{
			name: "successful login",
			event: AuthenticateEvent{
				Email:    "doctor@hospital.local",
				ClientIP: "10.0.0.1",
				Method:   "password",
				Success:  true,
			},
			wantMsg:   "successfully authenticated",
			wantSev:   SeverityInfo,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "authn",
		},
		{
			name: "failed login",
			event: AuthenticateEvent{
				Email:        "doctor@hospital.local",
				ClientIP:     "10.0.0.1",
				Method:       "password",
				Success:      false,
				ErrorMessage: "invalid credentials",
			},
			wantMsg:   "failed to authenticate",
			wantSev:   SeverityWarning,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "authn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want substring %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %d, want %d", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.Facility() != tt.wantFac {
				t.Errorf("Facility() = %d, want %d", tt.event.Facility(), tt.wantFac)
			}
			if tt.event.MessageID() != tt.wantMsgID {
				t.Errorf("MessageID() = %q, want %q", tt.event.MessageID(), tt.wantMsgID)
			}
		})
	}
}

func TestBedMovementEventMessages(t *testing.T) {
	assign := BedMovementEvent{
		UserEmail: "nurse@hospital.local",
		BedCode:   "UCI-001",
		PatientID: "P-1001",
		Kind:      "assign",
		Success:   true,
	}
	if !strings.Contains(assign.Message(), "assigned patient P-1001 to bed UCI-001") {
		t.Errorf("unexpected assign message: %q", assign.Message())
	}

	transfer := BedMovementEvent{
		UserEmail:   "nurse@hospital.local",
		BedCode:     "MED-014",
		PatientID:   "P-1001",
		Kind:        "transfer",
		FromService: "UCI",
		ToService:   "Medicina Interna",
		Success:     true,
	}
	if !strings.Contains(transfer.Message(), "transferred patient") {
		t.Errorf("unexpected transfer message: %q", transfer.Message())
	}
	sd := transfer.StructuredData()
	if sd[SDIDSubject]["from"] != "UCI" || sd[SDIDSubject]["to"] != "Medicina Interna" {
		t.Errorf("expected from/to services in structured data, got %v", sd[SDIDSubject])
	}
}

func TestStructuredDataEscaping(t *testing.T) {
	got := escapeSDValue(`va"lue\with]chars`)
	want := `"va\"lue\\with\]chars"`
	if got != want {
		t.Errorf("escapeSDValue() = %s, want %s", got, want)
	}
}

func TestOrderEventTransition(t *testing.T) {
	event := OrderEvent{
		UserEmail: "lab@hospital.local",
		Number:    "ORD-20260103-0001",
		PatientID: "P-2002",
		FromState: "PENDING",
		ToState:   "IN_PROGRESS",
		Success:   true,
	}
	if !strings.Contains(event.Message(), "from PENDING to IN_PROGRESS") {
		t.Errorf("unexpected message: %q", event.Message())
	}
	sd := event.StructuredData()
	if sd[SDIDAction]["result"] != "success" {
		t.Errorf("expected success result, got %v", sd[SDIDAction])
	}
}
