package audit

import "fmt"

// AuthenticateEvent represents a login or token refresh audit event
type AuthenticateEvent struct {
	Email        string
	ClientIP     string
	Method       string // "password", "refresh"
	Success      bool
	ErrorMessage string
}

func (e AuthenticateEvent) MessageID() string {
	return "authn"
}

func (e AuthenticateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s successfully authenticated via %s", e.Email, e.Method)
	}
	msg := fmt.Sprintf("%s failed to authenticate via %s", e.Email, e.Method)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e AuthenticateEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AuthenticateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AuthenticateEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user":   e.Email,
			"method": e.Method,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "authenticate",
			"result":    result,
		},
	}
}

// PasswordChangeEvent represents a password change or recovery reset
type PasswordChangeEvent struct {
	Email        string
	ClientIP     string
	ViaRecovery  bool
	Success      bool
	ErrorMessage string
}

func (e PasswordChangeEvent) MessageID() string {
	return "password"
}

func (e PasswordChangeEvent) Message() string {
	how := "changed their password"
	if e.ViaRecovery {
		how = "reset their password via recovery code"
	}
	if e.Success {
		return fmt.Sprintf("%s %s", e.Email, how)
	}
	msg := fmt.Sprintf("%s failed to change their password", e.Email)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e PasswordChangeEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e PasswordChangeEvent) Facility() int {
	return FacilityAuthPriv
}

func (e PasswordChangeEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	via := "self-service"
	if e.ViaRecovery {
		via = "recovery"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Email,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "change-password",
			"via":       via,
			"result":    result,
		},
	}
}

// NoteEvent represents a clinical note lifecycle audit event
type NoteEvent struct {
	UserEmail    string
	ClientIP     string
	NoteID       uint
	PatientID    string
	Operation    string // "create", "update", "sign", "version"
	Success      bool
	ErrorMessage string
}

func (e NoteEvent) MessageID() string {
	return "note"
}

func (e NoteEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s performed %s on clinical note %d for patient %s", e.UserEmail, e.Operation, e.NoteID, e.PatientID)
	}
	msg := fmt.Sprintf("%s tried to %s clinical note %d", e.UserEmail, e.Operation, e.NoteID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e NoteEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e NoteEvent) Facility() int {
	return FacilityLocal0
}

func (e NoteEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserEmail,
		},
		SDIDSubject: {
			"note": fmt.Sprintf("%d", e.NoteID),
		},
		SDIDPatient: {
			"id": e.PatientID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result,
		},
	}
}

// PrescriptionEvent represents a prescription lifecycle audit event
type PrescriptionEvent struct {
	UserEmail    string
	ClientIP     string
	Number       string
	PatientID    string
	Operation    string // "create", "sign", "dispense", "void"
	Success      bool
	ErrorMessage string
}

func (e PrescriptionEvent) MessageID() string {
	return "prescription"
}

func (e PrescriptionEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s performed %s on prescription %s", e.UserEmail, e.Operation, e.Number)
	}
	msg := fmt.Sprintf("%s tried to %s prescription %s", e.UserEmail, e.Operation, e.Number)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e PrescriptionEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e PrescriptionEvent) Facility() int {
	return FacilityLocal0
}

func (e PrescriptionEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserEmail,
		},
		SDIDSubject: {
			"prescription": e.Number,
		},
		SDIDPatient: {
			"id": e.PatientID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result,
		},
	}
}

// OrderEvent represents a lab or imaging order state change
type OrderEvent struct {
	UserEmail    string
	ClientIP     string
	Number       string
	PatientID    string
	FromState    string
	ToState      string
	Success      bool
	ErrorMessage string
}

func (e OrderEvent) MessageID() string {
	return "order"
}

func (e OrderEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s moved order %s from %s to %s", e.UserEmail, e.Number, e.FromState, e.ToState)
	}
	msg := fmt.Sprintf("%s tried to move order %s from %s to %s", e.UserEmail, e.Number, e.FromState, e.ToState)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e OrderEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e OrderEvent) Facility() int {
	return FacilityLocal0
}

func (e OrderEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserEmail,
		},
		SDIDSubject: {
			"order": e.Number,
			"from":  e.FromState,
			"to":    e.ToState,
		},
		SDIDPatient: {
			"id": e.PatientID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "transition",
			"result":    result,
		},
	}
}

// BedMovementEvent represents a bed assignment, release or transfer
type BedMovementEvent struct {
	UserEmail    string
	ClientIP     string
	BedCode      string
	PatientID    string
	Kind         string // "assign", "release", "transfer"
	FromService  string
	ToService    string
	Success      bool
	ErrorMessage string
}

func (e BedMovementEvent) MessageID() string {
	return "bed"
}

func (e BedMovementEvent) Message() string {
	if e.Success {
		switch e.Kind {
		case "transfer":
			return fmt.Sprintf("%s transferred patient %s to bed %s (%s to %s)", e.UserEmail, e.PatientID, e.BedCode, e.FromService, e.ToService)
		case "release":
			return fmt.Sprintf("%s released bed %s", e.UserEmail, e.BedCode)
		default:
			return fmt.Sprintf("%s assigned patient %s to bed %s", e.UserEmail, e.PatientID, e.BedCode)
		}
	}
	msg := fmt.Sprintf("%s failed bed %s on %s", e.UserEmail, e.Kind, e.BedCode)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e BedMovementEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e BedMovementEvent) Facility() int {
	return FacilityLocal0
}

func (e BedMovementEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserEmail,
		},
		SDIDSubject: {
			"bed": e.BedCode,
		},
		SDIDPatient: {
			"id": e.PatientID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Kind,
			"result":    result,
		},
	}
	if e.FromService != "" {
		sd[SDIDSubject]["from"] = e.FromService
	}
	if e.ToService != "" {
		sd[SDIDSubject]["to"] = e.ToService
	}
	return sd
}
