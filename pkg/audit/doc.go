// Package audit provides audit logging for clinical record operations.
//
// This package implements structured audit logging for security-relevant
// operations such as authentication attempts, password changes, clinical
// note signing, prescription dispensing, order transitions and bed
// movements.
//
// # Event Types
//
// The package defines event types for various operations:
//
//   - Authentication events (success/failure)
//   - Password change and recovery events
//   - Clinical note events (create, sign, version)
//   - Prescription events (create, sign, dispense, void)
//   - Order state transitions
//   - Bed assignments, releases and transfers
//
// # Usage
//
//	audit.Log(audit.AuthenticateEvent{Email: email, Success: true})
//
// Audit events are logged in RFC5424 syslog format suitable for security
// monitoring and compliance requirements. When AUDIT_DATABASE_URL is set
// events are additionally persisted to the audit_messages table.
package audit
