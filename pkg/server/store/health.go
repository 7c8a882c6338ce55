package store

// HealthCounts is a snapshot of record counts included in the health report.
type HealthCounts struct {
	Users               int64 `json:"users"`
	Beds                int64 `json:"beds"`
	ActivePrescriptions int64 `json:"active_prescriptions"`
}

// HealthStore provides health check operations
type HealthStore interface {
	// CheckConnectivity verifies database connectivity
	CheckConnectivity() error

	// Counts returns record counts for the health report
	Counts() (HealthCounts, error)
}
