// Package store provides storage abstractions for the hospital server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints to be decoupled from the specific database implementation.
// This enables easier testing with mocks and potential support for different
// storage backends.
//
// # Available Stores
//
//   - UsersStore: user accounts, credentials and refresh tokens
//   - CatalogsStore: clinical catalog entries
//   - MedicationsStore: the medications vademecum
//   - NotesStore: clinical notes with signing and versioning
//   - PrescriptionsStore: prescriptions and their items
//   - OrdersStore: lab and imaging orders
//   - BedsStore: beds, hospital structure and bed movements
//   - HealthStore: database connectivity checks and record counts
//
// # Usage
//
//	users := gorm.NewUsersStore(db)
//	user, err := users.GetByEmail("doctor@hospital.local")
//	if err != nil {
//	    if errors.Is(err, store.ErrUserNotFound) {
//	        // Handle not found
//	    }
//	}
package store
