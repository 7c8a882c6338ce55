// Package model contains the GORM database models for the hospital records
// system: users, catalogs, the medication formulary, clinical notes,
// prescriptions, orders, and bed management.
package model
