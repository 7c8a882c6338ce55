// Package gorm provides GORM-backed implementations of the store
// interfaces in pkg/server/store.
//
// Each store wraps a *gorm.DB handle. Multi-row operations such as bed
// transfers and prescription dispensing run inside database transactions
// so invariants like structure counters hold under concurrent writers.
package gorm
