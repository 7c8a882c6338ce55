// Package server provides the HTTP server for the hospital API.
//
// This package implements the core HTTP server that handles all REST API
// requests. It uses gorilla/mux for routing and provides middleware for
// authentication and request handling.
//
// # Server Setup
//
//	srv := server.NewServer(cfg, db, issuer, logger, host, port)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage under the
// /api/v1 prefix:
//
//   - /api/v1/auth - registration, login, token refresh, recovery
//   - /api/v1/users - account administration
//   - /api/v1/catalogs - clinical catalogs
//   - /api/v1/medications - the vademecum
//   - /api/v1/notes - clinical notes with signing and versioning
//   - /api/v1/prescriptions - prescriptions and dispensing
//   - /api/v1/orders - lab and imaging orders
//   - /api/v1/beds - bed management and hospital structure
package server
