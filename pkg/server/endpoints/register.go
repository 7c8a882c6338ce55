package endpoints

import (
	"github.com/hospitaldigital/hospital-api/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterAuthEndpoints(srv)
	RegisterUsersEndpoints(srv)
	RegisterCatalogsEndpoints(srv)
	RegisterMedicationsEndpoints(srv)
	RegisterNotesEndpoints(srv)
	RegisterPrescriptionsEndpoints(srv)
	RegisterOrdersEndpoints(srv)
	RegisterBedsEndpoints(srv)
}
