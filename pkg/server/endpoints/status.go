package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/hospitaldigital/hospital-api/pkg/server"
)

// RegisterStatusEndpoints registers the status and info endpoints
func RegisterStatusEndpoints(s *server.Server) {
	hospitalName := s.Config.HospitalName

	// GET / - Status page (no auth required)
	s.Router.HandleFunc("/", handleStatus(hospitalName)).Methods("GET")
}

func handleStatus(hospitalName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("HOSPITAL_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}
		if hospitalName == "" {
			hospitalName = "Hospital Records"
		}

		accept := r.Header.Get("Accept")
		format := r.URL.Query().Get("format")
		if format == "json" || strings.Contains(accept, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"name":    hospitalName,
				"version": version,
			})
			return
		}

		html := `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width">
    <title>` + hospitalName + ` API Status</title>
  </head>
  <body>
    <main>
      <h1>Status</h1>
      <p>Your hospital records server is running!</p>
      <dl>
        <dt>Details:</dt>
        <dd>Version ` + version + `</dd>
        <dd>API base path /api/v1</dd>
      </dl>
    </main>
  </body>
</html>
`

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}
