// Package main implements hospitalctl, the CLI for the hospital records server.
//
// The server exposes a REST API for electronic medical records: users and
// authentication, clinical catalogs, the medication vademecum, prescriptions,
// clinical notes, lab and imaging orders, and bed management. All data is
// stored in PostgreSQL.
//
// # Quick Start
//
//	# Generate a signing key for tokens
//	export SECRET_KEY="$(hospitalctl secret-key generate)"
//
//	# Run database migrations
//	hospitalctl db migrate
//
//	# Create the first user
//	hospitalctl user create admin@hospital.example --password changeme123
//
//	# Start the server
//	hospitalctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - SECRET_KEY: HMAC key used to sign access and refresh tokens
//   - HOSPITAL_CONFIG_PATH: Config file path (default /etc/hospital/config/hospital.yml)
//   - HOSPITAL_AUDIT_ENABLED: Enable RFC 5424 audit logging
//   - HOSPITAL_LOG_LEVEL: Log level (debug, info, warn, error)
//   - PORT: Server port (default: 8000)
package main
