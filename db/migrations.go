// Package db embeds the SQL migrations so production builds can run them
// without shipping the migrations directory.
package db

import "embed"

// Migrations holds the SQL migration files.
//
//go:embed migrations
var Migrations embed.FS
