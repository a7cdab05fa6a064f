package migrations

import "embed"

// FS holds the SQL migrations for the postgres state backend.
//
//go:embed *.sql
var FS embed.FS
