package migrations

import "embed"

// FS contains embedded SQLite migrations for the snapshot archive.
//
//go:embed *.sql
var FS embed.FS
