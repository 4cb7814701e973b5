// Package migrations holds the goose migrations for the analysis history.
package migrations

import "embed"

// FS is used when database.migrations_dir is empty.
//
//go:embed *.sql
var FS embed.FS
