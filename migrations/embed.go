// Package migrations embeds the SQL migration files for the place cache
// database so the binary can apply them without external files.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
