// Package migrations embeds the SQL schema migrations so binaries do not
// depend on a migrations directory at runtime.
package migrations

import "embed"

// FS holds every NNNNNN_name.{up,down}.sql file
//
//go:embed *.sql
var FS embed.FS
