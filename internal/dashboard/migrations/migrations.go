// Package migrations embeds the goose SQL migrations for the monitor's local
// SQLite cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
