// Package migrations embeds the goose SQL migrations for the idgate schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
