// Package migrations embeds the goose SQL migrations for the users and token
// tables.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
