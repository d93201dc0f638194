// Package migrations holds the embedded goose SQL migrations for the
// taskman schema. They are applied at startup by the app's database setup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
