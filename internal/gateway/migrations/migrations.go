// Package migrations embeds the gateway's goose migration files. Every
// step is idempotent (IF NOT EXISTS guards) so replaying an applied step
// is harmless.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
