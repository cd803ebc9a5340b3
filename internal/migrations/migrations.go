// Package migrations embeds the goose SQL migrations for the credit ledger,
// the generation audit log and provider credentials.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
