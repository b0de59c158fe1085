// Package migrations embeds the local session-store schema for goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
