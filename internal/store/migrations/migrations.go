// Package migrations embeds the SQL migrations applied to every per-device
// metadata store on open.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
