// Package migrations embeds the versioned schema of the layer store.
package migrations

import "embed"

// FS holds the golang-migrate files (<version>_<title>.up.sql / .down.sql).
//
//go:embed *.sql
var FS embed.FS
