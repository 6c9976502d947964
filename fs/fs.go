// Package appfs embeds the files the binaries need at runtime: SQL migrations,
// email and block templates and the editor assets.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* templates/blocks/* assets/*.yaml
var FS embed.FS
