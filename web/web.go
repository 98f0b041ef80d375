// Package web embeds the static assets for the evaluation page.
package web

import "embed"

// Assets holds the built static files served at the web root.
//
//go:embed static
var Assets embed.FS
