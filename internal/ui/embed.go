// Package ui embeds the static pages served on the site's page routes.
// The real member experience is a separate frontend; these placeholder
// pages exist so the login/dashboard redirect surface is complete.
package ui

import "embed"

//go:embed static
var Static embed.FS
