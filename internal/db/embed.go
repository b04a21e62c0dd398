package db

import "embed"

// FS contains the goose migrations applied on connect.
//
//go:embed migrations
var FS embed.FS
