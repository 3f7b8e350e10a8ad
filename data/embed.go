// Package data carries the embedded mock catalog used to seed a fresh
// database in development and tests.
package data

import "embed"

//go:embed mock/*.json
var MockFS embed.FS
