// Package migrations carries the drive state schema as goose migrations.
package migrations

import "embed"

// FS holds NNNNN_name.sql files with goose Up and Down sections.
//
//go:embed *.sql
var FS embed.FS
