// Package db embeds the SQL schema executed at startup.
package db

import _ "embed"

// Schema holds the idempotent DDL for every table and index. It runs as one
// batch on every start.
//
//go:embed migrations/001_schema.sql
var Schema string
