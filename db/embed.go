// Package db embeds the SQL schema so the server can bootstrap its own
// tables on startup.
package db

import _ "embed"

// Schema holds the full DDL: users, session tokens, products, sellers and
// orders.
//
//go:embed migrations/001_schema.sql
var Schema string
