// Package migrations embeds the SQL schema for each database backend.
package migrations

import "embed"

// Postgres holds the golang-migrate files applied to PostgreSQL.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the golang-migrate files applied to the on-device database.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
