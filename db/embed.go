// Package db embeds the SQL migration files shipped with the service.
package db

import "embed"

// Migrations holds the schema migration files consumed by golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
