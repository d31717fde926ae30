// Package migrations содержит схему хранилища для каждого драйвера
package migrations

import "embed"

// Postgres - миграции PostgreSQL
//
//go:embed postgres/*.up.sql
var Postgres embed.FS

// SQLite - миграции SQLite
//
//go:embed sqlite/*.up.sql
var SQLite embed.FS
