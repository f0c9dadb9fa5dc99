package store

import _ "embed"

// SchemaVersion is the current schema version.
const SchemaVersion = "1"

//go:embed schema/sqlite.sql
var sqliteSchema string

//go:embed schema/postgres.sql
var postgresSchema string
