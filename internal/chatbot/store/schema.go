package store

import "botforge/internal/common/database"

// Organisation attributes are kept as a JSON object in a TEXT column so both drivers share one shape.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS organisations (
		id               BIGINT PRIMARY KEY,
		name             TEXT NOT NULL,
		industry         TEXT NOT NULL DEFAULT 'default',
		primary_language TEXT NOT NULL DEFAULT '',
		welcome_message  TEXT NOT NULL DEFAULT '',
		attributes       TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id              BIGSERIAL PRIMARY KEY,
		organisation_id BIGINT REFERENCES organisations(id) ON DELETE CASCADE,
		industry        TEXT NOT NULL DEFAULT '',
		intent          TEXT NOT NULL,
		body            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_lookup ON templates (organisation_id, industry, intent)`,
	`CREATE TABLE IF NOT EXISTS quick_replies (
		id              BIGSERIAL PRIMARY KEY,
		organisation_id BIGINT REFERENCES organisations(id) ON DELETE CASCADE,
		industry        TEXT NOT NULL,
		language        TEXT NOT NULL,
		intent          TEXT NOT NULL DEFAULT 'any',
		label           TEXT NOT NULL,
		display_order   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quick_replies_lookup ON quick_replies (organisation_id, industry, language, intent)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS organisations (
		id               INTEGER PRIMARY KEY,
		name             TEXT NOT NULL,
		industry         TEXT NOT NULL DEFAULT 'default',
		primary_language TEXT NOT NULL DEFAULT '',
		welcome_message  TEXT NOT NULL DEFAULT '',
		attributes       TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		organisation_id INTEGER REFERENCES organisations(id) ON DELETE CASCADE,
		industry        TEXT NOT NULL DEFAULT '',
		intent          TEXT NOT NULL,
		body            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_lookup ON templates (organisation_id, industry, intent)`,
	`CREATE TABLE IF NOT EXISTS quick_replies (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		organisation_id INTEGER REFERENCES organisations(id) ON DELETE CASCADE,
		industry        TEXT NOT NULL,
		language        TEXT NOT NULL,
		intent          TEXT NOT NULL DEFAULT 'any',
		label           TEXT NOT NULL,
		display_order   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quick_replies_lookup ON quick_replies (organisation_id, industry, language, intent)`,
}

func schemaFor(driver string) []string {
	if driver == database.DriverSQLite {
		return sqliteSchema
	}
	return postgresSchema
}
