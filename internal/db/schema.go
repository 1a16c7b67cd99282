package db

import "context"

var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS consoles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(128) NOT NULL UNIQUE,
	path VARCHAR(512) NOT NULL,
	create_time BIGINT NOT NULL
);`,

	`
CREATE TABLE IF NOT EXISTS games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	console_id INTEGER NOT NULL REFERENCES consoles(id) ON DELETE CASCADE,
	folder_name VARCHAR(512) NOT NULL,
	title VARCHAR(512) NOT NULL,
	genre VARCHAR(256) NOT NULL DEFAULT '',
	description VARCHAR(2048) NOT NULL DEFAULT '',
	cover_url VARCHAR(512) NOT NULL DEFAULT '',
	metadata_path VARCHAR(512) NOT NULL DEFAULT '',
	create_time BIGINT NOT NULL,
	update_time BIGINT NOT NULL,
	UNIQUE(console_id, folder_name)
);`,

	`
CREATE INDEX IF NOT EXISTS idx_games_console_id ON games(console_id);`,

	`
CREATE TABLE IF NOT EXISTS screenshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	url VARCHAR(512) NOT NULL
);`,

	`
CREATE INDEX IF NOT EXISTS idx_screenshots_game_id ON screenshots(game_id);`,

	`
CREATE TABLE IF NOT EXISTS game_status (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL UNIQUE REFERENCES games(id) ON DELETE CASCADE,
	is_favorite INTEGER NOT NULL DEFAULT 0,
	has_plan_to_play INTEGER NOT NULL DEFAULT 0,
	is_playing INTEGER NOT NULL DEFAULT 0,
	is_completed INTEGER NOT NULL DEFAULT 0,
	completed_date_note VARCHAR(128) NOT NULL DEFAULT '',
	is_dropped INTEGER NOT NULL DEFAULT 0,
	is_on_hold INTEGER NOT NULL DEFAULT 0
);`,

	`
CREATE TABLE IF NOT EXISTS recently_viewed (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL UNIQUE REFERENCES games(id) ON DELETE CASCADE,
	view_time BIGINT NOT NULL
);`,
}

// EnsureSchema initialises required tables and indexes.
func EnsureSchema(ctx context.Context, db IDatabase) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
