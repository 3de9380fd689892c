package postgres

import (
	"context"
	"fmt"
)

// Timestamps are stored as unix seconds (BIGINT); zero means never.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS server (
		server_id      BIGSERIAL PRIMARY KEY,
		url            TEXT NOT NULL UNIQUE,
		last_hof_crawl BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS player (
		player_id           BIGSERIAL PRIMARY KEY,
		server_id           BIGINT NOT NULL REFERENCES server (server_id),
		name                TEXT NOT NULL,
		level               INT NOT NULL DEFAULT 0,
		xp                  BIGINT NOT NULL DEFAULT 0,
		attributes          BIGINT NOT NULL DEFAULT 0,
		honor               BIGINT NOT NULL DEFAULT 0,
		equip_count         INT NOT NULL DEFAULT 0,
		next_report_attempt BIGINT NOT NULL DEFAULT 0,
		last_reported       BIGINT NOT NULL DEFAULT 0,
		last_changed        BIGINT NOT NULL DEFAULT 0,
		is_removed          BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (server_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS player_due_idx
		ON player (server_id, next_report_attempt)
		WHERE NOT is_removed`,
	`CREATE TABLE IF NOT EXISTS description (
		description_id BIGSERIAL PRIMARY KEY,
		description    TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS otherplayer_resp (
		otherplayer_resp_id BIGSERIAL PRIMARY KEY,
		hash                TEXT NOT NULL UNIQUE,
		otherplayer_resp    BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS guild (
		guild_id   BIGSERIAL PRIMARY KEY,
		server_id  BIGINT NOT NULL REFERENCES server (server_id),
		name       TEXT NOT NULL,
		is_removed BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (server_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS player_info (
		player_info_id      BIGSERIAL PRIMARY KEY,
		player_id           BIGINT NOT NULL REFERENCES player (player_id),
		fetch_time          BIGINT NOT NULL,
		xp                  BIGINT NOT NULL,
		level               INT NOT NULL,
		honor               BIGINT NOT NULL,
		soldier_advice      BIGINT,
		description_id      BIGINT REFERENCES description (description_id),
		guild_id            BIGINT REFERENCES guild (guild_id),
		otherplayer_resp_id BIGINT NOT NULL REFERENCES otherplayer_resp (otherplayer_resp_id)
	)`,
	`CREATE INDEX IF NOT EXISTS player_info_fetch_idx
		ON player_info (player_id, fetch_time)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		server_id BIGINT NOT NULL,
		player_id BIGINT NOT NULL REFERENCES player (player_id),
		ident     INT NOT NULL,
		PRIMARY KEY (player_id, ident)
	)`,
	`CREATE INDEX IF NOT EXISTS equipment_server_idx
		ON equipment (server_id, ident)`,
	`CREATE TABLE IF NOT EXISTS todo_hof_page (
		server_id           BIGINT NOT NULL REFERENCES server (server_id),
		idx                 INT NOT NULL,
		next_report_attempt BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (server_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS error (
		error_id        BIGSERIAL PRIMARY KEY,
		version         INT NOT NULL,
		os              TEXT NOT NULL,
		arch            TEXT NOT NULL,
		hwid            TEXT NOT NULL,
		stacktrace      TEXT,
		additional_info TEXT,
		error_text      TEXT,
		timestamp       TEXT NOT NULL
	)`,
}

// EnsureSchema creates all tables and indexes when missing. Every statement
// is idempotent, so it runs unconditionally at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
