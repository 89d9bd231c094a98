// Package database stores match history and results in Postgres.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool on url and pings it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS duel_games (
	id          TEXT PRIMARY KEY,
	room_code   TEXT NOT NULL DEFAULT '',
	game_type   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'in_progress',
	winner_id   TEXT,
	reason      TEXT,
	turns       INT,
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS duel_game_players (
	game_id   TEXT NOT NULL REFERENCES duel_games(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL,
	did_win   BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS duel_actions (
	game_id        TEXT NOT NULL REFERENCES duel_games(id) ON DELETE CASCADE,
	action_index   INT NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (game_id, action_index)
);
`

// Migrate creates the tables if they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
