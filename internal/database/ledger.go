package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/jackc/pgx/v5"
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Ledger writes actions and results. It satisfies historian.Sink.
type Ledger struct {
	db txBeginner
}

func NewLedger(db txBeginner) *Ledger {
	return &Ledger{db: db}
}

const (
	upsertGameQ = `
		INSERT INTO duel_games (id, room_code, game_type, status, start_time)
		VALUES ($1, $2, $3, 'in_progress', $4)
		ON CONFLICT (id) DO NOTHING
	`
	insertActionQ = `
		INSERT INTO duel_actions (game_id, action_index, actor_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	finishGameQ = `
		UPDATE duel_games
		SET status = 'completed', winner_id = NULLIF($2, ''), reason = $3, turns = $4, end_time = $5
		WHERE id = $1
	`
	upsertPlayerQ = `
		INSERT INTO duel_game_players (game_id, player_id, did_win)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, player_id) DO UPDATE SET did_win = $3
	`
	abandonGameQ = `
		UPDATE duel_games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
)

// InsertActions stores a batch in a single transaction, creating game rows
// as needed.
func (l *Ledger) InsertActions(ctx context.Context, recs []models.ActionRecord) error {
	err := pgx.BeginTxFunc(ctx, l.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			at := time.UnixMilli(rec.Timestamp)
			if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.RoomCode, rec.GameType, at); err != nil {
				return err
			}
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, insertActionQ, rec.GameID, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, at); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert %d actions: %w", len(recs), err)
	}
	return nil
}

// RecordResult marks a game completed and records who played and who won.
func (l *Ledger) RecordResult(ctx context.Context, res models.GameResult) error {
	err := pgx.BeginTxFunc(ctx, l.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertGameQ, res.GameID, res.RoomCode, res.GameType, res.StartedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, finishGameQ, res.GameID, res.WinnerID, res.Reason, res.Turns, res.EndedAt); err != nil {
			return err
		}
		for _, pid := range res.PlayerIDs {
			if _, err := tx.Exec(ctx, upsertPlayerQ, res.GameID, pid, pid == res.WinnerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record result for %s: %w", res.GameID, err)
	}
	return nil
}

// MarkAbandoned closes a game that is still in progress.
func (l *Ledger) MarkAbandoned(ctx context.Context, gameID string) error {
	return pgx.BeginTxFunc(ctx, l.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, abandonGameQ, gameID)
		return err
	})
}
