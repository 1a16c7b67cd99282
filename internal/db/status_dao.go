package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/gamevault/internal/model"
)

const statusTableName = "game_status"

const (
	selectStatusSQL = `
SELECT game_id, is_favorite, has_plan_to_play, is_playing, is_completed, completed_date_note, is_dropped, is_on_hold
FROM game_status WHERE game_id = ?`

	insertDefaultStatusSQL = `INSERT OR IGNORE INTO game_status (game_id) VALUES (?)`

	statusCountsSQL = `
SELECT
	COALESCE(SUM(is_completed), 0),
	COALESCE(SUM(is_favorite), 0),
	COALESCE(SUM(is_playing), 0),
	COALESCE(SUM(has_plan_to_play), 0),
	COALESCE(SUM(is_dropped), 0),
	COALESCE(SUM(is_on_hold), 0)
FROM game_status`

	statusCountsByConsoleSQL = `
SELECT
	COALESCE(SUM(gs.is_completed), 0),
	COALESCE(SUM(gs.is_favorite), 0),
	COALESCE(SUM(gs.is_playing), 0),
	COALESCE(SUM(gs.has_plan_to_play), 0),
	COALESCE(SUM(gs.is_dropped), 0),
	COALESCE(SUM(gs.is_on_hold), 0)
FROM game_status gs
JOIN games g ON g.id = gs.game_id
WHERE g.console_id = ?`
)

// StatusDAO exposes helpers for the per-game play status rows.
type StatusDAO struct {
	db IDatabase
}

// NewStatusDAO builds a DAO using the globally configured database.
func NewStatusDAO() (*StatusDAO, error) {
	db := Default()
	if db == nil {
		return nil, errors.New("database not initialised")
	}
	return &StatusDAO{db: db}, nil
}

// GetOrCreate returns the status row of a game, creating the default row on
// first access.
func (dao *StatusDAO) GetOrCreate(ctx context.Context, gameID int64) (*model.GameStatus, error) {
	status, err := dao.get(ctx, gameID)
	if err == nil {
		return status, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get status for game %d: %w", gameID, err)
	}

	if _, err := dao.db.ExecContext(ctx, insertDefaultStatusSQL, gameID); err != nil {
		return nil, fmt.Errorf("init status for game %d: %w", gameID, err)
	}
	status, err = dao.get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("get status for game %d: %w", gameID, err)
	}
	return status, nil
}

// Update applies a partial status change; nil patch fields stay untouched.
func (dao *StatusDAO) Update(ctx context.Context, gameID int64, patch model.StatusPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if _, err := dao.db.ExecContext(ctx, insertDefaultStatusSQL, gameID); err != nil {
		return fmt.Errorf("init status for game %d: %w", gameID, err)
	}

	update := map[string]interface{}{}
	setBool := func(column string, v *bool) {
		if v == nil {
			return
		}
		n := 0
		if *v {
			n = 1
		}
		update[column] = n
	}
	setBool("is_favorite", patch.IsFavorite)
	setBool("has_plan_to_play", patch.HasPlanToPlay)
	setBool("is_playing", patch.IsPlaying)
	setBool("is_completed", patch.IsCompleted)
	setBool("is_dropped", patch.IsDropped)
	setBool("is_on_hold", patch.IsOnHold)
	if patch.CompletedDateNote != nil {
		update["completed_date_note"] = *patch.CompletedDateNote
	}

	updateSQL, args, err := builder.BuildUpdate(statusTableName,
		map[string]interface{}{"game_id": gameID}, update)
	if err != nil {
		return err
	}
	if _, err := dao.db.ExecContext(ctx, updateSQL, args...); err != nil {
		return fmt.Errorf("update status for game %d: %w", gameID, err)
	}
	return nil
}

// Counts aggregates the per-flag totals across the whole catalog.
func (dao *StatusDAO) Counts(ctx context.Context) (model.StatusCounts, error) {
	return dao.scanCounts(dao.db.QueryRowContext(ctx, statusCountsSQL))
}

// CountsByConsole aggregates the per-flag totals for one console.
func (dao *StatusDAO) CountsByConsole(ctx context.Context, consoleID int64) (model.StatusCounts, error) {
	return dao.scanCounts(dao.db.QueryRowContext(ctx, statusCountsByConsoleSQL, consoleID))
}

func (dao *StatusDAO) get(ctx context.Context, gameID int64) (*model.GameStatus, error) {
	var s model.GameStatus
	err := dao.db.QueryRowContext(ctx, selectStatusSQL, gameID).Scan(
		&s.GameID, &s.IsFavorite, &s.HasPlanToPlay, &s.IsPlaying,
		&s.IsCompleted, &s.CompletedDateNote, &s.IsDropped, &s.IsOnHold,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (dao *StatusDAO) scanCounts(row *sql.Row) (model.StatusCounts, error) {
	var c model.StatusCounts
	err := row.Scan(&c.Completed, &c.Favorites, &c.Playing, &c.PlanToPlay, &c.Dropped, &c.OnHold)
	if err != nil {
		return model.StatusCounts{}, fmt.Errorf("scan status counts: %w", err)
	}
	return c, nil
}
