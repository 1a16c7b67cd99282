package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/model"
)

const screenshotTableName = "screenshots"

const (
	selectScreenshotSQL       = `SELECT id, game_id, url FROM screenshots WHERE id = ?`
	listScreenshotsSQL        = `SELECT id, game_id, url FROM screenshots WHERE game_id = ? ORDER BY id`
	countScreenshotsSQL       = `SELECT COUNT(*) FROM screenshots WHERE game_id = ?`
	listScreenshotsByGamesSQL = `SELECT id, game_id, url FROM screenshots WHERE game_id IN `
)

// ScreenshotDAO exposes helpers for the stored screenshot references.
type ScreenshotDAO struct {
	db IDatabase
}

// NewScreenshotDAO builds a DAO using the globally configured database.
func NewScreenshotDAO() (*ScreenshotDAO, error) {
	db := Default()
	if db == nil {
		return nil, errors.New("database not initialised")
	}
	return &ScreenshotDAO{db: db}, nil
}

// Get fetches one screenshot by id.
func (dao *ScreenshotDAO) Get(ctx context.Context, id int64) (*model.Screenshot, error) {
	var s model.Screenshot
	err := dao.db.QueryRowContext(ctx, selectScreenshotSQL, id).Scan(&s.ID, &s.GameID, &s.URL)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: screenshot %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get screenshot %d: %w", id, err)
	}
	return &s, nil
}

// ListByGame returns a game's screenshots in insertion order.
func (dao *ScreenshotDAO) ListByGame(ctx context.Context, gameID int64) ([]model.Screenshot, error) {
	rows, err := dao.db.QueryContext(ctx, listScreenshotsSQL, gameID)
	if err != nil {
		return nil, fmt.Errorf("list screenshots for game %d: %w", gameID, err)
	}
	defer rows.Close()

	result := make([]model.Screenshot, 0)
	for rows.Next() {
		var s model.Screenshot
		if err := rows.Scan(&s.ID, &s.GameID, &s.URL); err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MapByGames loads screenshots for a set of games in one query.
func (dao *ScreenshotDAO) MapByGames(ctx context.Context, gameIDs []int64) (map[int64][]model.Screenshot, error) {
	result := make(map[int64][]model.Screenshot, len(gameIDs))
	if len(gameIDs) == 0 {
		return result, nil
	}

	placeholders := "(?"
	args := []interface{}{gameIDs[0]}
	for _, id := range gameIDs[1:] {
		placeholders += ",?"
		args = append(args, id)
	}
	placeholders += ")"

	rows, err := dao.db.QueryContext(ctx, listScreenshotsByGamesSQL+placeholders+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.Screenshot
		if err := rows.Scan(&s.ID, &s.GameID, &s.URL); err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		result[s.GameID] = append(result[s.GameID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Insert records one screenshot URL for a game.
func (dao *ScreenshotDAO) Insert(ctx context.Context, gameID int64, url string) (int64, error) {
	payload := []map[string]interface{}{{
		"game_id": gameID,
		"url":     url,
	}}
	insertSQL, args, err := builder.BuildInsert(screenshotTableName, payload)
	if err != nil {
		return 0, err
	}
	res, err := dao.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("insert screenshot for game %d: %w", gameID, err)
	}
	return res.LastInsertId()
}

// CountByGame returns how many screenshots a game already has.
func (dao *ScreenshotDAO) CountByGame(ctx context.Context, gameID int64) (int, error) {
	var n int
	if err := dao.db.QueryRowContext(ctx, countScreenshotsSQL, gameID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count screenshots for game %d: %w", gameID, err)
	}
	return n, nil
}

// Delete removes one screenshot reference.
func (dao *ScreenshotDAO) Delete(ctx context.Context, id int64) error {
	deleteSQL, args, err := builder.BuildDelete(screenshotTableName, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	res, err := dao.db.ExecContext(ctx, deleteSQL, args...)
	if err != nil {
		return fmt.Errorf("delete screenshot %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: screenshot %d", errs.ErrNotFound, id)
	}
	return nil
}

// DeleteByGame removes all screenshot references of a game.
func (dao *ScreenshotDAO) DeleteByGame(ctx context.Context, gameID int64) error {
	deleteSQL, args, err := builder.BuildDelete(screenshotTableName, map[string]interface{}{"game_id": gameID})
	if err != nil {
		return err
	}
	if _, err := dao.db.ExecContext(ctx, deleteSQL, args...); err != nil {
		return fmt.Errorf("delete screenshots for game %d: %w", gameID, err)
	}
	return nil
}
