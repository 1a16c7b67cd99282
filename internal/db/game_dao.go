package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/model"
)

const gameTableName = "games"

const (
	searchLimit = 50

	selectGameSQL = `
SELECT id, console_id, folder_name, title, genre, description, cover_url, metadata_path, create_time, update_time
FROM games WHERE id = ?`

	listGamesByConsoleSQL = `
SELECT id, console_id, folder_name, title, genre, description, cover_url, metadata_path, create_time, update_time
FROM games WHERE console_id = ? ORDER BY title COLLATE NOCASE`

	insertGameSQL = `
INSERT OR IGNORE INTO games (console_id, folder_name, title, genre, description, cover_url, metadata_path, create_time, update_time)
VALUES (?, ?, ?, '', '', '', '', ?, ?)`

	searchGamesSQL = `
SELECT g.id, g.title, g.genre, g.cover_url, c.name
FROM games g
JOIN consoles c ON g.console_id = c.id
WHERE g.title LIKE ?
ORDER BY g.title COLLATE NOCASE
LIMIT ?`

	recentlyAddedSQL = `
SELECT g.id, g.title, g.genre, g.cover_url, c.name
FROM games g
JOIN consoles c ON g.console_id = c.id
ORDER BY g.create_time DESC, g.id DESC
LIMIT ?`

	completedGamesSQL = `
SELECT g.id, g.title, g.genre, g.cover_url, c.name
FROM games g
JOIN consoles c ON g.console_id = c.id
JOIN game_status gs ON gs.game_id = g.id
WHERE gs.is_completed = 1
ORDER BY g.title COLLATE NOCASE`

	gameTitlesByConsoleSQL = `SELECT title FROM games WHERE console_id = ?`
	countGamesSQL          = `SELECT COUNT(*) FROM games`
	countGamesByConsoleSQL = `SELECT COUNT(*) FROM games WHERE console_id = ?`
)

// statusColumns whitelists the status names accepted by ByStatus; the value
// is the game_status column filtered on. Never interpolate user input into
// SQL outside this map.
var statusColumns = map[string]string{
	"favorite":     "is_favorite",
	"playing":      "is_playing",
	"plan_to_play": "has_plan_to_play",
	"completed":    "is_completed",
	"dropped":      "is_dropped",
	"on_hold":      "is_on_hold",
}

// GameDAO exposes helpers for reading and writing game records.
type GameDAO struct {
	db IDatabase
}

// NewGameDAO builds a DAO using the globally configured database.
func NewGameDAO() (*GameDAO, error) {
	db := Default()
	if db == nil {
		return nil, errors.New("database not initialised")
	}
	return &GameDAO{db: db}, nil
}

// Get fetches one game by id.
func (dao *GameDAO) Get(ctx context.Context, id int64) (*model.Game, error) {
	var g model.Game
	err := dao.db.QueryRowContext(ctx, selectGameSQL, id).Scan(
		&g.ID, &g.ConsoleID, &g.FolderName, &g.Title, &g.Genre, &g.Description,
		&g.CoverURL, &g.MetadataPath, &g.CreateTime, &g.UpdateTime,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: game %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	return &g, nil
}

// ListByConsole returns the games of one console ordered by title.
func (dao *GameDAO) ListByConsole(ctx context.Context, consoleID int64) ([]model.Game, error) {
	rows, err := dao.db.QueryContext(ctx, listGamesByConsoleSQL, consoleID)
	if err != nil {
		return nil, fmt.Errorf("list games for console %d: %w", consoleID, err)
	}
	defer rows.Close()

	result := make([]model.Game, 0)
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.ConsoleID, &g.FolderName, &g.Title, &g.Genre, &g.Description,
			&g.CoverURL, &g.MetadataPath, &g.CreateTime, &g.UpdateTime); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertIgnore adds a game unless the (console, folder_name) pair already
// exists, reporting whether a row was actually inserted.
func (dao *GameDAO) InsertIgnore(ctx context.Context, consoleID int64, folderName, title string) (bool, error) {
	now := time.Now().Unix()
	res, err := dao.db.ExecContext(ctx, insertGameSQL, consoleID, folderName, title, now, now)
	if err != nil {
		return false, fmt.Errorf("insert game %q: %w", folderName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Search finds games across consoles by title substring.
func (dao *GameDAO) Search(ctx context.Context, query string) ([]model.GameSummary, error) {
	pattern := "%" + query + "%"
	rows, err := dao.db.QueryContext(ctx, searchGamesSQL, pattern, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search games %q: %w", query, err)
	}
	return scanSummaries(rows)
}

// ByStatus lists games with a given status flag set. consoleID restricts the
// listing to one console when > 0. Unknown statuses map to ErrValidation.
func (dao *GameDAO) ByStatus(ctx context.Context, status string, consoleID int64) ([]model.GameSummary, error) {
	column, ok := statusColumns[status]
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}

	var sb strings.Builder
	sb.WriteString(`
SELECT g.id, g.title, g.genre, g.cover_url, c.name
FROM games g
JOIN consoles c ON g.console_id = c.id
JOIN game_status gs ON gs.game_id = g.id
WHERE gs.`)
	sb.WriteString(column)
	sb.WriteString(" = 1")
	args := make([]interface{}, 0, 1)
	if consoleID > 0 {
		sb.WriteString(" AND g.console_id = ?")
		args = append(args, consoleID)
	}
	sb.WriteString(" ORDER BY g.title COLLATE NOCASE")

	rows, err := dao.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list games by status %q: %w", status, err)
	}
	return scanSummaries(rows)
}

// Completed lists all games marked completed.
func (dao *GameDAO) Completed(ctx context.Context) ([]model.GameSummary, error) {
	rows, err := dao.db.QueryContext(ctx, completedGamesSQL)
	if err != nil {
		return nil, fmt.Errorf("list completed games: %w", err)
	}
	return scanSummaries(rows)
}

// RecentlyAdded lists the newest catalog entries.
func (dao *GameDAO) RecentlyAdded(ctx context.Context, limit int) ([]model.GameSummary, error) {
	rows, err := dao.db.QueryContext(ctx, recentlyAddedSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recently added: %w", err)
	}
	return scanSummaries(rows)
}

// UpdateFields patches arbitrary game columns. fields keys must be column
// names; update_time is always refreshed.
func (dao *GameDAO) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	update := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		update[k] = v
	}
	update["update_time"] = time.Now().Unix()

	updateSQL, args, err := builder.BuildUpdate(gameTableName, map[string]interface{}{"id": id}, update)
	if err != nil {
		return err
	}
	res, err := dao.db.ExecContext(ctx, updateSQL, args...)
	if err != nil {
		return fmt.Errorf("update game %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: game %d", errs.ErrNotFound, id)
	}
	return nil
}

// UpdateMetadata stores fetched genre/description and the archived metadata
// artifact path.
func (dao *GameDAO) UpdateMetadata(ctx context.Context, id int64, genre, description, metadataPath string) error {
	return dao.UpdateFields(ctx, id, map[string]interface{}{
		"genre":         genre,
		"description":   description,
		"metadata_path": metadataPath,
	})
}

// UpdateCover stores a game's cover URL.
func (dao *GameDAO) UpdateCover(ctx context.Context, id int64, coverURL string) error {
	return dao.UpdateFields(ctx, id, map[string]interface{}{"cover_url": coverURL})
}

// Delete removes a game; screenshots and status rows cascade.
func (dao *GameDAO) Delete(ctx context.Context, id int64) error {
	deleteSQL, args, err := builder.BuildDelete(gameTableName, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	res, err := dao.db.ExecContext(ctx, deleteSQL, args...)
	if err != nil {
		return fmt.Errorf("delete game %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: game %d", errs.ErrNotFound, id)
	}
	return nil
}

// TitlesByConsole returns the lowercased, trimmed titles already cataloged
// for a console, used for scan dedup.
func (dao *GameDAO) TitlesByConsole(ctx context.Context, consoleID int64) (map[string]struct{}, error) {
	rows, err := dao.db.QueryContext(ctx, gameTitlesByConsoleSQL, consoleID)
	if err != nil {
		return nil, fmt.Errorf("list titles for console %d: %w", consoleID, err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		result[strings.TrimSpace(strings.ToLower(title))] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Count returns the number of games, optionally restricted to one console.
func (dao *GameDAO) Count(ctx context.Context, consoleID int64) (int, error) {
	var n int
	var err error
	if consoleID > 0 {
		err = dao.db.QueryRowContext(ctx, countGamesByConsoleSQL, consoleID).Scan(&n)
	} else {
		err = dao.db.QueryRowContext(ctx, countGamesSQL).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

func scanSummaries(rows *sql.Rows) ([]model.GameSummary, error) {
	defer rows.Close()

	result := make([]model.GameSummary, 0)
	for rows.Next() {
		var s model.GameSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Genre, &s.CoverURL, &s.ConsoleName); err != nil {
			return nil, fmt.Errorf("scan game summary: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
