package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/gamevault/internal/model"
)

const (
	recordViewSQL = `
INSERT INTO recently_viewed (game_id, view_time) VALUES (?, ?)
ON CONFLICT(game_id) DO UPDATE SET view_time = excluded.view_time`

	recentlyViewedSQL = `
SELECT g.id, g.title, g.genre, g.cover_url, c.name
FROM recently_viewed r
JOIN games g ON g.id = r.game_id
JOIN consoles c ON c.id = g.console_id
ORDER BY r.view_time DESC, r.id DESC
LIMIT ?`
)

// ViewDAO tracks which games were opened most recently.
type ViewDAO struct {
	db IDatabase
}

// NewViewDAO builds a DAO using the globally configured database.
func NewViewDAO() (*ViewDAO, error) {
	db := Default()
	if db == nil {
		return nil, errors.New("database not initialised")
	}
	return &ViewDAO{db: db}, nil
}

// Record marks a game as just viewed. One row per game; repeat views only
// bump the timestamp.
func (dao *ViewDAO) Record(ctx context.Context, gameID int64) error {
	if _, err := dao.db.ExecContext(ctx, recordViewSQL, gameID, time.Now().Unix()); err != nil {
		return fmt.Errorf("record view for game %d: %w", gameID, err)
	}
	return nil
}

// Recent lists the most recently viewed games.
func (dao *ViewDAO) Recent(ctx context.Context, limit int) ([]model.GameSummary, error) {
	rows, err := dao.db.QueryContext(ctx, recentlyViewedSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recently viewed: %w", err)
	}
	return scanSummaries(rows)
}
