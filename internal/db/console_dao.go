package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/model"
)

const consoleTableName = "consoles"

const (
	selectConsoleSQL = `SELECT id, name, path, create_time FROM consoles WHERE id = ?`
	listConsolesSQL  = `
SELECT c.id, c.name, c.path, c.create_time, COUNT(g.id)
FROM consoles c
LEFT JOIN games g ON g.console_id = c.id
GROUP BY c.id
ORDER BY c.name COLLATE NOCASE`
	countConsolesSQL = `SELECT COUNT(*) FROM consoles`
)

// ConsoleDAO exposes helpers for reading and writing console records.
type ConsoleDAO struct {
	db IDatabase
}

// NewConsoleDAO builds a DAO using the globally configured database.
func NewConsoleDAO() (*ConsoleDAO, error) {
	db := Default()
	if db == nil {
		return nil, errors.New("database not initialised")
	}
	return &ConsoleDAO{db: db}, nil
}

// List returns all consoles with their game counts, ordered by name.
func (dao *ConsoleDAO) List(ctx context.Context) ([]model.Console, error) {
	rows, err := dao.db.QueryContext(ctx, listConsolesSQL)
	if err != nil {
		return nil, fmt.Errorf("list consoles: %w", err)
	}
	defer rows.Close()

	result := make([]model.Console, 0)
	for rows.Next() {
		var c model.Console
		if err := rows.Scan(&c.ID, &c.Name, &c.Path, &c.CreateTime, &c.GameCount); err != nil {
			return nil, fmt.Errorf("scan console: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get fetches one console by id.
func (dao *ConsoleDAO) Get(ctx context.Context, id int64) (*model.Console, error) {
	var c model.Console
	err := dao.db.QueryRowContext(ctx, selectConsoleSQL, id).Scan(&c.ID, &c.Name, &c.Path, &c.CreateTime)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: console %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get console %d: %w", id, err)
	}
	return &c, nil
}

// Create inserts a console and returns its id. A duplicate name maps to
// ErrConflict.
func (dao *ConsoleDAO) Create(ctx context.Context, name, path string) (int64, error) {
	payload := []map[string]interface{}{{
		"name":        name,
		"path":        path,
		"create_time": time.Now().Unix(),
	}}
	insertSQL, args, err := builder.BuildInsert(consoleTableName, payload)
	if err != nil {
		return 0, err
	}
	res, err := dao.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("%w: console %q", errs.ErrConflict, name)
		}
		return 0, fmt.Errorf("insert console: %w", err)
	}
	return res.LastInsertId()
}

// Update renames a console and/or changes its folder path.
func (dao *ConsoleDAO) Update(ctx context.Context, id int64, name, path string) error {
	updateSQL, args, err := builder.BuildUpdate(consoleTableName,
		map[string]interface{}{"id": id},
		map[string]interface{}{
			"name": name,
			"path": path,
		},
	)
	if err != nil {
		return err
	}
	res, err := dao.db.ExecContext(ctx, updateSQL, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: console %q", errs.ErrConflict, name)
		}
		return fmt.Errorf("update console %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: console %d", errs.ErrNotFound, id)
	}
	return nil
}

// Delete removes a console; games, screenshots and statuses cascade.
func (dao *ConsoleDAO) Delete(ctx context.Context, id int64) error {
	deleteSQL, args, err := builder.BuildDelete(consoleTableName, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	res, err := dao.db.ExecContext(ctx, deleteSQL, args...)
	if err != nil {
		return fmt.Errorf("delete console %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: console %d", errs.ErrNotFound, id)
	}
	return nil
}

// Count returns the number of consoles.
func (dao *ConsoleDAO) Count(ctx context.Context) (int, error) {
	var n int
	if err := dao.db.QueryRowContext(ctx, countConsolesSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count consoles: %w", err)
	}
	return n, nil
}
