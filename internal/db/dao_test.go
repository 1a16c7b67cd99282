package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/model"
)

func setupDB(t *testing.T) {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := EnsureSchema(context.Background(), database); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	SetDefault(database)
	t.Cleanup(func() {
		SetDefault(nil)
		database.Close()
	})
}

func mustConsole(t *testing.T, name string) int64 {
	t.Helper()
	dao, err := NewConsoleDAO()
	if err != nil {
		t.Fatalf("new console dao: %v", err)
	}
	id, err := dao.Create(context.Background(), name, "/roms/"+name)
	if err != nil {
		t.Fatalf("create console: %v", err)
	}
	return id
}

func mustGame(t *testing.T, consoleID int64, folder, title string) int64 {
	t.Helper()
	dao, err := NewGameDAO()
	if err != nil {
		t.Fatalf("new game dao: %v", err)
	}
	inserted, err := dao.InsertIgnore(context.Background(), consoleID, folder, title)
	if err != nil {
		t.Fatalf("insert game: %v", err)
	}
	if !inserted {
		t.Fatalf("game %q not inserted", folder)
	}
	games, err := dao.ListByConsole(context.Background(), consoleID)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	for _, g := range games {
		if g.FolderName == folder {
			return g.ID
		}
	}
	t.Fatalf("game %q not found after insert", folder)
	return 0
}

func TestConsoleDAO(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	dao, err := NewConsoleDAO()
	if err != nil {
		t.Fatalf("new console dao: %v", err)
	}

	id, err := dao.Create(ctx, "Switch", "/roms/switch")
	if err != nil {
		t.Fatalf("create console: %v", err)
	}

	_, err = dao.Create(ctx, "Switch", "/elsewhere")
	assert.ErrorIs(t, err, errs.ErrConflict)

	mustGame(t, id, "Hades", "Hades")

	consoles, err := dao.List(ctx)
	if err != nil {
		t.Fatalf("list consoles: %v", err)
	}
	assert.Len(t, consoles, 1)
	assert.Equal(t, "Switch", consoles[0].Name)
	assert.Equal(t, 1, consoles[0].GameCount)

	assert.NoError(t, dao.Update(ctx, id, "Nintendo Switch", "/roms/switch"))
	got, err := dao.Get(ctx, id)
	if err != nil {
		t.Fatalf("get console: %v", err)
	}
	assert.Equal(t, "Nintendo Switch", got.Name)

	assert.NoError(t, dao.Delete(ctx, id))
	_, err = dao.Get(ctx, id)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	gameDAO, _ := NewGameDAO()
	n, err := gameDAO.Count(ctx, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, n, "games should cascade with the console")
}

func TestGameDAOInsertIgnore(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	cid := mustConsole(t, "Switch")

	dao, _ := NewGameDAO()
	inserted, err := dao.InsertIgnore(ctx, cid, "Hades", "Hades")
	assert.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = dao.InsertIgnore(ctx, cid, "Hades", "Hades")
	assert.NoError(t, err)
	assert.False(t, inserted)
}

func TestGameDAOSearchAndUpdate(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	cid := mustConsole(t, "Switch")
	gid := mustGame(t, cid, "Hades", "Hades")
	mustGame(t, cid, "Celeste", "Celeste")

	dao, _ := NewGameDAO()
	hits, err := dao.Search(ctx, "had")
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "Hades", hits[0].Title)
	assert.Equal(t, "Switch", hits[0].ConsoleName)

	assert.NoError(t, dao.UpdateMetadata(ctx, gid, "Action", "A roguelike.", "metadata/1.json"))
	assert.NoError(t, dao.UpdateCover(ctx, gid, "/covers/1.jpg"))

	got, err := dao.Get(ctx, gid)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	assert.Equal(t, "Action", got.Genre)
	assert.Equal(t, "A roguelike.", got.Description)
	assert.Equal(t, "/covers/1.jpg", got.CoverURL)
	assert.Equal(t, "metadata/1.json", got.MetadataPath)

	titles, err := dao.TitlesByConsole(ctx, cid)
	assert.NoError(t, err)
	assert.Contains(t, titles, "hades")
	assert.Contains(t, titles, "celeste")

	recent, err := dao.RecentlyAdded(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, recent, 2)

	assert.NoError(t, dao.Delete(ctx, gid))
	assert.ErrorIs(t, dao.Delete(ctx, gid), errs.ErrNotFound)
}

func TestStatusDAO(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	cid := mustConsole(t, "Switch")
	gid := mustGame(t, cid, "Hades", "Hades")

	dao, _ := NewStatusDAO()
	status, err := dao.GetOrCreate(ctx, gid)
	if err != nil {
		t.Fatalf("get or create status: %v", err)
	}
	assert.False(t, status.IsFavorite)
	assert.False(t, status.IsCompleted)

	yes := true
	note := "2024-05"
	err = dao.Update(ctx, gid, model.StatusPatch{
		IsCompleted:       &yes,
		IsFavorite:        &yes,
		CompletedDateNote: &note,
	})
	assert.NoError(t, err)

	status, err = dao.GetOrCreate(ctx, gid)
	if err != nil {
		t.Fatalf("reload status: %v", err)
	}
	assert.True(t, status.IsCompleted)
	assert.True(t, status.IsFavorite)
	assert.False(t, status.IsPlaying)
	assert.Equal(t, "2024-05", status.CompletedDateNote)

	counts, err := dao.Counts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, 1, counts.Favorites)
	assert.Equal(t, 0, counts.Playing)

	byConsole, err := dao.CountsByConsole(ctx, cid)
	assert.NoError(t, err)
	assert.Equal(t, 1, byConsole.Completed)

	gameDAO, _ := NewGameDAO()
	completed, err := gameDAO.Completed(ctx)
	assert.NoError(t, err)
	assert.Len(t, completed, 1)

	favs, err := gameDAO.ByStatus(ctx, "favorite", 0)
	assert.NoError(t, err)
	assert.Len(t, favs, 1)

	_, err = gameDAO.ByStatus(ctx, "bogus", 0)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestScreenshotDAO(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	cid := mustConsole(t, "Switch")
	gid := mustGame(t, cid, "Hades", "Hades")

	dao, _ := NewScreenshotDAO()
	id1, err := dao.Insert(ctx, gid, "/screenshots/1.jpg")
	assert.NoError(t, err)
	_, err = dao.Insert(ctx, gid, "/screenshots/2.jpg")
	assert.NoError(t, err)

	n, err := dao.CountByGame(ctx, gid)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := dao.ListByGame(ctx, gid)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "/screenshots/1.jpg", list[0].URL)

	byGame, err := dao.MapByGames(ctx, []int64{gid})
	assert.NoError(t, err)
	assert.Len(t, byGame[gid], 2)

	assert.NoError(t, dao.Delete(ctx, id1))
	assert.ErrorIs(t, dao.Delete(ctx, id1), errs.ErrNotFound)

	assert.NoError(t, dao.DeleteByGame(ctx, gid))
	n, err = dao.CountByGame(ctx, gid)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestViewDAO(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	cid := mustConsole(t, "Switch")
	gid1 := mustGame(t, cid, "Hades", "Hades")
	gid2 := mustGame(t, cid, "Celeste", "Celeste")

	dao, _ := NewViewDAO()
	assert.NoError(t, dao.Record(ctx, gid1))
	assert.NoError(t, dao.Record(ctx, gid2))
	assert.NoError(t, dao.Record(ctx, gid2))

	recent, err := dao.Recent(ctx, 5)
	assert.NoError(t, err)
	if assert.Len(t, recent, 2) {
		assert.Equal(t, "Celeste", recent[0].Title)
		assert.Equal(t, "Hades", recent[1].Title)
	}
}
