package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/media"
	"github.com/xxxsen/gamevault/internal/metafetch"
	"github.com/xxxsen/gamevault/internal/model"
	"github.com/xxxsen/gamevault/internal/title"
)

// hasUsableMetadata decides whether a game already carries metadata worth
// keeping, so bulk fetches only fill gaps unless forced.
func hasUsableMetadata(g model.Game) bool {
	genre := strings.TrimSpace(g.Genre)
	desc := strings.TrimSpace(g.Description)
	return genre != "" && !strings.EqualFold(genre, "unknown") && len(desc) > 20
}

func (s *Server) handleFetchGameMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	game, err := s.games.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	console, err := s.consoles.Get(ctx, game.ConsoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := s.merger.Merge(ctx, game.Title, console.Name)
	if res.Empty() {
		writeError(w, r, fmt.Errorf("%w: no metadata for game %d", errs.ErrNotFound, id))
		return
	}

	newGenre := game.Genre
	if res.Genre != "" {
		newGenre = res.Genre
	}
	newDesc := game.Description
	if res.Description != "" {
		newDesc = res.Description
	}
	metaPath := s.saveMetadataArtifact(ctx, id, res.Raw)

	if err := s.games.UpdateMetadata(ctx, id, newGenre, newDesc, metaPath); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"updated":     1,
		"title":       game.Title,
		"description": newDesc,
	})
}

func (s *Server) handleFetchConsoleMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	force := boolQuery(r, "force")
	ctx := r.Context()
	console, err := s.consoles.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	games, err := s.games.ListByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := logutil.GetLogger(ctx).With(zap.Int64("console_id", id))
	updated, skipped := 0, 0
	for _, g := range games {
		if hasUsableMetadata(g) && !force {
			skipped++
			continue
		}

		res := s.merger.Merge(ctx, g.Title, console.Name)
		if res.Empty() {
			skipped++
			continue
		}

		newGenre := g.Genre
		if res.Genre != "" {
			newGenre = res.Genre
		}
		newDesc := g.Description
		if res.Description != "" {
			newDesc = res.Description
		}
		metaPath := s.saveMetadataArtifact(ctx, g.ID, res.Raw)

		if err := s.games.UpdateMetadata(ctx, g.ID, newGenre, newDesc, metaPath); err != nil {
			logger.Warn("failed to store metadata", zap.Int64("game_id", g.ID), zap.Error(err))
			skipped++
			continue
		}
		updated++
	}

	logger.Info("metadata fetch complete", zap.Int("updated", updated), zap.Int("skipped", skipped))
	writeOK(w, map[string]interface{}{"updated": updated, "skipped": skipped})
}

func (s *Server) handleFetchGameCover(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	game, err := s.games.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	console, err := s.consoles.Get(ctx, game.ConsoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rawgGame, err := s.rawg.SearchGame(ctx, game.Title, metafetch.PlatformID(console.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rawgGame == nil || rawgGame.BackgroundImage == "" {
		writeError(w, r, fmt.Errorf("%w: no cover for game %d", errs.ErrNotFound, id))
		return
	}

	coverURL, err := s.storeCoverFromURL(ctx, coverKeyFor(console.Name, game.Title), rawgGame.BackgroundImage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.games.UpdateCover(ctx, id, coverURL); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"title": game.Title, "cover_url": coverURL})
}

func (s *Server) handleFetchConsoleCovers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	force := boolQuery(r, "force")
	ctx := r.Context()
	console, err := s.consoles.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	games, err := s.games.ListByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := logutil.GetLogger(ctx).With(zap.Int64("console_id", id))
	updated, skipped := 0, 0
	for _, g := range games {
		if g.CoverURL != "" && !force {
			skipped++
			continue
		}

		rawgGame, err := s.rawg.SearchGame(ctx, g.Title, 0)
		if err != nil {
			logger.Warn("cover search failed", zap.String("title", g.Title), zap.Error(err))
			skipped++
			continue
		}
		if rawgGame == nil || rawgGame.BackgroundImage == "" {
			skipped++
			continue
		}

		coverURL, err := s.storeCoverFromURL(ctx, coverKeyFor(console.Name, g.Title), rawgGame.BackgroundImage)
		if err != nil {
			logger.Warn("cover download failed", zap.String("title", g.Title), zap.Error(err))
			skipped++
			continue
		}
		if err := s.games.UpdateCover(ctx, g.ID, coverURL); err != nil {
			logger.Warn("failed to store cover", zap.Int64("game_id", g.ID), zap.Error(err))
			skipped++
			continue
		}
		updated++
	}

	logger.Info("cover fetch complete", zap.Int("updated", updated), zap.Int("skipped", skipped))
	writeOK(w, map[string]interface{}{"updated": updated, "skipped": skipped})
}

func (s *Server) handleFetchGameScreenshots(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	game, err := s.games.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	console, err := s.consoles.Get(ctx, game.ConsoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.fetchScreenshotsFor(ctx, game.ID, game.Title, console.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if saved == 0 {
		writeError(w, r, fmt.Errorf("%w: no screenshots for game %d", errs.ErrNotFound, id))
		return
	}
	writeOK(w, map[string]interface{}{"saved": saved})
}

func (s *Server) handleFetchConsoleScreenshots(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	force := boolQuery(r, "force")
	ctx := r.Context()
	console, err := s.consoles.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	games, err := s.games.ListByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := logutil.GetLogger(ctx).With(zap.Int64("console_id", id))
	updated, skipped := 0, 0
	for _, g := range games {
		count, err := s.shots.CountByGame(ctx, g.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if count > 0 {
			if !force {
				skipped++
				continue
			}
			if err := s.shots.DeleteByGame(ctx, g.ID); err != nil {
				logger.Warn("failed to clear screenshots", zap.Int64("game_id", g.ID), zap.Error(err))
				skipped++
				continue
			}
			if err := s.store.RemoveAll(ctx, fmt.Sprintf("screenshots/%d", g.ID)); err != nil {
				logger.Warn("failed to remove screenshot files", zap.Int64("game_id", g.ID), zap.Error(err))
			}
		}

		saved, err := s.fetchScreenshotsFor(ctx, g.ID, g.Title, console.Name)
		if err != nil {
			logger.Warn("screenshot fetch failed", zap.String("title", g.Title), zap.Error(err))
			skipped++
			continue
		}
		if saved == 0 {
			skipped++
			continue
		}
		updated++
	}

	logger.Info("screenshot fetch complete", zap.Int("updated", updated), zap.Int("skipped", skipped))
	writeOK(w, map[string]interface{}{"updated": updated, "skipped": skipped})
}

// fetchScreenshotsFor downloads up to the per-game limit of screenshots from
// the game database and stores them, returning how many were saved.
func (s *Server) fetchScreenshotsFor(ctx context.Context, gameID int64, gameTitle, consoleName string) (int, error) {
	rawgGame, err := s.rawg.SearchGame(ctx, gameTitle, metafetch.PlatformID(consoleName))
	if err != nil {
		return 0, err
	}
	if rawgGame == nil {
		return 0, nil
	}
	shots, err := s.rawg.Screenshots(ctx, rawgGame.ID, media.MaxShotsPerGame)
	if err != nil {
		return 0, err
	}

	logger := logutil.GetLogger(ctx).With(zap.Int64("game_id", gameID))
	saved := 0
	for _, shot := range shots {
		if shot.Image == "" {
			continue
		}
		data, err := s.downloader.Fetch(ctx, shot.Image)
		if err != nil {
			logger.Warn("screenshot download failed", zap.String("url", shot.Image), zap.Error(err))
			continue
		}
		jpeg, err := media.BuildScreenshot(data)
		if err != nil {
			logger.Warn("screenshot processing failed", zap.String("url", shot.Image), zap.Error(err))
			continue
		}
		rel := fmt.Sprintf("screenshots/%d/%d.jpg", gameID, saved+1)
		url, err := s.store.Save(ctx, rel, jpeg, "image/jpeg")
		if err != nil {
			return saved, err
		}
		if _, err := s.shots.Insert(ctx, gameID, url); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// storeCoverFromURL downloads, renders and stores a cover, returning the URL
// persisted on the game row.
func (s *Server) storeCoverFromURL(ctx context.Context, relPath, srcURL string) (string, error) {
	data, err := s.downloader.Fetch(ctx, srcURL)
	if err != nil {
		return "", err
	}
	jpeg, err := media.BuildCover(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return s.store.Save(ctx, relPath, jpeg, "image/jpeg")
}

func coverKeyFor(consoleName, gameTitle string) string {
	consoleSlug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(consoleName)), " ", "_")
	return fmt.Sprintf("covers/%s/%s.jpg", consoleSlug, title.SanitizeFilename(gameTitle))
}

// saveMetadataArtifact archives the raw source object next to the catalog.
// Best effort: a failed write only costs the artifact path.
func (s *Server) saveMetadataArtifact(ctx context.Context, gameID int64, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(raw)
	}
	rel := fmt.Sprintf("metadata/%d.json", gameID)
	url, err := s.store.Save(ctx, rel, pretty.Bytes(), "application/json")
	if err != nil {
		logutil.GetLogger(ctx).Warn("failed to archive metadata",
			zap.Int64("game_id", gameID), zap.Error(err))
		return ""
	}
	return url
}
