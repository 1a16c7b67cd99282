package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/model"
	"github.com/xxxsen/gamevault/internal/title"
)

type gameView struct {
	ID           int64              `json:"id"`
	FolderName   string             `json:"folder_name"`
	Title        string             `json:"title"`
	Genre        string             `json:"genre"`
	Description  string             `json:"description"`
	CoverURL     string             `json:"cover_url"`
	Screenshots  []model.Screenshot `json:"screenshots"`
	MetadataPath string             `json:"metadata_path,omitempty"`
	CreateTime   int64              `json:"created_at"`
	UpdateTime   int64              `json:"updated_at"`
}

func toGameView(g model.Game, shots []model.Screenshot) gameView {
	genre := g.Genre
	if genre == "" {
		genre = "Unknown"
	}
	if shots == nil {
		shots = []model.Screenshot{}
	}
	return gameView{
		ID:           g.ID,
		FolderName:   g.FolderName,
		Title:        g.Title,
		Genre:        genre,
		Description:  g.Description,
		CoverURL:     g.CoverURL,
		Screenshots:  shots,
		MetadataPath: g.MetadataPath,
		CreateTime:   g.CreateTime,
		UpdateTime:   g.UpdateTime,
	}
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if _, err := s.consoles.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	games, err := s.games.ListByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]int64, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	shotMap, err := s.shots.MapByGames(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]gameView, 0, len(games))
	for _, g := range games {
		views = append(views, toGameView(g, shotMap[g.ID]))
	}
	writeJSON(w, http.StatusOK, views)
}

type addGameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleAddGame(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Title)
	if name == "" {
		writeError(w, r, fmt.Errorf("%w: title is required", errs.ErrValidation))
		return
	}
	ctx := r.Context()
	if _, err := s.consoles.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	inserted, err := s.games.InsertIgnore(ctx, id, title.Slug(name), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	extra := map[string]interface{}{"added": 0, "title": name}
	if inserted {
		extra["added"] = 1
	} else {
		extra["message"] = "game already exists"
	}
	writeOK(w, extra)
}

type addGamesBulkRequest struct {
	Games []string `json:"games"`
}

func (s *Server) handleAddGamesBulk(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addGamesBulkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Games) == 0 {
		writeError(w, r, fmt.Errorf("%w: no games provided", errs.ErrValidation))
		return
	}
	ctx := r.Context()
	if _, err := s.consoles.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	added, skipped := 0, 0
	for _, raw := range req.Games {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		inserted, err := s.games.InsertIgnore(ctx, id, title.Slug(name), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if inserted {
			added++
		} else {
			skipped++
		}
	}
	writeOK(w, map[string]interface{}{"added": added, "skipped": skipped})
}

func (s *Server) handleSearchGames(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, fmt.Errorf("%w: search query is required", errs.ErrValidation))
		return
	}
	hits, err := s.games.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleGamesByStatus(w http.ResponseWriter, r *http.Request) {
	s.listByStatus(w, r, 0)
}

func (s *Server) handleConsoleGamesByStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.consoles.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.listByStatus(w, r, id)
}

func (s *Server) listByStatus(w http.ResponseWriter, r *http.Request, consoleID int64) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		writeError(w, r, fmt.Errorf("%w: status is required", errs.ErrValidation))
		return
	}
	games, err := s.games.ByStatus(r.Context(), status, consoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleCompletedGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.games.Completed(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleGameDetail(w http.ResponseWriter, r *http.Request) {
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
	shots, err := s.shots.ListByGame(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameView(*game, shots))
}

type updateGameRequest struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Title)
	if name == "" {
		writeError(w, r, fmt.Errorf("%w: title is required", errs.ErrValidation))
		return
	}
	ctx := r.Context()
	if _, err := s.games.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	err = s.games.UpdateFields(ctx, id, map[string]interface{}{
		"title":       name,
		"genre":       strings.TrimSpace(req.Genre),
		"description": strings.TrimSpace(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
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

	s.removeGameArtifacts(ctx, id, game.CoverURL)

	if err := s.games.Delete(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": "game and associated files deleted"})
}

// removeGameArtifacts deletes a game's stored cover, screenshots and archived
// metadata. Failures are logged and swallowed so a missing file never blocks
// the catalog delete.
func (s *Server) removeGameArtifacts(ctx context.Context, gameID int64, coverURL string) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("game_id", gameID))

	if rel := mediaRelPath(coverURL); rel != "" {
		if err := s.store.Remove(ctx, rel); err != nil {
			logger.Warn("failed to delete cover file", zap.Error(err))
		}
	}
	if err := s.store.RemoveAll(ctx, fmt.Sprintf("screenshots/%d", gameID)); err != nil {
		logger.Warn("failed to delete screenshots", zap.Error(err))
	}
	if err := s.store.Remove(ctx, fmt.Sprintf("metadata/%d.json", gameID)); err != nil {
		logger.Warn("failed to delete metadata artifact", zap.Error(err))
	}
}

// mediaRelPath turns a stored media URL like "/covers/12.jpg?t=123" into the
// store-relative path, or "" when the URL is external or empty.
func mediaRelPath(url string) string {
	if url == "" || !strings.HasPrefix(url, "/") {
		return ""
	}
	if idx := strings.IndexByte(url, '?'); idx >= 0 {
		url = url[:idx]
	}
	return strings.TrimPrefix(url, "/")
}
