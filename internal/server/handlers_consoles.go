package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/scanner"
)

type consoleRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) handleListConsoles(w http.ResponseWriter, r *http.Request) {
	consoles, err := s.consoles.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consoles)
}

func (s *Server) handleAddConsole(w http.ResponseWriter, r *http.Request) {
	var req consoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, fmt.Errorf("%w: console name cannot be empty", errs.ErrValidation))
		return
	}

	path := strings.TrimSpace(req.Path)
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: bad path %q", errs.ErrValidation, path))
			return
		}
		info, err := os.Stat(abs)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: folder path does not exist: %s", errs.ErrValidation, abs))
			return
		}
		if !info.IsDir() {
			writeError(w, r, fmt.Errorf("%w: path is not a directory: %s", errs.ErrValidation, abs))
			return
		}
		path = abs
	}

	id, err := s.consoles.Create(r.Context(), name, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	console, err := s.consoles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logutil.GetLogger(r.Context()).Info("console added",
		zap.String("name", name), zap.Int64("id", id))
	writeJSON(w, http.StatusOK, console)
}

func (s *Server) handleUpdateConsole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req consoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, fmt.Errorf("%w: console name cannot be empty", errs.ErrValidation))
		return
	}

	existing, err := s.consoles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := existing.Path
	if strings.TrimSpace(req.Path) != "" {
		path = strings.TrimSpace(req.Path)
	}

	if err := s.consoles.Update(r.Context(), id, name, path); err != nil {
		writeError(w, r, err)
		return
	}
	console, err := s.consoles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := s.games.Count(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	console.GameCount = count
	writeJSON(w, http.StatusOK, console)
}

func (s *Server) handleDeleteConsole(w http.ResponseWriter, r *http.Request) {
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

	// Best-effort removal of every game's artifacts before the rows cascade.
	games, err := s.games.ListByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, g := range games {
		s.removeGameArtifacts(ctx, g.ID, g.CoverURL)
	}

	if err := s.consoles.Delete(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": "console and all associated games deleted"})
}

func (s *Server) handleScanConsole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	console, err := s.consoles.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if console.Path == "" {
		writeError(w, r, fmt.Errorf("%w: console %d has no folder path", errs.ErrValidation, id))
		return
	}

	existing, err := s.games.TitlesByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := scanner.Scan(console.Path, existing)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := logutil.GetLogger(ctx).With(zap.Int64("console_id", id))
	added, scanErrors := 0, 0
	for _, c := range res.Candidates {
		inserted, err := s.games.InsertIgnore(ctx, id, c.FolderName, c.Title)
		if err != nil {
			logger.Warn("failed to add game", zap.String("folder", c.FolderName), zap.Error(err))
			scanErrors++
			continue
		}
		if inserted {
			added++
		}
	}
	logger.Info("scan complete",
		zap.Int("added", added), zap.Int("errors", scanErrors), zap.Int("skipped", res.Skipped))
	writeOK(w, map[string]interface{}{
		"added":   added,
		"errors":  scanErrors,
		"skipped": res.Skipped,
	})
}

func (s *Server) handleConsoleStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	console, err := s.consoles.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := s.statuses.CountsByConsole(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"console_id":         id,
		"console_name":       console.Name,
		"completed_count":    counts.Completed,
		"favorites_count":    counts.Favorites,
		"playing_count":      counts.Playing,
		"plan_to_play_count": counts.PlanToPlay,
		"dropped_count":      counts.Dropped,
		"on_hold_count":      counts.OnHold,
	})
}
