package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/media"
)

const maxUploadSize = 20 * 1024 * 1024

type fromURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: bad multipart form", errs.ErrValidation)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file field is required", errs.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, fmt.Errorf("%w: file too large", errs.ErrValidation)
	}
	return data, nil
}

// saveCover renders and stores the standard per-game cover, returning the
// cache-busted URL persisted on the game row.
func (s *Server) saveCover(r *http.Request, gameID int64, data []byte) (string, error) {
	jpeg, err := media.BuildCover(data)
	if err != nil {
		return "", fmt.Errorf("%w: invalid image file", errs.ErrValidation)
	}
	url, err := s.store.Save(r.Context(), fmt.Sprintf("covers/%d.jpg", gameID), jpeg, "image/jpeg")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?t=%d", url, time.Now().Unix()), nil
}

func (s *Server) handleUploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if _, err := s.games.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	data, err := s.readUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	coverURL, err := s.saveCover(r, id, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.games.UpdateCover(ctx, id, coverURL); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"cover_url": coverURL})
}

func (s *Server) handleCoverFromURL(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fromURLRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, r, fmt.Errorf("%w: url is required", errs.ErrValidation))
		return
	}
	ctx := r.Context()
	if _, err := s.games.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	data, err := s.downloader.Fetch(ctx, req.URL)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: failed to download image", errs.ErrValidation))
		return
	}
	coverURL, err := s.saveCover(r, id, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.games.UpdateCover(ctx, id, coverURL); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"cover_url": coverURL})
}

func (s *Server) handleDeleteCover(w http.ResponseWriter, r *http.Request) {
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

	if rel := mediaRelPath(game.CoverURL); rel != "" {
		if err := s.store.Remove(ctx, rel); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.games.UpdateCover(ctx, id, ""); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": "cover deleted"})
}

// addScreenshot processes and stores one screenshot image, enforcing the
// per-game limit.
func (s *Server) addScreenshot(w http.ResponseWriter, r *http.Request, gameID int64, data []byte) {
	ctx := r.Context()
	count, err := s.shots.CountByGame(ctx, gameID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if count >= media.MaxShotsPerGame {
		writeError(w, r, fmt.Errorf("%w: maximum %d screenshots allowed per game",
			errs.ErrValidation, media.MaxShotsPerGame))
		return
	}

	jpeg, err := media.BuildScreenshot(data)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid image file", errs.ErrValidation))
		return
	}
	rel := fmt.Sprintf("screenshots/%d/%d.jpg", gameID, count+1)
	url, err := s.store.Save(ctx, rel, jpeg, "image/jpeg")
	if err != nil {
		writeError(w, r, err)
		return
	}
	shotID, err := s.shots.Insert(ctx, gameID, url)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"screenshot_id": shotID, "url": url})
}

func (s *Server) handleUploadScreenshot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.games.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	data, err := s.readUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.addScreenshot(w, r, id, data)
}

func (s *Server) handleScreenshotFromURL(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fromURLRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, r, fmt.Errorf("%w: url is required", errs.ErrValidation))
		return
	}
	if _, err := s.games.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	data, err := s.downloader.Fetch(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: failed to download image", errs.ErrValidation))
		return
	}
	s.addScreenshot(w, r, id, data)
}

func (s *Server) handleDeleteScreenshot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	shot, err := s.shots.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rel := mediaRelPath(shot.URL); rel != "" {
		if err := s.store.Remove(ctx, rel); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.shots.Delete(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": "screenshot deleted"})
}

// handleServeMedia streams stored artifacts back under their public path.
func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	rel := mediaRelPath(r.URL.Path)
	if rel == "" {
		writeError(w, r, errs.ErrNotFound)
		return
	}
	rc, contentType, err := s.store.Open(r.Context(), rel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.Copy(w, rc)
}
