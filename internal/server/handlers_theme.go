package server

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/media"
)

var themeImageExts = []string{"png", "jpg", "jpeg", "gif", "webp"}

var themeContentTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

func isThemeImageName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range themeImageExts {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}

func (s *Server) handleListThemeHeaders(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context(), "headers")
	if err != nil {
		writeError(w, r, err)
		return
	}
	headers := make([]string, 0, len(names))
	for _, name := range names {
		if isThemeImageName(name) {
			headers = append(headers, name)
		}
	}
	sort.Strings(headers)
	writeJSON(w, http.StatusOK, map[string]interface{}{"headers": headers})
}

func (s *Server) handleProbeThemeHeader(w http.ResponseWriter, r *http.Request) {
	for _, ext := range themeImageExts {
		rel := "theme_images/header." + ext
		exists, err := s.store.Exists(r.Context(), rel)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if exists {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"exists": true,
				"url":    "/" + rel,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exists": false})
}

func (s *Server) handleUploadThemeHeader(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(media.MaxThemeImageSize); err != nil {
		writeError(w, r, fmt.Errorf("%w: bad multipart form", errs.ErrValidation))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: file field is required", errs.ErrValidation))
		return
	}
	defer file.Close()

	ext, ok := themeContentTypes[header.Header.Get("Content-Type")]
	if !ok {
		writeError(w, r, fmt.Errorf("%w: invalid image type", errs.ErrValidation))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, media.MaxThemeImageSize+1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(data) > media.MaxThemeImageSize {
		writeError(w, r, fmt.Errorf("%w: file too large (max 5MB)", errs.ErrValidation))
		return
	}

	ctx := r.Context()
	// Only one header at a time; drop any previous one regardless of format.
	for _, old := range themeImageExts {
		if err := s.store.Remove(ctx, "theme_images/header."+old); err != nil {
			writeError(w, r, err)
			return
		}
	}

	url, err := s.store.Save(ctx, "theme_images/header."+ext, data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"url": url})
}

func (s *Server) handleDeleteThemeHeader(w http.ResponseWriter, r *http.Request) {
	deleted := false
	for _, ext := range themeImageExts {
		rel := "theme_images/header." + ext
		exists, err := s.store.Exists(r.Context(), rel)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !exists {
			continue
		}
		if err := s.store.Remove(r.Context(), rel); err != nil {
			writeError(w, r, err)
			return
		}
		deleted = true
	}
	writeOK(w, map[string]interface{}{"deleted": deleted})
}
