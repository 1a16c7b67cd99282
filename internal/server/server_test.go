package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xxxsen/gamevault/internal/config"
	"github.com/xxxsen/gamevault/internal/db"
	"github.com/xxxsen/gamevault/internal/media"
	"github.com/xxxsen/gamevault/internal/metafetch"
)

func setupServer(t *testing.T, rawgURL string) *Server {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), database); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	db.SetDefault(database)
	t.Cleanup(func() {
		db.SetDefault(nil)
		_ = database.Close()
	})

	store, err := media.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	var rawg *metafetch.RAWGClient
	if rawgURL != "" {
		rawg = metafetch.NewRAWGClient(rawgURL, "test-key", time.Second)
	}

	srv, err := New(cfg, store, rawg, nil)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := make(map[string]interface{})
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 96, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, fieldName, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	hdr.Set("Content-Type", contentType)
	part, err := writer.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func addConsole(t *testing.T, h http.Handler, name, path string) int64 {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/consoles", map[string]string{"name": name, "path": path})
	if rec.Code != http.StatusOK {
		t.Fatalf("add console: status %d body %s", rec.Code, rec.Body.String())
	}
	return int64(decodeMap(t, rec)["id"].(float64))
}

func addGame(t *testing.T, h http.Handler, consoleID int64, title string) int64 {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/games", consoleID), map[string]string{"title": title})
	if rec.Code != http.StatusOK {
		t.Fatalf("add game: status %d body %s", rec.Code, rec.Body.String())
	}
	// The add response does not carry the id; look it up via the listing.
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/consoles/%d/games", consoleID), nil)
	for _, g := range decodeList(t, rec) {
		if g["title"] == title {
			return int64(g["id"].(float64))
		}
	}
	t.Fatalf("game %q not found after add", title)
	return 0
}

func TestHealth(t *testing.T) {
	h := setupServer(t, "").Router()

	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["database"])
}

func TestConsoleCRUD(t *testing.T) {
	h := setupServer(t, "").Router()

	rec := doJSON(t, h, http.MethodPost, "/api/consoles", map[string]string{"name": "Switch"})
	assert.Equal(t, http.StatusOK, rec.Code)
	created := decodeMap(t, rec)
	assert.Equal(t, "Switch", created["name"])
	id := int64(created["id"].(float64))

	rec = doJSON(t, h, http.MethodPost, "/api/consoles", map[string]string{"name": "Switch"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/consoles", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/consoles", map[string]string{"name": "PS2", "path": "/no/such/folder"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/consoles", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/consoles/%d", id), map[string]string{"name": "Nintendo Switch"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nintendo Switch", decodeMap(t, rec)["name"])

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/consoles/%d", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/consoles", nil)
	assert.Len(t, decodeList(t, rec), 0)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/consoles/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGameLifecycle(t *testing.T) {
	h := setupServer(t, "").Router()
	cid := addConsole(t, h, "Switch", "")

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/games", cid), map[string]string{"title": "Hades"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeMap(t, rec)["added"])

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/games", cid), map[string]string{"title": "Hades"})
	assert.Equal(t, http.StatusOK, rec.Code)
	dup := decodeMap(t, rec)
	assert.Equal(t, float64(0), dup["added"])
	assert.Equal(t, "game already exists", dup["message"])

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/games/bulk", cid),
		map[string]interface{}{"games": []string{"Celeste", "Hades", "  "}})
	assert.Equal(t, http.StatusOK, rec.Code)
	bulk := decodeMap(t, rec)
	assert.Equal(t, float64(1), bulk["added"])
	assert.Equal(t, float64(1), bulk["skipped"])

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/consoles/%d/games", cid), nil)
	games := decodeList(t, rec)
	assert.Len(t, games, 2)

	var gid int64
	for _, g := range games {
		if g["title"] == "Hades" {
			gid = int64(g["id"].(float64))
		}
		// Unset genres render as Unknown, screenshots are always an array.
		assert.Equal(t, "Unknown", g["genre"])
		assert.NotNil(t, g["screenshots"])
	}
	assert.NotZero(t, gid)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d", gid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	detail := decodeMap(t, rec)
	assert.Equal(t, "Hades", detail["title"])
	assert.Equal(t, "hades", detail["folder_name"])

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/update", gid),
		map[string]string{"title": "Hades", "genre": "Roguelike", "description": "Escape the underworld."})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/games/search?q=had", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	hits := decodeList(t, rec)
	assert.Len(t, hits, 1)
	assert.Equal(t, "Hades", hits[0]["title"])
	assert.Equal(t, "Roguelike", hits[0]["genre"])
	assert.Equal(t, "Switch", hits[0]["console_name"])

	rec = doJSON(t, h, http.MethodGet, "/api/games/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/games/%d", gid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d", gid), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanConsole(t *testing.T) {
	h := setupServer(t, "").Router()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "Hollow Knight"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Celeste.zip", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cid := addConsole(t, h, "Switch", dir)

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/scan", cid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	res := decodeMap(t, rec)
	assert.Equal(t, float64(2), res["added"])
	assert.Equal(t, float64(0), res["errors"])
	assert.Equal(t, float64(1), res["skipped"])

	// Rescanning must not duplicate anything.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/scan", cid), nil)
	res = decodeMap(t, rec)
	assert.Equal(t, float64(0), res["added"])
	assert.Equal(t, float64(3), res["skipped"])

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/consoles/%d/games", cid), nil)
	games := decodeList(t, rec)
	assert.Len(t, games, 2)

	// Scanning a console without a path is a user error.
	other := addConsole(t, h, "PS2", "")
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/consoles/%d/scan", other), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusAndStats(t *testing.T) {
	h := setupServer(t, "").Router()
	cid := addConsole(t, h, "Switch", "")
	gid := addGame(t, h, cid, "Hades")
	other := addGame(t, h, cid, "Celeste")

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d/status", gid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeMap(t, rec)
	assert.Equal(t, false, status["is_completed"])

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/status", gid),
		map[string]interface{}{"is_completed": true, "is_favorite": true, "completed_date_note": "2024"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d/status", gid), nil)
	status = decodeMap(t, rec)
	assert.Equal(t, true, status["is_completed"])
	assert.Equal(t, true, status["is_favorite"])
	assert.Equal(t, "2024", status["completed_date_note"])

	rec = doJSON(t, h, http.MethodGet, "/api/games/by-status?status=completed", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	hits := decodeList(t, rec)
	assert.Len(t, hits, 1)
	assert.Equal(t, "Hades", hits[0]["title"])

	rec = doJSON(t, h, http.MethodGet, "/api/games/by-status?status=deleted", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/games/completed", nil)
	assert.Len(t, decodeList(t, rec), 1)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/consoles/%d/stats", cid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	cstats := decodeMap(t, rec)
	assert.Equal(t, "Switch", cstats["console_name"])
	assert.Equal(t, float64(1), cstats["completed_count"])
	assert.Equal(t, float64(1), cstats["favorites_count"])
	assert.Equal(t, float64(0), cstats["playing_count"])

	rec = doJSON(t, h, http.MethodGet, "/api/stats", nil)
	stats := decodeMap(t, rec)
	assert.Equal(t, float64(1), stats["total_consoles"])
	assert.Equal(t, float64(2), stats["total_games"])
	assert.Equal(t, float64(1), stats["completed_count"])

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/view", other), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/api/recently-viewed", nil)
	viewed := decodeList(t, rec)
	assert.Len(t, viewed, 1)
	assert.Equal(t, "Celeste", viewed[0]["title"])

	rec = doJSON(t, h, http.MethodGet, "/api/recently-added", nil)
	assert.Len(t, decodeList(t, rec), 2)
}

func TestCoverUploadAndServe(t *testing.T) {
	h := setupServer(t, "").Router()
	cid := addConsole(t, h, "Switch", "")
	gid := addGame(t, h, cid, "Hades")

	body, contentType := multipartUpload(t, "file", "cover.png", "image/png", pngBytes(t, 600, 900))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/games/%d/upload-cover", gid), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	coverURL, _ := decodeMap(t, rec)["cover_url"].(string)
	assert.Contains(t, coverURL, fmt.Sprintf("/covers/%d.jpg?t=", gid))

	servePath := coverURL[:strings.IndexByte(coverURL, '?')]
	rec = doJSON(t, h, http.MethodGet, servePath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/games/%d/cover", gid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, servePath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d", gid), nil)
	assert.Equal(t, "", decodeMap(t, rec)["cover_url"])
}

func TestScreenshotUploadAndDelete(t *testing.T) {
	h := setupServer(t, "").Router()
	cid := addConsole(t, h, "Switch", "")
	gid := addGame(t, h, cid, "Hades")

	body, contentType := multipartUpload(t, "file", "shot.png", "image/png", pngBytes(t, 1920, 1080))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/games/%d/upload-screenshot", gid), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	res := decodeMap(t, rec)
	sid := int64(res["screenshot_id"].(float64))
	assert.Equal(t, fmt.Sprintf("/screenshots/%d/1.jpg", gid), res["url"])

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d", gid), nil)
	detail := decodeMap(t, rec)
	assert.Len(t, detail["screenshots"], 1)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/screenshots/%d", sid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d", gid), nil)
	detail = decodeMap(t, rec)
	assert.Len(t, detail["screenshots"], 0)
}

func TestThemeHeaderLifecycle(t *testing.T) {
	h := setupServer(t, "").Router()

	rec := doJSON(t, h, http.MethodGet, "/api/theme/header", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["exists"])

	body, contentType := multipartUpload(t, "file", "header.png", "image/png", pngBytes(t, 800, 200))
	req := httptest.NewRequest(http.MethodPost, "/api/theme/upload-header", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/theme_images/header.png", decodeMap(t, rec)["url"])

	rec = doJSON(t, h, http.MethodGet, "/api/theme/header", nil)
	probe := decodeMap(t, rec)
	assert.Equal(t, true, probe["exists"])
	assert.Equal(t, "/theme_images/header.png", probe["url"])

	// Non-image uploads are rejected by content type.
	body, contentType = multipartUpload(t, "file", "header.txt", "text/plain", []byte("nope"))
	req = httptest.NewRequest(http.MethodPost, "/api/theme/upload-header", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/theme/header", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["deleted"])

	rec = doJSON(t, h, http.MethodGet, "/api/theme/header", nil)
	assert.Equal(t, false, decodeMap(t, rec)["exists"])
}

func TestFetchGameCover(t *testing.T) {
	cover := pngBytes(t, 640, 960)
	var upstream *httptest.Server
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/games":
			assert.Equal(t, "Hades", r.URL.Query().Get("search"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]interface{}{
					{
						"id":               42,
						"name":             "Hades",
						"background_image": upstream.URL + "/bg.png",
						"genres":           []map[string]string{{"name": "Action"}},
					},
				},
			})
		case r.URL.Path == "/bg.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(cover)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	h := setupServer(t, upstream.URL).Router()
	cid := addConsole(t, h, "Switch", "")
	gid := addGame(t, h, cid, "Hades")

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/fetch-cover", gid), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	res := decodeMap(t, rec)
	assert.Equal(t, "Hades", res["title"])
	assert.Equal(t, "/covers/switch/Hades.jpg", res["cover_url"])

	rec = doJSON(t, h, http.MethodGet, "/covers/switch/Hades.jpg", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
}

func TestFetchMetadataWithoutSources(t *testing.T) {
	h := setupServer(t, "").Router()
	cid := addConsole(t, h, "Switch", "")
	gid := addGame(t, h, cid, "Hades")

	// No configured sources means no metadata to apply.
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/fetch-metadata", gid), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
