// Package server exposes the catalog over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/config"
	"github.com/xxxsen/gamevault/internal/db"
	"github.com/xxxsen/gamevault/internal/media"
	"github.com/xxxsen/gamevault/internal/metafetch"
)

// Server wires the catalog DAOs, media store and metadata sources into an
// HTTP handler.
type Server struct {
	cfg *config.Config

	consoles *db.ConsoleDAO
	games    *db.GameDAO
	shots    *db.ScreenshotDAO
	statuses *db.StatusDAO
	views    *db.ViewDAO

	store      media.Store
	rawg       *metafetch.RAWGClient
	merger     *metafetch.Merger
	downloader *media.Downloader
}

// New builds a server over the globally configured database.
func New(cfg *config.Config, store media.Store, rawg *metafetch.RAWGClient, wiki *metafetch.WikipediaClient) (*Server, error) {
	consoles, err := db.NewConsoleDAO()
	if err != nil {
		return nil, err
	}
	games, err := db.NewGameDAO()
	if err != nil {
		return nil, err
	}
	shots, err := db.NewScreenshotDAO()
	if err != nil {
		return nil, err
	}
	statuses, err := db.NewStatusDAO()
	if err != nil {
		return nil, err
	}
	views, err := db.NewViewDAO()
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:        cfg,
		consoles:   consoles,
		games:      games,
		shots:      shots,
		statuses:   statuses,
		views:      views,
		store:      store,
		rawg:       rawg,
		merger:     metafetch.NewMerger(rawg, wiki),
		downloader: media.NewDownloader(time.Duration(cfg.RAWG.TimeoutSeconds) * time.Second),
	}, nil
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/consoles", func(r chi.Router) {
			r.Get("/", s.handleListConsoles)
			r.Post("/", s.handleAddConsole)
			r.Put("/{id}", s.handleUpdateConsole)
			r.Delete("/{id}", s.handleDeleteConsole)
			r.Post("/{id}/scan", s.handleScanConsole)
			r.Get("/{id}/stats", s.handleConsoleStats)
			r.Get("/{id}/games", s.handleListGames)
			r.Post("/{id}/games", s.handleAddGame)
			r.Post("/{id}/games/bulk", s.handleAddGamesBulk)
			r.Get("/{id}/games/by-status", s.handleConsoleGamesByStatus)
			r.Post("/{id}/fetch-metadata", s.handleFetchConsoleMetadata)
			r.Post("/{id}/fetch-covers", s.handleFetchConsoleCovers)
			r.Post("/{id}/fetch-screenshots", s.handleFetchConsoleScreenshots)
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/search", s.handleSearchGames)
			r.Get("/by-status", s.handleGamesByStatus)
			r.Get("/completed", s.handleCompletedGames)
			r.Get("/{id}", s.handleGameDetail)
			r.Post("/{id}/update", s.handleUpdateGame)
			r.Delete("/{id}", s.handleDeleteGame)
			r.Post("/{id}/fetch-metadata", s.handleFetchGameMetadata)
			r.Post("/{id}/fetch-cover", s.handleFetchGameCover)
			r.Post("/{id}/fetch-screenshots", s.handleFetchGameScreenshots)
			r.Post("/{id}/upload-cover", s.handleUploadCover)
			r.Post("/{id}/cover-from-url", s.handleCoverFromURL)
			r.Delete("/{id}/cover", s.handleDeleteCover)
			r.Post("/{id}/upload-screenshot", s.handleUploadScreenshot)
			r.Post("/{id}/screenshot-from-url", s.handleScreenshotFromURL)
			r.Get("/{id}/status", s.handleGetStatus)
			r.Post("/{id}/status", s.handleUpdateStatus)
			r.Post("/{id}/view", s.handleRecordView)
		})

		r.Delete("/screenshots/{id}", s.handleDeleteScreenshot)
		r.Get("/recently-viewed", s.handleRecentlyViewed)
		r.Get("/recently-added", s.handleRecentlyAdded)
		r.Get("/stats", s.handleStats)

		r.Route("/theme", func(r chi.Router) {
			r.Get("/headers", s.handleListThemeHeaders)
			r.Get("/header", s.handleProbeThemeHeader)
			r.Post("/upload-header", s.handleUploadThemeHeader)
			r.Delete("/header", s.handleDeleteThemeHeader)
		})
	})

	// Media artifacts are served straight out of the store.
	for _, prefix := range []string{"/covers", "/screenshots", "/metadata", "/theme_images", "/headers"} {
		r.Get(prefix+"/*", s.handleServeMedia)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Bind,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("bind", s.cfg.Bind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "gamevault api",
		"health":  "/api/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := db.Default().QueryRowContext(r.Context(), "SELECT 1").Scan(new(int)); err != nil {
		dbOK = false
	}
	status := "ok"
	if !dbOK {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"database": dbOK,
	})
}
