package server

import (
	"net/http"

	"github.com/xxxsen/gamevault/internal/model"
)

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
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
	status, err := s.statuses.GetOrCreate(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.StatusPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if _, err := s.games.Get(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.statuses.Update(ctx, id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
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
	if err := s.views.Record(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleRecentlyViewed(w http.ResponseWriter, r *http.Request) {
	limit := limitQuery(r, "limit", 5, 1, 20)
	games, err := s.views.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleRecentlyAdded(w http.ResponseWriter, r *http.Request) {
	limit := limitQuery(r, "limit", 10, 1, 50)
	games, err := s.games.RecentlyAdded(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totalConsoles, err := s.consoles.Count(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totalGames, err := s.games.Count(ctx, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := s.statuses.Counts(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Stats{
		TotalConsoles: totalConsoles,
		TotalGames:    totalGames,
		StatusCounts:  counts,
	})
}
