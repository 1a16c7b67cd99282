package metafetch

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Result is the merged metadata for one game. Empty fields mean the sources
// had nothing; Raw carries the full game-database object when one matched.
type Result struct {
	Genre       string
	Description string
	Raw         json.RawMessage
}

// Empty reports whether no source produced anything usable.
func (r Result) Empty() bool {
	return r.Genre == "" && r.Description == ""
}

// Merger combines the game-database and encyclopedia sources into one
// description. Either client may be nil/unconfigured; Merge degrades
// gracefully and never fails the whole lookup over one source.
type Merger struct {
	rawg *RAWGClient
	wiki *WikipediaClient
}

// NewMerger builds a merger over the two sources.
func NewMerger(rawg *RAWGClient, wiki *WikipediaClient) *Merger {
	return &Merger{rawg: rawg, wiki: wiki}
}

// Merge fetches metadata for a title. consoleName steers platform filtering
// and the encyclopedia search ladder; it may be empty.
func (m *Merger) Merge(ctx context.Context, title, consoleName string) Result {
	logger := logutil.GetLogger(ctx).With(zap.String("title", title))

	var game *RAWGGame
	if m.rawg.Configured() {
		var err error
		game, err = m.rawg.SearchGame(ctx, title, PlatformID(consoleName))
		if err != nil {
			logger.Warn("game database search failed", zap.Error(err))
			game = nil
		}
	}

	var wikiDesc string
	if m.wiki != nil {
		desc, err := m.wiki.Description(ctx, title, consoleName, true)
		if err != nil {
			logger.Warn("encyclopedia lookup failed", zap.Error(err))
		}
		// A strict-pass failure must not veto the relaxed retry; any empty
		// result falls through.
		if desc == "" {
			desc, err = m.wiki.Description(ctx, title, consoleName, false)
			if err != nil {
				logger.Warn("relaxed encyclopedia lookup failed", zap.Error(err))
			}
		}
		wikiDesc = desc
	}

	res := Result{}
	if game != nil {
		res.Genre = game.GenreText()
		res.Raw = game.Raw
	}

	switch {
	case wikiDesc != "" && game != nil:
		res.Description = hybridDescription(wikiDesc, game)
	case wikiDesc != "":
		res.Description = capDescription(wikiDesc)
	case game != nil:
		res.Description = synthesizeDescription(game)
	}
	return res
}

// hybridDescription augments an encyclopedia paragraph with database facts
// the paragraph does not already state.
func hybridDescription(para string, game *RAWGGame) string {
	paraLower := strings.ToLower(para)
	parts := []string{para}

	var genres []string
	for _, g := range game.Genres {
		genres = append(genres, g.Name)
	}
	if len(genres) > 0 {
		mentioned := false
		for _, g := range genres {
			if strings.Contains(paraLower, strings.ToLower(g)) {
				mentioned = true
				break
			}
		}
		if !mentioned {
			names := genres
			if len(names) > 2 {
				names = names[:2]
			}
			parts = append(parts, "A "+strings.ToLower(strings.Join(names, " and "))+" game")
		}
	}

	if year := releaseYear(game.Released); year != "" && !strings.Contains(para, year) {
		parts = append(parts, "Released in "+year)
	}

	if game.Rating > 0 {
		rating := strconv.FormatFloat(game.Rating, 'g', -1, 64)
		if !strings.Contains(para, rating) {
			parts = append(parts, "(Rated "+rating+"/5)")
		}
	}

	full := strings.Join(parts, ". ")
	if len(full) > maxDescriptionLen {
		// Keep the paragraph whole, then cap.
		full = para + ". " + strings.Join(parts[1:], ". ")
		return capDescription(full)
	}
	return full
}

// synthesizeDescription builds a sentence purely from database facts, used
// when no encyclopedia article matched.
func synthesizeDescription(game *RAWGGame) string {
	var parts []string

	if game.Name != "" {
		if year := releaseYear(game.Released); year != "" {
			parts = append(parts, game.Name+" ("+year+")")
		} else {
			parts = append(parts, game.Name)
		}
	}

	var genres []string
	for _, g := range game.Genres {
		genres = append(genres, g.Name)
	}
	if len(genres) > 0 {
		if len(genres) > 3 {
			genres = genres[:3]
		}
		parts = append(parts, "is a "+strings.ToLower(strings.Join(genres, " and "))+" game")
	}

	var notable []string
	for _, t := range game.Tags {
		switch strings.ToLower(t.Name) {
		case "exclusive", "multiplayer", "singleplayer":
			continue
		}
		notable = append(notable, t.Name)
		if len(notable) == 2 {
			break
		}
	}
	if len(notable) > 0 {
		parts = append(parts, "featuring "+strings.ToLower(strings.Join(notable, ", ")))
	}

	if game.Rating > 0 {
		parts = append(parts, "(Rated "+strconv.FormatFloat(game.Rating, 'g', -1, 64)+"/5)")
	}

	if len(parts) == 0 {
		return ""
	}
	return capDescription(strings.Join(parts, ". ") + ".")
}

func capDescription(s string) string {
	if len(s) > maxDescriptionLen {
		return s[:maxDescriptionLen] + "..."
	}
	return s
}

func releaseYear(released string) string {
	if released == "" {
		return ""
	}
	if idx := strings.IndexByte(released, '-'); idx > 0 {
		return released[:idx]
	}
	return released
}
