package metafetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlatformID(t *testing.T) {
	assert.Equal(t, 10, PlatformID("Switch"))
	assert.Equal(t, 10, PlatformID("  nintendo switch "))
	assert.Equal(t, 15, PlatformID("PS2"))
	assert.Equal(t, 0, PlatformID("Amiga"))
}

func fakeRAWG(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":42,"name":"Hades","released":"2020-09-17","rating":4.45,
			"genres":[{"name":"Action"},{"name":"RPG"}],
			"tags":[{"name":"Singleplayer"},{"name":"Roguelike"},{"name":"Mythology"}]}]}`)
	})
	mux.HandleFunc("/games/42/screenshots", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"image":"https://img/1.jpg"},{"image":"https://img/2.jpg"}]}`)
	})
	return httptest.NewServer(mux)
}

func TestRAWGSearchGame(t *testing.T) {
	srv := fakeRAWG(t)
	defer srv.Close()

	c := NewRAWGClient(srv.URL, "test-key", time.Second)
	game, err := c.SearchGame(context.Background(), "Hades", 10)
	if err != nil {
		t.Fatalf("SearchGame returned error: %v", err)
	}
	if game == nil {
		t.Fatal("expected a game result")
	}
	assert.Equal(t, int64(42), game.ID)
	assert.Equal(t, "Action, RPG", game.GenreText())
	assert.Equal(t, "2020-09-17", game.Released)
	assert.NotEmpty(t, game.Raw)
}

func TestRAWGScreenshots(t *testing.T) {
	srv := fakeRAWG(t)
	defer srv.Close()

	c := NewRAWGClient(srv.URL, "test-key", time.Second)
	shots, err := c.Screenshots(context.Background(), 42, 5)
	if err != nil {
		t.Fatalf("Screenshots returned error: %v", err)
	}
	assert.Len(t, shots, 2)
	assert.Equal(t, "https://img/1.jpg", shots[0].Image)
}

func TestRAWGUnconfigured(t *testing.T) {
	c := NewRAWGClient("http://unused", "", time.Second)
	assert.False(t, c.Configured())
	game, err := c.SearchGame(context.Background(), "Hades", 0)
	assert.NoError(t, err)
	assert.Nil(t, game)
}

func fakeWikipedia(t *testing.T, extract string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			resp := map[string]any{
				"query": map[string]any{
					"search": []map[string]any{
						{"title": "Hades (video game)", "snippet": "a roguelike video game developed by Supergiant"},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		case q.Get("prop") == "extracts":
			resp := map[string]any{
				"query": map[string]any{
					"pages": map[string]any{
						"123": map[string]any{"extract": extract},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
}

func TestWikipediaDescription(t *testing.T) {
	extract := "Hades is a roguelike action role-playing video game developed and published by Supergiant Games.[1] Players defy the god of the dead."
	srv := fakeWikipedia(t, extract)
	defer srv.Close()

	c := NewWikipediaClient(srv.URL, "test-agent", time.Second)
	desc, err := c.Description(context.Background(), "Hades", "Switch", true)
	if err != nil {
		t.Fatalf("Description returned error: %v", err)
	}
	assert.NotContains(t, desc, "[1]")
	assert.Contains(t, desc, "Supergiant Games")
}

func TestWikipediaShortExtractDiscarded(t *testing.T) {
	srv := fakeWikipedia(t, "Too short.")
	defer srv.Close()

	c := NewWikipediaClient(srv.URL, "test-agent", time.Second)
	desc, err := c.Description(context.Background(), "Hades", "", true)
	assert.NoError(t, err)
	assert.Empty(t, desc)
}

func TestSelectBestStrictSkipsCompanies(t *testing.T) {
	hits := []wikiSearchHit{
		{Title: "Supergiant (company)", Snippet: "a video game company founded in 2009"},
		{Title: "Hades (video game)", Snippet: "a roguelike video game with fast gameplay"},
	}
	best := selectBest("Hades", hits, true)
	if best == nil {
		t.Fatal("expected a match")
	}
	assert.Equal(t, "Hades (video game)", best.Title)
}

func TestCleanExtractMergesShortFirstParagraph(t *testing.T) {
	extract := "A short opening line here.\n\nThe second paragraph carries the actual substance of the article text and is plenty long."
	got := cleanExtract(extract)
	assert.Contains(t, got, "short opening")
	assert.Contains(t, got, "actual substance")
}

func TestCleanExtractCapsAtThreeSentences(t *testing.T) {
	sentence := strings.Repeat("word ", 60)
	extract := strings.TrimSpace(sentence) + ". " + strings.TrimSpace(sentence) + ". " +
		strings.TrimSpace(sentence) + ". " + strings.TrimSpace(sentence) + "."
	got := cleanExtract(extract)
	assert.True(t, strings.HasSuffix(got, "."))
	assert.LessOrEqual(t, strings.Count(got, ". "), 2)
}

func TestMergeHybrid(t *testing.T) {
	rawgSrv := fakeRAWG(t)
	defer rawgSrv.Close()
	wikiSrv := fakeWikipedia(t, "Hades is a rogue-lite action dungeon crawler from Supergiant Games where players battle out of the underworld over many runs.")
	defer wikiSrv.Close()

	m := NewMerger(
		NewRAWGClient(rawgSrv.URL, "test-key", time.Second),
		NewWikipediaClient(wikiSrv.URL, "test-agent", time.Second),
	)
	res := m.Merge(context.Background(), "Hades", "Switch")
	assert.Equal(t, "Action, RPG", res.Genre)
	assert.Contains(t, res.Description, "Supergiant Games")
	assert.Contains(t, res.Description, "Released in 2020")
	assert.Contains(t, res.Description, "(Rated 4.45/5)")
	assert.NotEmpty(t, res.Raw)
}

func TestMergeSynthesizesWithoutEncyclopedia(t *testing.T) {
	rawgSrv := fakeRAWG(t)
	defer rawgSrv.Close()
	wikiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"search":[]}}`)
	}))
	defer wikiSrv.Close()

	m := NewMerger(
		NewRAWGClient(rawgSrv.URL, "test-key", time.Second),
		NewWikipediaClient(wikiSrv.URL, "test-agent", time.Second),
	)
	res := m.Merge(context.Background(), "Hades", "")
	assert.Contains(t, res.Description, "Hades (2020)")
	assert.Contains(t, res.Description, "is a action and rpg game")
	assert.Contains(t, res.Description, "featuring roguelike, mythology")
}

func TestMergeRelaxedFallbackAfterStrictError(t *testing.T) {
	// The first (strict-pass) search call fails; the relaxed pass must still
	// run and produce a description.
	calls := 0
	wikiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			resp := map[string]any{
				"query": map[string]any{
					"search": []map[string]any{
						{"title": "Hades (video game)", "snippet": "a roguelike video game developed by Supergiant"},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		case q.Get("prop") == "extracts":
			resp := map[string]any{
				"query": map[string]any{
					"pages": map[string]any{
						"123": map[string]any{"extract": "Hades is a roguelike action role-playing video game developed and published by Supergiant Games."},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	defer wikiSrv.Close()

	m := NewMerger(
		NewRAWGClient("http://unused", "", time.Second),
		NewWikipediaClient(wikiSrv.URL, "test-agent", time.Second),
	)
	res := m.Merge(context.Background(), "Hades", "")
	assert.Contains(t, res.Description, "Supergiant Games")
	assert.Greater(t, calls, 1)
}

func TestMergeCapsLongDescription(t *testing.T) {
	sentence := strings.Repeat("x", 300)
	extract := sentence + ". " + sentence + ". " + sentence + "."
	wikiSrv := fakeWikipedia(t, extract)
	defer wikiSrv.Close()

	m := NewMerger(
		NewRAWGClient("http://unused", "", time.Second),
		NewWikipediaClient(wikiSrv.URL, "test-agent", time.Second),
	)
	res := m.Merge(context.Background(), "Hades", "")
	assert.Len(t, res.Description, maxDescriptionLen+3)
	assert.True(t, strings.HasSuffix(res.Description, "..."))
}

func TestMergeHybridRetruncatesOverCap(t *testing.T) {
	rawgSrv := fakeRAWG(t)
	defer rawgSrv.Close()
	// On its own the paragraph fits; the appended genre/year/rating clauses
	// push it over the cap.
	wikiSrv := fakeWikipedia(t, strings.Repeat("z", 780))
	defer wikiSrv.Close()

	m := NewMerger(
		NewRAWGClient(rawgSrv.URL, "test-key", time.Second),
		NewWikipediaClient(wikiSrv.URL, "test-agent", time.Second),
	)
	res := m.Merge(context.Background(), "Hades", "Switch")
	assert.Len(t, res.Description, maxDescriptionLen+3)
	assert.True(t, strings.HasSuffix(res.Description, "..."))
}

func TestMergeAllSourcesEmpty(t *testing.T) {
	wikiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"search":[]}}`)
	}))
	defer wikiSrv.Close()

	m := NewMerger(
		NewRAWGClient("http://unused", "", time.Second),
		NewWikipediaClient(wikiSrv.URL, "test-agent", time.Second),
	)
	res := m.Merge(context.Background(), "Unknown Game", "")
	assert.True(t, res.Empty())
}
