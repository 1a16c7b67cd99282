package metafetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	rawgSearchPageSize = 5
	maxScreenshots     = 5
)

// RAWGGame is the subset of a game-database search result we act on. Raw
// keeps the full original object so it can be archived next to the game.
type RAWGGame struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Released        string      `json:"released"`
	Rating          float64     `json:"rating"`
	BackgroundImage string      `json:"background_image"`
	Genres          []NamedItem `json:"genres"`
	Tags            []NamedItem `json:"tags"`

	Raw json.RawMessage `json:"-"`
}

// NamedItem is the {id,name} shape used for genres and tags.
type NamedItem struct {
	Name string `json:"name"`
}

// RAWGScreenshot is one screenshot entry of a game.
type RAWGScreenshot struct {
	Image string `json:"image"`
}

// RAWGClient queries the RAWG game database.
type RAWGClient struct {
	base       string
	key        string
	httpClient *http.Client
}

// NewRAWGClient builds a client. An empty key yields an unconfigured client;
// Configured lets callers skip the source instead of erroring per request.
func NewRAWGClient(base, key string, timeout time.Duration) *RAWGClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RAWGClient{
		base: strings.TrimSuffix(base, "/"),
		key:  strings.TrimSpace(key),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether an API key is present.
func (c *RAWGClient) Configured() bool {
	return c != nil && c.key != ""
}

// SearchGame searches for a title, optionally restricted to a platform id
// (0 means no restriction), and returns the best match or nil when the
// database has none.
func (c *RAWGClient) SearchGame(ctx context.Context, title string, platformID int) (*RAWGGame, error) {
	if !c.Configured() {
		return nil, nil
	}

	query := url.Values{}
	query.Set("search", title)
	query.Set("page_size", strconv.Itoa(rawgSearchPageSize))
	query.Set("key", c.key)
	if platformID > 0 {
		query.Set("platforms", strconv.Itoa(platformID))
	}

	body, err := c.get(ctx, c.base+"/games?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("search game %q: %w", title, err)
	}

	var result struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	var game RAWGGame
	if err := json.Unmarshal(result.Results[0], &game); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	game.Raw = result.Results[0]
	return &game, nil
}

// Screenshots fetches up to limit screenshots for a game id.
func (c *RAWGClient) Screenshots(ctx context.Context, gameID int64, limit int) ([]RAWGScreenshot, error) {
	if !c.Configured() {
		return nil, nil
	}
	if limit <= 0 || limit > maxScreenshots {
		limit = maxScreenshots
	}

	query := url.Values{}
	query.Set("page_size", strconv.Itoa(limit))
	query.Set("key", c.key)

	body, err := c.get(ctx, fmt.Sprintf("%s/games/%d/screenshots?%s", c.base, gameID, query.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch screenshots for game %d: %w", gameID, err)
	}

	var result struct {
		Results []RAWGScreenshot `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode screenshots: %w", err)
	}
	if len(result.Results) > limit {
		result.Results = result.Results[:limit]
	}
	return result.Results, nil
}

// GenreText joins the genre names the way they are stored on a game row.
func (g *RAWGGame) GenreText() string {
	names := make([]string, 0, len(g.Genres))
	for _, item := range g.Genres {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

func (c *RAWGClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}
