package metafetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const wikiSearchLimit = 5

// Extract length policy: descriptions shorter than this are discarded, a
// first paragraph below mergeThreshold gets the second merged in, and
// anything above maxDescriptionLen is cut back to three sentences.
const (
	minExtractLen     = 20
	minParagraphLen   = 50
	mergeThreshold    = 100
	maxDescriptionLen = 800
)

var (
	wikiIsPrefixRegexp  = regexp.MustCompile(`(?i)^(is a\s+)`)
	wikiArePrefixRegexp = regexp.MustCompile(`(?i)^(are\s+)`)
	wikiCitationRegexp  = regexp.MustCompile(`\[\d+\]`)

	// Trailing article sections that leak into intro extracts.
	wikiSections = []string{"See also", "Reception", "Gameplay", "Development", "Plot", "Synopsis"}

	strictSkipPatterns = []string{
		"(company)", "(manufacturer)", "(developer)", "(publisher)",
		"(film)", "(movie)", "(band)", "(album)", "(novel)",
		"(tv series)", "(mountain)",
	}
	relaxedSkipPatterns = []string{"(company)", "(manufacturer)", "(tv series)", "(album)", "(band)"}
	companySnippetWords = []string{"company", "founded", "headquartered", "manufacturer"}

	disambiguationSuffixes = []string{" (video game)", " (game)", " (wii)", " (switch)"}
)

// WikipediaClient fetches game descriptions from the MediaWiki API.
type WikipediaClient struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewWikipediaClient builds a client against the given api.php endpoint.
func NewWikipediaClient(endpoint, userAgent string, timeout time.Duration) *WikipediaClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WikipediaClient{
		endpoint:  endpoint,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type wikiSearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Description looks a game up and returns a cleaned intro paragraph, or ""
// when no suitable article exists. consoleName narrows the search ladder
// and may be empty. strict controls how aggressively non-game articles are
// filtered out; callers retry with strict=false on a miss.
func (c *WikipediaClient) Description(ctx context.Context, title, consoleName string, strict bool) (string, error) {
	var queries []string
	if consoleName != "" {
		queries = append(queries,
			fmt.Sprintf("%q (%s video game)", title, consoleName),
			fmt.Sprintf("%q (%s)", title, consoleName),
		)
	}
	queries = append(queries,
		fmt.Sprintf("%q video game", title),
		fmt.Sprintf("%q (video game)", title),
		fmt.Sprintf("%q", title),
	)

	var pageTitle string
	for _, q := range queries {
		hits, err := c.search(ctx, q)
		if err != nil {
			return "", err
		}
		if hit := selectBest(title, hits, strict); hit != nil {
			pageTitle = hit.Title
			break
		}
	}
	if pageTitle == "" {
		return "", nil
	}

	extract, err := c.extract(ctx, pageTitle)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(extract)) < minExtractLen {
		return "", nil
	}
	return cleanExtract(extract), nil
}

func (c *WikipediaClient) search(ctx context.Context, query string) ([]wikiSearchHit, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", wikiSearchLimit))
	params.Set("redirects", "1")
	params.Set("utf8", "1")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("wikipedia search %q: %w", query, err)
	}

	var result struct {
		Query struct {
			Search []wikiSearchHit `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return result.Query.Search, nil
}

func (c *WikipediaClient) extract(ctx context.Context, pageTitle string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts")
	params.Set("titles", pageTitle)
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("utf8", "1")

	body, err := c.get(ctx, params)
	if err != nil {
		return "", fmt.Errorf("wikipedia extract %q: %w", pageTitle, err)
	}

	var result struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode extract response: %w", err)
	}
	for _, page := range result.Query.Pages {
		return page.Extract, nil
	}
	return "", nil
}

func (c *WikipediaClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

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

// selectBest picks the search hit most likely to be the game's own article.
// A hit with clear game indicators and a matching title wins outright; a
// title match without indicators is kept as fallback.
func selectBest(title string, hits []wikiSearchHit, strict bool) *wikiSearchHit {
	titleLower := strings.TrimSpace(strings.ToLower(title))

	var fallback *wikiSearchHit
	for i := range hits {
		hit := &hits[i]
		hitTitle := strings.ToLower(hit.Title)
		snippet := strings.ToLower(hit.Snippet)

		var hasIndicators bool
		if strict {
			if containsAny(hitTitle, strictSkipPatterns) {
				continue
			}
			if containsAny(snippet, companySnippetWords) {
				continue
			}
			hasIndicators = strings.Contains(snippet, "video game") ||
				strings.Contains(snippet, "game is a") ||
				strings.Contains(snippet, "gameplay") ||
				strings.Contains(snippet, "player controls")
		} else {
			if containsAny(hitTitle, relaxedSkipPatterns) {
				continue
			}
			hasIndicators = strings.Contains(snippet, "video game") ||
				strings.Contains(snippet, "game is a") ||
				strings.Contains(snippet, "gameplay") ||
				strings.Contains(snippet, "player controls") ||
				strings.Contains(snippet, "developed by")
		}

		clean := hitTitle
		for _, suffix := range disambiguationSuffixes {
			clean = strings.ReplaceAll(clean, suffix, "")
		}
		goodMatch := titleLower == clean || strings.Contains(clean, titleLower)

		if hasIndicators && goodMatch {
			return hit
		}
		if fallback == nil && goodMatch {
			fallback = hit
		}
	}
	return fallback
}

// cleanExtract trims MediaWiki intro extracts down to one solid paragraph:
// strips copula prefixes, citation markers and trailing section headers,
// merges a too-short first paragraph with the second, and cuts overly long
// text at a sentence boundary. Returns "" when nothing substantial is left.
func cleanExtract(extract string) string {
	desc := strings.TrimSpace(extract)
	desc = wikiIsPrefixRegexp.ReplaceAllString(desc, "")
	desc = wikiArePrefixRegexp.ReplaceAllString(desc, "")
	desc = wikiCitationRegexp.ReplaceAllString(desc, "")

	for _, section := range wikiSections {
		if idx := strings.Index(desc, "\n"+section); idx >= 0 {
			desc = strings.TrimSpace(desc[:idx])
		} else if idx := strings.Index(desc, section); idx >= 0 {
			desc = strings.TrimSpace(desc[:idx])
		}
	}

	var paragraphs []string
	for _, p := range strings.Split(desc, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return ""
	}

	para := paragraphs[0]
	if len(para) < mergeThreshold && len(paragraphs) > 1 {
		para = para + " " + paragraphs[1]
	}

	if len(para) > maxDescriptionLen {
		sentences := strings.Split(para, ". ")
		if len(sentences) > 3 {
			sentences = sentences[:3]
		}
		combined := strings.Join(sentences, ". ")
		if !strings.HasSuffix(combined, ".") {
			combined += "."
		}
		return combined
	}
	if len(para) < minParagraphLen {
		return ""
	}
	return para
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
