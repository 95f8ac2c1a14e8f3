package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

type Options struct {
	BaseURL   string
	UserAgent string
	Delay     time.Duration
	Client    *http.Client
}

// WikipediaFetcher pulls article plain text through the MediaWiki API.
// Calls are rate limited with a fixed delay and disambiguation pages are
// resolved to the candidate closest to the requested topic.
type WikipediaFetcher struct {
	baseURL   string
	userAgent string
	delay     time.Duration
	client    *http.Client
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewWikipediaFetcher(opts Options) *WikipediaFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "scriptforge/1.0 (research tool)"
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WikipediaFetcher{
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		delay:     opts.Delay,
		client:    opts.Client,
		sleep:     sleepCtx,
	}
}

// Fetch resolves a topic to its best-matching article and returns the full
// plain-text body. Missing topics yield ErrNotFound.
func (f *WikipediaFetcher) Fetch(ctx context.Context, topic string) (*model.SourceDocument, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", appErr.ErrInvalid)
	}
	titles, err := f.SearchTitles(ctx, topic)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: no wikipedia articles for %q", appErr.ErrNotFound, topic)
	}
	doc, err := f.extractArticle(ctx, titles[0])
	if err != nil {
		return nil, err
	}
	if isDisambiguation(doc) {
		if picked := bestCandidate(titles[1:], topic); picked != "" {
			logutil.GetLogger(ctx).Debug("resolving disambiguation page",
				zap.String("topic", topic), zap.String("picked", picked))
			doc, err = f.extractArticle(ctx, picked)
			if err != nil {
				return nil, err
			}
		}
	}
	doc.SourceID = SourceID(doc.Title)
	doc.FetchedAt = time.Now().Unix()
	return doc, nil
}

// SearchTitles returns candidate article titles for a query via the
// opensearch endpoint, best match first.
func (f *WikipediaFetcher) SearchTitles(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", "10")
	params.Set("format", "json")
	body, err := f.get(ctx, params)
	if err != nil {
		return nil, err
	}
	// opensearch replies [query, titles, descriptions, urls]
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode opensearch response: %w", err)
	}
	if len(raw) < 2 {
		return nil, nil
	}
	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("decode opensearch titles: %w", err)
	}
	return titles, nil
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Missing *bool  `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

func (f *WikipediaFetcher) extractArticle(ctx context.Context, title string) (*model.SourceDocument, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("titles", title)
	params.Set("prop", "extracts|info")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	body, err := f.get(ctx, params)
	if err != nil {
		return nil, err
	}
	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}
	for _, page := range resp.Query.Pages {
		if page.Missing != nil {
			continue
		}
		pageURL := page.FullURL
		if pageURL == "" {
			pageURL = "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(page.Title, " ", "_")
		}
		return &model.SourceDocument{
			Title:   page.Title,
			URL:     pageURL,
			RawText: page.Extract,
		}, nil
	}
	return nil, fmt.Errorf("%w: article %q is missing", appErr.ErrNotFound, title)
}

func (f *WikipediaFetcher) get(ctx context.Context, params url.Values) ([]byte, error) {
	if f.delay > 0 {
		if err := f.sleep(ctx, f.delay); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia request: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

func isDisambiguation(doc *model.SourceDocument) bool {
	return strings.Contains(strings.ToLower(doc.Title), "disambiguation") ||
		strings.Contains(strings.ToLower(doc.RawText), "may refer to")
}

// bestCandidate scores candidates by how many of the topic's words they
// contain and returns the highest scorer, skipping other disambiguation
// titles.
func bestCandidate(candidates []string, topic string) string {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) == 0 {
		return ""
	}
	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		if strings.Contains(lower, "disambiguation") {
			continue
		}
		hits := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		score := float64(hits) / float64(len(words))
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best
}

// SourceID derives a stable identifier from an article title.
func SourceID(title string) string {
	var b strings.Builder
	b.WriteString("wiki-")
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > len("wiki-") {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
