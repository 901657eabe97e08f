// Package fetch provides the external-information fetchers injected into
// the enricher: web search, weather, and news. Each fetcher returns a
// preformatted text block or an error; the rest of the core treats them as
// opaque capabilities.
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
)

// Func is the shape of every external lookup: query in, text block out.
// Implementations must honor ctx; a timed-out call returns an error and the
// cache treats it as a failed fetch.
type Func func(ctx context.Context, query string) (string, error)

const defaultTimeout = 10 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "ether/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// =============================================================================
// WEB SEARCH (DuckDuckGo Instant Answer API)
// =============================================================================

// WebSearcher queries the DuckDuckGo Instant Answer API and formats the
// abstract plus related topics into numbered results.
type WebSearcher struct {
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewWebSearcher creates a web search fetcher. baseURL defaults to the
// public DuckDuckGo API endpoint.
func NewWebSearcher(baseURL string, maxResults int, timeout time.Duration) *WebSearcher {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com/"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearcher{
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     newHTTPClient(timeout),
	}
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Search implements Func for general web queries.
func (w *WebSearcher) Search(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	var data ddgResponse
	if err := getJSON(ctx, w.client, w.baseURL+"?"+q.Encode(), &data); err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}

	type result struct {
		title, snippet, source string
	}
	results := []result{}
	if data.AbstractText != "" {
		title := data.Heading
		if title == "" {
			title = "Instant Answer"
		}
		results = append(results, result{title, data.AbstractText, data.AbstractURL})
	}
	for _, topic := range data.RelatedTopics {
		if len(results) >= w.maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		title := topic.Text
		if idx := strings.Index(title, " - "); idx > 0 {
			title = title[:idx]
		}
		results = append(results, result{title, topic.Text, topic.FirstURL})
	}
	if len(results) == 0 {
		// No instant answer or topics; fall back to extracting text from
		// the abstract page itself when one is referenced.
		if data.AbstractURL != "" {
			text, err := w.fetchPageText(ctx, data.AbstractURL)
			if err == nil && text != "" {
				return fmt.Sprintf("1. %s\n   %s\n   Source: %s", query, text, data.AbstractURL), nil
			}
		}
		return "", fmt.Errorf("no results for %q", query)
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.title, r.snippet)
		if r.source != "" {
			fmt.Fprintf(&b, "   Source: %s\n", r.source)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// fetchPageText downloads a page and extracts its visible text.
func (w *WebSearcher) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ether/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return ExtractText(string(body))
}

// =============================================================================
// WEATHER (wttr.in JSON)
// =============================================================================

// WeatherFetcher fetches current conditions for a location from a wttr.in
// compatible endpoint.
type WeatherFetcher struct {
	baseURL string
	client  *http.Client
}

// NewWeatherFetcher creates a weather fetcher. baseURL defaults to the
// public wttr.in service.
func NewWeatherFetcher(baseURL string, timeout time.Duration) *WeatherFetcher {
	if baseURL == "" {
		baseURL = "https://wttr.in"
	}
	return &WeatherFetcher{baseURL: baseURL, client: newHTTPClient(timeout)}
}

type wttrResponse struct {
	CurrentCondition []struct {
		TempC       string `json:"temp_C"`
		Humidity    string `json:"humidity"`
		WindKmph    string `json:"windspeedKmph"`
		WeatherDesc []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

// Fetch implements Func: the query is the location.
func (w *WeatherFetcher) Fetch(ctx context.Context, location string) (string, error) {
	u := fmt.Sprintf("%s/%s?format=j1", w.baseURL, url.PathEscape(location))

	var data wttrResponse
	if err := getJSON(ctx, w.client, u, &data); err != nil {
		return "", fmt.Errorf("weather lookup failed: %w", err)
	}
	if len(data.CurrentCondition) == 0 {
		return "", fmt.Errorf("no weather data for %q", location)
	}

	cur := data.CurrentCondition[0]
	condition := ""
	if len(cur.WeatherDesc) > 0 {
		condition = cur.WeatherDesc[0].Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Temperature: %s C\n", cur.TempC)
	if condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", condition)
	}
	fmt.Fprintf(&b, "Humidity: %s%%\n", cur.Humidity)
	fmt.Fprintf(&b, "Wind: %s km/h", cur.WindKmph)
	return b.String(), nil
}

// =============================================================================
// NEWS (JSON feed)
// =============================================================================

// NewsFetcher pulls headlines for a topic from a JSON feed endpoint. The
// endpoint receives the topic as a "topic" query parameter and responds
// with {"articles": [{"title", "description", "source"}]}.
type NewsFetcher struct {
	baseURL     string
	maxArticles int
	client      *http.Client
}

// NewNewsFetcher creates a news fetcher for the given feed endpoint.
func NewNewsFetcher(baseURL string, maxArticles int, timeout time.Duration) *NewsFetcher {
	if maxArticles <= 0 {
		maxArticles = 5
	}
	return &NewsFetcher{
		baseURL:     baseURL,
		maxArticles: maxArticles,
		client:      newHTTPClient(timeout),
	}
}

type newsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Source      string `json:"source"`
	} `json:"articles"`
}

// Fetch implements Func: the query is the news topic.
func (n *NewsFetcher) Fetch(ctx context.Context, topic string) (string, error) {
	if n.baseURL == "" {
		return "", fmt.Errorf("no news endpoint configured")
	}

	q := url.Values{}
	q.Set("topic", topic)

	var data newsResponse
	if err := getJSON(ctx, n.client, n.baseURL+"?"+q.Encode(), &data); err != nil {
		return "", fmt.Errorf("news lookup failed: %w", err)
	}
	if len(data.Articles) == 0 {
		return "", fmt.Errorf("no articles for %q", topic)
	}

	var b strings.Builder
	for i, a := range data.Articles {
		if i >= n.maxArticles {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Title)
		if a.Description != "" {
			fmt.Fprintf(&b, "   %s\n", a.Description)
		}
		if a.Source != "" {
			fmt.Fprintf(&b, "   Source: %s\n", a.Source)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
