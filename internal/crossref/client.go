// Package crossref resolves bibliographic metadata through DOI content
// negotiation and the Crossref works search API.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bibclean/internal/csl"
	"bibclean/internal/similarity"
)

const (
	// DOIBaseURL is the DOI resolution endpoint.
	DOIBaseURL = "https://doi.org"

	// APIBaseURL is the Crossref REST API base URL.
	APIBaseURL = "https://api.crossref.org"

	// CSLJSONAccept requests CSL-JSON via content negotiation.
	CSLJSONAccept = "application/vnd.citationstyles.csl+json"

	// DefaultTimeout bounds each lookup so a single record cannot stall
	// the whole run.
	DefaultTimeout = 10 * time.Second

	// RateLimit keeps request volume inside Crossref's polite-pool guidance.
	RateLimit = 5.0

	// DefaultSearchThreshold is the minimum title similarity a search
	// candidate must strictly exceed to be accepted.
	DefaultSearchThreshold = 0.7

	// DefaultSearchRows is the number of candidate works requested per search.
	DefaultSearchRows = 20
)

// Client is a rate-limited HTTP client for DOI and Crossref lookups.
type Client struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	doiBaseURL      string
	apiBaseURL      string
	mailto          string
	searchThreshold float64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides both registry base URLs (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.doiBaseURL = u
		c.apiBaseURL = u
	}
}

// WithMailto identifies the operator to Crossref via the User-Agent,
// which routes requests into the polite pool.
func WithMailto(mailto string) ClientOption {
	return func(c *Client) {
		c.mailto = mailto
	}
}

// WithSearchThreshold sets the title-similarity acceptance threshold for
// search results.
func WithSearchThreshold(t float64) ClientOption {
	return func(c *Client) {
		c.searchThreshold = t
	}
}

// NewClient creates a metadata client with a bounded per-request timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		limiter:         rate.NewLimiter(rate.Limit(RateLimit), 1),
		doiBaseURL:      DOIBaseURL,
		apiBaseURL:      APIBaseURL,
		searchThreshold: DefaultSearchThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// userAgent identifies the tool (and operator, when configured) to the registry.
func (c *Client) userAgent() string {
	if c.mailto != "" {
		return fmt.Sprintf("bibclean (mailto:%s)", c.mailto)
	}
	return "bibclean"
}

// FetchByDOI retrieves the CSL-JSON metadata document for a DOI.
// Returns ErrNotFound when the DOI does not resolve; other failures are
// typed so callers can absorb them uniformly.
func (c *Client) FetchByDOI(ctx context.Context, doi string) (*csl.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.doiBaseURL + "/" + NormalizeDOI(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", CSLJSONAccept)
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, doi)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, URL: u, DOI: doi}
	}

	var doc csl.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parsing CSL-JSON: %v", ErrInvalidResponse, err)
	}

	return &doc, nil
}

// searchItem is the slice of a Crossref work needed for candidate scoring.
type searchItem struct {
	Title    csl.StringOrList `json:"title"`
	Subtitle csl.StringOrList `json:"subtitle"`
	DOI      string           `json:"DOI"`
}

// fullTitle joins title and subtitle the same way the reconciler's title
// gate does, so scoring and gating agree.
func (it searchItem) fullTitle() string {
	title := it.Title.String()
	if title == "" {
		return ""
	}
	if sub := it.Subtitle.String(); sub != "" {
		return title + ": " + sub
	}
	return title
}

// SearchDOI searches Crossref for a work matching the given title (and
// optionally first author) and returns the DOI of the best-scoring
// candidate. The candidate's title similarity must strictly exceed the
// acceptance threshold; otherwise "" is returned with no error.
func (c *Client) SearchDOI(ctx context.Context, title, author string) (string, error) {
	if title == "" {
		return "", nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	query := "title:" + title
	if author != "" {
		query += " author:" + author
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("rows", fmt.Sprint(DefaultSearchRows))
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	u := c.apiBaseURL + "/works?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, URL: c.apiBaseURL + "/works"}
	}

	var wrapper struct {
		Message struct {
			Items []searchItem `json:"items"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return "", fmt.Errorf("%w: parsing search results: %v", ErrInvalidResponse, err)
	}

	queryTitle := strings.ToLower(title)
	bestDOI := ""
	bestScore := 0.0

	for _, item := range wrapper.Message.Items {
		candidate := item.fullTitle()
		if candidate == "" || item.DOI == "" {
			continue
		}
		score := similarity.Ratio(queryTitle, strings.ToLower(candidate))
		if score > bestScore {
			bestScore = score
			bestDOI = item.DOI
		}
	}

	if bestScore > c.searchThreshold {
		return bestDOI, nil
	}
	return "", nil
}

// NormalizeDOI normalizes a DOI for lookup and comparison: trims common
// URL and prefix forms and lowercases.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}
