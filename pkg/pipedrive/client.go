// Package pipedrive provides rate-limited read access to the Pipedrive v1
// REST API: the deals listing, person detail and deal detail.
package pipedrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.pipedrive.com/v1"

// Client defines the CRM operations used by the extractor. Every call waits
// on the client's rate gate before issuing its request.
type Client interface {
	// DealSummary returns the total number of deals in the listing.
	DealSummary(ctx context.Context) (int, error)
	// ListDeals returns one page of the deals listing.
	ListDeals(ctx context.Context, start, limit int) ([]DealItem, error)
	// GetPerson returns a person's detail, or nil if the API has no data for it.
	GetPerson(ctx context.Context, id string) (*PersonDetail, error)
	// GetDeal returns a deal's detail, or nil if the API has no data for it.
	GetDeal(ctx context.Context, id string) (*DealDetail, error)
}

// Gate paces outbound requests. *resilience.Gate satisfies it.
type Gate interface {
	Wait(ctx context.Context) error
}

// StatusError is returned for any non-200 response. It is never retried.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pipedrive: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL used for person and deal
// detail requests.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithListingBaseURL sets the company-domain base URL used for the deals
// listing. Defaults to the base URL.
func WithListingBaseURL(u string) Option {
	return func(c *httpClient) {
		c.listingBaseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithGate sets the rate gate shared by every request.
func WithGate(g Gate) Option {
	return func(c *httpClient) {
		c.gate = g
	}
}

type httpClient struct {
	token          string
	baseURL        string
	listingBaseURL string
	http           *http.Client
	gate           Gate
}

// NewClient creates a Pipedrive client authenticating with a static API token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.listingBaseURL == "" {
		c.listingBaseURL = c.baseURL
	}
	return c
}

func (c *httpClient) DealSummary(ctx context.Context) (int, error) {
	body, err := c.get(ctx, c.listingBaseURL, "/deals", url.Values{
		"start":       {"0"},
		"limit":       {"100"},
		"get_summary": {"1"},
	})
	if err != nil {
		return 0, err
	}
	total := body.Get("additional_data.summary.total_count")
	if total.Type != gjson.Number {
		return 0, eris.New("pipedrive: summary has no total_count")
	}
	return int(total.Int()), nil
}

func (c *httpClient) ListDeals(ctx context.Context, start, limit int) ([]DealItem, error) {
	body, err := c.get(ctx, c.listingBaseURL, "/deals", url.Values{
		"start": {strconv.Itoa(start)},
		"limit": {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}
	var items []DealItem
	for _, res := range body.Get("data").Array() {
		items = append(items, parseDealItem(res))
	}
	return items, nil
}

func (c *httpClient) GetPerson(ctx context.Context, id string) (*PersonDetail, error) {
	body, err := c.get(ctx, c.baseURL, "/persons/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	data := body.Get("data")
	if !data.IsObject() {
		return nil, nil
	}
	return parsePersonDetail(data), nil
}

func (c *httpClient) GetDeal(ctx context.Context, id string) (*DealDetail, error) {
	body, err := c.get(ctx, c.baseURL, "/deals/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	data := body.Get("data")
	if !data.IsObject() {
		return nil, nil
	}
	return parseDealDetail(data), nil
}

// get waits on the gate, issues one GET and returns the parsed JSON body.
// Transport errors are wrapped but keep their chain so read timeouts stay
// detectable.
func (c *httpClient) get(ctx context.Context, base, path string, params url.Values) (gjson.Result, error) {
	if c.gate != nil {
		if err := c.gate.Wait(ctx); err != nil {
			return gjson.Result{}, eris.Wrap(err, "pipedrive: rate limit")
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.token)
	endpoint := base + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, eris.Wrap(err, "pipedrive: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, eris.Wrapf(err, "pipedrive: GET %s", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, eris.Wrapf(err, "pipedrive: read %s", endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &StatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: truncate(string(respBody), 512)}
	}

	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, eris.Errorf("pipedrive: invalid JSON from %s", endpoint)
	}
	return gjson.ParseBytes(respBody), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
