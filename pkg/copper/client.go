// Package copper provides a client for the Copper CRM developer API.
package copper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/summit-goods/commission-cli/internal/resilience"
)

// Custom field definition ids on the company record.
const (
	FieldActiveCustomer = 712751
	FieldAccountOrderID = 698467
	FieldAccountType    = 675914
	FieldAccountID      = 713477
	FieldRegion         = 680701
)

// Client defines the Copper operations used by the sync pipeline.
type Client interface {
	// ListActiveCompanies pages through the company search filtered to
	// active customers and returns every match.
	ListActiveCompanies(ctx context.Context) ([]Company, error)
}

// Address is a company's street address in Copper.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CustomField is an untyped custom field value; the value shape varies
// per field definition.
type CustomField struct {
	DefinitionID int64           `json:"custom_field_definition_id"`
	Value        json.RawMessage `json:"value"`
}

// Company is the subset of the Copper company record the sync reads.
type Company struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	AssigneeID   int64         `json:"assignee_id"`
	Address      *Address      `json:"address"`
	EmailDomain  string        `json:"email_domain"`
	DateModified int64         `json:"date_modified"`
	CustomFields []CustomField `json:"custom_fields"`
}

// CustomField returns the raw value for a field definition id, or nil
// if the company does not carry it.
func (c Company) CustomField(definitionID int64) json.RawMessage {
	for _, cf := range c.CustomFields {
		if cf.DefinitionID == definitionID {
			return cf.Value
		}
	}
	return nil
}

// Option configures the Copper client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPageSize sets the search page size.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRateLimit sets the request rate in requests per second. Copper
// allows at most 10.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

type httpClient struct {
	apiKey    string
	userEmail string
	baseURL   string
	pageSize  int
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
}

// NewClient creates a Copper API client.
func NewClient(apiKey, userEmail string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		userEmail: userEmail,
		baseURL:   "https://api.copper.com/developer_api/v1",
		pageSize:  200,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(3), 1),
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	PageNumber   int                 `json:"page_number"`
	PageSize     int                 `json:"page_size"`
	SortBy       string              `json:"sort_by"`
	CustomFields []searchFieldFilter `json:"custom_fields"`
}

type searchFieldFilter struct {
	DefinitionID int64 `json:"custom_field_definition_id"`
	Value        any   `json:"value"`
}

func (c *httpClient) ListActiveCompanies(ctx context.Context) ([]Company, error) {
	var all []Company
	for page := 1; ; page++ {
		companies, err := c.searchPage(ctx, page)
		if err != nil {
			return nil, eris.Wrapf(err, "copper: search page %d", page)
		}
		all = append(all, companies...)
		if len(companies) < c.pageSize {
			return all, nil
		}
	}
}

func (c *httpClient) searchPage(ctx context.Context, page int) ([]Company, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "copper: rate limiter")
	}

	payload, err := json.Marshal(searchRequest{
		PageNumber: page,
		PageSize:   c.pageSize,
		SortBy:     "name",
		CustomFields: []searchFieldFilter{
			// Checkbox filters take a boolean, not the "checked" string.
			{DefinitionID: FieldActiveCustomer, Value: true},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "copper: encode search request")
	}

	var companies []Company
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
			return c.doSearch(ctx, payload, &companies)
		})
	})
	return companies, err
}

func (c *httpClient) doSearch(ctx context.Context, payload []byte, companies *[]Company) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/companies/search", bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "copper: create request")
	}
	req.Header.Set("X-PW-AccessToken", c.apiKey)
	req.Header.Set("X-PW-Application", "developer_api")
	req.Header.Set("X-PW-UserEmail", c.userEmail)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "copper: do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "copper: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("copper: status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	*companies = nil
	if err := json.Unmarshal(body, companies); err != nil {
		return eris.Wrap(err, "copper: unmarshal companies")
	}
	return nil
}

// fieldString renders a custom field value that may arrive as a JSON
// string or number.
func fieldString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%v", n)
	}
	return ""
}
