package copper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summit-goods/commission-cli/internal/resilience"
)

func testCompany(id int64, name string) Company {
	return Company{
		ID:   id,
		Name: name,
		CustomFields: []CustomField{
			{DefinitionID: FieldActiveCustomer, Value: json.RawMessage(`true`)},
			{DefinitionID: FieldAccountOrderID, Value: json.RawMessage(`"1037"`)},
		},
	}
}

func TestListActiveCompanies_SinglePage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/companies/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-PW-AccessToken"))
		assert.Equal(t, "developer_api", r.Header.Get("X-PW-Application"))
		assert.Equal(t, "ops@example.com", r.Header.Get("X-PW-UserEmail"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.PageNumber)
		assert.Equal(t, "name", req.SortBy)
		require.Len(t, req.CustomFields, 1)
		assert.Equal(t, int64(FieldActiveCustomer), req.CustomFields[0].DefinitionID)
		assert.Equal(t, true, req.CustomFields[0].Value)

		json.NewEncoder(w).Encode([]Company{testCompany(101, "Acme Foods")})
	}))
	defer srv.Close()

	client := NewClient("test-key", "ops@example.com", WithBaseURL(srv.URL))
	companies, err := client.ListActiveCompanies(context.Background())

	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Acme Foods", companies[0].Name)
	assert.Equal(t, json.RawMessage(`"1037"`), companies[0].CustomField(FieldAccountOrderID))
	assert.Nil(t, companies[0].CustomField(FieldRegion))
}

func TestListActiveCompanies_Paginates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.PageNumber {
		case 1:
			page := make([]Company, 2)
			for i := range page {
				page[i] = testCompany(int64(i+1), fmt.Sprintf("Company %d", i+1))
			}
			json.NewEncoder(w).Encode(page)
		case 2:
			json.NewEncoder(w).Encode([]Company{testCompany(3, "Company 3")})
		default:
			t.Errorf("unexpected page %d", req.PageNumber)
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", "ops@example.com",
		WithBaseURL(srv.URL), WithPageSize(2), WithRateLimit(1000))
	companies, err := client.ListActiveCompanies(context.Background())

	require.NoError(t, err)
	assert.Len(t, companies, 3, "a short page ends pagination")
}

func TestListActiveCompanies_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]Company{testCompany(101, "Acme Foods")})
	}))
	defer srv.Close()

	c := NewClient("test-key", "ops@example.com",
		WithBaseURL(srv.URL), WithRateLimit(1000)).(*httpClient)
	c.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 1}

	companies, err := c.ListActiveCompanies(context.Background())
	require.NoError(t, err)
	assert.Len(t, companies, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListActiveCompanies_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad token"}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", "ops@example.com",
		WithBaseURL(srv.URL), WithRateLimit(1000)).(*httpClient)
	c.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 1}

	_, err := c.ListActiveCompanies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestListActiveCompanies_CircuitOpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", "ops@example.com",
		WithBaseURL(srv.URL), WithRateLimit(1000)).(*httpClient)
	c.retry = resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: 1}
	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2})

	_, err := c.ListActiveCompanies(context.Background())
	require.Error(t, err)
	_, err = c.ListActiveCompanies(context.Background())
	require.Error(t, err)

	_, err = c.ListActiveCompanies(context.Background())
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "1037", fieldString(json.RawMessage(`"1037"`)))
	assert.Equal(t, "1037", fieldString(json.RawMessage(`1037`)))
	assert.Equal(t, "1234567", fieldString(json.RawMessage(`1234567`)))
	assert.Equal(t, "1.5", fieldString(json.RawMessage(`1.5`)))
	assert.Equal(t, "", fieldString(nil))
	assert.Equal(t, "", fieldString(json.RawMessage(`null`)))
	assert.Equal(t, "", fieldString(json.RawMessage(`{"x":1}`)))
}
