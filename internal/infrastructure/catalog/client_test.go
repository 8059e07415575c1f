package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/backend/internal/domain"
)

func newTestClient(baseURL string) *Client {
	client := NewClient(Config{
		BaseURL:       baseURL,
		APIKey:        "test-api-key",
		PageSize:      5,
		RatePerSecond: 1000,
		Burst:         100,
		MaxRetries:    2,
	}, zerolog.Nop())
	client.backoff = func(int) time.Duration { return time.Millisecond }
	return client
}

func sampleResponse() domain.CatalogSearchResponse {
	return domain.CatalogSearchResponse{
		Total: 1,
		Products: []domain.CatalogProduct{
			{
				ID:       "p1",
				Title:    "Pınar Süt 1 lt",
				Quantity: 1,
				Unit:     "LT",
				Depots: []domain.CatalogDepot{
					{MerchantID: "migros", Price: 32.5, UnitPrice: 32.5},
					{MerchantID: "bim", Price: 29.9},
				},
			},
		},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://api.example.com/", APIKey: "key"}, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "key", client.apiKey)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, 20, client.pageSize)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestSearchOffers_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "süt", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("size"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sampleResponse())
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "  süt ")

	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "Pınar Süt 1 lt", offers[0].Name)
	assert.Equal(t, "migros", offers[0].MerchantID)
	assert.Equal(t, 32.5, offers[0].Price)
	assert.Equal(t, "lt", offers[0].Unit)
	assert.Equal(t, "bim", offers[1].MerchantID)
	assert.Equal(t, 29.9, offers[1].UnitPrice)
}

func TestSearchOffers_BlankQuery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "   ")

	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSearchOffers_NotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "nonexistent")

	require.NoError(t, err)
	assert.NotNil(t, offers)
	assert.Empty(t, offers)
}

func TestSearchOffers_ServerError_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(sampleResponse())
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "süt")

	require.NoError(t, err)
	assert.Len(t, offers, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_TooManyRequests_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(sampleResponse())
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SearchOffers(context.Background(), "süt")

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_ClientError_NoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "bad-request")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, domain.ErrCatalogFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_AllRetriesFail(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "all-fail")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, domain.ErrCatalogFailure)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL).SearchOffers(context.Background(), "invalid-json")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, domain.ErrCatalogFailure)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestSearchOffers_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	offers, err := newTestClient(server.URL).SearchOffers(ctx, "timeout-test")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearchOffers_RequestCreationError(t *testing.T) {
	offers, err := newTestClient("://invalid-url").SearchOffers(context.Background(), "test")

	assert.Nil(t, offers)
	assert.Error(t, err)
}

func TestReadLimitedBody(t *testing.T) {
	t.Run("reads within limit", func(t *testing.T) {
		body, err := readLimitedBody(strings.NewReader("short content"), 1000)
		require.NoError(t, err)
		assert.Equal(t, "short content", string(body))
	})

	t.Run("truncates beyond limit", func(t *testing.T) {
		body, err := readLimitedBody(strings.NewReader(strings.Repeat("0123456789", 100)), 100)
		require.NoError(t, err)
		assert.Len(t, body, 100)
	})
}
