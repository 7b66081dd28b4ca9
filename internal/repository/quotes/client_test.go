package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NordCoder/Ratewatch/internal/httpx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, QuoteCurrency: "BRL"}, httpx.NewClient(httpx.Config{}), zap.NewNop())
}

func TestFetch_ParsesBids(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"USDBRL": {"code": "USD", "codein": "BRL", "bid": "5.0000", "timestamp": "1718900000"},
			"EURBRL": {"code": "EUR", "codein": "BRL", "bid": "5.8123"}
		}`))
	})

	got, err := c.Fetch(context.Background(), []string{"usd", "EUR", "USD"})
	require.NoError(t, err)

	assert.Equal(t, "/json/last/EUR-BRL,USD-BRL", gotPath)
	require.Len(t, got, 2)
	assert.True(t, got["USD"].Bid.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, int64(1718900000), got["USD"].Timestamp.Unix())
	assert.True(t, got["EUR"].Bid.Equal(decimal.RequireFromString("5.8123")))
}

func TestFetch_MissingCodeIsAbsent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"USDBRL": {"code": "USD", "bid": "5.00"}}`))
	})

	got, err := c.Fetch(context.Background(), []string{"USD", "XYZ"})
	require.NoError(t, err)
	assert.Contains(t, got, "USD")
	assert.NotContains(t, got, "XYZ")
}

func TestFetch_EmptyCodesSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	got, err := c.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
}

func TestFetch_Errors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		},
		"bad bid": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"USDBRL": {"code": "USD", "bid": "abc"}}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.Fetch(context.Background(), []string{"USD"})
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url}, httpx.NewClient(httpx.Config{}), zap.NewNop())
	_, err := c.Fetch(context.Background(), []string{"USD"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetch_UnknownPairFallsBackPerCode(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/json/last/USD-BRL":
			_, _ = w.Write([]byte(`{"USDBRL": {"code": "USD", "bid": "5.00"}}`))
		case "/json/last/EUR-BRL":
			_, _ = w.Write([]byte(`{"EURBRL": {"code": "EUR", "bid": "5.80"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":404,"code":"CoinNotExists"}`))
		}
	})

	got, err := c.Fetch(context.Background(), []string{"USD", "XYZ", "EUR"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "USD")
	assert.Contains(t, got, "EUR")
	assert.NotContains(t, got, "XYZ")
	assert.Equal(t, []string{
		"/json/last/EUR-BRL,USD-BRL,XYZ-BRL",
		"/json/last/EUR-BRL",
		"/json/last/USD-BRL",
		"/json/last/XYZ-BRL",
	}, paths)
}

func TestFetch_UnknownSingleCodeIsAbsent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	got, err := c.Fetch(context.Background(), []string{"XYZ"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_FallbackStillFailsOnOutage(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := c.Fetch(context.Background(), []string{"USD", "XYZ"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL}, httpx.NewClient(httpx.Config{UserAgent: "ratewatch-evaluator/1.0"}), zap.NewNop())
	_, err := c.Fetch(context.Background(), []string{"USD"})
	require.NoError(t, err)
	assert.Equal(t, "ratewatch-evaluator/1.0", ua)
}
