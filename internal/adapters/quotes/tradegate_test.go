package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockalert/internal/testsupport"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		URLTemplate: url + "/orderbuch_umsaetze.php?isin=%s",
		UserAgent:   "stockalert-test",
		Timeout:     2 * time.Second,
		Retries:     3,
		RetryDelay:  0,
	}, testsupport.Logger())
}

func TestClient_Price(t *testing.T) {
	page, err := os.ReadFile("testdata/orderbook.html")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DE000BAY0017", r.URL.Query().Get("isin"))
		assert.Equal(t, "stockalert-test", r.Header.Get("User-Agent"))
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	price, ok := newTestClient(srv.URL).Price(context.Background(), "DE000BAY0017")
	require.True(t, ok)
	assert.InDelta(t, 1251.0, price, 1e-9)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	page, err := os.ReadFile("testdata/orderbook.html")
	require.NoError(t, err)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			_, _ = w.Write([]byte(`<html><body>no trades</body></html>`))
		default:
			_, _ = w.Write(page)
		}
	}))
	defer srv.Close()

	price, ok := newTestClient(srv.URL).Price(context.Background(), "DE000BAY0017")
	require.True(t, ok)
	assert.InDelta(t, 1251.0, price, 1e-9)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, ok := newTestClient(srv.URL).Price(context.Background(), "DE000BAY0017")
	assert.False(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, ok := newTestClient(srv.URL).Price(context.Background(), "XX0000000000")
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, ok := newTestClient(url).Price(context.Background(), "DE000BAY0017")
	assert.False(t, ok)
}

func TestClient_URL(t *testing.T) {
	c := NewClient(Config{URLTemplate: "https://www.tradegate.de/orderbuch_umsaetze.php?isin=%s", Retries: 1}, testsupport.Logger())
	assert.Equal(t, "https://www.tradegate.de/orderbuch_umsaetze.php?isin=US0378331005", c.URL("US0378331005"))
}
