package tbo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T, baseURL string, cache *redis.Client) *Client {
	t.Helper()
	return &Client{
		AuthURL:        baseURL + "/Authenticate",
		SearchURL:      baseURL,
		BookingURL:     baseURL,
		StaticURL:      baseURL,
		ClientID:       "test-client",
		UserName:       "test-user",
		Password:       "test-pass",
		StaticUserName: "static-user",
		StaticPassword: "static-pass",
		EndUserIP:      "10.0.0.1",
		MaxRetries:     1,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
		Cache:          cache,
	}
}

func newTestCache(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestWithRetryRecoversFromTransportError(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"Status":1,"TokenId":"tok-after-retry"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.MaxRetries = 3

	token, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if token != "tok-after-retry" {
		t.Errorf("unexpected token: %q", token)
	}
	if hits != 2 {
		t.Errorf("expected 2 requests, got %d", hits)
	}
}

func TestWithRetryStopsOnSupplierError(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"Status":0,"Error":{"ErrorCode":5001,"ErrorMessage":"Invalid credentials"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.MaxRetries = 3

	_, err := client.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsFatal(err) {
		t.Errorf("expected fatal classification, got %v", err)
	}
	if hits != 1 {
		t.Errorf("supplier rejection must not be retried, got %d requests", hits)
	}
}
