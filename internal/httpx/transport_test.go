package httpx

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestBearerRetryTransport_InitialRefresh(t *testing.T) {
	var refreshes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("Authorization = %q, want 'Bearer fresh'", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cache := NewTokenCache()
	client := &http.Client{Transport: &BearerRetryTransport{
		Cache: cache,
		Refresh: func(ctx context.Context) (string, error) {
			refreshes.Add(1)
			return "fresh", nil
		},
	}}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh count = %d, want 1", got)
	}
	if got := cache.Read(); got != "fresh" {
		t.Errorf("cached token = %q, want 'fresh'", got)
	}
}

func TestBearerRetryTransport_InitialRefreshFailureAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached upstream despite failed authentication")
	}))
	defer server.Close()

	client := &http.Client{Transport: &BearerRetryTransport{
		Cache: NewTokenCache(),
		Refresh: func(ctx context.Context) (string, error) {
			return "", errors.New("grant rejected")
		},
	}}

	if _, err := client.Get(server.URL); err == nil {
		t.Fatal("Get() error = nil, want grant failure")
	}
}

func TestBearerRetryTransport_NoRefreshOnSuccess(t *testing.T) {
	var refreshes atomic.Int32
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cache := NewTokenCache()
	cache.Write("cached")

	client := &http.Client{Transport: &BearerRetryTransport{
		Cache: cache,
		Refresh: func(ctx context.Context) (string, error) {
			refreshes.Add(1)
			return "fresh", nil
		},
	}}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	if got := refreshes.Load(); got != 0 {
		t.Errorf("refresh count = %d, want 0", got)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestBearerRetryTransport_RetryOnceAfterAuthFailure(t *testing.T) {
	var refreshes atomic.Int32
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("retry Authorization = %q, want 'Bearer fresh'", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cache := NewTokenCache()
	cache.Write("stale")

	client := &http.Client{Transport: &BearerRetryTransport{
		Cache: cache,
		Refresh: func(ctx context.Context) (string, error) {
			refreshes.Add(1)
			return "fresh", nil
		},
	}}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh count = %d, want 1", got)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
	if got := cache.Read(); got != "fresh" {
		t.Errorf("cached token = %q, want 'fresh'", got)
	}
}

func TestBearerRetryTransport_SecondFailureIsFinal(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cache := NewTokenCache()
	cache.Write("stale")

	client := &http.Client{Transport: &BearerRetryTransport{
		Cache: cache,
		Refresh: func(ctx context.Context) (string, error) {
			return "fresh", nil
		},
	}}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	// the 403 from the retry is the final answer, no further attempts
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestBearerRetryTransport_RefreshFailureAfterRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cache := NewTokenCache()
	cache.Write("stale")

	client := &http.Client{Transport: &BearerRetryTransport{
		Cache: cache,
		Refresh: func(ctx context.Context) (string, error) {
			return "", errors.New("grant rejected")
		},
	}}

	if _, err := client.Get(server.URL); err == nil {
		t.Fatal("Get() error = nil, want re-authentication failure")
	}
}

func TestBasicAuthTransport_Credential(t *testing.T) {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("api:secret"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != want {
			t.Errorf("Authorization = %q, want %q", got, want)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: &BasicAuthTransport{
		Username: "api",
		Password: "secret",
	}}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()
}

func TestBasicAuthTransport_RetryOnce(t *testing.T) {
	tests := []struct {
		name        string
		firstStatus int
		wantRetries int32
	}{
		{name: "Retry On 400", firstStatus: http.StatusBadRequest, wantRetries: 2},
		{name: "Retry On 401", firstStatus: http.StatusUnauthorized, wantRetries: 2},
		{name: "Retry On 403", firstStatus: http.StatusForbidden, wantRetries: 2},
		{name: "No Retry On 500", firstStatus: http.StatusInternalServerError, wantRetries: 1},
		{name: "No Retry On 200", firstStatus: http.StatusOK, wantRetries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if requests.Add(1) == 1 {
					w.WriteHeader(tt.firstStatus)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := &http.Client{Transport: &BasicAuthTransport{
				Username: "api",
				Password: "secret",
			}}

			resp, err := client.Get(server.URL)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			_ = resp.Body.Close()

			if got := requests.Load(); got != tt.wantRetries {
				t.Errorf("request count = %d, want %d", got, tt.wantRetries)
			}
		})
	}
}
