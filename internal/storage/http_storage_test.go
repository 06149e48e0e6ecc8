package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); !strings.Contains(got, "video/*") {
			t.Errorf("Expected a media Accept header, got %q", got)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("media-bytes"))
	}))
	defer server.Close()

	fetcher := NewHTTPMediaFetcher(1 << 20)
	data, contentType, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected successful fetch, got error: %v", err)
	}
	if string(data) != "media-bytes" {
		t.Errorf("Expected media bytes, got %q", data)
	}
	if contentType != "video/mp4" {
		t.Errorf("Expected content type video/mp4, got %q", contentType)
	}
}

func TestFetch_ClientErrorsAreNotRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPMediaFetcher(1 << 20)
	_, _, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "client error") {
		t.Errorf("Expected a client error, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("Expected exactly 1 request for a 4xx response, got %d", got)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("eventually"))
	}))
	defer server.Close()

	fetcher := NewHTTPMediaFetcher(1 << 20)
	data, _, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected retries to succeed, got error: %v", err)
	}
	if string(data) != "eventually" {
		t.Errorf("Expected body from the final attempt, got %q", data)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetch_GivesUpAfterThreeAttempts(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPMediaFetcher(1 << 20)
	_, _, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Expected exhaustion error, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetch_EnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	fetcher := NewHTTPMediaFetcher(32)
	_, _, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for oversized media")
	}
	if !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("Expected size limit error, got %v", err)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewHTTPMediaFetcher(1 << 20)
	_, _, err := fetcher.Fetch(ctx, server.URL)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	fetcher := NewHTTPMediaFetcher(1 << 20)
	_, _, err := fetcher.Fetch(context.Background(), "http://\x00invalid")
	if err == nil {
		t.Fatal("Expected error for malformed URL")
	}
}
