package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gurl-cli/gurl/internal/cookies"
)

func quickRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestDoRecomputesCookiesPerHop(t *testing.T) {
	var got []string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Cookie"))
		http.Redirect(w, r, "/app/page", http.StatusFound)
	})
	mux.HandleFunc("/app/page", func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Cookie"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	jar := cookies.NewJar([]cookies.Cookie{
		{Name: "root", Value: "1", Domain: "127.0.0.1", Path: "/"},
		{Name: "deep", Value: "2", Domain: "127.0.0.1", Path: "/app"},
	})
	c := New(Config{FollowRedirects: true, Jar: jar, Retry: quickRetry()})

	resp, err := c.Do(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if len(got) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(got))
	}
	if got[0] != "root=1" {
		t.Errorf("first hop Cookie = %q, want %q", got[0], "root=1")
	}
	if got[1] != "root=1; deep=2" {
		t.Errorf("second hop Cookie = %q, want %q", got[1], "root=1; deep=2")
	}
}

func TestDoWithoutJarSendsNoCookie(t *testing.T) {
	var cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	c := New(Config{Retry: quickRetry()})
	resp, err := c.Do(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if cookie != "" {
		t.Errorf("Cookie = %q, want none", cookie)
	}
}

func TestDoRedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srv.Close()

	c := New(Config{FollowRedirects: true, MaxRedirects: 3, Retry: quickRetry()})
	_, err := c.Do(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "3 redirects") {
		t.Errorf("err = %v, want redirect limit error", err)
	}
}

func TestDoNoFollowReturnsRedirectResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	c := New(Config{Retry: quickRetry()})
	resp, err := c.Do(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301", resp.StatusCode)
	}
}

func TestDoSeeOtherDemotesToGet(t *testing.T) {
	type hit struct {
		method string
		body   string
	}
	var hits []hit
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits = append(hits, hit{r.Method, string(body)})
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	})
	mux.HandleFunc("/done", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits = append(hits, hit{r.Method, string(body)})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{
		Method:          http.MethodPost,
		Body:            []byte("payload"),
		FollowRedirects: true,
		Retry:           quickRetry(),
	})
	resp, err := c.Do(context.Background(), srv.URL+"/submit")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if len(hits) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(hits))
	}
	if hits[0].method != http.MethodPost || hits[0].body != "payload" {
		t.Errorf("first hop = %+v", hits[0])
	}
	if hits[1].method != http.MethodGet || hits[1].body != "" {
		t.Errorf("redirected hop = %+v, want bodyless GET", hits[1])
	}
}

func TestDoRetriesTransientStatus(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := New(Config{Retry: quickRetry()})
	resp, err := c.Do(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoRetryExhaustionReturnsLastResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := quickRetry()
	cfg.MaxRetries = 1
	c := New(Config{Retry: cfg})
	resp, err := c.Do(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want the final 503", resp.StatusCode)
	}
}

func TestBuildRequestDropsAuthorizationAcrossHosts(t *testing.T) {
	header := http.Header{}
	header.Set("Authorization", "Bearer secret")
	c := New(Config{Header: header, Retry: quickRetry()})

	original, _ := url.Parse("https://example.com/login")
	sameHost, _ := url.Parse("https://example.com/next")
	otherHost, _ := url.Parse("https://cdn.example.net/next")

	req, err := c.buildRequest(context.Background(), http.MethodGet, sameHost, original, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("Authorization") == "" {
		t.Error("same-host redirect should keep Authorization")
	}

	req, err = c.buildRequest(context.Background(), http.MethodGet, otherHost, original, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("cross-host redirect should drop Authorization")
	}
}

func TestBuildRequestSetsUserAgent(t *testing.T) {
	c := New(Config{UserAgent: "gurl/1.0", Retry: quickRetry()})
	u, _ := url.Parse("https://example.com/")
	req, err := c.buildRequest(context.Background(), http.MethodGet, u, u, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("User-Agent"); got != "gurl/1.0" {
		t.Errorf("User-Agent = %q", got)
	}

	header := http.Header{}
	header.Set("User-Agent", "custom")
	c = New(Config{UserAgent: "gurl/1.0", Header: header, Retry: quickRetry()})
	req, err = c.buildRequest(context.Background(), http.MethodGet, u, u, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("User-Agent"); got != "custom" {
		t.Errorf("User-Agent = %q, want caller's header to win", got)
	}
}

func TestDoHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := New(Config{Retry: quickRetry()})
	if _, err := c.Do(ctx, srv.URL); err == nil {
		t.Error("expected a deadline error")
	}
}

func TestRetryableError(t *testing.T) {
	if retryableError(nil) {
		t.Error("nil is not retryable")
	}
	if retryableError(context.Canceled) {
		t.Error("cancellation is not retryable")
	}
	if !retryableError(io.ErrUnexpectedEOF) {
		t.Error("unexpected EOF is retryable")
	}
}

func TestRetryBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay:     time.Second,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 10,
	}
	for attempt := 1; attempt <= 5; attempt++ {
		if d := cfg.Backoff(attempt); d > cfg.MaxDelay {
			t.Errorf("Backoff(%d) = %v exceeds cap %v", attempt, d, cfg.MaxDelay)
		}
	}
}
