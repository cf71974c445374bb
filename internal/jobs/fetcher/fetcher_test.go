package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intelfeed/internal/config"
	"intelfeed/internal/domain"
)

func testConfig(timeoutSeconds uint32) config.Config {
	var cfg config.Config
	cfg.Fetcher.Timeout = timeoutSeconds
	config.SetConfigForTests(cfg)
	return cfg
}

func testSource(url string) domain.DataSource {
	return domain.DataSource{
		Name:           "feed-a",
		URL:            url,
		IndicatorTypes: domain.StringList{"ip"},
		FetchInterval:  3600,
		IsActive:       true,
	}
}

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("192.0.2.10\n192.0.2.11\n"))
	}))
	defer server.Close()

	body, err := Fetch(context.Background(), testSource(server.URL), testConfig(5))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "192.0.2.10\n192.0.2.11\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchNon2xxIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), testSource(server.URL), testConfig(5))

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if fetchErr.Kind != KindStatus {
		t.Fatalf("kind = %s, want %s", fetchErr.Kind, KindStatus)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), testSource(server.URL), testConfig(1))

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if fetchErr.Kind != KindTimeout {
		t.Fatalf("kind = %s, want %s", fetchErr.Kind, KindTimeout)
	}
}

func TestFetchConnectionRefusedIsNetworkError(t *testing.T) {
	// Grab a port that nothing is listening on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := Fetch(context.Background(), testSource(url), testConfig(2))

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if fetchErr.Kind != KindNetwork {
		t.Fatalf("kind = %s, want %s", fetchErr.Kind, KindNetwork)
	}
}

func TestFetchSelfSignedCertIsTLSError(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), testSource(server.URL), testConfig(5))
	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if fetchErr.Kind != KindTLS {
		t.Fatalf("kind = %s, want %s", fetchErr.Kind, KindTLS)
	}
}

func TestFetchIgnoreCertificateErrors(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("198.51.100.4\n"))
	}))
	defer server.Close()

	source := testSource(server.URL)
	source.IgnoreCertificateErrors = true

	body, err := Fetch(context.Background(), source, testConfig(5))
	if err != nil {
		t.Fatalf("fetch with cert check disabled: %v", err)
	}
	if body != "198.51.100.4\n" {
		t.Fatalf("body = %q", body)
	}
}
