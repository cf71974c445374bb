package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"

	"intelfeed/internal/api/dto"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
)

func setupServerTest(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	if _, err := database.SetupDB(
		database.WithDialector(sqlite.Open(dsn)),
		database.WithSeedDefaults(false),
	); err != nil {
		t.Fatalf("setup database: %v", err)
	}
}

func TestIdentityFromRequest(t *testing.T) {
	tests := []struct {
		header string
		want   uint64
		nilID  bool
	}{
		{header: "42", want: 42},
		{header: " 7 ", want: 7},
		{header: "", nilID: true},
		{header: "0", nilID: true},
		{header: "not-a-number", nilID: true},
	}

	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/indicators", nil)
		if tc.header != "" {
			r.Header.Set("X-User-ID", tc.header)
		}

		got := identityFromRequest(r)
		if tc.nilID {
			if got != nil {
				t.Fatalf("identityFromRequest(%q) = %d, want nil", tc.header, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("identityFromRequest(%q) = %v, want %d", tc.header, got, tc.want)
		}
	}
}

func TestPageParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/indicators?page=3&pageSize=25", nil)
	page, pageSize := pageParams(r)
	if page != 3 || pageSize != 25 {
		t.Fatalf("pageParams = (%d, %d), want (3, 25)", page, pageSize)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/indicators?page=-1", nil)
	page, pageSize = pageParams(r)
	if page != 1 || pageSize != 0 {
		t.Fatalf("pageParams = (%d, %d), want (1, 0)", page, pageSize)
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestCheckWhitelistHandler(t *testing.T) {
	setupServerTest(t)

	if err := database.CreateWhitelistEntry(context.Background(), &domain.WhitelistEntry{
		Value:  "10.0.0.0/8",
		Type:   string(domain.TypeIP),
		Reason: "internal range",
	}); err != nil {
		t.Fatalf("create whitelist entry: %v", err)
	}

	t.Run("covered value", func(t *testing.T) {
		body := strings.NewReader(`{"value":"10.1.2.3","type":"ip"}`)
		w := httptest.NewRecorder()
		checkWhitelist(w, httptest.NewRequest(http.MethodPost, "/api/whitelist/check", body))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var response dto.WhitelistCheckResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !response.Matched || response.WhitelistValue != "10.0.0.0/8" {
			t.Fatalf("response = %+v, want CIDR match", response)
		}
	})

	t.Run("uncovered value", func(t *testing.T) {
		body := strings.NewReader(`{"value":"8.8.4.4","type":"ip"}`)
		w := httptest.NewRecorder()
		checkWhitelist(w, httptest.NewRequest(http.MethodPost, "/api/whitelist/check", body))

		var response dto.WhitelistCheckResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if response.Matched {
			t.Fatalf("response = %+v, want no match", response)
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		body := strings.NewReader(`{"value":"x","type":"registry-key"}`)
		w := httptest.NewRecorder()
		checkWhitelist(w, httptest.NewRequest(http.MethodPost, "/api/whitelist/check", body))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestCreateDataSourceHandlerValidation(t *testing.T) {
	setupServerTest(t)

	body := strings.NewReader(`{"name":"","url":"https://feeds.example.com/a.txt","indicatorTypes":["ip"]}`)
	w := httptest.NewRecorder()
	createDataSource(w, httptest.NewRequest(http.MethodPost, "/api/data-sources", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetIndicatorHandlerNotFound(t *testing.T) {
	setupServerTest(t)

	r := httptest.NewRequest(http.MethodGet, "/api/indicators/9999", nil)
	r.SetPathValue("id", "9999")
	w := httptest.NewRecorder()
	getIndicator(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
