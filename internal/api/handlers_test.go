package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cleaning-moscow/liza-bot/internal/config"
	"github.com/cleaning-moscow/liza-bot/internal/store"
)

func newTestServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		AdminAPIToken: "ops-token",
	}
	srv := httptest.NewServer(NewRouter(NewAPIHandler(cfg, s)))
	t.Cleanup(srv.Close)
	return s, srv
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"token":"ops-token"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return body["jwt"]
}

func authedRequest(t *testing.T, srv *httptest.Server, jwt, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestLogin_WrongToken(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"token":"wrong"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", resp.StatusCode)
	}
}

func TestKnowledge_RequiresAuth(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/knowledge?q=office")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without a token", resp.StatusCode)
	}
}

func TestKnowledge_SearchAndDelete(t *testing.T) {
	s, srv := newTestServer(t)
	jwt := login(t, srv)

	if err := s.SaveKnowledge("offices", "we clean offices daily", 1); err != nil {
		t.Fatalf("SaveKnowledge: %v", err)
	}

	resp := authedRequest(t, srv, jwt, http.MethodGet, "/api/knowledge?q=OFFICE", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d, want 200", resp.StatusCode)
	}
	var search struct {
		Matches []string `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(search.Matches) != 1 || !strings.Contains(search.Matches[0], "we clean offices daily") {
		t.Errorf("matches = %q, want the stored entry", search.Matches)
	}

	recent := authedRequest(t, srv, jwt, http.MethodGet, "/api/knowledge/recent", "")
	defer recent.Body.Close()
	var listing struct {
		Entries []store.KnowledgeEntry `json:"entries"`
	}
	if err := json.NewDecoder(recent.Body).Decode(&listing); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(listing.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(listing.Entries))
	}

	del := authedRequest(t, srv, jwt, http.MethodDelete, "/api/knowledge",
		fmt.Sprintf(`{"ids":[%d,999]}`, listing.Entries[0].ID))
	defer del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", del.StatusCode)
	}
	var deleted map[string]int64
	if err := json.NewDecoder(del.Body).Decode(&deleted); err != nil {
		t.Fatalf("decode delete: %v", err)
	}
	if deleted["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1 (unknown id skipped)", deleted["deleted"])
	}
}

func TestActivity(t *testing.T) {
	s, srv := newTestServer(t)
	jwt := login(t, srv)

	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	if err := s.UpdateDailyActivity(1, 2, "alice", at); err != nil {
		t.Fatalf("UpdateDailyActivity: %v", err)
	}

	resp := authedRequest(t, srv, jwt, http.MethodGet, "/api/activity?day=2025-07-01", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activity status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Day      string                `json:"day"`
		Activity []store.DailyActivity `json:"activity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if body.Day != "2025-07-01" || len(body.Activity) != 1 || body.Activity[0].Username != "alice" {
		t.Errorf("activity response = %+v, want alice's row", body)
	}

	bad := authedRequest(t, srv, jwt, http.MethodGet, "/api/activity?day=yesterday", "")
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bad day status = %d, want 400", bad.StatusCode)
	}
}
