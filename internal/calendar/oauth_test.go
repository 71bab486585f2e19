package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dailybrief/internal/database"

	"golang.org/x/oauth2"
)

type memoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
	saves  int
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: map[string]*oauth2.Token{}}
}

func (s *memoryTokenStore) LoadToken(_ context.Context, account string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[account]
	if !ok {
		return nil, database.ErrNotFound
	}

	copied := *token
	return &copied, nil
}

func (s *memoryTokenStore) SaveToken(_ context.Context, account string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *token
	s.tokens[account] = &copied
	s.saves++

	return nil
}

func (s *memoryTokenStore) DeleteToken(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, account)

	return nil
}

func (s *memoryTokenStore) get(account string) (*oauth2.Token, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens[account], s.saves
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTokenServer answers every token request with status and body.
func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

func newTestAuthenticator(tokenURL string, store TokenStore) *Authenticator {
	config := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		Scopes:       []string{"calendar.readonly"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return NewAuthenticator(config, store, discardLogger())
}

func TestAuthCodeURLRequestsOfflineConsent(t *testing.T) {
	auth := newTestAuthenticator("https://accounts.example.com/token", newMemoryTokenStore())

	raw := auth.AuthCodeURL("state-123")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	query := parsed.Query()
	checks := map[string]string{
		"state":                  "state-123",
		"access_type":            "offline",
		"prompt":                 "consent",
		"include_granted_scopes": "true",
		"redirect_uri":           "http://localhost:8080/auth/google/callback",
	}
	for key, want := range checks {
		if got := query.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestExchangeSavesToken(t *testing.T) {
	server, _ := newTokenServer(t, http.StatusOK,
		`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`)

	store := newMemoryTokenStore()
	auth := newTestAuthenticator(server.URL, store)

	if err := auth.Exchange(context.Background(), "me", "code-1"); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	token, _ := store.get("me")
	if token == nil || token.AccessToken != "access-1" || token.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected stored token: %+v", token)
	}
}

func TestExchangeRejectsEmptyCode(t *testing.T) {
	auth := newTestAuthenticator("https://accounts.example.com/token", newMemoryTokenStore())

	if err := auth.Exchange(context.Background(), "me", "  "); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestSessionWithoutTokenIsNotAuthorized(t *testing.T) {
	auth := newTestAuthenticator("https://accounts.example.com/token", newMemoryTokenStore())

	if _, err := auth.Session(context.Background(), "me"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSessionReusesValidToken(t *testing.T) {
	tokenServer, tokenCalls := newTokenServer(t, http.StatusOK, `{}`)

	store := newMemoryTokenStore()
	_ = store.SaveToken(context.Background(), "me", &oauth2.Token{
		AccessToken:  "valid",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	})

	var gotAuth atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	auth := newTestAuthenticator(tokenServer.URL, store)

	session, err := auth.Session(context.Background(), "me")
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	resp, err := session.HTTPClient().Get(api.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	if got, _ := gotAuth.Load().(string); got != "Bearer valid" {
		t.Fatalf("unexpected authorization header: %q", got)
	}

	if calls := tokenCalls.Load(); calls != 0 {
		t.Fatalf("expected no token refresh, got %d calls", calls)
	}

	if _, saves := store.get("me"); saves != 1 {
		t.Fatalf("expected token not to be saved again, got %d saves", saves)
	}
}

func TestSessionRefreshesAndPersistsExpiredToken(t *testing.T) {
	tokenServer, tokenCalls := newTokenServer(t, http.StatusOK,
		`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)

	store := newMemoryTokenStore()
	_ = store.SaveToken(context.Background(), "me", &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	})

	auth := newTestAuthenticator(tokenServer.URL, store)

	if _, err := auth.Session(context.Background(), "me"); err != nil {
		t.Fatalf("session: %v", err)
	}

	if calls := tokenCalls.Load(); calls != 1 {
		t.Fatalf("expected one refresh, got %d", calls)
	}

	token, saves := store.get("me")
	if token.AccessToken != "fresh" {
		t.Fatalf("expected refreshed token to be stored, got %q", token.AccessToken)
	}
	if token.RefreshToken != "refresh" {
		t.Fatalf("expected refresh token to be kept, got %q", token.RefreshToken)
	}
	if saves != 2 {
		t.Fatalf("expected refreshed token to be saved once, got %d saves", saves)
	}
}

func TestSessionForgetsRevokedToken(t *testing.T) {
	tokenServer, _ := newTokenServer(t, http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)

	store := newMemoryTokenStore()
	_ = store.SaveToken(context.Background(), "me", &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	})

	auth := newTestAuthenticator(tokenServer.URL, store)

	_, err := auth.Session(context.Background(), "me")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if token, _ := store.get("me"); token != nil {
		t.Fatalf("expected revoked token to be deleted, got %+v", token)
	}
}

func TestSessionKeepsTokenOnTokenEndpointFailure(t *testing.T) {
	tokenServer, tokenCalls := newTokenServer(t, http.StatusInternalServerError,
		`{"error":"backend_error"}`)

	store := newMemoryTokenStore()
	_ = store.SaveToken(context.Background(), "me", &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "still-valid",
		Expiry:       time.Now().Add(-time.Hour),
	})

	auth := newTestAuthenticator(tokenServer.URL, store)

	_, err := auth.Session(context.Background(), "me")
	if err == nil {
		t.Fatal("expected error from failing token endpoint")
	}
	if errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected a refresh error, got ErrNotAuthorized")
	}

	if tokenCalls.Load() != 1 {
		t.Fatalf("expected one token request, got %d", tokenCalls.Load())
	}

	token, _ := store.get("me")
	if token == nil || token.RefreshToken != "still-valid" {
		t.Fatalf("expected token to be kept, got %+v", token)
	}
}

func TestForgetDeletesToken(t *testing.T) {
	store := newMemoryTokenStore()
	_ = store.SaveToken(context.Background(), "me", &oauth2.Token{AccessToken: "a"})

	auth := newTestAuthenticator("https://accounts.example.com/token", store)

	if err := auth.Forget(context.Background(), "me"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	if token, _ := store.get("me"); token != nil {
		t.Fatalf("expected token to be deleted")
	}
}

func TestNewOAuthConfigFallsBackToClientID(t *testing.T) {
	cfg, err := NewOAuthConfig("/nonexistent/credentials.json", "id", "secret", "http://localhost/cb")
	if err != nil {
		t.Fatalf("new oauth config: %v", err)
	}

	if cfg.ClientID != "id" || cfg.RedirectURL != "http://localhost/cb" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "calendar.readonly") {
		t.Fatalf("unexpected scopes: %v", cfg.Scopes)
	}
}

func TestNewOAuthConfigWithoutCredentials(t *testing.T) {
	if _, err := NewOAuthConfig("", "", "", "http://localhost/cb"); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestNewStateIsRandom(t *testing.T) {
	if a, b := NewState(), NewState(); a == "" || a == b {
		t.Fatalf("unexpected states: %q %q", a, b)
	}
}
