package calendar

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"dailybrief/internal/database"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

var (
	ErrNotAuthorized = errors.New("calendar is not authorized")
	ErrNoCredentials = errors.New("google OAuth credentials are not configured")
)

type TokenStore interface {
	LoadToken(ctx context.Context, account string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, account string, token *oauth2.Token) error
	DeleteToken(ctx context.Context, account string) error
}

// NewOAuthConfig reads a Google client secrets file when it exists and falls
// back to a bare client ID and secret.
func NewOAuthConfig(
	credentialsFile string,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*oauth2.Config, error) {
	if credentialsFile = strings.TrimSpace(credentialsFile); credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		switch {
		case err == nil:
			cfg, parseErr := google.ConfigFromJSON(data, gcal.CalendarReadonlyScope)
			if parseErr != nil {
				return nil, fmt.Errorf("parse credentials file: %w", parseErr)
			}
			cfg.RedirectURL = redirectURL

			return cfg, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	}

	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, ErrNoCredentials
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{gcal.CalendarReadonlyScope},
	}, nil
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return rand.Text()
}

// Session carries the authorization of one account. It is created per
// operation and passed to whatever needs to call the Calendar API.
type Session struct {
	Account string
	client  *http.Client
}

func (s *Session) HTTPClient() *http.Client {
	return s.client
}

type Authenticator struct {
	config *oauth2.Config
	store  TokenStore
	log    *slog.Logger
}

func NewAuthenticator(config *oauth2.Config, store TokenStore, log *slog.Logger) *Authenticator {
	return &Authenticator{
		config: config,
		store:  store,
		log:    log,
	}
}

func (a *Authenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (a *Authenticator) Exchange(ctx context.Context, account string, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("authorization code is empty")
	}

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}

	if err = a.store.SaveToken(ctx, account, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	a.log.InfoContext(ctx, "Calendar is authorized",
		"account", account,
		"hasRefreshToken", token.RefreshToken != "")

	return nil
}

// Session loads the stored token and refreshes it when expired. A token the
// provider rejects as invalid_grant or unauthorized_client is forgotten and
// ErrNotAuthorized is returned.
func (a *Authenticator) Session(ctx context.Context, account string) (*Session, error) {
	token, err := a.store.LoadToken(ctx, account)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	ts := &persistingTokenSource{
		ctx:     ctx,
		account: account,
		store:   a.store,
		base:    a.config.TokenSource(ctx, token),
		last:    token,
		log:     a.log,
	}

	if _, err = ts.Token(); err != nil {
		if !isRevoked(err) {
			return nil, fmt.Errorf("refresh token: %w", err)
		}

		a.log.WarnContext(ctx, "Token is expired or revoked, removing it",
			"error", err,
			"account", account)

		if deleteErr := a.store.DeleteToken(ctx, account); deleteErr != nil {
			return nil, errors.Join(ErrNotAuthorized, fmt.Errorf("delete token: %w", deleteErr))
		}

		return nil, ErrNotAuthorized
	}

	return &Session{
		Account: account,
		client:  oauth2.NewClient(ctx, ts),
	}, nil
}

// isRevoked reports whether the token endpoint refused the refresh token
// itself. Other failures, such as a 5xx from the endpoint, keep the token.
func isRevoked(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}

	switch retrieveErr.ErrorCode {
	case "invalid_grant", "unauthorized_client":
		return true
	default:
		return false
	}
}

func (a *Authenticator) Forget(ctx context.Context, account string) error {
	if err := a.store.DeleteToken(ctx, account); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	a.log.InfoContext(ctx, "Calendar token is removed",
		"account", account)

	return nil
}

// persistingTokenSource saves every token whose access token differs from
// the last one it has seen.
type persistingTokenSource struct {
	ctx     context.Context
	account string
	store   TokenStore
	base    oauth2.TokenSource
	log     *slog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last != nil && s.last.AccessToken == token.AccessToken {
		return token, nil
	}

	if err = s.store.SaveToken(s.ctx, s.account, token); err != nil {
		s.log.ErrorContext(s.ctx, "Failed to save refreshed token",
			"error", err,
			"account", s.account)
	} else {
		s.log.InfoContext(s.ctx, "Token is refreshed",
			"account", s.account,
			"expiry", token.Expiry)
	}
	s.last = token

	return token, nil
}
