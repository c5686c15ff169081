package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/apisak-w/pwa-expense-manager/internal/config"
)

// GoogleSource produces Google API credentials from a long-lived refresh
// token. The current access token is cached until it nears expiry; refreshes
// happen transparently inside UsableCredential. A transition from
// unauthenticated to authenticated publishes one event on the Online channel
// so the scheduler can trigger an opportunistic sync.
type GoogleSource struct {
	cfg        *config.GoogleConfig
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	current *Credential

	online chan struct{}
}

// NewGoogleSource creates a credential source for the configured account
func NewGoogleSource(logger *slog.Logger, cfg *config.GoogleConfig) *GoogleSource {
	return &GoogleSource{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		online:     make(chan struct{}, 1),
	}
}

// Online emits an event when a credential becomes available after a period
// without one
func (s *GoogleSource) Online() <-chan struct{} {
	return s.online
}

// UsableCredential implements Source. It returns the cached token while it
// remains valid beyond the configured skew, refreshes it when possible, and
// returns (nil, nil) when no refresh token is configured or the grant was
// revoked. Transport failures during refresh are returned as errors.
func (s *GoogleSource) UsableCredential(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.current.Usable(now, s.cfg.TokenSkew) {
		cred := *s.current
		return &cred, nil
	}

	if s.cfg.RefreshToken == "" {
		return nil, nil
	}

	wasOffline := s.current == nil

	cred, err := s.refresh(ctx)
	if err != nil {
		// The cached token is already past its skew window; forgetting it
		// makes the next successful refresh count as an offline-to-online
		// transition.
		s.current = nil
		return nil, err
	}
	if cred == nil {
		// Grant rejected; forget the stale token so the next success counts
		// as an offline-to-online transition.
		s.current = nil
		return nil, nil
	}

	s.current = cred
	if wasOffline {
		select {
		case s.online <- struct{}{}:
		default:
		}
	}

	copied := *cred
	return &copied, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// refresh exchanges the refresh token for a fresh access token. A 4xx from
// the token endpoint means the grant is no longer valid (user interaction
// required) and yields (nil, nil); other failures are transport errors.
func (s *GoogleSource) refresh(ctx context.Context) (*Credential, error) {
	form := url.Values{
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"refresh_token": {s.cfg.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Warn("Token refresh rejected, re-authentication required",
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned an empty access token")
	}

	s.logger.Info("Refreshed Google access token", "expires_in", tr.ExpiresIn)

	return &Credential{
		AccessToken: tr.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Account:     s.cfg.Account,
	}, nil
}
