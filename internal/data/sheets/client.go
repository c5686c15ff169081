package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/config"
)

// ErrNoCredential indicates a remote call was attempted without a usable
// credential. The coordinator checks reachability first, so hitting this
// means the credential expired mid-pass.
var ErrNoCredential = errors.New("no usable credential for spreadsheet access")

// Client performs authenticated JSON calls against the Sheets and Drive REST
// surfaces. Base URLs come from configuration so tests can point at fakes.
type Client struct {
	httpClient *http.Client
	sheetsBase string
	driveBase  string
	source     auth.Source
	logger     *slog.Logger
}

// NewClient creates a spreadsheet API client
func NewClient(logger *slog.Logger, cfg *config.GoogleConfig, source auth.Source) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		sheetsBase: cfg.SheetsBaseURL,
		driveBase:  cfg.DriveBaseURL,
		source:     source,
		logger:     logger,
	}
}

// doJSON issues one authenticated request. A non-nil body is JSON-encoded;
// a non-nil out receives the decoded response body.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body, out any) error {
	cred, err := c.source.UsableCredential(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain credential: %w", err)
	}
	if cred == nil {
		return ErrNoCredential
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned status %d: %s", method, rawURL, resp.StatusCode, string(snippet))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return nil
}
