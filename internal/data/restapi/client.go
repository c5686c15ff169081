// Package restapi implements the JSON expense API remote backend. It mirrors
// the spreadsheet ledger's write contract over a plain REST surface: one
// resource per transaction, addressed by id.
package restapi

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
	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
)

// ErrNoCredential indicates a remote call was attempted without a usable
// credential
var ErrNoCredential = errors.New("no usable credential for expense API access")

// Client talks to the remote expense API
type Client struct {
	httpClient *http.Client
	baseURL    string
	source     auth.Source
	logger     *slog.Logger
}

// NewClient creates an expense API client
func NewClient(logger *slog.Logger, cfg *config.RemoteAPIConfig, source auth.Source) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		source:     source,
		logger:     logger,
	}
}

// UpsertExpense creates or replaces the remote record for the transaction's
// id. Re-applying the same transaction converges on the same remote state.
func (c *Client) UpsertExpense(ctx context.Context, tx *expense.Transaction) error {
	rawURL := fmt.Sprintf("%s/expenses/%s", c.baseURL, tx.ID)
	resp, err := c.do(ctx, http.MethodPut, rawURL, tx)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodPut, rawURL, resp)
	}

	return nil
}

// DeleteExpense removes the remote record. A 404 means the record is already
// gone, which is the state the caller asked for.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	rawURL := fmt.Sprintf("%s/expenses/%s", c.baseURL, id)
	resp, err := c.do(ctx, http.MethodDelete, rawURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("Remote expense already absent", "id", id)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodDelete, rawURL, resp)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	cred, err := c.source.UsableCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain credential: %w", err)
	}
	if cred == nil {
		return nil, ErrNoCredential
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, rawURL, err)
	}

	return resp, nil
}

func statusError(method, rawURL string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s %s returned status %d: %s", method, rawURL, resp.StatusCode, string(snippet))
}
