package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/config"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/ledger"
)

const (
	transactionsSheet = "Transactions"
	metadataSheet     = "Metadata"

	// One row per transaction: ID, Date, Kind, Category, Amount, Description,
	// Cleared, Updated At. Row 1 is the frozen header.
	dataRange   = transactionsSheet + "!A2:H"
	headerRange = transactionsSheet + "!A1:H1"
	appendRange = transactionsSheet + "!A:H"

	metadataRange  = metadataSheet + "!A1:B10"
	lastSyncRange  = metadataSheet + "!A1:B1"
	lastSyncMarker = "lastSync"
)

var headerRow = []string{"ID", "Date", "Kind", "Category", "Amount", "Description", "Cleared", "Updated At"}

// LedgerRepository implements the ledger.Repository interface against a
// spreadsheet. The spreadsheet is discovered (or created) by its fixed name
// and addressed by id afterwards.
type LedgerRepository struct {
	client *Client
	name   string
	logger *slog.Logger

	mu            sync.Mutex
	spreadsheetID string
}

// NewLedgerRepository creates a spreadsheet-backed remote ledger
func NewLedgerRepository(logger *slog.Logger, cfg *config.GoogleConfig, source auth.Source) *LedgerRepository {
	return &LedgerRepository{
		client: NewClient(logger, cfg, source),
		name:   cfg.SpreadsheetName,
		logger: logger,
	}
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// Bind attaches the repository to a known spreadsheet id
func (r *LedgerRepository) Bind(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spreadsheetID = id
}

func (r *LedgerRepository) boundID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spreadsheetID == "" {
		return "", ledger.ErrNotProvisioned{}
	}
	return r.spreadsheetID, nil
}

// FindOrCreate searches the drive for the named spreadsheet and creates it
// with the header schema when absent. Discovery runs before creation on every
// call, so repeated calls never provision a second ledger.
func (r *LedgerRepository) FindOrCreate(ctx context.Context) (string, error) {
	id, err := r.find(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id, err = r.create(ctx)
		if err != nil {
			return "", err
		}
	}

	r.Bind(id)
	return id, nil
}

type driveFileList struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

func (r *LedgerRepository) find(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.spreadsheet' and trashed=false", r.name)
	rawURL := fmt.Sprintf("%s/files?q=%s", r.client.driveBase, url.QueryEscape(query))

	var list driveFileList
	if err := r.client.doJSON(ctx, http.MethodGet, rawURL, nil, &list); err != nil {
		return "", fmt.Errorf("failed to search for spreadsheet: %w", err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].ID, nil
}

func (r *LedgerRepository) create(ctx context.Context) (string, error) {
	body := map[string]any{
		"properties": map[string]any{"title": r.name},
		"sheets": []any{
			map[string]any{"properties": map[string]any{
				"title":          transactionsSheet,
				"gridProperties": map[string]any{"frozenRowCount": 1},
			}},
			map[string]any{"properties": map[string]any{"title": metadataSheet}},
		},
	}

	var created struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	if err := r.client.doJSON(ctx, http.MethodPost, r.client.sheetsBase+"/spreadsheets", body, &created); err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	if created.SpreadsheetID == "" {
		return "", fmt.Errorf("spreadsheet creation returned an empty id")
	}

	if err := r.putValues(ctx, created.SpreadsheetID, headerRange, [][]string{headerRow}); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}

	r.logger.Info("Created remote ledger spreadsheet", "spreadsheet_id", created.SpreadsheetID, "name", r.name)
	return created.SpreadsheetID, nil
}

type valueRange struct {
	Values [][]string `json:"values"`
}

func (r *LedgerRepository) valuesURL(id, rng, suffix string) string {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s%s", r.client.sheetsBase, id, url.PathEscape(rng), suffix)
	return u
}

func (r *LedgerRepository) putValues(ctx context.Context, id, rng string, values [][]string) error {
	rawURL := r.valuesURL(id, rng, "?valueInputOption=RAW")
	return r.client.doJSON(ctx, http.MethodPut, rawURL, valueRange{Values: values}, nil)
}

func (r *LedgerRepository) getValues(ctx context.Context, id, rng string) ([][]string, error) {
	var vr valueRange
	if err := r.client.doJSON(ctx, http.MethodGet, r.valuesURL(id, rng, ""), nil, &vr); err != nil {
		return nil, err
	}
	return vr.Values, nil
}

// ReadAll scans the full transaction region. Rows that fail to decode are
// skipped with a warning rather than aborting the scan.
func (r *LedgerRepository) ReadAll(ctx context.Context) ([]*expense.Transaction, error) {
	id, err := r.boundID()
	if err != nil {
		return nil, err
	}

	rows, err := r.getValues(ctx, id, dataRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote transactions: %w", err)
	}

	txs := make([]*expense.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := decodeRow(row)
		if err != nil {
			r.logger.Warn("Skipping malformed remote row", "row", i+2, "error", err)
			continue
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// WriteAll replaces the data region with exactly the given set: clear, then
// one bulk write. Used only by the merge pass.
func (r *LedgerRepository) WriteAll(ctx context.Context, txs []*expense.Transaction) error {
	id, err := r.boundID()
	if err != nil {
		return err
	}

	if err := r.client.doJSON(ctx, http.MethodPost, r.valuesURL(id, dataRange, ":clear"), nil, nil); err != nil {
		return fmt.Errorf("failed to clear remote transactions: %w", err)
	}

	if len(txs) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, encodeRow(tx))
	}

	if err := r.putValues(ctx, id, dataRange, rows); err != nil {
		return fmt.Errorf("failed to write remote transactions: %w", err)
	}

	return nil
}

// findRow scans the raw data region for the row whose id column matches
// txID and returns its 1-based sheet row. The scan works on the raw values,
// not the decoded set: malformed rows still occupy physical rows, and
// skipping them would shift every index below them.
func (r *LedgerRepository) findRow(ctx context.Context, id, txID string) (int, bool, error) {
	rows, err := r.getValues(ctx, id, dataRange)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read remote transactions: %w", err)
	}

	for i, row := range rows {
		if len(row) > 0 && row[0] == txID {
			// +2: one for the header row, one for 1-based sheet addressing
			return i + 2, true, nil
		}
	}

	return 0, false, nil
}

// Upsert locates the row holding the transaction's id and rewrites it in
// place, appending a new row when absent. Re-applying the same transaction
// never duplicates a row.
func (r *LedgerRepository) Upsert(ctx context.Context, tx *expense.Transaction) error {
	id, err := r.boundID()
	if err != nil {
		return err
	}

	sheetRow, found, err := r.findRow(ctx, id, tx.ID)
	if err != nil {
		return err
	}

	if !found {
		rawURL := r.valuesURL(id, appendRange, ":append?valueInputOption=RAW")
		if err := r.client.doJSON(ctx, http.MethodPost, rawURL, valueRange{Values: [][]string{encodeRow(tx)}}, nil); err != nil {
			return fmt.Errorf("failed to append remote transaction %s: %w", tx.ID, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:H%d", transactionsSheet, sheetRow, sheetRow)
	if err := r.putValues(ctx, id, rng, [][]string{encodeRow(tx)}); err != nil {
		return fmt.Errorf("failed to update remote transaction %s: %w", tx.ID, err)
	}

	return nil
}

// Remove deletes the row holding the given id; absent ids are a no-op
func (r *LedgerRepository) Remove(ctx context.Context, txID string) error {
	id, err := r.boundID()
	if err != nil {
		return err
	}

	sheetRow, found, err := r.findRow(ctx, id, txID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	// Sheet row indexes for deleteDimension are 0-based
	start := sheetRow - 1
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"deleteDimension": map[string]any{
					"range": map[string]any{
						"sheetId":    0,
						"dimension":  "ROWS",
						"startIndex": start,
						"endIndex":   start + 1,
					},
				},
			},
		},
	}

	rawURL := fmt.Sprintf("%s/spreadsheets/%s:batchUpdate", r.client.sheetsBase, id)
	if err := r.client.doJSON(ctx, http.MethodPost, rawURL, body, nil); err != nil {
		return fmt.Errorf("failed to delete remote transaction %s: %w", txID, err)
	}

	return nil
}

// LastSync reads the ledger-level last-sync marker from the metadata sheet
func (r *LedgerRepository) LastSync(ctx context.Context) (int64, error) {
	id, err := r.boundID()
	if err != nil {
		return 0, err
	}

	rows, err := r.getValues(ctx, id, metadataRange)
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger metadata: %w", err)
	}

	for _, row := range rows {
		if len(row) >= 2 && row[0] == lastSyncMarker {
			ts, err := strconv.ParseInt(row[1], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("ledger metadata %s value %q is not a timestamp: %w", lastSyncMarker, row[1], err)
			}
			return ts, nil
		}
	}

	return 0, nil
}

// SetLastSync writes the ledger-level last-sync marker
func (r *LedgerRepository) SetLastSync(ctx context.Context, ts int64) error {
	id, err := r.boundID()
	if err != nil {
		return err
	}

	values := [][]string{{lastSyncMarker, strconv.FormatInt(ts, 10)}}
	if err := r.putValues(ctx, id, lastSyncRange, values); err != nil {
		return fmt.Errorf("failed to write ledger metadata: %w", err)
	}

	return nil
}

// encodeRow renders a transaction into the sheet's column layout
func encodeRow(tx *expense.Transaction) []string {
	return []string{
		tx.ID,
		tx.Date,
		string(tx.Kind),
		tx.Category,
		tx.Amount.String(),
		tx.Description,
		strconv.FormatBool(tx.Cleared),
		strconv.FormatInt(tx.UpdatedAt, 10),
	}
}

// decodeRow parses one sheet row into the canonical transaction shape.
// Remote-origin records are synced by definition.
func decodeRow(row []string) (*expense.Transaction, error) {
	if len(row) < 8 {
		return nil, fmt.Errorf("row has %d columns, want 8", len(row))
	}
	if row[0] == "" {
		return nil, fmt.Errorf("row has an empty id")
	}

	kind := expense.Kind(row[2])
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", row[2])
	}

	amount, err := decimal.NewFromString(row[4])
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", row[4], err)
	}

	updatedAt, err := strconv.ParseInt(row[7], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad updated-at %q: %w", row[7], err)
	}

	return &expense.Transaction{
		ID:          row[0],
		Date:        row[1],
		Kind:        kind,
		Category:    row[3],
		Amount:      amount,
		Description: row[5],
		Cleared:     row[6] == "true",
		UpdatedAt:   updatedAt,
		Synced:      true,
	}, nil
}
