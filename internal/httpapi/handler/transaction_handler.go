package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
)

// Service is the sync engine boundary the HTTP facade drives
type Service interface {
	EnqueueCreate(ctx context.Context, tx *expense.Transaction) (*expense.Transaction, error)
	EnqueueUpdate(ctx context.Context, tx *expense.Transaction) (*expense.Transaction, error)
	EnqueueDelete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*expense.Transaction, error)
	List(ctx context.Context) ([]*expense.Transaction, error)
	SyncNow(ctx context.Context) error
	Metadata(ctx context.Context) (*syncstate.Metadata, error)
	PendingCount(ctx context.Context) (int, error)
	SetAutoSync(ctx context.Context, enabled bool, intervalMinutes int) (*syncstate.Metadata, error)
}

// TransactionHandler manages transaction-related HTTP endpoints
type TransactionHandler struct {
	logger  *slog.Logger
	service Service
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, service Service) *TransactionHandler {
	return &TransactionHandler{
		logger:  logger,
		service: service,
	}
}

// Create handles POST /api/v1/transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	tx, err := req.ToDomain()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	created, err := h.service.EnqueueCreate(c.Request.Context(), tx)
	if err != nil {
		h.logger.Error("Failed to create transaction", "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	RespondCreated(c, NewTransactionResponse(created))
}

// Update handles PUT /api/v1/transactions/:id
func (h *TransactionHandler) Update(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	tx, err := req.ToDomain()
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}
	tx.ID = c.Param("id")

	updated, err := h.service.EnqueueUpdate(c.Request.Context(), tx)
	if err != nil {
		var notFound expense.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, err.Error())
			return
		}
		h.logger.Error("Failed to update transaction", "id", tx.ID, "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	RespondOK(c, NewTransactionResponse(updated))
}

// Delete handles DELETE /api/v1/transactions/:id
func (h *TransactionHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.EnqueueDelete(c.Request.Context(), id); err != nil {
		var notFound expense.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, err.Error())
			return
		}
		h.logger.Error("Failed to delete transaction", "id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// GetByID handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	tx, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		var notFound expense.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, err.Error())
			return
		}
		h.logger.Error("Failed to get transaction", "id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, NewTransactionResponse(tx))
}

// List handles GET /api/v1/transactions
func (h *TransactionHandler) List(c *gin.Context) {
	txs, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list transactions", "error", err)
		RespondInternalError(c)
		return
	}

	resp := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(txs))}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, NewTransactionResponse(tx))
	}

	RespondOK(c, resp)
}
