package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apisak-w/pwa-expense-manager/internal/syncer"
)

// SyncHandler manages sync-related HTTP endpoints
type SyncHandler struct {
	logger  *slog.Logger
	service Service
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, service Service) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		service: service,
	}
}

// SyncNow handles POST /api/v1/sync. An explicit sync surfaces its outcome:
// 503 when the remote is unreachable, 409 when a pass is already running.
func (h *SyncHandler) SyncNow(c *gin.Context) {
	if err := h.service.SyncNow(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, syncer.ErrNotAuthenticated):
			RespondServiceUnavailable(c, err.Error())
		case errors.Is(err, syncer.ErrSyncBusy):
			RespondConflict(c, err.Error())
		default:
			h.logger.Error("Sync pass failed", "error", err)
			RespondWithError(c, http.StatusBadGateway, "SYNC_FAILED", err.Error())
		}
		return
	}

	h.Status(c)
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	meta, err := h.service.Metadata(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read sync metadata", "error", err)
		RespondInternalError(c)
		return
	}

	pending, err := h.service.PendingCount(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read sync queue depth", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, NewSyncStatusResponse(meta, pending))
}

// SetAutoSync handles PUT /api/v1/sync/autosync
func (h *SyncHandler) SetAutoSync(c *gin.Context) {
	var req AutoSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	meta, err := h.service.SetAutoSync(c.Request.Context(), *req.Enabled, req.IntervalMinutes)
	if err != nil {
		h.logger.Error("Failed to update auto-sync settings", "error", err)
		RespondInternalError(c)
		return
	}

	pending, err := h.service.PendingCount(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read sync queue depth", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, NewSyncStatusResponse(meta, pending))
}
