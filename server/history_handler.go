package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
)

const defaultHistoryLimit = 50

// HistoryHandler serves settled outcomes from the outcome store.
type HistoryHandler struct {
	app *App
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(app *App) *HistoryHandler {
	return &HistoryHandler{app: app}
}

// GetBetHistory lists settled spins for a wallet, newest first.
func (h *HistoryHandler) GetBetHistory(c *gin.Context) {
	store := h.app.OutcomeStore()
	if store == nil {
		Error(c, http.StatusServiceUnavailable, errors.New(errors.CodeStoreError, "outcome store is not configured"))
		return
	}

	wallet := c.Query("wallet")
	if wallet == "" {
		BadRequest(c, errors.New(errors.CodeInvalidRequest, "wallet query parameter is required"))
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			BadRequest(c, errors.New(errors.CodeInvalidRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	outcomes, err := store.ListOutcomes(c.Request.Context(), h.app.GameCode(), wallet, limit)
	if err != nil {
		InternalError(c, errors.Wrap(err, errors.CodeStoreError, "failed to load bet history"))
		return
	}

	OK(c, gin.H{
		"gameCode": h.app.GameCode(),
		"wallet":   wallet,
		"count":    len(outcomes),
		"bets":     outcomes,
	})
}
