package server

import (
	"github.com/gin-gonic/gin"

	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/fair"
)

// FairHandler serves the public provably-fair verification endpoint.
type FairHandler struct {
	app *App
}

// NewFairHandler creates a fair handler.
func NewFairHandler(app *App) *FairHandler {
	return &FairHandler{app: app}
}

// VerifyRequestBody is the audit input: chain-public data plus the claimed
// outcome. Game parameters come from the hosted game's configuration.
type VerifyRequestBody struct {
	BlockSeed     string    `json:"blockSeed" binding:"required"`
	BetKey        string    `json:"betKey" binding:"required"`
	ClaimedGrid   game.Grid `json:"claimedGrid" binding:"required"`
	ClaimedPayout int64     `json:"claimedPayout"`
	BetPerLine    int64     `json:"betPerLine" binding:"required"`
	Paylines      int       `json:"paylines" binding:"required"`
}

// Verify recomputes the grid and payout for a settled bet and reports
// whether the claims hold. A mismatch is a 200 with verified=false.
func (h *FairHandler) Verify(c *gin.Context) {
	var body VerifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, errors.Wrap(err, errors.CodeInvalidRequest, "invalid verification request"))
		return
	}

	cfg := h.app.Engine().Config()
	paytable, err := cfg.PaytableEntries()
	if err != nil {
		InternalError(c, err)
		return
	}

	result, err := fair.VerifySpinOutcome(fair.VerifyRequest{
		BlockSeed:     body.BlockSeed,
		BetKey:        body.BetKey,
		ClaimedGrid:   body.ClaimedGrid,
		ClaimedPayout: body.ClaimedPayout,
		ReelStrips:    cfg.SymbolStrips(),
		Rows:          cfg.Rows,
		Paylines:      cfg.PaylinePatterns(),
		Paytable:      paytable,
		BetPerLine:    body.BetPerLine,
		ActiveLines:   body.Paylines,
		Options:       game.OptionsFromConfig(cfg),
	})
	if err != nil {
		BadRequest(c, errors.Wrap(err, errors.CodeInvalidRequest, "verification inputs are unusable"))
		return
	}

	OK(c, result)
}
