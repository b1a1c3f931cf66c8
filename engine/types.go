package engine

import (
	"time"

	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/fair"
)

// SpinStatus is the lifecycle state of a queued spin.
type SpinStatus string

const (
	StatusQueued            SpinStatus = "QUEUED"
	StatusSubmitted         SpinStatus = "SUBMITTED"
	StatusWaitingForOutcome SpinStatus = "WAITING_FOR_OUTCOME"
	StatusCompleted         SpinStatus = "COMPLETED"
	StatusFailed            SpinStatus = "FAILED"
	StatusExpired           SpinStatus = "EXPIRED"
)

// Terminal reports whether the status is final. Terminal spins hold no
// balance reservation.
func (s SpinStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// SpinRequest is a bet handed to the engine. Amounts are integral base
// units. SpinID is an optional caller-supplied correlation id; the engine
// assigns one when it is empty.
type SpinRequest struct {
	SpinID     string `json:"spinId,omitempty"`
	BetPerLine int64  `json:"betPerLine"`
	Paylines   int    `json:"paylines"`
}

// TotalBet is the full stake the request reserves.
func (r SpinRequest) TotalBet() int64 {
	return r.BetPerLine * int64(r.Paylines)
}

// QueuedSpin tracks one bet through its lifecycle.
type QueuedSpin struct {
	SpinID     string     `json:"spinId"`
	BetKey     string     `json:"betKey"`
	BetPerLine int64      `json:"betPerLine"`
	Paylines   int        `json:"paylines"`
	TotalBet   int64      `json:"totalBet"`
	Status     SpinStatus `json:"status"`
	QueuedAt   time.Time  `json:"queuedAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// SpinOutcome is the settled result of a spin, after independent grid
// reconstruction and payout recomputation.
type SpinOutcome struct {
	SpinID       string                 `json:"spinId"`
	BetKey       string                 `json:"betKey"`
	BlockSeed    string                 `json:"blockSeed"`
	Grid         game.Grid              `json:"grid"`
	WinningLines []game.WinningLine     `json:"winningLines"`
	BetPerLine   int64                  `json:"betPerLine"`
	Paylines     int                    `json:"paylines"`
	TotalBet     int64                  `json:"totalBet"`
	Payout       int64                  `json:"payout"`
	WinLevel     string                 `json:"winLevel"`
	Fair         *fair.ProvablyFairData `json:"provablyFair,omitempty"`
	Status       SpinStatus             `json:"status"`
	SettledAt    time.Time              `json:"settledAt"`
}

// BalanceState is the engine's view of wallet funds. Available comes only
// from authoritative chain reads; Reserved is recomputed from the live queue.
// Displayable funds are Available minus Reserved.
type BalanceState struct {
	WalletAddress     string    `json:"walletAddress"`
	Available         int64     `json:"available"`
	Reserved          int64     `json:"reserved"`
	LastAuthoritative time.Time `json:"lastAuthoritative"`
}

// Spendable returns the funds usable for a new bet, clamped at zero: an
// authoritative read arriving mid-flight can momentarily report less than
// the outstanding reservations.
func (b BalanceState) Spendable() int64 {
	if spendable := b.Available - b.Reserved; spendable > 0 {
		return spendable
	}
	return 0
}

// EventType tags engine events pushed to game surfaces.
type EventType string

const (
	EventSpinQueued    EventType = "SPIN_QUEUED"
	EventSpinSubmitted EventType = "SPIN_SUBMITTED"
	EventSpinOutcome   EventType = "SPIN_OUTCOME"
	EventBalanceUpdate EventType = "BALANCE_UPDATE"
	EventSpinError     EventType = "SPIN_ERROR"
)

// Event is one engine notification. Exactly one of Outcome, Balance and Err
// is set depending on Type; TxID is the chain transaction reference carried
// by submission events.
type Event struct {
	Type    EventType        `json:"type"`
	SpinID  string           `json:"spinId,omitempty"`
	TxID    string           `json:"txId,omitempty"`
	Outcome *SpinOutcome     `json:"outcome,omitempty"`
	Balance *BalanceState    `json:"balance,omitempty"`
	Err     *errors.AppError `json:"error,omitempty"`
	At      time.Time        `json:"at"`
}
