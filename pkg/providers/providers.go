// Package providers defines the external collaborator contracts the engine
// is constructed with. Implementations live in the provider package; tests
// substitute fakes.
package providers

import (
	"context"
	"time"

	"github.com/Digital-Creators-Team/chain-slots-engine/game"
)

// PrepareBetRequest asks the chain service to build an unsigned bet
// transaction set. Amounts are integral base units.
type PrepareBetRequest struct {
	WalletAddress string `json:"walletAddress"`
	ContractID    string `json:"contractId"`
	GameCode      string `json:"gameCode"`
	BetPerLine    int64  `json:"betPerLine"`
	Paylines      int    `json:"paylines"`
	TotalBet      int64  `json:"totalBet"`
}

// UnsignedTransaction is an opaque payload the signer must sign. The engine
// never inspects or constructs transaction internals.
type UnsignedTransaction struct {
	ID      string `json:"id"`
	Payload []byte `json:"payload"`
}

// SignedTransaction pairs an unsigned transaction ID with its signature
// envelope, ready for chain submission.
type SignedTransaction struct {
	ID     string `json:"id"`
	Signed []byte `json:"signed"`
}

// PreparedBet is the chain service's response to PrepareBet.
type PreparedBet struct {
	BetKey       string                `json:"betKey"`
	Transactions []UnsignedTransaction `json:"transactions"`
}

// SubmittedBet acknowledges a submitted transaction group.
type SubmittedBet struct {
	BetKey  string `json:"betKey"`
	GroupID string `json:"groupId"`
}

// ChainOutcome is the settled result of a bet as reported by the chain.
// ClaimedPayout is what the contract says it paid; the engine independently
// recomputes it before trusting it.
type ChainOutcome struct {
	BetKey        string    `json:"betKey"`
	BlockSeed     string    `json:"blockSeed"`
	ClaimedGrid   game.Grid `json:"claimedGrid,omitempty"`
	ClaimedPayout int64     `json:"claimedPayout"`
	Round         uint64    `json:"round"`
	SettledAt     time.Time `json:"settledAt"`
}

// BalanceSnapshot is an authoritative balance read. At orders snapshots so
// stale reads arriving late never overwrite fresher ones.
type BalanceSnapshot struct {
	WalletAddress string    `json:"walletAddress"`
	Available     int64     `json:"available"`
	At            time.Time `json:"at"`
}

// ChainAdapter is the engine's gateway to the chain service. AwaitOutcome
// blocks until the bet settles or ctx expires.
type ChainAdapter interface {
	PrepareBet(ctx context.Context, req PrepareBetRequest) (*PreparedBet, error)
	SubmitBet(ctx context.Context, betKey string, txns []SignedTransaction) (*SubmittedBet, error)
	AwaitOutcome(ctx context.Context, betKey string) (*ChainOutcome, error)
	GetBalance(ctx context.Context, walletAddress string) (*BalanceSnapshot, error)
}

// Signer signs prepared transactions. Key material never enters this module.
type Signer interface {
	SignTransactions(ctx context.Context, walletAddress string, txns []UnsignedTransaction) ([]SignedTransaction, error)
}

// StoredOutcome is a settled spin persisted for bet history and audit.
type StoredOutcome struct {
	SpinID        string             `json:"spinId"`
	BetKey        string             `json:"betKey"`
	GameCode      string             `json:"gameCode"`
	WalletAddress string             `json:"walletAddress"`
	BlockSeed     string             `json:"blockSeed"`
	Grid          game.Grid          `json:"grid"`
	WinningLines  []game.WinningLine `json:"winningLines"`
	TotalBet      int64              `json:"totalBet"`
	Payout        int64              `json:"payout"`
	WinLevel      string             `json:"winLevel"`
	Verified      bool               `json:"verified"`
	Status        string             `json:"status"`
	SettledAt     time.Time          `json:"settledAt"`
}

// OutcomeStore persists settled outcomes keyed by bet key.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, outcome *StoredOutcome) error
	GetOutcome(ctx context.Context, betKey string) (*StoredOutcome, error)
	ListOutcomes(ctx context.Context, gameCode, walletAddress string, limit int) ([]*StoredOutcome, error)
}

// SpinAuditEvent is the audit-trail record published per settled spin.
type SpinAuditEvent struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	SpinID        string    `json:"spinId"`
	BetKey        string    `json:"betKey"`
	GameCode      string    `json:"gameCode"`
	WalletAddress string    `json:"walletAddress"`
	TotalBet      int64     `json:"totalBet"`
	Payout        int64     `json:"payout"`
	WinLevel      string    `json:"winLevel"`
	Verified      bool      `json:"verified"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// LogProvider publishes audit events. Best effort; callers must not block
// settlement on it.
type LogProvider interface {
	PublishSpinEvent(ctx context.Context, event SpinAuditEvent) error
	Close() error
}
