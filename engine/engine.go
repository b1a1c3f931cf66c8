// Package engine owns the bet lifecycle: it reserves funds, drives each spin
// through the chain, independently verifies every settled outcome, and keeps
// the wallet balance reconciled against authoritative chain reads.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/fair"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

// Deps are the external collaborators the engine is constructed with.
// Store and Audit are optional; Chain and Signer are required.
type Deps struct {
	Chain  providers.ChainAdapter
	Signer providers.Signer
	Store  providers.OutcomeStore
	Audit  providers.LogProvider
}

// Engine is the spin/balance state machine for one wallet and one game.
// All state mutation happens under mu; chain calls never hold the lock.
type Engine struct {
	mu sync.Mutex

	gameCfg  *game.Config
	patterns []game.PaylinePattern
	paytable game.Paytable
	strips   [][]game.SymbolID
	evalOpts game.EvaluatorOptions

	deps        Deps
	logger      zerolog.Logger
	events      *Broadcaster
	wallet      string
	claimWindow time.Duration

	spins       map[string]*QueuedSpin
	balance     BalanceState
	initialized bool
}

// NewEngine builds an engine for the given game config and wallet address.
func NewEngine(cfg *game.Config, wallet string, claimWindow time.Duration, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if deps.Chain == nil || deps.Signer == nil {
		return nil, errors.New(errors.CodeConfigError, "engine requires chain adapter and signer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigError, "invalid game config")
	}
	paytable, err := cfg.PaytableEntries()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigError, "invalid paytable")
	}

	return &Engine{
		gameCfg:     cfg,
		patterns:    cfg.PaylinePatterns(),
		paytable:    paytable,
		strips:      cfg.SymbolStrips(),
		evalOpts:    game.OptionsFromConfig(cfg),
		deps:        deps,
		logger:      logger.With().Str("component", "engine").Str("game_code", cfg.GameCode).Logger(),
		events:      NewBroadcaster(32),
		wallet:      wallet,
		claimWindow: claimWindow,
		spins:       make(map[string]*QueuedSpin),
		balance:     BalanceState{WalletAddress: wallet},
	}, nil
}

// Events exposes the engine's event broadcaster.
func (e *Engine) Events() *Broadcaster {
	return e.events
}

// Config returns the immutable game configuration.
func (e *Engine) Config() *game.Config {
	return e.gameCfg
}

// Initialize fetches the first authoritative balance. It must succeed before
// any spin is accepted; failures are not recoverable by retrying the message.
func (e *Engine) Initialize(ctx context.Context) error {
	snapshot, err := e.deps.Chain.GetBalance(ctx, e.wallet)
	if err != nil {
		return errors.Wrap(err, errors.CodeInitFailed, "failed to read wallet balance")
	}

	e.mu.Lock()
	e.applySnapshotLocked(snapshot)
	e.initialized = true
	balance := e.balanceLocked()
	e.mu.Unlock()

	e.logger.Info().
		Str("wallet", e.wallet).
		Int64("available", balance.Available).
		Msg("engine initialized")
	e.events.Send(Event{Type: EventBalanceUpdate, Balance: &balance, At: time.Now()})
	return nil
}

// Initialized reports whether the first authoritative balance read succeeded.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Balance returns the current balance view without touching the chain.
func (e *Engine) Balance() BalanceState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balanceLocked()
}

// RefreshBalance performs an authoritative chain read. The cached view is
// only overwritten when the snapshot is fresher than what we hold.
func (e *Engine) RefreshBalance(ctx context.Context) (BalanceState, error) {
	snapshot, err := e.deps.Chain.GetBalance(ctx, e.wallet)
	if err != nil {
		return e.Balance(), errors.Wrap(err, errors.CodeChainError, "balance refresh failed")
	}
	return e.ApplyAuthoritativeBalance(snapshot), nil
}

// ApplyAuthoritativeBalance folds in a chain-sourced snapshot, from a direct
// read or the wallet event feed. Stale snapshots are dropped.
func (e *Engine) ApplyAuthoritativeBalance(snapshot *providers.BalanceSnapshot) BalanceState {
	e.mu.Lock()
	applied := e.applySnapshotLocked(snapshot)
	balance := e.balanceLocked()
	e.mu.Unlock()

	if applied {
		e.events.Send(Event{Type: EventBalanceUpdate, Balance: &balance, At: time.Now()})
	}
	return balance
}

// ActiveSpinCount reports spins in a non-terminal state.
func (e *Engine) ActiveSpinCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.spins)
}

// Spin drives one bet through its full lifecycle and returns the settled
// outcome. It blocks until settlement, failure or expiry; callers wanting
// async behavior run it in a goroutine and follow the event stream.
func (e *Engine) Spin(ctx context.Context, req SpinRequest) (*SpinOutcome, error) {
	spin, err := e.enqueue(req)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("spin_id", spin.SpinID).Logger()

	prepared, err := e.deps.Chain.PrepareBet(ctx, providers.PrepareBetRequest{
		WalletAddress: e.wallet,
		ContractID:    e.gameCfg.ContractID,
		GameCode:      e.gameCfg.GameCode,
		BetPerLine:    req.BetPerLine,
		Paylines:      req.Paylines,
		TotalBet:      req.TotalBet(),
	})
	if err != nil {
		return nil, e.fail(spin, errors.Wrap(err, errors.CodeSpinFailed, "bet preparation failed"))
	}
	e.setBetKey(spin, prepared.BetKey)
	log = log.With().Str("bet_key", prepared.BetKey).Logger()

	signed, err := e.deps.Signer.SignTransactions(ctx, e.wallet, prepared.Transactions)
	if err != nil {
		return nil, e.fail(spin, errors.Wrap(err, errors.CodeSpinFailed, "transaction signing failed"))
	}

	submitted, err := e.deps.Chain.SubmitBet(ctx, prepared.BetKey, signed)
	if err != nil {
		return nil, e.fail(spin, errors.Wrap(err, errors.CodeSpinFailed, "bet submission failed"))
	}
	if !e.transition(spin, StatusSubmitted) {
		return nil, e.abandoned(spin)
	}
	log.Info().Str("tx_id", submitted.GroupID).Msg("bet submitted")
	e.events.Send(Event{Type: EventSpinSubmitted, SpinID: spin.SpinID, TxID: submitted.GroupID, At: time.Now()})

	if !e.transition(spin, StatusWaitingForOutcome) {
		return nil, e.abandoned(spin)
	}

	outcomeCtx, cancel := context.WithTimeout(ctx, e.claimWindow)
	defer cancel()
	chainOutcome, err := e.deps.Chain.AwaitOutcome(outcomeCtx, prepared.BetKey)
	if err != nil {
		if outcomeCtx.Err() != nil {
			return nil, e.expire(spin)
		}
		return nil, e.fail(spin, errors.Wrap(err, errors.CodeSpinFailed, "outcome retrieval failed"))
	}

	outcome, appErr := e.settle(ctx, spin, req, chainOutcome)
	if appErr != nil {
		return nil, appErr
	}
	log.Info().
		Int64("payout", outcome.Payout).
		Bool("verified", outcome.Fair.Verified).
		Msg("spin settled")
	return outcome, nil
}

// ExpireStale marks non-terminal spins older than the claim window as
// expired and releases their reservations. Called from a ticker in serve.
func (e *Engine) ExpireStale(now time.Time) int {
	e.mu.Lock()
	var stale []*QueuedSpin
	for _, spin := range e.spins {
		if now.Sub(spin.QueuedAt) > e.claimWindow {
			stale = append(stale, spin)
		}
	}
	e.mu.Unlock()

	for _, spin := range stale {
		e.expire(spin)
	}
	return len(stale)
}

// enqueue validates the request against game config and spendable funds.
// The bridge runs the same checks, but the engine re-validates on its own:
// internal callers reach Spin without passing through the bridge.
func (e *Engine) enqueue(req SpinRequest) (*QueuedSpin, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, errors.New(errors.CodeNotInitialized, "engine has no authoritative balance yet")
	}
	if req.BetPerLine < e.gameCfg.MinBet || req.BetPerLine > e.gameCfg.MaxBet {
		return nil, errors.Newf(errors.CodeInvalidRequest, "bet per line must be within [%d, %d]", e.gameCfg.MinBet, e.gameCfg.MaxBet)
	}
	if req.Paylines <= 0 || req.Paylines > e.gameCfg.MaxPaylines {
		return nil, errors.Newf(errors.CodeInvalidRequest, "payline count must be within [1, %d]", e.gameCfg.MaxPaylines)
	}
	if req.TotalBet() > e.balanceLocked().Spendable() {
		return nil, errors.Newf(errors.CodeInsufficientBalance, "bet of %d exceeds spendable balance", req.TotalBet())
	}

	spinID := req.SpinID
	if spinID == "" {
		spinID = uuid.NewString()
	} else if _, exists := e.spins[spinID]; exists {
		return nil, errors.Newf(errors.CodeInvalidRequest, "spin id %s is already queued", spinID)
	}

	now := time.Now()
	spin := &QueuedSpin{
		SpinID:     spinID,
		BetPerLine: req.BetPerLine,
		Paylines:   req.Paylines,
		TotalBet:   req.TotalBet(),
		Status:     StatusQueued,
		QueuedAt:   now,
		UpdatedAt:  now,
	}
	e.spins[spin.SpinID] = spin
	balance := e.balanceLocked()

	e.events.Send(Event{Type: EventSpinQueued, SpinID: spin.SpinID, At: now})
	e.events.Send(Event{Type: EventBalanceUpdate, Balance: &balance, At: now})
	return spin, nil
}

// transition advances a live spin; it refuses if the spin already reached a
// terminal state (e.g. the expiry sweep got there first).
func (e *Engine) transition(spin *QueuedSpin, to SpinStatus) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if spin.Status.Terminal() {
		return false
	}
	spin.Status = to
	spin.UpdatedAt = time.Now()
	return true
}

// finish moves a spin to a terminal state and releases its reservation.
// Returns false if the spin was already terminal.
func (e *Engine) finish(spin *QueuedSpin, to SpinStatus) (BalanceState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if spin.Status.Terminal() {
		return e.balanceLocked(), false
	}
	spin.Status = to
	spin.UpdatedAt = time.Now()
	delete(e.spins, spin.SpinID)
	return e.balanceLocked(), true
}

func (e *Engine) setBetKey(spin *QueuedSpin, betKey string) {
	e.mu.Lock()
	spin.BetKey = betKey
	e.mu.Unlock()
}

func (e *Engine) fail(spin *QueuedSpin, appErr *errors.AppError) *errors.AppError {
	balance, ok := e.finish(spin, StatusFailed)
	if !ok {
		return e.abandoned(spin)
	}
	e.logger.Warn().
		Str("spin_id", spin.SpinID).
		Str("code", appErr.Code).
		Err(appErr.Err).
		Msg("spin failed")

	now := time.Now()
	e.events.Send(Event{Type: EventSpinError, SpinID: spin.SpinID, Err: appErr, At: now})
	e.events.Send(Event{Type: EventBalanceUpdate, Balance: &balance, At: now})
	return appErr
}

func (e *Engine) expire(spin *QueuedSpin) *errors.AppError {
	appErr := errors.New(errors.CodeSpinFailed, "spin expired before an outcome was observed")
	balance, ok := e.finish(spin, StatusExpired)
	if !ok {
		return appErr
	}
	e.logger.Warn().Str("spin_id", spin.SpinID).Msg("spin expired")

	now := time.Now()
	e.events.Send(Event{Type: EventSpinError, SpinID: spin.SpinID, Err: appErr, At: now})
	e.events.Send(Event{Type: EventBalanceUpdate, Balance: &balance, At: now})
	return appErr
}

// abandoned covers the race where the expiry sweep finalized the spin while
// its lifecycle goroutine was still working.
func (e *Engine) abandoned(spin *QueuedSpin) *errors.AppError {
	return errors.Newf(errors.CodeSpinFailed, "spin %s was finalized concurrently", spin.SpinID)
}

func (e *Engine) settle(ctx context.Context, spin *QueuedSpin, req SpinRequest, chainOutcome *providers.ChainOutcome) (*SpinOutcome, *errors.AppError) {
	claimedGrid := chainOutcome.ClaimedGrid
	fairData, err := fair.VerifySpinOutcome(fair.VerifyRequest{
		BlockSeed:     chainOutcome.BlockSeed,
		BetKey:        chainOutcome.BetKey,
		ClaimedGrid:   claimedGrid,
		ClaimedPayout: chainOutcome.ClaimedPayout,
		ReelStrips:    e.strips,
		Rows:          e.gameCfg.Rows,
		Paylines:      e.patterns,
		Paytable:      e.paytable,
		BetPerLine:    req.BetPerLine,
		ActiveLines:   req.Paylines,
		Options:       e.evalOpts,
	})
	if err != nil {
		return nil, e.fail(spin, errors.Wrap(err, errors.CodeSpinFailed, "outcome verification failed"))
	}
	// An absent claimed grid means the contract reports only the payout;
	// the reconstructed grid stands and only the payout comparison counts.
	if claimedGrid == nil {
		fairData.Verified = fairData.ComputedPayout == chainOutcome.ClaimedPayout
	}

	outcome := &SpinOutcome{
		SpinID:       spin.SpinID,
		BetKey:       chainOutcome.BetKey,
		BlockSeed:    chainOutcome.BlockSeed,
		Grid:         fairData.ReconstructedGrid,
		WinningLines: fairData.WinningLines,
		BetPerLine:   req.BetPerLine,
		Paylines:     req.Paylines,
		TotalBet:     req.TotalBet(),
		Payout:       fairData.ComputedPayout,
		WinLevel:     game.WinLevel(fairData.ComputedPayout, req.TotalBet()),
		Fair:         fairData,
		Status:       StatusCompleted,
		SettledAt:    time.Now(),
	}

	// Post-settlement authoritative read; a failure here only delays
	// reconciliation until the next refresh or wallet-feed push.
	if snapshot, err := e.deps.Chain.GetBalance(ctx, e.wallet); err == nil {
		e.mu.Lock()
		e.applySnapshotLocked(snapshot)
		e.mu.Unlock()
	}

	balance, ok := e.finish(spin, StatusCompleted)
	if !ok {
		return nil, e.abandoned(spin)
	}

	e.persist(outcome)

	now := time.Now()
	e.events.Send(Event{Type: EventSpinOutcome, SpinID: spin.SpinID, Outcome: outcome, At: now})
	e.events.Send(Event{Type: EventBalanceUpdate, Balance: &balance, At: now})
	return outcome, nil
}

// persist stores the settled outcome and publishes the audit event.
// Both are best effort and never block or fail settlement.
func (e *Engine) persist(outcome *SpinOutcome) {
	stored := &providers.StoredOutcome{
		SpinID:        outcome.SpinID,
		BetKey:        outcome.BetKey,
		GameCode:      e.gameCfg.GameCode,
		WalletAddress: e.wallet,
		BlockSeed:     outcome.BlockSeed,
		Grid:          outcome.Grid,
		WinningLines:  outcome.WinningLines,
		TotalBet:      outcome.TotalBet,
		Payout:        outcome.Payout,
		WinLevel:      outcome.WinLevel,
		Verified:      outcome.Fair.Verified,
		Status:        string(outcome.Status),
		SettledAt:     outcome.SettledAt,
	}

	if e.deps.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.deps.Store.SaveOutcome(ctx, stored); err != nil {
			e.logger.Error().Err(err).Str("bet_key", outcome.BetKey).Msg("failed to persist outcome")
		}
	}

	if e.deps.Audit != nil {
		event := providers.SpinAuditEvent{
			EventID:       uuid.NewString(),
			EventType:     "spin_settled",
			SpinID:        outcome.SpinID,
			BetKey:        outcome.BetKey,
			GameCode:      e.gameCfg.GameCode,
			WalletAddress: e.wallet,
			TotalBet:      outcome.TotalBet,
			Payout:        outcome.Payout,
			WinLevel:      outcome.WinLevel,
			Verified:      outcome.Fair.Verified,
			Status:        string(outcome.Status),
			Timestamp:     outcome.SettledAt,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.deps.Audit.PublishSpinEvent(ctx, event); err != nil {
				e.logger.Error().Err(err).Str("bet_key", event.BetKey).Msg("failed to publish audit event")
			}
		}()
	}
}

// applySnapshotLocked folds an authoritative snapshot in under e.mu.
// Last authoritative read wins; anything older is dropped.
func (e *Engine) applySnapshotLocked(snapshot *providers.BalanceSnapshot) bool {
	if snapshot == nil || snapshot.At.Before(e.balance.LastAuthoritative) {
		return false
	}
	e.balance.Available = snapshot.Available
	e.balance.LastAuthoritative = snapshot.At
	return true
}

// balanceLocked recomputes the reservation from the live queue.
func (e *Engine) balanceLocked() BalanceState {
	reserved := lo.SumBy(lo.Values(e.spins), func(s *QueuedSpin) int64 {
		if s.Status.Terminal() {
			return 0
		}
		return s.TotalBet
	})
	return BalanceState{
		WalletAddress:     e.wallet,
		Available:         e.balance.Available,
		Reserved:          reserved,
		LastAuthoritative: e.balance.LastAuthoritative,
	}
}
