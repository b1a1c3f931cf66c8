// Package bridge sits between an untrusted game surface and the wallet-
// holding engine. Every inbound message is validated, rate limited and
// policy checked here before anything reaches the engine.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/engine"
	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
)

// Sink is where outbound messages go: a WebSocket connection in production,
// a capture buffer in tests.
type Sink interface {
	Send(msg Outbound) error
}

// Session is one game surface's connection to the engine. A session refuses
// everything until INIT succeeds.
type Session struct {
	engine *engine.Engine
	cfg    config.BridgeConfig
	sink   Sink
	logger zerolog.Logger

	mu           sync.Mutex
	initialized  bool
	spinning     bool
	lastAccepted time.Time
	now          func() time.Time
}

// NewSession wires a session to the engine and an outbound sink.
func NewSession(eng *engine.Engine, cfg config.BridgeConfig, sink Sink, logger zerolog.Logger) *Session {
	return &Session{
		engine: eng,
		cfg:    cfg,
		sink:   sink,
		logger: logger.With().Str("component", "bridge").Logger(),
		now:    time.Now,
	}
}

// SetSink attaches the outbound sink. Origin authorization happens before
// the transport exists, so the sink may arrive after construction.
func (s *Session) SetSink(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Authorize checks the surface origin against the allow-list. An empty
// allow-list accepts any origin (development mode).
func (s *Session) Authorize(origin string) *errors.AppError {
	if s.cfg.AllowedOrigin == "" || origin == s.cfg.AllowedOrigin {
		return nil
	}
	s.logger.Warn().Str("origin", origin).Msg("rejected surface origin")
	return errors.Newf(errors.CodeUnauthorizedOrigin, "origin %q is not allowed", origin)
}

// HandleMessage processes one inbound frame. Protocol violations come back
// as ERROR messages on the sink; the session itself never returns an error
// for bad surface input.
func (s *Session) HandleMessage(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("message handler panicked")
			s.sendError(errors.Newf(errors.CodeMessageHandlerError, "internal handler failure"))
		}
	}()

	env, appErr := ParseEnvelope(raw)
	if appErr != nil {
		s.sendError(appErr)
		return
	}

	switch env.Type {
	case MsgInit:
		s.handleInit(ctx, env.Data)
	case MsgSpinRequest:
		s.handleSpinRequest(ctx, env.Data)
	case MsgGetBalance:
		s.handleGetBalance(ctx, env.Data)
	case MsgGetConfig:
		s.handleGetConfig()
	default:
		s.sendError(errors.Newf(errors.CodeInvalidMessage, "unknown message type %q", env.Type))
	}
}

// Pump forwards engine events to the surface until ctx is canceled.
// One inbound message can yield any number of outbound events.
func (s *Session) Pump(ctx context.Context) {
	events, cancel := s.engine.Events().Listen(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.forwardEvent(ev)
		}
	}
}

// forwardEvent maps engine events onto the surface protocol. Queue events
// are internal bookkeeping and stay inside the host.
func (s *Session) forwardEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventSpinError:
		s.sendError(ev.Err)
	case engine.EventSpinSubmitted:
		s.send(Outbound{Type: MsgSpinSubmitted, Data: SpinSubmittedPayload{SpinID: ev.SpinID, TxID: ev.TxID}})
	case engine.EventSpinOutcome:
		if ev.Outcome != nil {
			s.send(Outbound{Type: MsgOutcome, Data: outcomePayload(ev.Outcome)})
		}
	case engine.EventBalanceUpdate:
		if ev.Balance != nil {
			s.send(Outbound{Type: MsgBalanceUpdate, Data: balancePayload(*ev.Balance)})
		}
	}
}

func (s *Session) handleInit(ctx context.Context, data map[string]interface{}) {
	var payload InitPayload
	if appErr := decodePayload(data, &payload); appErr != nil {
		s.sendError(appErr)
		return
	}
	if payload.ContractID != "" && payload.ContractID != s.engine.Config().ContractID {
		s.sendError(errors.Newf(errors.CodeInvalidRequest, "contract %q is not served here", payload.ContractID))
		return
	}

	s.mu.Lock()
	alreadyInitialized := s.initialized
	s.mu.Unlock()

	// Idempotent: a repeated INIT re-pushes current state instead of
	// re-running engine startup.
	if !alreadyInitialized && !s.engine.Initialized() {
		if err := s.engine.Initialize(ctx); err != nil {
			s.logger.Error().Err(err).Msg("engine initialization failed")
			s.sendError(errors.Wrap(err, errors.CodeInitFailed, "initialization failed"))
			return
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.send(Outbound{Type: MsgConfig, Data: s.engine.Config().Normalize()})
	s.send(Outbound{Type: MsgBalanceUpdate, Data: balancePayload(s.engine.Balance())})
}

// handleSpinRequest applies the acceptance checks in protocol order; the
// first failure is the one reported.
func (s *Session) handleSpinRequest(ctx context.Context, data map[string]interface{}) {
	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized || !s.engine.Initialized() {
		s.sendError(errors.New(errors.CodeNotInitialized, "session is not initialized"))
		return
	}

	if appErr := requireIntegral(data, "betPerLine"); appErr != nil {
		s.sendError(appErr)
		return
	}
	var payload SpinRequestPayload
	if appErr := decodePayload(data, &payload); appErr != nil {
		s.sendError(errors.Wrap(appErr, errors.CodeInvalidRequest, "spin request has invalid shape"))
		return
	}
	if payload.BetPerLine <= 0 || payload.Paylines <= 0 {
		s.sendError(errors.New(errors.CodeInvalidRequest, "bet and payline count must be positive"))
		return
	}

	s.mu.Lock()
	if since := s.now().Sub(s.lastAccepted); since < s.cfg.SpinCooldown {
		s.mu.Unlock()
		s.sendError(errors.Newf(errors.CodeRateLimit, "spin cooldown active for another %s", s.cfg.SpinCooldown-since))
		return
	}
	s.mu.Unlock()

	gameCfg := s.engine.Config()
	if payload.BetPerLine < gameCfg.MinBet || payload.BetPerLine > gameCfg.MaxBet {
		s.sendError(errors.Newf(errors.CodeInvalidRequest, "bet per line must be within [%d, %d]", gameCfg.MinBet, gameCfg.MaxBet))
		return
	}
	if payload.Paylines > gameCfg.MaxPaylines {
		s.sendError(errors.Newf(errors.CodeInvalidRequest, "at most %d paylines are playable", gameCfg.MaxPaylines))
		return
	}

	req := engine.SpinRequest{SpinID: payload.SpinID, BetPerLine: payload.BetPerLine, Paylines: payload.Paylines}
	if balance := s.engine.Balance(); req.TotalBet() > balance.Spendable() {
		s.sendError(errors.Newf(errors.CodeInsufficientBalance, "bet of %d exceeds spendable balance %d", req.TotalBet(), balance.Spendable()))
		return
	}

	s.mu.Lock()
	if s.spinning {
		s.mu.Unlock()
		s.sendError(errors.New(errors.CodeAlreadySpinning, "a spin is already in flight"))
		return
	}
	s.spinning = true
	s.lastAccepted = s.now()
	s.mu.Unlock()

	// Acceptance is silent; SPIN_SUBMITTED and OUTCOME arrive through the
	// event pump once the chain acknowledges.
	go func() {
		defer func() {
			s.mu.Lock()
			s.spinning = false
			s.mu.Unlock()
		}()
		// Outcome and errors reach the surface through the event pump.
		if _, err := s.engine.Spin(ctx, req); err != nil {
			s.logger.Warn().Err(err).Msg("spin did not settle")
		}
	}()
}

// handleGetBalance always attempts an authoritative chain refresh first;
// a failed refresh falls back to the cached view rather than surfacing an
// error. Balance display degrades, it never hard-fails.
func (s *Session) handleGetBalance(ctx context.Context, data map[string]interface{}) {
	var payload GetBalancePayload
	if appErr := decodePayload(data, &payload); appErr != nil {
		s.sendError(appErr)
		return
	}

	balance, err := s.engine.RefreshBalance(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("balance refresh failed, serving cached view")
		balance = s.engine.Balance()
	}
	s.send(Outbound{Type: MsgBalanceResponse, Data: balancePayload(balance)})
}

func (s *Session) handleGetConfig() {
	s.send(Outbound{Type: MsgConfig, Data: s.engine.Config().Normalize()})
}

func balancePayload(b engine.BalanceState) BalancePayload {
	return BalancePayload{
		Balance:          b.Available,
		AvailableBalance: b.Spendable(),
	}
}

func outcomePayload(out *engine.SpinOutcome) OutcomePayload {
	return OutcomePayload{
		SpinID:       out.SpinID,
		Grid:         out.Grid,
		Winnings:     out.Payout,
		IsWin:        out.Payout > 0,
		WinningLines: out.WinningLines,
		WinLevel:     out.WinLevel,
		BetPerLine:   out.BetPerLine,
		Paylines:     out.Paylines,
		TotalBet:     out.TotalBet,
	}
}

func (s *Session) send(msg Outbound) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return
	}
	if err := sink.Send(msg); err != nil {
		s.logger.Warn().Err(err).Str("type", msg.Type).Msg("failed to push message to surface")
	}
}

func (s *Session) sendError(appErr *errors.AppError) {
	if appErr == nil {
		return
	}
	s.send(Outbound{Type: MsgError, Data: ErrorPayload{
		Code:        appErr.Code,
		Message:     appErr.Message,
		Recoverable: appErr.Recoverable,
	}})
}
