package bridge

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/engine"
	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

type captureSink struct {
	mu   sync.Mutex
	msgs []Outbound
}

func (c *captureSink) Send(msg Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *captureSink) last(t *testing.T) Outbound {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		t.Fatal("no outbound messages captured")
	}
	return c.msgs[len(c.msgs)-1]
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *captureSink) lastErrorCode(t *testing.T) string {
	t.Helper()
	msg := c.last(t)
	if msg.Type != MsgError {
		t.Fatalf("last message type = %s, want ERROR (%+v)", msg.Type, msg)
	}
	payload, ok := msg.Data.(ErrorPayload)
	if !ok {
		t.Fatalf("error payload has unexpected type %T", msg.Data)
	}
	return payload.Code
}

type stubChain struct {
	balance    int64
	balanceErr error
	awaitGate  chan struct{}
}

func (s *stubChain) PrepareBet(ctx context.Context, req providers.PrepareBetRequest) (*providers.PreparedBet, error) {
	return &providers.PreparedBet{
		BetKey:       "bet-key-1",
		Transactions: []providers.UnsignedTransaction{{ID: "tx-1", Payload: []byte("p")}},
	}, nil
}

func (s *stubChain) SubmitBet(ctx context.Context, betKey string, txns []providers.SignedTransaction) (*providers.SubmittedBet, error) {
	return &providers.SubmittedBet{BetKey: betKey, GroupID: "g"}, nil
}

func (s *stubChain) AwaitOutcome(ctx context.Context, betKey string) (*providers.ChainOutcome, error) {
	if s.awaitGate != nil {
		select {
		case <-s.awaitGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &providers.ChainOutcome{BetKey: betKey, BlockSeed: "seed-1", SettledAt: time.Now()}, nil
}

func (s *stubChain) GetBalance(ctx context.Context, walletAddress string) (*providers.BalanceSnapshot, error) {
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	return &providers.BalanceSnapshot{WalletAddress: walletAddress, Available: s.balance, At: time.Now()}, nil
}

type stubSigner struct{}

func (stubSigner) SignTransactions(ctx context.Context, walletAddress string, txns []providers.UnsignedTransaction) ([]providers.SignedTransaction, error) {
	out := make([]providers.SignedTransaction, len(txns))
	for i, tx := range txns {
		out[i] = providers.SignedTransaction{ID: tx.ID, Signed: tx.Payload}
	}
	return out, nil
}

func bridgeGameConfig() *game.Config {
	return &game.Config{
		GameCode:   "chain_slots",
		ContractID: "CT-SLOTS-01",
		Reels:      5,
		Rows:       3,
		ReelStrips: [][]int{
			{1, 2, 3, 4, 5, 6, 7, 8},
			{2, 3, 4, 5, 6, 7, 8, 1},
			{3, 4, 5, 6, 7, 8, 1, 2},
			{4, 5, 6, 7, 8, 1, 2, 3},
			{5, 6, 7, 8, 1, 2, 3, 4},
		},
		Paylines:    [][]int{{0, 0, 0, 0, 0}, {1, 1, 1, 1, 1}, {2, 2, 2, 2, 2}},
		Paytable:    map[string][]int64{"1": {5, 25, 100}},
		MinBet:      10,
		MaxBet:      10000,
		MaxPaylines: 3,
	}
}

func newTestSession(t *testing.T, chain *stubChain) (*Session, *captureSink) {
	t.Helper()
	eng, err := engine.NewEngine(bridgeGameConfig(), "WALLET7TEST", time.Minute, engine.Deps{
		Chain:  chain,
		Signer: stubSigner{},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	sink := &captureSink{}
	cfg := config.BridgeConfig{
		AllowedOrigin: "https://games.example.com",
		SpinCooldown:  time.Second,
		ClaimWindow:   time.Minute,
	}
	return NewSession(eng, cfg, sink, zerolog.Nop()), sink
}

func initialize(t *testing.T, s *Session) {
	t.Helper()
	s.HandleMessage(context.Background(), []byte(`{"type":"INIT"}`))
}

func TestAuthorizeOrigin(t *testing.T) {
	s, _ := newTestSession(t, &stubChain{balance: 1000})

	if err := s.Authorize("https://games.example.com"); err != nil {
		t.Errorf("trusted origin rejected: %v", err)
	}
	err := s.Authorize("https://evil.example.com")
	if err == nil {
		t.Fatal("untrusted origin accepted")
	}
	if err.Code != errors.CodeUnauthorizedOrigin {
		t.Errorf("code = %s, want UNAUTHORIZED_ORIGIN", err.Code)
	}
	if err.Recoverable {
		t.Error("UNAUTHORIZED_ORIGIN must not be recoverable")
	}
}

func TestAuthorizeOpenWhenUnconfigured(t *testing.T) {
	s, _ := newTestSession(t, &stubChain{balance: 1000})
	s.cfg.AllowedOrigin = ""
	if err := s.Authorize("https://anything.example.com"); err != nil {
		t.Errorf("empty allow-list must accept any origin: %v", err)
	}
}

func TestInitPushesStateAndIsIdempotent(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 1000})

	initialize(t, s)
	if sink.count() != 2 {
		t.Fatalf("INIT pushed %d messages, want CONFIG + BALANCE_UPDATE", sink.count())
	}
	if got := sink.msgs[0].Type; got != MsgConfig {
		t.Errorf("first push type = %s, want CONFIG", got)
	}
	push := sink.last(t)
	if push.Type != MsgBalanceUpdate {
		t.Fatalf("second push type = %s, want BALANCE_UPDATE", push.Type)
	}
	balance, ok := push.Data.(BalancePayload)
	if !ok {
		t.Fatalf("balance payload has unexpected type %T", push.Data)
	}
	if balance.Balance != 1000 || balance.AvailableBalance != 1000 {
		t.Errorf("balance payload = %+v, want 1000/1000", balance)
	}

	initialize(t, s)
	if sink.last(t).Type != MsgBalanceUpdate {
		t.Errorf("repeated INIT must re-push state, got %s", sink.last(t).Type)
	}
	if sink.count() != 4 {
		t.Errorf("repeated INIT pushed %d messages total, want 4", sink.count())
	}
}

func TestInitRejectsForeignContract(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 1000})

	s.HandleMessage(context.Background(), []byte(`{"type":"INIT","data":{"contractId":"CT-OTHER"}}`))
	if code := sink.lastErrorCode(t); code != errors.CodeInvalidRequest {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}

	s.HandleMessage(context.Background(), []byte(`{"type":"INIT","data":{"contractId":"CT-SLOTS-01"}}`))
	if sink.last(t).Type != MsgBalanceUpdate {
		t.Errorf("matching contract id rejected: %+v", sink.last(t))
	}
}

func TestSpinRejectedBeforeInitialize(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 1000})

	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1}}`))
	if code := sink.lastErrorCode(t); code != errors.CodeNotInitialized {
		t.Errorf("code = %s, want NOT_INITIALIZED", code)
	}
}

func TestMalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing type", `{"data":{}}`},
		{"unknown type", `{"type":"LAUNCH_MISSILES"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink := newTestSession(t, &stubChain{balance: 1000})
			initialize(t, s)
			s.HandleMessage(context.Background(), []byte(tt.raw))
			if code := sink.lastErrorCode(t); code != errors.CodeInvalidMessage {
				t.Errorf("code = %s, want INVALID_MESSAGE", code)
			}
		})
	}
}

func TestSpinRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
		code string
	}{
		{"zero bet", `{"betPerLine":0,"paylines":1}`, errors.CodeInvalidRequest},
		{"negative bet", `{"betPerLine":-5,"paylines":1}`, errors.CodeInvalidRequest},
		{"zero paylines", `{"betPerLine":10,"paylines":0}`, errors.CodeInvalidRequest},
		{"fractional bet", `{"betPerLine":10.5,"paylines":1}`, errors.CodeInvalidRequest},
		{"unknown field", `{"betPerLine":10,"paylines":1,"cheatMode":true}`, errors.CodeInvalidRequest},
		{"bet below minimum", `{"betPerLine":5,"paylines":1}`, errors.CodeInvalidRequest},
		{"bet above maximum", `{"betPerLine":99999,"paylines":1}`, errors.CodeInvalidRequest},
		{"too many paylines", `{"betPerLine":10,"paylines":4}`, errors.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink := newTestSession(t, &stubChain{balance: 100000})
			initialize(t, s)
			s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":`+tt.data+`}`))
			if code := sink.lastErrorCode(t); code != tt.code {
				t.Errorf("code = %s, want %s", code, tt.code)
			}
		})
	}
}

// The optional spinId correlation field is part of the request contract and
// must pass strict shape validation.
func TestSpinRequestAcceptsCorrelationID(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 100000})
	initialize(t, s)

	before := sink.count()
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1,"spinId":"surface-spin-1"}}`))
	if sink.count() != before {
		t.Errorf("spin request with correlation id rejected: %+v", sink.last(t))
	}
}

func TestSpinRateLimit(t *testing.T) {
	chain := &stubChain{balance: 100000, awaitGate: make(chan struct{})}
	defer close(chain.awaitGate)
	s, sink := newTestSession(t, chain)
	initialize(t, s)

	current := time.Now()
	s.now = func() time.Time { return current }

	// Acceptance is silent: no synchronous message means the spin was taken.
	before := sink.count()
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1}}`))
	if sink.count() != before {
		t.Fatalf("first spin rejected: %+v", sink.last(t))
	}

	// Inside the cooldown the request is rejected even though no spin is
	// in flight anymore from the session's point of view.
	current = current.Add(500 * time.Millisecond)
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1}}`))
	if code := sink.lastErrorCode(t); code != errors.CodeRateLimit {
		t.Errorf("code = %s, want RATE_LIMIT", code)
	}
}

func TestSpinRejectedMessagesDoNotStartCooldown(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 100000})
	initialize(t, s)

	current := time.Now()
	s.now = func() time.Time { return current }

	// A rejected request must not arm the rate limiter.
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":0,"paylines":1}}`))
	if code := sink.lastErrorCode(t); code != errors.CodeInvalidRequest {
		t.Fatalf("code = %s, want INVALID_REQUEST", code)
	}

	before := sink.count()
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1}}`))
	if sink.count() != before {
		t.Errorf("valid spin after rejection not accepted: %+v", sink.last(t))
	}
}

func TestSpinInsufficientBalance(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 25})
	initialize(t, s)

	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":3}}`))
	if code := sink.lastErrorCode(t); code != errors.CodeInsufficientBalance {
		t.Errorf("code = %s, want INSUFFICIENT_BALANCE", code)
	}
}

func TestSpinSingleFlight(t *testing.T) {
	chain := &stubChain{balance: 100000, awaitGate: make(chan struct{})}
	defer close(chain.awaitGate)
	s, sink := newTestSession(t, chain)
	initialize(t, s)

	current := time.Now()
	s.now = func() time.Time { return current }

	before := sink.count()
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1}}`))
	if sink.count() != before {
		t.Fatalf("first spin rejected: %+v", sink.last(t))
	}

	// Past the cooldown but with the first spin still unsettled.
	current = current.Add(2 * time.Second)
	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1}}`))
	if code := sink.lastErrorCode(t); code != errors.CodeAlreadySpinning {
		t.Errorf("code = %s, want ALREADY_SPINNING", code)
	}
}

// GET_BALANCE always tries the chain first: a moved chain balance must be
// visible without any refresh hint from the surface.
func TestGetBalanceAlwaysRefreshesFromChain(t *testing.T) {
	chain := &stubChain{balance: 1000}
	s, sink := newTestSession(t, chain)
	initialize(t, s)

	chain.balance = 4321
	s.HandleMessage(context.Background(), []byte(`{"type":"GET_BALANCE"}`))

	msg := sink.last(t)
	if msg.Type != MsgBalanceResponse {
		t.Fatalf("message type = %s, want BALANCE_RESPONSE", msg.Type)
	}
	balance, ok := msg.Data.(BalancePayload)
	if !ok {
		t.Fatalf("balance payload has unexpected type %T", msg.Data)
	}
	if balance.Balance != 4321 {
		t.Errorf("balance = %d, want the refreshed chain figure 4321", balance.Balance)
	}
}

func TestGetBalanceFallsBackToCachedView(t *testing.T) {
	chain := &stubChain{balance: 1000}
	s, sink := newTestSession(t, chain)
	initialize(t, s)

	chain.balanceErr = fmt.Errorf("chain unreachable")
	s.HandleMessage(context.Background(), []byte(`{"type":"GET_BALANCE"}`))

	msg := sink.last(t)
	if msg.Type != MsgBalanceResponse {
		t.Fatalf("message type = %s, want BALANCE_RESPONSE", msg.Type)
	}
	balance, ok := msg.Data.(BalancePayload)
	if !ok {
		t.Fatalf("balance payload has unexpected type %T", msg.Data)
	}
	if balance.Balance != 1000 {
		t.Errorf("cached balance = %d, want 1000", balance.Balance)
	}
}

// The pump translates engine events into the surface protocol: submission
// acknowledgements carry the chain tx reference and outcomes arrive in the
// flat OUTCOME shape, correlated by the caller's spin id.
func TestPumpMapsEngineEventsToProtocol(t *testing.T) {
	chain := &stubChain{balance: 100000}
	s, sink := newTestSession(t, chain)
	initialize(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Pump(ctx)

	deadline := time.After(2 * time.Second)
	for s.engine.Events().SubscriberCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("pump never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.HandleMessage(context.Background(), []byte(`{"type":"SPIN_REQUEST","data":{"betPerLine":10,"paylines":1,"spinId":"surface-spin-2"}}`))

	var submitted *SpinSubmittedPayload
	var outcome *OutcomePayload
	for submitted == nil || outcome == nil {
		sink.mu.Lock()
		for _, msg := range sink.msgs {
			switch data := msg.Data.(type) {
			case SpinSubmittedPayload:
				submitted = &data
			case OutcomePayload:
				outcome = &data
			}
		}
		sink.mu.Unlock()

		select {
		case <-deadline:
			t.Fatalf("submitted=%v outcome=%v after waiting", submitted, outcome)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if submitted.SpinID != "surface-spin-2" || submitted.TxID != "g" {
		t.Errorf("SPIN_SUBMITTED payload = %+v, want surface-spin-2/g", submitted)
	}
	if outcome.SpinID != "surface-spin-2" {
		t.Errorf("OUTCOME spin id = %s, want surface-spin-2", outcome.SpinID)
	}
	if outcome.BetPerLine != 10 || outcome.Paylines != 1 || outcome.TotalBet != 10 {
		t.Errorf("OUTCOME bet fields = %+v, want 10/1/10", outcome)
	}
	if outcome.IsWin != (outcome.Winnings > 0) {
		t.Errorf("isWin = %v with winnings %d", outcome.IsWin, outcome.Winnings)
	}
}

func TestGetConfigIsStatic(t *testing.T) {
	s, sink := newTestSession(t, &stubChain{balance: 1000})
	initialize(t, s)

	s.HandleMessage(context.Background(), []byte(`{"type":"GET_CONFIG"}`))
	msg := sink.last(t)
	if msg.Type != MsgConfig {
		t.Fatalf("message type = %s, want CONFIG", msg.Type)
	}
	cfg, ok := msg.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("config payload has unexpected type %T", msg.Data)
	}
	if cfg["contractId"] != "CT-SLOTS-01" {
		t.Errorf("contractId = %v", cfg["contractId"])
	}
}
