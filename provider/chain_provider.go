// Package provider implements the external collaborator interfaces against
// the real chain, signer, redis and kafka services.
package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/httpclient"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

// ChainProvider talks to the chain gateway service over HTTP. The gateway
// reports token amounts as decimal strings; everything is converted to
// integral base units at this boundary and nowhere else.
type ChainProvider struct {
	client        *httpclient.Client
	logger        zerolog.Logger
	tokenDecimals int32
}

// NewChainProvider creates a chain provider from application config.
func NewChainProvider(cfg *config.Config, logger zerolog.Logger) *ChainProvider {
	return &ChainProvider{
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.ExternalServices.ChainService.BaseURL,
			Timeout: cfg.ExternalServices.ChainService.Timeout,
			Logger:  logger,
		}),
		logger:        logger.With().Str("component", "chain_provider").Logger(),
		tokenDecimals: cfg.Wallet.TokenDecimals,
	}
}

type prepareBetResponse struct {
	BetKey       string `json:"betKey"`
	Transactions []struct {
		ID      string `json:"id"`
		Payload []byte `json:"payload"`
	} `json:"transactions"`
}

// PrepareBet asks the gateway to build the unsigned transaction group.
func (p *ChainProvider) PrepareBet(ctx context.Context, req providers.PrepareBetRequest) (*providers.PreparedBet, error) {
	var resp prepareBetResponse
	err := p.client.PostJSON(ctx, "/bets/prepare", map[string]interface{}{
		"wallet_address": req.WalletAddress,
		"contract_id":    req.ContractID,
		"game_code":      req.GameCode,
		"bet_per_line":   p.toTokenString(req.BetPerLine),
		"paylines":       req.Paylines,
		"total_bet":      p.toTokenString(req.TotalBet),
	}, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("prepare bet: %w", err)
	}
	if resp.BetKey == "" {
		return nil, fmt.Errorf("prepare bet: gateway returned no bet key")
	}

	prepared := &providers.PreparedBet{BetKey: resp.BetKey}
	for _, tx := range resp.Transactions {
		prepared.Transactions = append(prepared.Transactions, providers.UnsignedTransaction{
			ID:      tx.ID,
			Payload: tx.Payload,
		})
	}
	return prepared, nil
}

type submitBetResponse struct {
	BetKey  string `json:"betKey"`
	GroupID string `json:"groupId"`
}

// SubmitBet submits the signed transaction group.
func (p *ChainProvider) SubmitBet(ctx context.Context, betKey string, txns []providers.SignedTransaction) (*providers.SubmittedBet, error) {
	var resp submitBetResponse
	err := p.client.PostJSON(ctx, "/bets/"+url.PathEscape(betKey)+"/submit", map[string]interface{}{
		"transactions": txns,
	}, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("submit bet %s: %w", betKey, err)
	}
	return &providers.SubmittedBet{BetKey: betKey, GroupID: resp.GroupID}, nil
}

type outcomeResponse struct {
	BetKey        string    `json:"betKey"`
	BlockSeed     string    `json:"blockSeed"`
	ClaimedGrid   [][]int   `json:"claimedGrid"`
	ClaimedPayout string    `json:"claimedPayout"`
	Round         uint64    `json:"round"`
	Settled       bool      `json:"settled"`
	SettledAt     time.Time `json:"settledAt"`
}

// AwaitOutcome polls the gateway until the bet settles or ctx expires.
func (p *ChainProvider) AwaitOutcome(ctx context.Context, betKey string) (*providers.ChainOutcome, error) {
	path := "/bets/" + url.PathEscape(betKey) + "/outcome"
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		var resp outcomeResponse
		if err := p.client.GetJSON(ctx, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("fetch outcome %s: %w", betKey, err)
		}
		if resp.Settled {
			return p.toChainOutcome(&resp)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type balanceResponse struct {
	WalletAddress string    `json:"walletAddress"`
	Available     string    `json:"available"`
	At            time.Time `json:"at"`
}

// GetBalance performs an authoritative balance read.
func (p *ChainProvider) GetBalance(ctx context.Context, walletAddress string) (*providers.BalanceSnapshot, error) {
	var resp balanceResponse
	path := "/wallets/" + url.PathEscape(walletAddress) + "/balance"
	if err := p.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	available, err := p.toBaseUnits(resp.Available)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	at := resp.At
	if at.IsZero() {
		at = time.Now()
	}
	return &providers.BalanceSnapshot{
		WalletAddress: walletAddress,
		Available:     available,
		At:            at,
	}, nil
}

func (p *ChainProvider) toChainOutcome(resp *outcomeResponse) (*providers.ChainOutcome, error) {
	payout, err := p.toBaseUnits(resp.ClaimedPayout)
	if err != nil {
		return nil, fmt.Errorf("outcome %s: %w", resp.BetKey, err)
	}

	outcome := &providers.ChainOutcome{
		BetKey:        resp.BetKey,
		BlockSeed:     resp.BlockSeed,
		ClaimedPayout: payout,
		Round:         resp.Round,
		SettledAt:     resp.SettledAt,
	}
	if len(resp.ClaimedGrid) > 0 {
		outcome.ClaimedGrid = gridFromInts(resp.ClaimedGrid)
	}
	return outcome, nil
}

// toBaseUnits converts a decimal token string into integral base units.
// Amounts that do not land on a base unit are an error, never rounded.
func (p *ChainProvider) toBaseUnits(amount string) (int64, error) {
	if amount == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a decimal: %w", amount, err)
	}
	shifted := d.Shift(p.tokenDecimals)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q is finer than the base unit", amount)
	}
	return shifted.IntPart(), nil
}

func (p *ChainProvider) toTokenString(baseUnits int64) string {
	return decimal.NewFromInt(baseUnits).Shift(-p.tokenDecimals).String()
}

func gridFromInts(raw [][]int) game.Grid {
	grid := make(game.Grid, len(raw))
	for i, reel := range raw {
		grid[i] = make([]game.SymbolID, len(reel))
		for j, sym := range reel {
			grid[i][j] = game.SymbolID(sym)
		}
	}
	return grid
}
