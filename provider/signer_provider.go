package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/httpclient"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

// SignerProvider delegates transaction signing to the remote signer service.
// Key material never leaves that service.
type SignerProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewSignerProvider creates a signer provider from application config.
func NewSignerProvider(cfg *config.Config, logger zerolog.Logger) *SignerProvider {
	return &SignerProvider{
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.ExternalServices.SignerService.BaseURL,
			Timeout: cfg.ExternalServices.SignerService.Timeout,
			Logger:  logger,
		}),
		logger: logger.With().Str("component", "signer_provider").Logger(),
	}
}

type signResponse struct {
	Transactions []struct {
		ID     string `json:"id"`
		Signed []byte `json:"signed"`
	} `json:"transactions"`
}

// SignTransactions signs the prepared transaction group.
func (p *SignerProvider) SignTransactions(ctx context.Context, walletAddress string, txns []providers.UnsignedTransaction) ([]providers.SignedTransaction, error) {
	var resp signResponse
	err := p.client.PostJSON(ctx, "/sign", map[string]interface{}{
		"wallet_address": walletAddress,
		"transactions":   txns,
	}, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("sign transactions: %w", err)
	}
	if len(resp.Transactions) != len(txns) {
		return nil, fmt.Errorf("sign transactions: signer returned %d of %d transactions", len(resp.Transactions), len(txns))
	}

	signed := make([]providers.SignedTransaction, len(resp.Transactions))
	for i, tx := range resp.Transactions {
		signed[i] = providers.SignedTransaction{ID: tx.ID, Signed: tx.Signed}
	}
	return signed, nil
}
