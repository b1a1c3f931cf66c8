package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/db/redis"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

const historyCap = 500

// OutcomeStore persists settled outcomes in Redis: one JSON blob per bet key
// plus a capped per-wallet history list, newest first. One store serves one
// hosted game.
type OutcomeStore struct {
	redis    *redis.Client
	gameCode string
	logger   zerolog.Logger
}

// NewOutcomeStore creates a Redis-backed outcome store.
func NewOutcomeStore(client *redis.Client, gameCode string, logger zerolog.Logger) *OutcomeStore {
	return &OutcomeStore{
		redis:    client,
		gameCode: gameCode,
		logger:   logger.With().Str("component", "outcome_store").Logger(),
	}
}

func outcomeKey(gameCode, betKey string) string {
	return fmt.Sprintf("outcome:%s:%s", gameCode, betKey)
}

func historyKey(gameCode, wallet string) string {
	return fmt.Sprintf("history:%s:%s", gameCode, wallet)
}

// SaveOutcome stores one settled outcome and records it in the wallet's
// history list.
func (s *OutcomeStore) SaveOutcome(ctx context.Context, outcome *providers.StoredOutcome) error {
	key := outcomeKey(outcome.GameCode, outcome.BetKey)
	if err := s.redis.SetJSON(ctx, key, outcome, 0); err != nil {
		return fmt.Errorf("save outcome %s: %w", outcome.BetKey, err)
	}

	hkey := historyKey(outcome.GameCode, outcome.WalletAddress)
	if err := s.redis.LPush(ctx, hkey, outcome.BetKey); err != nil {
		return fmt.Errorf("record history for %s: %w", outcome.BetKey, err)
	}
	if err := s.redis.LTrim(ctx, hkey, 0, historyCap-1); err != nil {
		s.logger.Warn().Err(err).Str("key", hkey).Msg("failed to trim history list")
	}
	return nil
}

// GetOutcome loads one settled outcome by bet key.
func (s *OutcomeStore) GetOutcome(ctx context.Context, betKey string) (*providers.StoredOutcome, error) {
	var outcome providers.StoredOutcome
	if err := s.redis.GetJSON(ctx, outcomeKey(s.gameCode, betKey), &outcome); err != nil {
		return nil, fmt.Errorf("load outcome %s: %w", betKey, err)
	}
	return &outcome, nil
}

// ListOutcomes returns up to limit settled outcomes for a wallet, newest
// first.
func (s *OutcomeStore) ListOutcomes(ctx context.Context, gameCode, walletAddress string, limit int) ([]*providers.StoredOutcome, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}

	betKeys, err := s.redis.LRange(ctx, historyKey(gameCode, walletAddress), 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	outcomes := make([]*providers.StoredOutcome, 0, len(betKeys))
	for _, betKey := range betKeys {
		raw, err := s.redis.Get(ctx, outcomeKey(gameCode, betKey))
		if err != nil {
			s.logger.Warn().Err(err).Str("bet_key", betKey).Msg("history entry without outcome record")
			continue
		}
		var outcome providers.StoredOutcome
		if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
			s.logger.Warn().Err(err).Str("bet_key", betKey).Msg("corrupt outcome record")
			continue
		}
		outcomes = append(outcomes, &outcome)
	}
	return outcomes, nil
}
