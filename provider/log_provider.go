package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/events/kafka"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

// LogProvider publishes spin audit events to Kafka. With no producer
// configured it degrades to structured logging only.
type LogProvider struct {
	producer *kafka.Producer
	topic    string
	logger   zerolog.Logger
}

// NewLogProvider creates a Kafka-backed audit log provider.
func NewLogProvider(producer *kafka.Producer, topic string, logger zerolog.Logger) *LogProvider {
	return &LogProvider{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "log_provider").Logger(),
	}
}

// PublishSpinEvent publishes one settled-spin audit record, keyed by bet key
// so all events for a bet land on the same partition.
func (p *LogProvider) PublishSpinEvent(ctx context.Context, event providers.SpinAuditEvent) error {
	p.logger.Info().
		Str("event_type", event.EventType).
		Str("bet_key", event.BetKey).
		Int64("total_bet", event.TotalBet).
		Int64("payout", event.Payout).
		Bool("verified", event.Verified).
		Msg("spin audit event")

	if p.producer == nil || p.topic == "" {
		return nil
	}
	if err := p.producer.SendMessage(p.topic, event.BetKey, event); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying producer.
func (p *LogProvider) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
