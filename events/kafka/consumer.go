package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

// BalanceUpdateEvent is the wallet topic payload. The wallet service reports
// amounts as decimal token strings; conversion to base units happens here,
// at the edge.
type BalanceUpdateEvent struct {
	WalletAddress string          `json:"wallet_address"`
	Available     decimal.Decimal `json:"available"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Consumer reads wallet balance updates from Kafka and emits authoritative
// balance snapshots for the engine.
type Consumer struct {
	reader        *kafka.Reader
	logger        zerolog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	out           chan *providers.BalanceSnapshot
	walletAddress string
	tokenDecimals int32
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	WalletAddress string
	TokenDecimals int32
	Logger        zerolog.Logger
}

// NewConsumer creates a balance-feed consumer. Updates for other wallets on
// the shared topic are skipped.
func NewConsumer(config ConsumerConfig) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{
		reader:        reader,
		logger:        config.Logger.With().Str("component", "kafka-consumer").Logger(),
		ctx:           ctx,
		cancel:        cancel,
		out:           make(chan *providers.BalanceSnapshot, 16),
		walletAddress: config.WalletAddress,
		tokenDecimals: config.TokenDecimals,
	}
}

// Snapshots is the feed of authoritative balance snapshots.
func (c *Consumer) Snapshots() <-chan *providers.BalanceSnapshot {
	return c.out
}

// Start begins consuming messages
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	c.logger.Info().Msg("Kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info().Msg("Stopping Kafka consumer...")
	c.cancel()
	c.wg.Wait()
	close(c.out)

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return err
	}

	c.logger.Info().Msg("Kafka consumer stopped")
	return nil
}

// consume is the main consumer loop
func (c *Consumer) consume() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			msg, err := c.reader.FetchMessage(c.ctx)
			if err != nil {
				if err == context.Canceled {
					return
				}
				c.logger.Error().Err(err).Msg("Error fetching message from Kafka")
				time.Sleep(time.Second)
				continue
			}

			if err := c.handleMessage(msg); err != nil {
				c.logger.Error().
					Err(err).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error handling message")
			}

			if err := c.reader.CommitMessages(c.ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("Error committing message")
			}
		}
	}
}

// handleMessage converts one wallet event into a balance snapshot.
func (c *Consumer) handleMessage(msg kafka.Message) error {
	var event BalanceUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	if event.WalletAddress != c.walletAddress {
		return nil
	}

	available := event.Available.Shift(c.tokenDecimals)
	if !available.IsInteger() {
		c.logger.Warn().
			Str("available", event.Available.String()).
			Msg("Balance update is not representable in base units, dropping")
		return nil
	}

	snapshot := &providers.BalanceSnapshot{
		WalletAddress: event.WalletAddress,
		Available:     available.IntPart(),
		At:            event.Timestamp,
	}

	select {
	case c.out <- snapshot:
	default:
		c.logger.Warn().Msg("Balance feed full, dropping snapshot")
	}
	return nil
}
