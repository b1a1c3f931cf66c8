// Package wire exposes provider sets for dependency injection.
package wire

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/db/redis"
	"github.com/Digital-Creators-Team/chain-slots-engine/engine"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/logging"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
	"github.com/Digital-Creators-Team/chain-slots-engine/provider"
	"github.com/Digital-Creators-Team/chain-slots-engine/server"
)

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideRedisClient provides a Redis client
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	return redis.New(cfg.Redis)
}

// ProvideGameConfig loads the game definition.
func ProvideGameConfig(cfg *config.Config) (*game.Config, error) {
	return game.LoadConfig(cfg.Game.ConfigPath)
}

// ProvideChainAdapter provides the chain gateway adapter.
func ProvideChainAdapter(cfg *config.Config, logger zerolog.Logger) providers.ChainAdapter {
	return provider.NewChainProvider(cfg, logger)
}

// ProvideSigner provides the remote signer.
func ProvideSigner(cfg *config.Config, logger zerolog.Logger) providers.Signer {
	return provider.NewSignerProvider(cfg, logger)
}

// ProvideOutcomeStore provides the Redis-backed outcome store.
func ProvideOutcomeStore(client *redis.Client, gameCfg *game.Config, logger zerolog.Logger) providers.OutcomeStore {
	return provider.NewOutcomeStore(client, gameCfg.GameCode, logger)
}

// ProvideEngine provides the spin/balance engine.
func ProvideEngine(
	cfg *config.Config,
	gameCfg *game.Config,
	chain providers.ChainAdapter,
	signer providers.Signer,
	store providers.OutcomeStore,
	audit providers.LogProvider,
	logger zerolog.Logger,
) (*engine.Engine, error) {
	return engine.NewEngine(gameCfg, cfg.Wallet.Address, cfg.Bridge.ClaimWindow, engine.Deps{
		Chain:  chain,
		Signer: signer,
		Store:  store,
		Audit:  audit,
	}, logger)
}

// ProvideServerOptions provides server options.
func ProvideServerOptions(cfg *config.Config, logger zerolog.Logger, eng *engine.Engine, store providers.OutcomeStore) server.Options {
	return server.Options{
		Config:       cfg,
		Logger:       logger,
		Engine:       eng,
		OutcomeStore: store,
	}
}

// ProvideApp provides the main application
func ProvideApp(opts server.Options) *server.App {
	return server.New(opts)
}

// ConfigSet is the wire provider set for configuration
var ConfigSet = wire.NewSet(
	config.Load,
)

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// RedisSet is the wire provider set for Redis
var RedisSet = wire.NewSet(
	ProvideRedisClient,
)

// EngineSet is the wire provider set for the game engine and collaborators
var EngineSet = wire.NewSet(
	ProvideGameConfig,
	ProvideChainAdapter,
	ProvideSigner,
	ProvideOutcomeStore,
	ProvideEngine,
)

// ServerSet is the wire provider set for server
var ServerSet = wire.NewSet(
	ProvideServerOptions,
	ProvideApp,
)

// DefaultSet is the default wire provider set including all common providers
var DefaultSet = wire.NewSet(
	LoggingSet,
	EngineSet,
	ServerSet,
)

// FullSet includes all providers including Redis
var FullSet = wire.NewSet(
	DefaultSet,
	RedisSet,
)
