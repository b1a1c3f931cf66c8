// Command chainslots runs the slot game host service and the offline
// provably-fair verifier.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/db/redis"
	"github.com/Digital-Creators-Team/chain-slots-engine/events/kafka"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
	"github.com/Digital-Creators-Team/chain-slots-engine/logging"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/fair"
	"github.com/Digital-Creators-Team/chain-slots-engine/provider"
	"github.com/Digital-Creators-Team/chain-slots-engine/server"
	appwire "github.com/Digital-Creators-Team/chain-slots-engine/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chainslots",
		Short: "On-chain slot game host service",
	}
	rootCmd.AddCommand(serveCmd(), verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := logging.New(cfg.Logging)

			gameCfg, err := game.LoadConfig(cfg.Game.ConfigPath)
			if err != nil {
				return fmt.Errorf("load game config: %w", err)
			}

			redisClient, err := redis.New(cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}

			producer, err := kafka.NewProducerWithConfig(kafka.ProducerConfig{
				Brokers: cfg.Kafka.Brokers,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("create kafka producer: %w", err)
			}

			store := provider.NewOutcomeStore(redisClient, gameCfg.GameCode, logger)
			audit := provider.NewLogProvider(producer, cfg.Kafka.Topics["spin_audit"], logger)
			chain := provider.NewChainProvider(cfg, logger)
			signer := provider.NewSignerProvider(cfg, logger)

			eng, err := appwire.ProvideEngine(cfg, gameCfg, chain, signer, store, audit, logger)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}

			app := server.New(server.Options{
				Config:       cfg,
				Logger:       logger,
				Engine:       eng,
				OutcomeStore: store,
			})
			app.UseCommonMiddlewares()
			app.RegisterHealthCheck()
			app.RegisterRoutes()
			app.StartExpirySweep(10 * time.Second)

			if topic := cfg.Kafka.Topics["wallet_balance"]; topic != "" {
				consumer := kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers:       cfg.Kafka.Brokers,
					Topic:         topic,
					ConsumerGroup: cfg.Kafka.ConsumerGroup,
					WalletAddress: cfg.Wallet.Address,
					TokenDecimals: cfg.Wallet.TokenDecimals,
					Logger:        logger,
				})
				if err := consumer.Start(); err != nil {
					return fmt.Errorf("start balance consumer: %w", err)
				}
				app.AttachBalanceFeed(consumer.Snapshots())
				app.OnShutdown(func() { _ = consumer.Stop() })
			}

			app.OnShutdown(func() { _ = audit.Close() })
			app.OnShutdown(func() { _ = redisClient.Close() })

			return app.Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to application config")
	return cmd
}

func verifyCmd() *cobra.Command {
	var (
		gameConfigPath string
		blockSeed      string
		betKey         string
		claimedGrid    string
		claimedPayout  int64
		betPerLine     int64
		paylines       int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit a settled bet offline from chain-public data",
		Long: `Reconstructs the spin grid from the block seed and bet key, recomputes
the payout from the game configuration, and compares both against the
claimed outcome. Requires no wallet access and no network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gameCfg, err := game.LoadConfig(gameConfigPath)
			if err != nil {
				return fmt.Errorf("load game config: %w", err)
			}
			paytable, err := gameCfg.PaytableEntries()
			if err != nil {
				return fmt.Errorf("load paytable: %w", err)
			}

			req := fair.VerifyRequest{
				BlockSeed:     blockSeed,
				BetKey:        betKey,
				ClaimedPayout: claimedPayout,
				ReelStrips:    gameCfg.SymbolStrips(),
				Rows:          gameCfg.Rows,
				Paylines:      gameCfg.PaylinePatterns(),
				Paytable:      paytable,
				BetPerLine:    betPerLine,
				ActiveLines:   paylines,
				Options:       game.OptionsFromConfig(gameCfg),
			}
			if claimedGrid != "" {
				if err := json.Unmarshal([]byte(claimedGrid), &req.ClaimedGrid); err != nil {
					return fmt.Errorf("parse claimed grid: %w", err)
				}
			} else {
				// Without a claimed grid, only the payout claim is audited.
				grid, _, err := fair.ReconstructGrid(blockSeed, betKey, req.ReelStrips, req.Rows)
				if err != nil {
					return err
				}
				req.ClaimedGrid = grid
			}

			result, err := fair.VerifySpinOutcome(req)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !result.Verified {
				return fmt.Errorf("outcome does NOT verify")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gameConfigPath, "game-config", "config/game", "path to game config file or directory")
	cmd.Flags().StringVar(&blockSeed, "block-seed", "", "chain block seed for the bet round")
	cmd.Flags().StringVar(&betKey, "bet-key", "", "unique bet key")
	cmd.Flags().StringVar(&claimedGrid, "claimed-grid", "", "claimed grid as JSON (reel-major), optional")
	cmd.Flags().Int64Var(&claimedPayout, "claimed-payout", 0, "claimed payout in base units")
	cmd.Flags().Int64Var(&betPerLine, "bet-per-line", 0, "bet per line in base units")
	cmd.Flags().IntVar(&paylines, "paylines", 0, "number of active paylines (0 = all)")
	_ = cmd.MarkFlagRequired("block-seed")
	_ = cmd.MarkFlagRequired("bet-key")
	_ = cmd.MarkFlagRequired("bet-per-line")

	return cmd
}
