// Package server hosts the REST surface and the bridge WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/auth"
	"github.com/Digital-Creators-Team/chain-slots-engine/config"
	"github.com/Digital-Creators-Team/chain-slots-engine/engine"
	"github.com/Digital-Creators-Team/chain-slots-engine/middleware"
	"github.com/Digital-Creators-Team/chain-slots-engine/pkg/providers"
)

// App is the host application: gin router, engine and collaborators.
type App struct {
	router       *gin.Engine
	config       *config.Config
	logger       zerolog.Logger
	gameEngine   *engine.Engine
	outcomeStore providers.OutcomeStore
	httpServer   *http.Server
	onShutdown   []func()
	feedCancel   context.CancelFunc
	sweepCancel  context.CancelFunc

	bridgeHandler  *BridgeHandler
	fairHandler    *FairHandler
	historyHandler *HistoryHandler
}

// Options holds server construction options.
type Options struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Engine       *engine.Engine
	OutcomeStore providers.OutcomeStore
}

// New creates the host application.
func New(opts Options) *App {
	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		router:       gin.New(),
		config:       opts.Config,
		logger:       opts.Logger,
		gameEngine:   opts.Engine,
		outcomeStore: opts.OutcomeStore,
	}

	app.bridgeHandler = NewBridgeHandler(app)
	app.fairHandler = NewFairHandler(app)
	app.historyHandler = NewHistoryHandler(app)

	return app
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.router.Use(middleware.Recovery(a.logger))

	// Trace ID middleware
	a.router.Use(middleware.TraceID())

	// Logging middleware
	a.router.Use(middleware.Logging(a.logger))

	// CORS middleware if enabled
	if a.config.Server.EnableCORS {
		a.router.Use(middleware.CORS())
	}
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.router.GET("/health", a.healthCheck)
	a.router.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   a.config.Environment,
		"game_code": a.GameCode(),
	})
}

// RegisterRoutes registers the game API surface.
//
// Routes registered:
//   - GET  /api/games/{game_code}/config      -> static game configuration
//   - GET  /api/games/{game_code}/bridge      -> WebSocket bridge session
//   - GET  /api/games/{game_code}/bet-history -> settled outcomes (JWT)
//   - POST /api/fair/verify                   -> offline provably-fair audit
//
// The verify route is deliberately public: anyone holding chain-public data
// must be able to audit a bet.
func (a *App) RegisterRoutes() {
	gameCode := a.GameCode()

	games := a.router.Group("/api/games/" + gameCode)
	{
		games.GET("/config", a.bridgeHandler.GetConfig)
		games.GET("/bridge", a.bridgeHandler.Connect)

		protected := games.Group("")
		protected.Use(auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
		protected.GET("/bet-history", a.historyHandler.GetBetHistory)
	}

	a.router.POST("/api/fair/verify", a.fairHandler.Verify)

	a.logger.Info().
		Str("game_code", gameCode).
		Msg("Routes registered: /api/games/" + gameCode)
}

// AttachBalanceFeed copies authoritative balance snapshots (e.g. from the
// wallet Kafka topic) into the engine. Pass nil to detach.
func (a *App) AttachBalanceFeed(feed <-chan *providers.BalanceSnapshot) {
	if a.feedCancel != nil {
		a.feedCancel()
		a.feedCancel = nil
	}
	if feed == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.feedCancel = cancel
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snapshot, ok := <-feed:
				if !ok {
					return
				}
				a.gameEngine.ApplyAuthoritativeBalance(snapshot)
			}
		}
	}()
}

// StartExpirySweep runs the stale-spin sweep on a ticker until shutdown.
func (a *App) StartExpirySweep(interval time.Duration) {
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.sweepCancel = cancel
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := a.gameEngine.ExpireStale(now); n > 0 {
					a.logger.Warn().Int("count", n).Msg("expired stale spins")
				}
			}
		}
	}()
}

// Engine returns the game engine.
func (a *App) Engine() *engine.Engine {
	return a.gameEngine
}

// OutcomeStore returns the settled-outcome store, nil when not configured.
func (a *App) OutcomeStore() providers.OutcomeStore {
	return a.outcomeStore
}

// GameCode returns the code of the hosted game.
func (a *App) GameCode() string {
	if a.gameEngine == nil {
		return ""
	}
	return a.gameEngine.Config().GameCode
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.router
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server and blocks until an interrupt signal.
func (a *App) Run() error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Str("game_code", a.GameCode()).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server and shuts down when ctx is canceled.
func (a *App) RunWithContext(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Str("game_code", a.GameCode()).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.feedCancel != nil {
		a.feedCancel()
	}
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	for _, fn := range a.onShutdown {
		fn()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}
