package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	gormlogger "gorm.io/gorm/logger"

	"github.com/joho/godotenv"

	"relay-server/services/response-orchestrator/internal/config"
	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/domain/extract"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/response"
	"relay-server/services/response-orchestrator/internal/domain/retry"
	"relay-server/services/response-orchestrator/internal/infrastructure/database"
	"relay-server/services/response-orchestrator/internal/infrastructure/llmprovider"
	"relay-server/services/response-orchestrator/internal/infrastructure/logger"
	"relay-server/services/response-orchestrator/internal/infrastructure/observability"
	"relay-server/services/response-orchestrator/internal/infrastructure/optimizer"
	conversationrepo "relay-server/services/response-orchestrator/internal/infrastructure/repository/conversation"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
	"relay-server/services/response-orchestrator/internal/webhook"
	"relay-server/services/response-orchestrator/internal/worker"
)

// @title Response Orchestrator API
// @version 1.0
// @description Orchestrates LLM responses with conversation chaining, retries, and streaming support.
// @contact.name Relay Platform Team
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, err := newConversationStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize conversation store")
	}

	rawClient := llmprovider.NewClient(cfg.LLMAPIURL, cfg.LLMAPITimeout)
	chain := newUpstreamChain(cfg, rawClient, log)

	responseService := response.NewService(chain.provider, newRetryExecutor(cfg), extract.DefaultRegistry(), log)

	manager := conversation.NewManager(store, newContextOptimizer(cfg, rawClient, log), nil, log)
	webhookService := webhook.NewHTTPService(log)

	cleanupWorker := worker.NewCleanupWorker(store, cfg.CleanupIntervalMinutes, log)
	if err := cleanupWorker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start cleanup worker")
	}
	defer func() {
		log.Info().Msg("stopping cleanup worker")
		cleanupWorker.Stop()
	}()

	handlerProvider := handlers.NewProvider(responseService, manager, rawClient, webhookService, log)

	httpServer := httpserver.New(cfg, log, handlerProvider, newReadyCheck(chain))
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// upstreamChain is the assembled provider stack: client, then circuit
// breaker, then rate limiter. The breaker handle is kept when one is in the
// stack so the readiness probe can report on it.
type upstreamChain struct {
	provider llm.Provider
	breaker  *llmprovider.BreakerProvider
}

func newUpstreamChain(cfg *config.Config, client *llmprovider.Client, log zerolog.Logger) *upstreamChain {
	var provider llm.Provider = client
	var breaker *llmprovider.BreakerProvider
	if cfg.EnableCircuitBreaker {
		breaker = llmprovider.NewBreakerProvider(provider, log)
		provider = breaker
	}
	if cfg.UpstreamRPS > 0 {
		provider = llmprovider.NewRateLimitedProvider(provider, cfg.UpstreamRPS)
	}
	return &upstreamChain{provider: provider, breaker: breaker}
}

func newRetryExecutor(cfg *config.Config) *retry.Executor {
	return retry.NewExecutor(retry.Policy{
		MaxRetries:      cfg.MaxRetries(),
		InitialDelay:    cfg.RetryInitialDelay,
		MaxDelay:        cfg.RetryMaxDelay,
		BackoffStrategy: retry.BackoffExponential,
		JitterFactor:    0.25,
	})
}

// newReadyCheck reports not-ready while the upstream circuit is open. With
// the breaker disabled the probe always passes.
func newReadyCheck(chain *upstreamChain) httpserver.ReadyCheck {
	if chain.breaker == nil {
		return nil
	}
	return func() error {
		if chain.breaker.State() == gobreaker.StateOpen {
			return fmt.Errorf("llm upstream circuit open")
		}
		return nil
	}
}

// newConversationStore selects the persistence backend for conversation
// state. The memory store serves single-instance deployments; postgres is
// for anything that must survive restarts.
func newConversationStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (conversation.Store, error) {
	switch cfg.ConversationStore {
	case config.StorePostgres:
		db, err := database.Connect(database.Config{
			DSN:             cfg.DatabaseURL,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
			LogLevel:        gormlogger.Warn,
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return conversationrepo.NewPostgresRepository(db, cfg.ConversationTTL, log), nil
	default:
		return conversation.NewMemoryStore(cfg.ConversationTTL), nil
	}
}

// newContextOptimizer selects the context optimization backend. Off means
// optimize requests are rejected as unsupported.
func newContextOptimizer(cfg *config.Config, models llm.ModelInfoProvider, log zerolog.Logger) conversation.ContextOptimizer {
	switch cfg.OptimizerMode {
	case config.OptimizerOff:
		return nil
	case config.OptimizerRemote:
		return optimizer.NewRemote(cfg.OptimizerURL, cfg.LLMAPITimeout, log)
	default:
		return optimizer.NewLocal(models, nil, log)
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
