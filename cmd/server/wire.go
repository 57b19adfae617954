//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/config"
	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/domain/extract"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	responseDomain "relay-server/services/response-orchestrator/internal/domain/response"
	"relay-server/services/response-orchestrator/internal/infrastructure/llmprovider"
	"relay-server/services/response-orchestrator/internal/infrastructure/logger"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
	"relay-server/services/response-orchestrator/internal/webhook"
)

var orchestratorSet = wire.NewSet(
	newLLMClient,
	wire.Bind(new(llm.ModelInfoProvider), new(*llmprovider.Client)),
	newUpstreamChain,
	newUpstreamProvider,
	newRetryExecutor,
	newExtractRegistry,
	responseDomain.NewService,
	wire.Bind(new(responseDomain.Service), new(*responseDomain.ServiceImpl)),
	newConversationStore,
	newContextOptimizer,
	newConversationManager,
	newWebhookService,
	wire.Bind(new(webhook.Service), new(*webhook.HTTPService)),
	newReadyCheck,
	handlers.NewProvider,
)

// BuildApplication demonstrates how to assemble the orchestrator with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		orchestratorSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newLLMClient(cfg *config.Config) *llmprovider.Client {
	return llmprovider.NewClient(cfg.LLMAPIURL, cfg.LLMAPITimeout)
}

func newUpstreamProvider(chain *upstreamChain) llm.Provider {
	return chain.provider
}

func newExtractRegistry() *extract.Registry {
	return extract.DefaultRegistry()
}

func newConversationManager(store conversation.Store, optimizer conversation.ContextOptimizer, log zerolog.Logger) *conversation.Manager {
	return conversation.NewManager(store, optimizer, nil, log)
}

func newWebhookService(log zerolog.Logger) *webhook.HTTPService {
	return webhook.NewHTTPService(log)
}
