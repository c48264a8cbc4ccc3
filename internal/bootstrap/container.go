package bootstrap

import (
	"context"
	"log"

	"ai-salesops-be/internal/config"
	"ai-salesops-be/internal/controller"
	"ai-salesops-be/internal/handler"
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/internal/repository/contract"
	"ai-salesops-be/internal/repository/implementation"
	"ai-salesops-be/internal/repository/memory"
	"ai-salesops-be/internal/service"
	"ai-salesops-be/internal/websocket"
	"ai-salesops-be/pkg/agent"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/crm/salesforce"
	"ai-salesops-be/pkg/followup"
	"ai-salesops-be/pkg/llm"
	"ai-salesops-be/pkg/llm/factory"
	"ai-salesops-be/pkg/scoring"
	"ai-salesops-be/pkg/tools"

	pktNats "ai-salesops-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const refreshTopic = "salesops.score-refresh"

type Container struct {
	// Controllers
	PipelineController  controller.IPipelineController
	AssistantController controller.IAssistantController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	ActivityService *service.ActivityService

	// WebSockets
	AssistantSocketHandler *handler.AssistantSocketHandler
	WebSocketHub           *websocket.Hub

	// Core components, shared with the CLI and the MCP server
	Logger    logger.ILogger
	Store     crm.RecordStore
	Scorer    *scoring.Scorer
	FollowUp  *followup.Generator
	Tools     *tools.Registry
	Agent     *agent.Agent
	Assistant service.IAssistantService

	scoreCache scoring.ScoreCache
}

// NewCore builds the CRM, model, scoring and agent stack without any
// network-facing infrastructure.
func NewCore(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger, rdb *redis.Client) (*Container, error) {
	// CRM
	var store crm.RecordStore
	if cfg.CRM.Provider == "file" {
		store = crm.NewFileStore(cfg.CRM.FixturesDir, cfg.CRM.RecordLimit)
	} else {
		store = salesforce.NewClient(salesforce.Config{
			Username:      cfg.CRM.Username,
			Password:      cfg.CRM.Password,
			SecurityToken: cfg.CRM.SecurityToken,
			ClientID:      cfg.CRM.ClientID,
			ClientSecret:  cfg.CRM.ClientSecret,
			LoginURL:      cfg.CRM.LoginURL,
			APIVersion:    cfg.CRM.APIVersion,
			Limit:         cfg.CRM.RecordLimit,
		}, sysLogger)
	}
	store = crm.NewCachedStore(store, cfg.CRM.CacheTTL)
	log.Printf("[INFO] Using CRM provider: %s", cfg.CRM.Provider)

	// LLM
	llmProvider, err := factory.NewLLMProvider(ctx, providerConfig(cfg))
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Scoring
	scoreCache := scoring.NewScoreCache(cfg.Ai.ScoreCacheBackend, rdb, cfg.Ai.ScoreCacheTTL)
	opts := []scoring.ScorerOption{
		scoring.WithCache(scoreCache),
		scoring.WithConcurrency(cfg.Ai.ScoreConcurrency),
		scoring.WithCallTimeout(cfg.Ai.RequestTimeout),
	}
	if cfg.Ai.PromptsFile != "" {
		overrides, err := scoring.LoadPromptOverrides(cfg.Ai.PromptsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scoring.WithPromptOverrides(overrides))
	}
	scorer := scoring.NewScorer(llmProvider, sysLogger, opts...)
	followUp := followup.NewGenerator(llmProvider, sysLogger, cfg.Ai.FollowUpTemperature, cfg.Ai.RequestTimeout)

	// Agent
	registry := tools.NewCatalogue(tools.Deps{
		Store:    store,
		Ranker:   scorer,
		FollowUp: followUp,
		Logger:   sysLogger,
	})
	dialogue := agent.New(llm.AsToolCaller(llmProvider), registry, sysLogger, cfg.Agent.MaxIterations, cfg.Ai.RequestTimeout)

	return &Container{
		Logger:     sysLogger,
		Store:      store,
		Scorer:     scorer,
		FollowUp:   followUp,
		Tools:      registry,
		Agent:      dialogue,
		scoreCache: scoreCache,
	}, nil
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	ctx := context.Background()

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	rdb := connectRedis(ctx, cfg.App.RedisURL)

	c, err := NewCore(ctx, cfg, sysLogger, rdb)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize core services: %v", err)
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS is optional; without it events are only logged.
	var eventPublisher service.EventPublisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		}
	}
	eventService := service.NewEventService(eventPublisher, sysLogger)

	// 3. Persistence
	sessionRepo := memory.NewSessionRepository(cfg.Agent.SessionIdle)
	var transcripts contract.TranscriptRepository
	if db != nil {
		transcripts = implementation.NewTranscriptRepository(db)
	}

	// 4. Services
	publisherService := service.NewPublisherService(refreshTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, refreshTopic, c.Store, c.Scorer, c.scoreCache, eventService, sysLogger)
	pipelineService := service.NewPipelineService(c.Store, c.Scorer, c.FollowUp, publisherService, eventService, sysLogger)
	assistantService := service.NewAssistantService(c.Agent, sessionRepo, transcripts, eventService, sysLogger)

	// 5. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	if natsSub != nil {
		c.ActivityService = service.NewActivityService(natsSub, wsHub, wsLogger)
	}

	c.Assistant = assistantService
	c.ConsumerService = consumerService
	c.WebSocketHub = wsHub
	c.AssistantSocketHandler = handler.NewAssistantSocketHandler(assistantService, wsHub, cfg.App.JwtSecret, wsLogger)
	c.PipelineController = controller.NewPipelineController(pipelineService)
	c.AssistantController = controller.NewAssistantController(assistantService)
	return c
}

func providerConfig(cfg *config.Config) factory.ProviderConfig {
	pc := factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		Timeout:  cfg.Ai.RequestTimeout,
	}
	switch cfg.Ai.LLMProvider {
	case "ollama":
		pc.BaseURL = cfg.Ai.OllamaBaseURL
	case "gemini":
		pc.APIKey = cfg.Ai.GeminiAPIKey
	default:
		pc.BaseURL = cfg.Ai.OpenAIBaseURL
		pc.APIKey = cfg.Ai.OpenAIAPIKey
	}
	return pc
}

// connectRedis returns nil when Redis is not configured or not reachable.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
