package bootstrap

import (
	"context"
	"log"

	"ai-hovertip-be/internal/config"
	"ai-hovertip-be/internal/controller"
	"ai-hovertip-be/internal/events"
	"ai-hovertip-be/internal/gate"
	"ai-hovertip-be/internal/handler"
	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/internal/service"
	"ai-hovertip-be/internal/storage"
	"ai-hovertip-be/internal/websocket"
	"ai-hovertip-be/pkg/database"
	"ai-hovertip-be/pkg/kv"
	"ai-hovertip-be/pkg/llm/factory"
	"ai-hovertip-be/pkg/ocr"

	pktNats "ai-hovertip-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	EnrichController   controller.IEnrichController
	SettingsController controller.ISettingsController
	InstallController  controller.IInstallController
	UpgradeController  controller.IUpgradeController

	// WebSockets & usage push
	UsagePushHandler *handler.UsagePushHandler
	WebSocketHub     *websocket.Hub

	// Exposed for main.go to run
	UsageRelay *events.Relay

	// Exposed for the simulation binary
	EnrichmentService service.EnrichmentService
	Gate              *gate.Gate
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis (cluster fan-out for the websocket hub, plus the redis
	// storage driver when selected)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Key-value backend for ledgers and settings
	var store kv.Store
	switch cfg.Storage.Driver {
	case "redis":
		store = storage.NewRedisStore(rdb)
		log.Printf("[INFO] Using storage driver: REDIS")
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to Postgres: %v", err)
		}
		store = storage.NewGormStore(db)
		log.Printf("[INFO] Using storage driver: POSTGRES")
	default:
		store = kv.NewMemoryStore()
		log.Printf("[INFO] Using storage driver: MEMORY")
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/usage_push.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Usage events: gochannel bus feeds the hub, NATS mirrors for
	// external consumers when available.
	eventPublisher := events.NewBusPublisher(pubSub, natsPub, sysLogger)
	usageRelay := events.NewRelay(pubSub, wsHub, wsLogger)

	// 3. Domain
	ledger := gate.NewLedger(store, sysLogger)
	usageGate := gate.NewGate(ledger, cfg.Gate.FreeTierLimit, cfg.Keys.GoogleGemini, sysLogger, eventPublisher)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	recognizer := ocr.NewStubRecognizer()

	// 4. Services
	enrichmentService := service.NewEnrichmentService(usageGate, recognizer, llmProvider, sysLogger)
	settingsService := service.NewSettingsService(ledger, cfg.Gate.FreeTierLimit, eventPublisher, sysLogger)
	installService := service.NewInstallService(sysLogger)
	upgradeService := service.NewUpgradeService(ledger, eventPublisher, cfg.Google)

	usagePushHandler := handler.NewUsagePushHandler(wsHub, wsLogger)

	return &Container{
		UsagePushHandler: usagePushHandler,
		WebSocketHub:     wsHub,
		UsageRelay:       usageRelay,

		EnrichController:   controller.NewEnrichController(enrichmentService),
		SettingsController: controller.NewSettingsController(settingsService),
		InstallController:  controller.NewInstallController(installService),
		UpgradeController:  controller.NewUpgradeController(upgradeService),

		EnrichmentService: enrichmentService,
		Gate:              usageGate,
	}
}
