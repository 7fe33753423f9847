package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/assistant"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/azure"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/config"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/docstore"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/gemini"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/handler"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/localstate"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/memory"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/pdf"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/repository"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/security"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/api"
)

const version = "1.0.0"

// backend is the set of stores behind one persistence choice
type backend struct {
	conversations chat.PersistenceGateway
	profiles      profile.Store
	users         identity.UserStore
	audit         audit.Store
	pingers       map[string]handler.Pinger
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("persistence", cfg.Persistence.Backend),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	ctx := context.Background()

	var sealer *security.Encryptor
	if cfg.Security.ContentKey != "" {
		sealer, err = security.NewEncryptorFromPassphrase(cfg.Security.ContentKey)
		if err != nil {
			logger.Fatal("Failed to initialize content encryption", zap.Error(err))
		}
	}

	stores, err := openBackend(ctx, cfg, sealer, logger)
	if err != nil {
		logger.Fatal("Failed to initialize persistence", zap.Error(err))
	}
	defer stores.close()

	// Blob storage is optional; without it exports are only returned inline
	var (
		images  assistant.ImageStore
		exports handler.ExportStore
	)
	if cfg.Azure.Storage.Enabled() {
		blobClient, err := azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.Container,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
		var blobs azure.BlobStorage = blobClient
		images = blobs
		exports = blobs
		stores.pingers["blob_storage"] = blobClient
	}

	profileService := profile.NewService(stores.profiles, logger)
	prompter := assistant.NewPrompter(profileService, logger)

	ai, err := newAIGateway(ctx, cfg, prompter, images, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI gateway", zap.Error(err))
	}

	localState, err := localstate.NewStore(cfg.LocalState.Directory)
	if err != nil {
		logger.Fatal("Failed to initialize local state", zap.Error(err))
	}

	identityService := identity.NewService(stores.users, cfg.Identity.CacheTTL, logger)
	auditLogger := audit.NewLogger(stores.audit, logger)

	registry := chat.NewRegistry(chat.Dependencies{
		Store:            stores.conversations,
		AI:               ai,
		LocalState:       localState,
		Auditor:          auditLogger,
		Logger:           logger,
		DebounceInterval: cfg.Chat.DebounceInterval,
	},
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
		chat.WithFallbackReply(cfg.Chat.FallbackReply),
	)

	unsubscribe := identityService.Subscribe(func(evt identity.Event) {
		switch evt.Type {
		case identity.EventSignedIn:
			if err := auditLogger.LogLogin(context.Background(), evt.UID); err != nil {
				logger.Warn("Failed to audit sign-in", zap.String("user_id", evt.UID), zap.Error(err))
			}
		case identity.EventSignedOut:
			registry.Close(evt.UID)
		}
	})
	defer unsubscribe()

	scheduler := cron.New()
	if _, err := registry.ScheduleEviction(scheduler, cfg.Chat.EvictionSchedule, cfg.Chat.SessionIdleTTL); err != nil {
		logger.Fatal("Failed to schedule session eviction", zap.Error(err))
	}
	if _, err := identityService.ScheduleSweep(scheduler, cfg.Identity.SweepSchedule); err != nil {
		logger.Fatal("Failed to schedule profile cache sweep", zap.Error(err))
	}
	scheduler.Start()

	doc, err := api.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load OpenAPI document", zap.Error(err))
	}
	validate, err := middleware.OpenAPIValidationMiddleware(doc, logger)
	if err != nil {
		logger.Fatal("Failed to initialize request validation", zap.Error(err))
	}

	server := handler.NewServer(handler.Config{
		Sessions: registry,
		Identity: identityService,
		Profiles: profileService,
		Renderer: pdf.NewPDFGenerator(logger),
		Exports:  exports,
		Auditor:  auditLogger,
		Pingers:  stores.pingers,
		Origins:  cfg.Server.AllowedOrigins,
		Version:  version,
		Logger:   logger,
	})

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.UserHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID", "X-Trace-ID"},
		AllowCredentials: !containsWildcard(cfg.Server.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.SlowRequestMiddleware(logger, 1*time.Second))
	r.Use(middleware.AuditMetaMiddleware())
	r.Use(validate)

	public := r.Group("/api/v1")
	protected := r.Group("/api/v1", middleware.IdentityMiddleware(identityService))
	api.RegisterHandlers(public, protected, server, handler.ParamError)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop scheduled jobs, then let in-flight chat turns finish
	<-scheduler.Stop().Done()
	registry.Shutdown()

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Logging.Format != "" {
		zc.Encoding = cfg.Logging.Format
	}
	return zc.Build()
}

func openBackend(ctx context.Context, cfg *config.Config, sealer *security.Encryptor, logger *zap.Logger) (*backend, error) {
	switch cfg.Persistence.Backend {
	case config.BackendPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Successfully connected to database")

		return &backend{
			conversations: repository.NewConversationRepository(pool, sealer, logger),
			profiles:      repository.NewHealthProfileRepository(pool, logger),
			users:         repository.NewUserRepository(pool, logger),
			audit:         audit.NewPgStore(pool, logger),
			pingers:       map[string]handler.Pinger{"postgres": pool},
			close:         pool.Close,
		}, nil

	case config.BackendFirestore:
		store, err := docstore.NewStore(ctx, cfg.Firestore.ProjectID, sealer, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Firestore", zap.String("project_id", cfg.Firestore.ProjectID))

		return &backend{
			conversations: store,
			profiles:      store,
			users:         store,
			audit:         store,
			pingers:       map[string]handler.Pinger{"firestore": store},
			close: func() {
				if err := store.Close(); err != nil {
					logger.Warn("Failed to close Firestore client", zap.Error(err))
				}
			},
		}, nil

	default:
		logger.Warn("Using in-memory persistence; data is lost on restart")
		return &backend{
			conversations: memory.NewConversationStore(),
			profiles:      memory.NewProfileStore(),
			users:         memory.NewUserStore(),
			audit:         memory.NewAuditStore(),
			pingers:       map[string]handler.Pinger{},
			close:         func() {},
		}, nil
	}
}

func newAIGateway(ctx context.Context, cfg *config.Config, prompter *assistant.Prompter, images assistant.ImageStore, logger *zap.Logger) (chat.AIGateway, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return gemini.NewGateway(ctx, gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			Project:    cfg.Gemini.Project,
			Location:   cfg.Gemini.Location,
			ChatModel:  cfg.Gemini.ChatModel,
			ImageModel: cfg.Gemini.ImageModel,
		}, prompter, images, logger)
	case config.ProviderAzure:
		return azure.NewOpenAIClient(
			cfg.Azure.OpenAI.Endpoint,
			cfg.Azure.OpenAI.APIKey,
			cfg.Azure.OpenAI.Deployment,
			prompter,
			logger,
		)
	default:
		logger.Warn("Using the echo assistant; replies are canned")
		return assistant.Echo{}, nil
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
