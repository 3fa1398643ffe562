package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/recruitlink/config"
	"github.com/yoockh/recruitlink/internal/api/handlers"
	"github.com/yoockh/recruitlink/internal/api/middleware"
	"github.com/yoockh/recruitlink/internal/api/routes"
	"github.com/yoockh/recruitlink/internal/cache"
	"github.com/yoockh/recruitlink/internal/locks"
	"github.com/yoockh/recruitlink/internal/logger"
	"github.com/yoockh/recruitlink/internal/providers/llm"
	"github.com/yoockh/recruitlink/internal/providers/pdf"
	"github.com/yoockh/recruitlink/internal/realtime"
	mongorepo "github.com/yoockh/recruitlink/internal/repositories/mongo"
	pgrepo "github.com/yoockh/recruitlink/internal/repositories/postgres"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/storage"
	"github.com/yoockh/recruitlink/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.InitMongo(ctx); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(cfg.MongoDB); err != nil {
		log.WithError(err).Warn("MongoDB index creation failed")
	}
	log.Info("MongoDB connected")

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	if err := config.Migrate(); err != nil {
		log.WithError(err).Fatal("PostgreSQL migration error")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(ctx); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("storage init error")
	}
	defer closeStore()

	redactor, closeRedactor, err := buildRedactor(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("redactor init error")
	}
	defer closeRedactor()

	var appCache cache.Cache
	if cfg.CacheDriver == config.CacheMemory {
		appCache = cache.NewMemoryCache(cfg.CacheCapacity, cache.SystemClock)
	} else {
		appCache = cache.NewRedisCache(config.RedisClient, "recruitlink:")
	}

	// repositories
	proposalRepo := pgrepo.NewProposalRepo(config.PostgresDB)
	profileRepo := pgrepo.NewProfileRepo(config.PostgresDB)
	reviewRepo := pgrepo.NewReviewRepo(config.PostgresDB)
	notificationRepo := mongorepo.NewNotificationRepo(config.MongoClient.Database(cfg.MongoDB))

	publisher := realtime.NewRedisPublisher(config.RedisClient)
	notifications := services.NewNotificationService(notificationRepo, publisher, cfg.NotificationTTL, log)

	var (
		dispatcher services.AnonymizeDispatcher
		inline     *workers.InlineDispatcher
		pool       *workers.AnonymizeWorkerPool
	)
	if cfg.DispatchMode == config.DispatchInline {
		// jobs outlive the signal; Shutdown decides when to cancel them
		inline = workers.NewInlineDispatcher(context.Background(), cfg.JobTimeout, log)
		dispatcher = inline
	} else {
		dispatcher = &workers.StreamDispatcher{Redis: config.RedisClient, MaxLen: cfg.StreamMaxLen}
	}

	pipeline := services.NewCVPipelineService(services.CVPipelineConfig{
		Proposals:    proposalRepo,
		Store:        store,
		Extractor:    pdf.TextExtractor{},
		Redactor:     redactor,
		Renderer:     pdf.TextRenderer{},
		Dispatcher:   dispatcher,
		Publisher:    publisher,
		Notifier:     notifications,
		Locker:       locks.NewRedisLocker(config.RedisClient, "recruitlink:"),
		Logger:       log,
		AttemptLease: cfg.AttemptLease,
	})
	if inline != nil {
		inline.Bind(pipeline)
	} else {
		host, _ := os.Hostname()
		pool = &workers.AnonymizeWorkerPool{
			Redis:          config.RedisClient,
			Pipeline:       pipeline,
			NumWorkers:     cfg.Workers,
			Logger:         log,
			ConsumerPrefix: host,
			JobTimeout:     cfg.JobTimeout,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("anonymize workers init error")
		}
	}

	proposals := services.NewProposalService(proposalRepo)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Proposal:     handlers.NewProposalHandler(proposals),
		CV:           handlers.NewCVHandler(pipeline),
		Access:       handlers.NewAccessHandler(services.NewAccessService(proposalRepo, notifications)),
		Profile:      handlers.NewProfileHandler(services.NewProfileService(profileRepo, appCache, cfg.ProfileTTL, store, log)),
		Review:       handlers.NewReviewHandler(services.NewReviewService(reviewRepo, appCache, cfg.RatingTTL, log)),
		Notification: handlers.NewNotificationHandler(notifications),
		WS:           handlers.NewWSHandler(proposals, config.RedisClient, cfg.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "dispatch": cfg.DispatchMode, "storage": cfg.StorageDriver}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown error")
	}

	// jobs record their outcome and release their locks through Redis and
	// Postgres, so they drain before the clients close
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancelDrain()
	var drainErr error
	if inline != nil {
		drainErr = inline.Shutdown(drainCtx)
	} else {
		drainErr = pool.Shutdown(drainCtx)
	}
	if drainErr != nil {
		log.WithError(drainErr).Warn("anonymize jobs cancelled at shutdown")
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	_ = config.CloseMongo(closeCtx)
	_ = config.RedisClient.Close()
}

func buildStore(ctx context.Context, cfg *config.AppConfig) (storage.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		client, region, err := storage.NewS3Client(ctx)
		if err != nil {
			return nil, nil, err
		}
		return &storage.BucketRouter{
			Documents: storage.NewS3Store(client, region, cfg.DocumentsBucket, cfg.S3PublicBaseURL),
			Avatars:   storage.NewS3Store(client, region, cfg.AvatarsBucket, cfg.S3PublicBaseURL),
		}, func() {}, nil
	case config.StorageMemory:
		return storage.NewMemoryStore(cfg.MemoryStorageURL), func() {}, nil
	default:
		docs, avatars, err := storage.NewGCSStores(ctx, cfg.DocumentsBucket, cfg.AvatarsBucket)
		if err != nil {
			return nil, nil, err
		}
		return &storage.BucketRouter{Documents: docs, Avatars: avatars}, func() { _ = docs.Close() }, nil
	}
}

func buildRedactor(ctx context.Context, cfg *config.AppConfig) (llm.Redactor, func(), error) {
	switch cfg.RedactorDriver {
	case config.RedactorVertex:
		v, err := llm.NewVertexGemini(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return v, func() { _ = v.Close() }, nil
	case config.RedactorGemini:
		g, err := llm.NewGeminiAPI(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	default:
		return llm.NewFunctionRedactor(cfg.RedactFunctionURL, cfg.RedactFunctionKey, cfg.RedactTimeout), func() {}, nil
	}
}
