package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trendscout/internal/aggregator"
	"trendscout/internal/category"
	"trendscout/internal/collector"
	"trendscout/internal/config"
	cronrunner "trendscout/internal/cron"
	"trendscout/internal/cycle"
	"trendscout/internal/db"
	"trendscout/internal/generation"
	"trendscout/internal/handler"
	"trendscout/internal/logger"
	gormrepository "trendscout/internal/repository/gorm"
	"trendscout/internal/safety"
	"trendscout/internal/scoring"

	_ "trendscout/docs"
)

func main() {
	cfgPath := os.Getenv("TS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var cache *collector.Cache
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = &collector.Cache{RDB: rdb, TTL: cfg.Redis.CacheTTL}
		defer rdb.Close()
	}

	httpc := &http.Client{Timeout: 30 * time.Second}
	var collectors []collector.Collector
	if cfg.Sources.GoogleTrends.Enabled {
		collectors = append(collectors, &collector.GoogleTrendsCollector{
			HTTP: httpc, Logger: logger, Cache: cache, Cfg: cfg.Sources.GoogleTrends,
		})
	}
	if cfg.Sources.NewsAPI.Enabled {
		collectors = append(collectors, &collector.NewsAPICollector{
			HTTP: httpc, Logger: logger, Cache: cache, Cfg: cfg.Sources.NewsAPI,
		})
	}
	if cfg.Sources.Reddit.Enabled {
		collectors = append(collectors, &collector.RedditCollector{
			HTTP: httpc, Logger: logger, Cache: cache, Cfg: cfg.Sources.Reddit,
		})
	}
	if cfg.Sources.Bluesky.Enabled {
		collectors = append(collectors, &collector.BlueskyCollector{
			Logger: logger, Cfg: cfg.Sources.Bluesky,
		})
	}

	checker := &safety.Checker{Floor: cfg.Scoring.SafetyFloor}

	var classifier category.Classifier = category.KeywordClassifier{}

	var providers []generation.Provider
	if cfg.Generation.OpenAI.Enabled {
		openaiProvider := &generation.OpenAIProvider{
			Cfg:         cfg.Generation.OpenAI,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			MaxAngles:   cfg.Generation.MaxAnglesPerCampaign,
			Timeout:     cfg.Generation.RequestTimeout,
		}
		providers = append(providers, openaiProvider)
		if cfg.Aggregator.AICategorization {
			classifier = &category.AIClassifier{Chat: openaiProvider.Chat}
		}
	}
	if cfg.Generation.Anthropic.Enabled {
		providers = append(providers, &generation.AnthropicProvider{
			Cfg:         cfg.Generation.Anthropic,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			MaxAngles:   cfg.Generation.MaxAnglesPerCampaign,
			Timeout:     cfg.Generation.RequestTimeout,
		})
	}
	providers = append(providers, &generation.TemplateProvider{
		MaxAngles: cfg.Generation.MaxAnglesPerCampaign,
	})

	rpm := cfg.Generation.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	orchestrator := &generation.Orchestrator{
		Repo:      store,
		Logger:    logger,
		Safety:    checker,
		Providers: providers,
		Limiter:   rate.NewLimiter(rate.Limit(rpm/60.0), 1),
		Cfg:       cfg.Generation,
	}

	coordinator := &cycle.Coordinator{
		Repo:       store,
		Logger:     logger,
		Collectors: collectors,
		Aggregator: &aggregator.Aggregator{
			Repo:         store,
			Logger:       logger,
			Sim:          aggregator.TokenSetSimilarity{},
			Classifier:   classifier,
			Cutoff:       cfg.Aggregator.SimilarityCutoff,
			MaxPerSource: cfg.Aggregator.MaxSignalsPerSource,
		},
		Scorer:     &scoring.Engine{Cfg: cfg.Scoring},
		Safety:     checker,
		Generator:  orchestrator,
		Cfg:        cfg.Cycle,
		ScoringCfg: cfg.Scoring,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	trendHandler := &handler.TrendHandler{Repo: store}
	trendHandler.Register(engine)
	campaignHandler := &handler.CampaignHandler{Repo: store}
	campaignHandler.Register(engine)
	cycleHandler := &handler.CycleHandler{Repo: store, Runner: coordinator, Logger: logger, BaseCtx: ctx}
	cycleHandler.Register(engine)
	sourceHandler := &handler.SourceHandler{Repo: store}
	sourceHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add("daily_cycle", cfg.Cron.DailyRun, func(ctx context.Context) {
			if _, err := coordinator.Run(ctx, time.Now().UTC()); err != nil {
				logger.Warn("cron cycle run failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register daily cycle failed", zap.Error(err))
		}
		_, err = cronRunner.Add("heartbeat", cfg.Cron.Heartbeat, func(ctx context.Context) {
			if err := db.Ping(dbConn); err != nil {
				logger.Warn("db heartbeat failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register heartbeat failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
