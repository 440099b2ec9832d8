package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"feedback-backend/internal/healthanalysis"
	"feedback-backend/internal/llm"
	openaiclient "feedback-backend/internal/llm/openai"
	"feedback-backend/internal/shared/config"
	"feedback-backend/internal/shared/metrics"
	"feedback-backend/internal/shared/server/middleware"
	"feedback-backend/internal/shared/server/respond"
	"feedback-backend/internal/shared/storage/db"
	"feedback-backend/internal/store"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	var gateway store.Gateway
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory gateway: %v", err)
		} else {
			gateway = store.NewPGGateway(sqlDB)
		}
	}
	if gateway == nil {
		gateway = store.NewMemoryGateway()
	}

	completer := buildCompleter(cfg)
	lease := buildLease(cfg)

	calculator := &healthanalysis.HealthScoreCalculator{HistoryWeeks: cfg.Analysis.HistoryWeeks}
	processor := &healthanalysis.UserProcessor{
		Store:     gateway,
		Sentiment: &healthanalysis.SentimentAnalyzer{Completer: completer},
		Summaries: &healthanalysis.SummaryGenerator{Completer: completer},
		Themes:    &healthanalysis.ThemeExtractor{Completer: completer},
		Scores:    calculator,
	}
	coordinator := &healthanalysis.BatchCoordinator{
		Store:     gateway,
		Processor: processor,
		Lease:     lease,
		Config:    cfg.Analysis,
	}
	analysisHandler := healthanalysis.NewHandler(coordinator)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	analysisHandler.RegisterRoutes(api)
	r.GET("/metrics", metrics.Handler())

	return r
}

func buildCompleter(cfg config.Config) llm.Completer {
	if cfg.LLMProvider != "openai" || cfg.CompletionAPIKey == "" {
		log.Printf("completion client not configured, analyzers will use fallbacks")
		return llm.PlaceholderCompleter{}
	}
	client, err := openaiclient.NewClient(cfg.CompletionAPIKey, cfg.LLMModel)
	if err != nil {
		log.Printf("openai client init failed, analyzers will use fallbacks: %v", err)
		return llm.PlaceholderCompleter{}
	}
	return client
}

func buildLease(cfg config.Config) healthanalysis.Lease {
	if cfg.RedisURL == "" {
		return healthanalysis.NewMemoryLease()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, falling back to in-process lease: %v", err)
		return healthanalysis.NewMemoryLease()
	}
	return healthanalysis.NewRedisLease(redis.NewClient(opts), cfg.Analysis.LeaseTTL)
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
