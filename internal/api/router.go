package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recipe-ingestor/internal/api/handlers/health"
	ingestHandler "recipe-ingestor/internal/api/handlers/ingest"
	"recipe-ingestor/internal/api/middleware"
	"recipe-ingestor/internal/core/ai/cache"
	"recipe-ingestor/internal/core/ai/openrouter"
	aiservice "recipe-ingestor/internal/core/ai/service"
	coreingest "recipe-ingestor/internal/core/ingest"
	"recipe-ingestor/internal/core/ingest/themealdb"
	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求體大小限制 (10MB)
const maxBodySize = 10 << 20

// SetupRouter 設置路由
// store 由呼叫端決定（MongoDB 或記憶體），其餘服務在此組裝
func SetupRouter(cfg *config.Config, cacheManager *cache.Manager, store coreingest.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg))

	// 初始化模型閘道
	provider := openrouter.NewClient(cfg)
	aiService, err := aiservice.NewService(cfg, provider, cacheManager)
	if err != nil {
		common.LogError("Failed to initialize AI service", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	// 初始化匯入協調器
	catalog := themealdb.NewClient(cfg)
	ingestService := coreingest.NewService(cfg, aiService, store, catalog, nil)

	common.LogInfo("Services initialized",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Int("queue_workers", cfg.Queue.Workers),
		zap.String("model", cfg.OpenRouter.Model),
		zap.Duration("request_timeout", cfg.Pipeline.RequestTimeout),
	)

	// 全局中間件：設置超時和服務
	timeoutDuration := cfg.Pipeline.RequestTimeout + 30*time.Second
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("ai_service", aiService)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		handler := ingestHandler.NewHandler(ingestService)

		ingestGroup := api.Group("/ingest")
		{
			// 自由文字匯入（萃取路徑）
			ingestGroup.POST("/text", handler.HandleText)

			// 外部結構化記錄匯入（精煉路徑）
			ingestGroup.POST("/record", handler.HandleRecord)

			// canonical JSON 直接匯入（貼上路徑，不經過模型）
			ingestGroup.POST("/json", handler.HandleJSON)

			// 批次上傳多個 JSON 檔案
			ingestGroup.POST("/upload", handler.HandleUpload)
		}

		catalogGroup := api.Group("/catalog")
		{
			catalogGroup.POST("/import", handler.HandleImport)
			catalogGroup.POST("/sweep/letters", handler.HandleLetterSweep)
			catalogGroup.POST("/sweep/random", handler.HandleRandomSweep)
			catalogGroup.POST("/sweep/:key/stop", handler.HandleStopSweep)
			catalogGroup.GET("/sweep/:key", handler.HandleSweepStatus)
		}

		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.GET("/:id", handler.HandleGetRecipe)
			recipeGroup.POST("/:id/steps", handler.HandleBackfillSteps)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
