package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/AortaRisk/internal/inference"
	"github.com/Skufu/AortaRisk/web"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options wires the router. Engine is required for the prediction routes.
type Options struct {
	Engine      *inference.Engine
	DB          HealthChecker
	Logger      zerolog.Logger
	CORSOrigins []string
}

func NewRouter(opts Options) *gin.Engine {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		RequestID(),
		RequestLogger(opts.Logger),
		Recovery(opts.Logger),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
			ExposeHeaders: []string{RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	router.StaticFS("/static", http.FS(web.Assets))
	router.GET("/", func(c *gin.Context) {
		page, err := web.Assets.ReadFile("index.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "form unavailable")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyHandler(opts.Engine, opts.DB))

	h := newHandler(opts.Engine, opts.Logger)
	api := router.Group("/api")
	{
		api.GET("/form", h.form)
		api.GET("/schema", h.schema)
		api.POST("/predict", h.predict)
	}

	return router
}

func readyHandler(engine *inference.Engine, db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "artifacts": "not loaded"})
			return
		}
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "artifacts": "loaded", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"artifacts": "loaded",
				"db":        fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "artifacts": "loaded", "db": "ok"})
	}
}
