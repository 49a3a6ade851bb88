package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/importer"
	"github.com/mmdatafocus/portal_backend/middlewares"
	"github.com/mmdatafocus/portal_backend/models"
	"github.com/mmdatafocus/portal_backend/sapsync"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORTAL_SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sapCfg, err := config.LoadSAPConfig()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "config"}).Fatal(err)
	}
	syncCfg := config.LoadSyncConfig()
	client, err := sapsync.NewClient(sapCfg)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "sap client"}).Fatal(err)
	}
	sapHandlers := sapsync.NewHandlers(client, sapCfg, syncCfg)
	importHandlers := importer.NewHandlers()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(middlewares.CorrelationId(uuid.NewString))
	deps := []middlewares.Dependency{{Name: "database", Ready: func() bool { return config.GetDB() != nil }}}
	if !syncCfg.LockDisabled {
		// sync locks need redis; sessions report their own 503 when it is down
		deps = append(deps, middlewares.Dependency{Name: "redis", Ready: func() bool { return config.GetRedisDB() != nil }})
	}
	r.Use(middlewares.Readiness(deps...))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(middlewares.BearerToken())
	r.Use(middlewares.SessionMiddleware(middlewares.RedisSession))
	r.Use(requestLogger())
	r.Use(gin.Recovery())

	api := r.Group("/api", middlewares.RequireUser())
	api.POST("/sap/sync/business-partners", sapHandlers.SyncBusinessPartnersHandler())
	api.POST("/sap/sync/contacts", sapHandlers.SyncContactsHandler())
	api.GET("/sap/sync-runs", sapHandlers.SyncRunsHandler())
	api.GET("/sap/sync-runs/:id", sapHandlers.SyncRunDetailHandler())
	api.POST("/imports/:kind", importHandlers.ImportHandler())
	api.POST("/imports/:kind/parse", importHandlers.ParseHandler())
	api.POST("/imports/:kind/error-report", importHandlers.ErrorReportHandler())

	// Pub/Sub push endpoint for scheduled passes.
	r.POST("/pubsub/sap-sync", sapHandlers.PubSubPushHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "status": http.StatusNotFound, "message": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		config.LoggerFromContext(c.Request.Context()).WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}
