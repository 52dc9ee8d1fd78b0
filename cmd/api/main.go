package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/student-records-api/api/swagger"
	"github.com/campushq/student-records-api/internal/handler"
	appmiddleware "github.com/campushq/student-records-api/internal/middleware"
	"github.com/campushq/student-records-api/internal/repository"
	"github.com/campushq/student-records-api/internal/service"
	"github.com/campushq/student-records-api/pkg/cache"
	"github.com/campushq/student-records-api/pkg/config"
	"github.com/campushq/student-records-api/pkg/database"
	"github.com/campushq/student-records-api/pkg/logger"
	corsmiddleware "github.com/campushq/student-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/student-records-api/pkg/middleware/requestid"
)

// @title Student Records API
// @version 1.0.0
// @description REST backend for student-records management
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, statistics cache disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr)

	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	validate := service.NewValidator()

	var credentials service.CredentialStore
	switch cfg.Auth.CredentialSource {
	case config.CredentialSourceDatabase:
		credentials = service.NewDBCredentialStore(userRepo, cfg.Auth.PasswordPepper)
	default:
		credentials, err = service.NewStaticCredentialStore(cfg.Auth.StaticUsers)
		if err != nil {
			logr.Sugar().Fatalw("failed to parse static credential table", "error", err)
		}
	}

	authSvc := service.NewAuthService(credentials, validate, logr, service.AuthConfig{
		Secret:      cfg.Auth.Secret,
		TokenExpiry: cfg.Auth.TokenExpiry,
		Issuer:      cfg.Auth.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(studentRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(appmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/validate", authHandler.Validate)
	auth.POST("/logout", authHandler.Logout)

	students := api.Group("/students")
	if cfg.Auth.ProtectRoutes {
		students.Use(appmiddleware.JWT(authSvc))
	}
	students.GET("", studentHandler.List)
	students.GET("/search", studentHandler.Search)
	students.GET("/statistics", studentHandler.Statistics)
	if cfg.Export.Enabled {
		students.GET("/export", studentHandler.Export)
	}
	students.GET("/:id", studentHandler.Get)
	students.POST("", studentHandler.Create)
	students.PUT("/:id", studentHandler.Update)
	students.DELETE("/:id", studentHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env,
		"credential_source", cfg.Auth.CredentialSource, "protected_routes", cfg.Auth.ProtectRoutes)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
