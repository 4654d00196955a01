package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bclabs/school-portal-api/api/swagger"
	"github.com/bclabs/school-portal-api/internal/handler"
	"github.com/bclabs/school-portal-api/internal/middleware"
	"github.com/bclabs/school-portal-api/internal/repository"
	"github.com/bclabs/school-portal-api/internal/service"
	"github.com/bclabs/school-portal-api/internal/syscfg"
	"github.com/bclabs/school-portal-api/pkg/cache"
	"github.com/bclabs/school-portal-api/pkg/config"
	"github.com/bclabs/school-portal-api/pkg/database"
	"github.com/bclabs/school-portal-api/pkg/logger"
	corsmiddleware "github.com/bclabs/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bclabs/school-portal-api/pkg/middleware/requestid"
)

// @title School Portal API
// @version 1.0.0
// @description Backend for the school management portal
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	store, err := syscfg.NewFileStore(cfg.License.ConfigPath)
	if err != nil {
		logr.Sugar().Fatalw("failed to open system config", "path", cfg.License.ConfigPath, "error", err)
	}

	studentRepo := repository.NewStudentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	userRepo := repository.NewUserRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(studentRepo, staffRepo, userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "school-portal-api",
	})
	setupSvc := service.NewSetupService(store, userRepo, cfg.License.KeyPrefix, nil, logr)
	licenseSvc := service.NewLicenseService(store, userRepo, cfg.License.KeyPrefix, nil, logr)

	var entitySvc *service.EntityService
	if cacheRepo != nil {
		entitySvc = service.NewEntityService(studentRepo, staffRepo, recordRepo, cacheRepo, metricsSvc, cfg.Cache.ListTTL, logr)
	} else {
		entitySvc = service.NewEntityService(studentRepo, staffRepo, recordRepo, nil, metricsSvc, cfg.Cache.ListTTL, logr)
	}
	exportSvc := service.NewExportService(entitySvc)

	authHandler := handler.NewAuthHandler(authSvc)
	setupHandler := handler.NewSetupHandler(setupSvc)
	licenseHandler := handler.NewLicenseHandler(licenseSvc)
	entityHandler := handler.NewEntityHandler(entitySvc, exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.GET("/setup/status", setupHandler.Status)
	api.POST("/setup", setupHandler.Install)
	api.POST("/login", authHandler.Login)
	api.POST("/activate-account", authHandler.Activate)
	api.POST("/change-password", authHandler.ChangePassword)

	license := api.Group("/license", middleware.JWT(authSvc), middleware.AdminOnly())
	license.POST("/activate", licenseHandler.Activate)
	license.GET("/status", licenseHandler.Status)

	authed := api.Group("", middleware.JWT(authSvc), middleware.License(licenseSvc, metricsSvc))
	// The entity registry is closed: each registered collection gets its own
	// literal routes and everything else falls through to 404.
	for _, name := range entitySvc.Entities() {
		group := authed.Group("/" + name)
		group.GET("", withEntity(name, entityHandler.List))
		group.POST("", withEntity(name, entityHandler.Create))
		group.PUT("/:id", withEntity(name, entityHandler.Update))
		group.DELETE("/:id", withEntity(name, entityHandler.Delete))
		group.GET("/export", middleware.AdminOnly(), withEntity(name, entityHandler.Export))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// withEntity injects the collection name as a path parameter so the generic
// handlers can stay registry-driven.
func withEntity(name string, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "entity", Value: name})
		next(c)
	}
}
