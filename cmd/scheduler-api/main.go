package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bellhaven-ms/scheduler-api/api/swagger"
	"github.com/bellhaven-ms/scheduler-api/internal/handler"
	"github.com/bellhaven-ms/scheduler-api/internal/middleware"
	"github.com/bellhaven-ms/scheduler-api/internal/models"
	"github.com/bellhaven-ms/scheduler-api/internal/repository"
	"github.com/bellhaven-ms/scheduler-api/internal/service"
	"github.com/bellhaven-ms/scheduler-api/pkg/cache"
	"github.com/bellhaven-ms/scheduler-api/pkg/config"
	"github.com/bellhaven-ms/scheduler-api/pkg/database"
	"github.com/bellhaven-ms/scheduler-api/pkg/logger"
	corsmiddleware "github.com/bellhaven-ms/scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bellhaven-ms/scheduler-api/pkg/middleware/requestid"
)

// @title Bellhaven Scheduler API
// @version 1.0.0
// @description Course section distribution service
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, status cache disabled", "error", err)
		redisClient = nil
	}

	metricsService := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	statusCache := service.NewCacheService(cacheRepo, metricsService, cfg.StatusCache.TTL, logr, cfg.StatusCache.Enabled)

	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	distCfg := service.DistributionConfig{
		Deterministic: cfg.Distribution.Deterministic,
		Seed:          cfg.Distribution.Seed,
	}
	validationService := service.NewValidationService(courseRepo, sectionRepo, periodRepo, studentRepo, groupRepo, logr)
	languageGroupService := service.NewLanguageGroupService(groupRepo, studentRepo, sectionRepo, courseRepo, db, metricsService, logr, distCfg)
	distributionService := service.NewDistributionService(courseRepo, sectionRepo, periodRepo, languageGroupService, validationService, db, statusCache, metricsService, logr, distCfg)

	distributionHandler := handler.NewDistributionHandler(distributionService, languageGroupService, validationService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	distribution := api.Group("/distribution")
	{
		distribution.GET("/status", distributionHandler.ListStatuses)
		distribution.GET("/status/export", distributionHandler.ExportStatuses)
		distribution.GET("/courses/:id/status", distributionHandler.Status)
		distribution.GET("/courses/:id/export", distributionHandler.ExportCourseStatus)
		distribution.GET("/language-groups", distributionHandler.ListGroups)
		distribution.GET("/validation/grade-levels/:grade", distributionHandler.ValidateGrade)
		distribution.GET("/validation/exclusivity", distributionHandler.ExclusivityViolations)

		admin := distribution.Group("")
		admin.Use(middleware.RBAC(models.RoleAdmin))
		{
			admin.POST("/courses/:id/distribute", distributionHandler.Distribute)
			admin.POST("/courses/:id/clear", distributionHandler.Clear)
			admin.POST("/distribute-all", distributionHandler.DistributeAll)
			admin.POST("/clear-all", distributionHandler.ClearAll)
			admin.POST("/language-groups/:id/distribute", distributionHandler.DistributeGroup)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
