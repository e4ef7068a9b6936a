package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subzero/config"
	"subzero/cron"
	"subzero/database"
	chatRepo "subzero/database/repository/chat"
	deviceRepo "subzero/database/repository/device"
	userRepoPkg "subzero/database/repository/user"
	"subzero/handlers"
	"subzero/middleware"
	"subzero/routes"
	"subzero/services/chat"
	"subzero/services/device"
	"subzero/services/fingerprint"
	"subzero/services/tasks"
	"subzero/services/user"
	"subzero/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const chatChannel = "subzero:chat"

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	database.InitDB()
	utils.InitRedis()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := utils.NewMetrics(registry)

	utils.StartHealthMonitor(ctx, []*redis.Client{utils.GetCacheClient(), utils.GetAuthCacheClient()}, database.MongoClient)

	// repositories.
	userRepo := userRepoPkg.NewMongoUserRepo()
	devRepo := deviceRepo.NewMongoDeviceRepo()
	messageRepo := chatRepo.NewMongoMessageRepo()
	restrictionRepo := chatRepo.NewMongoRestrictionRepo()

	// services.
	devices := device.NewRestrictionService(devRepo, config.AppConfig.MaxAccountsPerDevice, config.DeviceCheckTimeout(), logger, metrics)
	cookies := device.NewCookieStore(config.AppConfig.CookieSecure)
	userService := user.NewUserService(userRepo, devices, utils.GetAuthCacheClient(), logger)
	generator := fingerprint.NewGenerator(logger, metrics)

	enqueuer := tasks.NewEnqueuer(asynq.NewClient(cron.RedisOpt()))
	defer enqueuer.Close()

	hub := chat.NewHub(messageRepo, restrictionRepo, chat.Config{
		HistoryLimit:      config.AppConfig.ChatHistoryLimit,
		MaxMessageLength:  config.AppConfig.ChatMaxMessageLength,
		MessagesPerMinute: config.AppConfig.ChatMessageRatePerMin,
	}, logger, metrics)
	hub.Devices = devices
	hub.Users = userRepo
	hub.Scheduler = enqueuer

	if config.AppConfig.ChatPubSubEnabled {
		broadcaster := chat.NewRedisBroadcaster(utils.GetCacheClient(), chatChannel, hub.Deliver, logger)
		hub.Broadcaster = broadcaster
		go func() {
			if err := broadcaster.Run(ctx); err != nil {
				logger.Error("chat pub/sub stopped", zap.Error(err))
			}
		}()
	}

	worker, err := cron.InitChatWorker(hub, config.AppConfig.ChatRetentionDays, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize chat worker: %v", err)
	}

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	handlerBundle := &handlers.HandlerBundle{
		User:   handlers.NewUserHandler(userService, userRepo, cookies),
		Device: handlers.NewDeviceHandler(generator, devices, cookies),
		Chat:   handlers.NewChatHandler(hub, userRepo),
		Admin: &handlers.AdminHandler{
			Users:         userService,
			Devices:       devices,
			Chat:          hub,
			Prune:         enqueuer,
			RetentionDays: config.AppConfig.ChatRetentionDays,
		},
	}
	routes.RegisterRoutes(router, handlerBundle, routes.Deps{
		UserRepo:  userRepo,
		AuthCache: utils.GetAuthCacheClient(),
		Gatherer:  registry,
	})

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Shutdown()

	logger.Sugar().Info("main: server stopped gracefully")
}
