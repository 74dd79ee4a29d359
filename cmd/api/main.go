package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/config"
	"github.com/thesishub/thesishub-api/internal/database"
	"github.com/thesishub/thesishub-api/internal/handler"
	"github.com/thesishub/thesishub-api/internal/middleware"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
	"github.com/thesishub/thesishub-api/internal/router"
	"github.com/thesishub/thesishub-api/internal/scheduler"
	"github.com/thesishub/thesishub-api/internal/service"
	cloud "github.com/thesishub/thesishub-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Topic{},
		&models.Project{},
		&models.Notification{},
		&models.ProjectMessage{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	notificationService.Start(runCtx)

	stageService := service.NewStageService(projectRepo, userRepo, groupRepo, notificationService, uploader, validate, logger)
	fineService := service.NewFineEnforcementService(projectRepo, userRepo, groupRepo, notificationService, logger)
	topicService := service.NewTopicService(topicRepo, projectRepo, userRepo, groupRepo, notificationService, validate, logger)
	projectService := service.NewProjectService(projectRepo, logger)
	dashboardService := service.NewDashboardService(projectRepo, redisClient, cfg.DashboardCacheTTL, logger)
	messageService := service.NewMessageService(messageRepo, projectRepo, userRepo, groupRepo, notificationService, validate, logger)

	sweeper := scheduler.New(fineService, logger)
	if err := sweeper.Start(runCtx, cfg.FineSweepSchedule); err != nil {
		log.Fatalf("failed to start fine sweep scheduler: %v", err)
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProjectHandler:      handler.NewProjectHandler(projectService, logger),
		StageHandler:        handler.NewStageHandler(stageService, logger),
		TopicHandler:        handler.NewTopicHandler(topicService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		MessageHandler:      handler.NewMessageHandler(messageService, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
