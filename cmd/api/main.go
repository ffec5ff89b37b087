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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pgh-dev/moim-api/internal/config"
	"github.com/pgh-dev/moim-api/internal/database"
	"github.com/pgh-dev/moim-api/internal/handler"
	"github.com/pgh-dev/moim-api/internal/middleware"
	"github.com/pgh-dev/moim-api/internal/models"
	"github.com/pgh-dev/moim-api/internal/repository"
	"github.com/pgh-dev/moim-api/internal/router"
	"github.com/pgh-dev/moim-api/internal/service"
	cloud "github.com/pgh-dev/moim-api/pkg/cloudinary"
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
		&models.GroupMember{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.MessageRead{},
		&models.MessageReaction{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, last-message replay disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, chat event firehose disabled")
	}

	var storage service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	receiptRepo := repository.NewReadReceiptRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	membershipService := service.NewMembershipService(groupRepo, memberRepo, logger)
	groupService := service.NewGroupService(groupRepo, memberRepo, membershipService, validate, logger)
	roomService := service.NewRoomService(roomRepo, membershipService, validate, logger)
	messageService := service.NewMessageService(messageRepo, roomRepo, groupRepo, memberRepo, reactionRepo, membershipService, validate, logger)
	readTracker := service.NewReadTracker(receiptRepo, logger)
	reactionService := service.NewReactionService(reactionRepo, messageRepo, logger)
	chatGateway := service.NewChatGateway(messageService, readTracker, reactionService, redisClient, natsConn, validate, logger)

	groupHandler := handler.NewGroupHandler(groupService, membershipService, validate, logger)
	roomHandler := handler.NewRoomHandler(roomService, messageService, validate, logger)
	chatHandler := handler.NewChatHandler(chatGateway, roomService, userRepo, logger)

	var uploadHandler *handler.UploadHandler
	if storage != nil {
		uploadService := service.NewUploadService(storage, cfg.UploadMaxSizeMB, logger)
		uploadHandler = handler.NewUploadHandler(uploadService, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		JWTSecret: cfg.JWTSecret,
	})
	router.Register(app, cfg, router.Dependencies{
		GroupHandler:  groupHandler,
		RoomHandler:   roomHandler,
		ChatHandler:   chatHandler,
		UploadHandler: uploadHandler,
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
