package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/config"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/consumer"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/handler"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/database"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/rabbitmq"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/storage"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db := database.MustOpen(cfg.DBDriver, cfg.DSN())

	// RabbitMQ is optional: without it the booking replica is filled out of band
	// and lifecycle events are not published.
	var publisher service.EventPublisher
	if cfg.RabbitURL != "" {
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewBookingConsumer(db).Start(msgs)

		mqPublisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to open RabbitMQ publisher: %v", err)
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	} else {
		log.Println("[RabbitMQ] RABBITMQ_URL is empty, registry sync and event publishing disabled")
	}

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL+"/uploads", storage.DefaultMaxSize)
	if err != nil {
		log.Fatalf("failed to prepare upload storage: %v", err)
	}

	// Repositories
	bookingRepo := repository.NewBookingRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	waitingRepo := repository.NewWaitingRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Signers
	sdkSigner := sdksig.NewSigner(cfg.SDKKey, cfg.SDKSecret, cfg.SDKSignatureTTL)
	tokens := jointoken.NewSigner(cfg.JoinTokenSecret, cfg.JoinTokenTTL)

	// Services
	analyticsSvc := service.NewAnalyticsService(meetingRepo, cfg.AnalyticsCacheTTL)
	meetingSvc := service.NewMeetingService(meetingRepo, bookingRepo, sdksig.NewRandomProvisioner(), sdkSigner, tokens, publisher, analyticsSvc)
	accessSvc := service.NewAccessService(tokens, meetingRepo, bookingRepo, cfg.SDKKey, cfg.JoinGrace)
	admissionSvc := service.NewAdmissionService(waitingRepo, meetingRepo, chatRepo, publisher)
	signatureSvc := service.NewSignatureService(sdkSigner, meetingRepo, waitingRepo, accessSvc)
	chatSvc := service.NewChatService(chatRepo, meetingRepo, store)

	auth := middleware.NewAuth(cfg.OperatorKeyHash)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			// URIPath omits the query string so join tokens stay out of the log.
			log.Printf("%s %s %d %s", v.Method, v.URIPath, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(echoMw.BodyLimit("25M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "meeting-service"})
	})

	handler.NewMeetingHandler(meetingSvc, accessSvc, bookingRepo, cfg.PublicBaseURL).RegisterRoutes(e, auth)
	handler.NewWaitingHandler(admissionSvc, accessSvc).RegisterRoutes(e, auth)
	handler.NewChatHandler(chatSvc, accessSvc).RegisterRoutes(e, auth)
	handler.NewSignatureHandler(signatureSvc).RegisterRoutes(e, auth)
	handler.NewAnalyticsHandler(analyticsSvc).RegisterRoutes(e, auth)
	handler.NewSyncHandler(cfg.Polling).RegisterRoutes(e)
	handler.NewUploadHandler(store).RegisterRoutes(e)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Meeting Service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Meeting Service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
