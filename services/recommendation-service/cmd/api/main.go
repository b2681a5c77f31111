package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/config"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/logger"
	"github.com/athebyme/product-composite-platform/pkg/messaging"
	"github.com/athebyme/product-composite-platform/pkg/metrics"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/pkg/processor"
	"github.com/athebyme/product-composite-platform/pkg/telemetry"
	"github.com/athebyme/product-composite-platform/services/recommendation-service/internal/adapters/storage"
	"github.com/athebyme/product-composite-platform/services/recommendation-service/internal/api"
	"github.com/athebyme/product-composite-platform/services/recommendation-service/internal/domain/services"
)

const appName = "recommendation-service"

func main() {
	cfg, err := config.Load(appName, "")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.Version,
		Endpoint:    cfg.Tracing.Endpoint,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		log.Fatal("Ошибка инициализации трассировки", interfaces.Err(err))
	}

	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path, log)
	}

	store, err := storage.NewRecommendationStorage(ctx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища", interfaces.Err(err))
	}
	log.Info("Хранилище инициализировано")

	messagingClient, err := messaging.NewKafkaMessaging(messaging.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями", interfaces.Err(err))
	}

	hostname, _ := os.Hostname()
	service := services.NewRecommendationService(store, fmt.Sprintf("%s:%d", hostname, cfg.Server.Port), log)

	eventProcessor := processor.New(processor.Handlers[models.Recommendation]{
		Create: func(ctx context.Context, rec models.Recommendation) error {
			_, err := service.CreateRecommendation(ctx, rec)
			return err
		},
		Delete: service.DeleteRecommendations,
	}, log)

	unsubscribe, err := messagingClient.Subscribe(ctx, models.TopicRecommendations, eventProcessor.Handle)
	if err != nil {
		log.Fatal("Ошибка подписки на топик", interfaces.Err(err),
			interfaces.LogField{Key: "topic", Value: models.TopicRecommendations})
	}

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      api.SetupRouter(service, log, cfg.AppName, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка запуска сервера", interfaces.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Ошибка при graceful shutdown", interfaces.Err(err))
	}
	if err := unsubscribe(); err != nil {
		log.Error("Ошибка при отписке от топика", interfaces.Err(err))
	}
	if err := messagingClient.Close(); err != nil {
		log.Error("Ошибка при закрытии Kafka", interfaces.Err(err))
	}
	if err := store.Close(); err != nil {
		log.Error("Ошибка при закрытии Redis", interfaces.Err(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Ошибка при остановке трассировки", interfaces.Err(err))
	}

	log.Info("Сервер корректно завершил работу")
}
