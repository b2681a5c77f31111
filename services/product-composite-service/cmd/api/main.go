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

	"github.com/athebyme/product-composite-platform/pkg/auth"
	"github.com/athebyme/product-composite-platform/pkg/config"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/logger"
	"github.com/athebyme/product-composite-platform/pkg/messaging"
	"github.com/athebyme/product-composite-platform/pkg/metrics"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/pkg/telemetry"
	_ "github.com/athebyme/product-composite-platform/services/product-composite-service/docs"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/api"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/integration"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/publisher"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/services"
)

const appName = "product-composite-service"

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
		interfaces.LogField{Key: "env", Value: cfg.ENV},
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

	messagingClient, err := messaging.NewKafkaMessaging(messaging.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями", interfaces.Err(err))
	}

	topics := make([]string, 0, len(models.Kinds))
	for _, kind := range models.Kinds {
		topics = append(topics, kind.Topic())
	}
	if err := messagingClient.EnsureTopics(ctx, topics, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
		log.Fatal("Ошибка создания топиков", interfaces.Err(err))
	}
	log.Info("Система обмена сообщениями инициализирована")

	eventPublisher := publisher.NewEventPublisher(messagingClient, cfg.Publisher.PoolSize, cfg.Publisher.QueueSize, log)

	var resolver integration.Resolver
	if cfg.Downstream.ResolveAddresses {
		resolver = integration.NewCachingResolver(integration.NewNetResolver(), cfg.Downstream.ResolverCacheTTL, log)
	}

	client := integration.NewClient(integration.ClientOptions{
		Endpoints: map[models.Kind]config.Endpoint{
			models.KindProduct:        cfg.Downstream.Product,
			models.KindRecommendation: cfg.Downstream.Recommendation,
			models.KindReview:         cfg.Downstream.Review,
		},
		Timeout:  cfg.Downstream.Timeout,
		Resolver: resolver,
	}, log)

	hostname, _ := os.Hostname()
	compositeService := services.NewCompositeService(
		integration.NewIntegration(client, eventPublisher),
		fmt.Sprintf("%s:%d", hostname, cfg.Server.Port),
		log,
	)
	log.Info("Композитный сервис инициализирован")

	routerOpts := api.RouterOptions{
		ServiceName:        cfg.AppName,
		RequestTimeout:     cfg.Server.RequestTimeout,
		CORSAllowedOrigins: cfg.Security.CORSAllowOrigins,
	}
	if cfg.Security.AuthEnabled {
		jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpirationMin, cfg.Security.JWTIssuer)
		if err != nil {
			log.Fatal("Ошибка инициализации аутентификации", interfaces.Err(err))
		}
		routerOpts.Auth = jwtManager
		log.Info("Аутентификация включена")
	}

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      api.SetupRouter(compositeService, log, routerOpts),
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
	log.Info("HTTP сервер остановлен")

	// публикатор дописывает очередь до закрытия продюсера
	if err := eventPublisher.Close(shutdownCtx); err != nil {
		log.Error("Ошибка при остановке публикатора", interfaces.Err(err))
	}
	if err := messagingClient.Close(); err != nil {
		log.Error("Ошибка при закрытии Kafka", interfaces.Err(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Ошибка при остановке трассировки", interfaces.Err(err))
	}

	cancel()
	log.Info("Сервер корректно завершил работу")
}
