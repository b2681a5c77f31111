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
	"github.com/athebyme/product-composite-platform/services/product-service/internal/adapters/cache"
	postgres "github.com/athebyme/product-composite-platform/services/product-service/internal/adapters/storage"
	"github.com/athebyme/product-composite-platform/services/product-service/internal/api"
	"github.com/athebyme/product-composite-platform/services/product-service/internal/domain/services"
	"github.com/athebyme/product-composite-platform/services/product-service/internal/utils"
)

const appName = "product-service"

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

	postgresCon, err := utils.GenerateConnectionString(utils.PostgresParams{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
		PoolSize: cfg.Postgres.PoolSize,
		Timeout:  cfg.Postgres.Timeout,
	})
	if err != nil {
		log.Fatal("Ошибка инициализации строки подключения базы", interfaces.Err(err))
	}

	db, err := postgres.NewPostgresStorage(ctx, postgresCon, log)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища", interfaces.Err(err))
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal("Ошибка создания схемы БД", interfaces.Err(err))
	}
	log.Info("Хранилище инициализировано")

	cacheClient, err := cache.NewRedisCache(ctx, cache.Options{
		Host:              cfg.Redis.Host,
		Port:              cfg.Redis.Port,
		Password:          cfg.Redis.Password,
		DB:                cfg.Redis.DB,
		PoolSize:          cfg.Redis.PoolSize,
		MinIdleConns:      cfg.Redis.MinIdleConns,
		MaxRetries:        cfg.Redis.MaxRetries,
		DialTimeout:       cfg.Redis.ConnectTimeout,
		ReadTimeout:       cfg.Redis.ReadTimeout,
		WriteTimeout:      cfg.Redis.WriteTimeout,
		DefaultExpiration: cfg.Redis.DefaultExpiration,
	})
	if err != nil {
		log.Fatal("Ошибка инициализации кэша", interfaces.Err(err))
	}
	log.Info("Кэш инициализирован")

	messagingClient, err := messaging.NewKafkaMessaging(messaging.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями", interfaces.Err(err))
	}
	log.Info("Система обмена сообщениями инициализирована")

	hostname, _ := os.Hostname()
	serviceAddress := fmt.Sprintf("%s:%d", hostname, cfg.Server.Port)

	productService := services.NewProductService(db, cacheClient, cfg.Redis.DefaultExpiration, serviceAddress, log)
	log.Info("Сервис продуктов инициализирован")

	eventProcessor := processor.New(processor.Handlers[models.Product]{
		Create: func(ctx context.Context, product models.Product) error {
			_, err := productService.CreateProduct(ctx, product)
			return err
		},
		Delete: productService.DeleteProduct,
	}, log)

	unsubscribe, err := messagingClient.Subscribe(ctx, models.TopicProducts, eventProcessor.Handle)
	if err != nil {
		log.Fatal("Ошибка подписки на топик", interfaces.Err(err),
			interfaces.LogField{Key: "topic", Value: models.TopicProducts})
	}

	router := api.SetupRouter(productService, log, cfg.AppName, cfg.Server.RequestTimeout)

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка запуска сервера", interfaces.Err(err))
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка при graceful shutdown", interfaces.Err(err))
		}
		log.Info("HTTP сервер остановлен")

		if err := unsubscribe(); err != nil {
			log.Error("Ошибка при отписке от топика", interfaces.Err(err))
		}
		if err := messagingClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Kafka", interfaces.Err(err))
		}
		if err := cacheClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Redis", interfaces.Err(err))
		}
		if err := db.Close(); err != nil {
			log.Error("Ошибка при закрытии БД", interfaces.Err(err))
		}
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Error("Ошибка при остановке трассировки", interfaces.Err(err))
		}

		cancel()
		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
}
