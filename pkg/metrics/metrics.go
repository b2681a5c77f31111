// Package metrics содержит метрики Prometheus, общие для сервисов платформы.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusRetry      = "retry"
	StatusDeadLetter = "dead_letter"
	StatusRejected   = "rejected"
)

// HTTP
var (
	HTTPDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_durations_seconds",
		Help:    "Длительность HTTP запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Общее количество HTTP запросов",
	}, []string{"path", "method", "status"})

	HTTPActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_active_requests",
		Help: "Количество активных HTTP запросов",
	})
)

// Публикация событий
var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Количество опубликованных событий",
	}, []string{"topic", "status"})

	EventPublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_publish_duration_seconds",
		Help:    "Время от постановки события в очередь до подтверждения брокером",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	PublisherQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "publisher_queue_depth",
		Help: "Количество задач публикации в очереди",
	})
)

// Обработка событий
var (
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Количество обработанных событий",
	}, []string{"topic", "status"})

	EventProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_processing_duration_seconds",
		Help:    "Длительность обработки событий",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	ActivePartitionWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "consumer_partition_workers",
		Help: "Количество активных обработчиков партиций",
	})
)

// Нижестоящие сервисы и кэш
var (
	DownstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "downstream_requests_total",
		Help: "Количество запросов к нижестоящим сервисам",
	}, []string{"service", "status"})

	DownstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "downstream_request_duration_seconds",
		Help:    "Длительность запросов к нижестоящим сервисам",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_operations_total",
		Help: "Количество операций с кэшем",
	}, []string{"operation", "status"})
)

// Since записывает длительность с момента start
func Since(h *prometheus.HistogramVec, start time.Time, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}

// StartServer запускает HTTP сервер метрик на отдельном порту.
// Сервер останавливается при отмене ctx.
func StartServer(ctx context.Context, port int, path string, logger interfaces.LoggerPort) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Запуск HTTP сервера для метрик", interfaces.LogField{Key: "addr", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка запуска HTTP сервера для метрик", interfaces.Err(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
