// Package integration вызывает сервисы-владельцы product, recommendation и review
// и публикует события изменений для них.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/config"
	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/metrics"
	"github.com/athebyme/product-composite-platform/pkg/middleware"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HealthPath путь проверки состояния у сервисов-владельцев
const HealthPath = "/actuator/health"

// maxBodySize ограничение на размер читаемого тела ответа
const maxBodySize = 4 << 20

// ClientOptions настройки клиента нижестоящих сервисов
type ClientOptions struct {
	Endpoints map[models.Kind]config.Endpoint
	Timeout   time.Duration
	// Resolver необязателен, без него имя хоста используется как есть
	Resolver   Resolver
	HTTPClient *http.Client
}

// Client выполняет по одному GET запросу на вызов, без повторов
type Client struct {
	endpoints  map[models.Kind]config.Endpoint
	timeout    time.Duration
	resolver   Resolver
	httpClient *http.Client
	logger     interfaces.LoggerPort
	tracer     trace.Tracer
}

func NewClient(opts ClientOptions, logger interfaces.LoggerPort) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: http.DefaultTransport}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		endpoints:  opts.Endpoints,
		timeout:    timeout,
		resolver:   opts.Resolver,
		httpClient: httpClient,
		logger:     logger.WithComponent("integration"),
		tracer:     otel.Tracer("product-composite-service/integration"),
	}
}

// url строит http://{host}:{port}{path}.
// Ошибка резолвера не прерывает вызов, используется исходное имя хоста.
func (c *Client) url(ctx context.Context, kind models.Kind, path string) (string, string, error) {
	endpoint, ok := c.endpoints[kind]
	if !ok {
		return "", "", fmt.Errorf("no endpoint configured for %s service", kind)
	}

	port := strconv.Itoa(endpoint.Port)
	host := endpoint.Host
	if c.resolver != nil {
		if addr, err := c.resolver.Resolve(ctx, endpoint.Host); err == nil {
			host = addr
		} else {
			c.logger.DebugWithContext(ctx, "Не удалось разрешить адрес хоста",
				interfaces.LogField{Key: "host", Value: endpoint.Host}, interfaces.Err(err))
		}
	}

	return "http://" + net.JoinHostPort(host, port) + path, net.JoinHostPort(endpoint.Host, port), nil
}

// get выполняет GET и декодирует тело ответа в out, если out не nil.
// Неуспешный статус возвращается как *errors.ResponseError.
func (c *Client) get(ctx context.Context, kind models.Kind, path string, out interface{}) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "GET "+string(kind), trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	url, hostHeader, err := c.url(ctx, kind, path)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("http.url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Host = hostHeader
	req.Header.Set("Accept", "application/json")
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	c.logger.DebugWithContext(ctx, "Вызов нижестоящего сервиса", interfaces.LogField{Key: "url", Value: url})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.Since(metrics.DownstreamDuration, start, string(kind))
	if err != nil {
		metrics.DownstreamRequests.WithLabelValues(string(kind), metrics.StatusError).Inc()
		return fmt.Errorf("failed to call %s: %w", url, err)
	}
	defer resp.Body.Close()

	metrics.DownstreamRequests.WithLabelValues(string(kind), strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.ResponseError{StatusCode: resp.StatusCode, Body: body, URL: url}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// Fetch получает один ресурс вида kind для productID
func Fetch[T any](ctx context.Context, c *Client, kind models.Kind, productID int) (T, error) {
	var out T
	if err := c.get(ctx, kind, kind.Path(productID), &out); err != nil {
		var zero T
		return zero, TranslateError(err, c.logger)
	}
	return out, nil
}

// FetchMany получает все ресурсы вида kind для productID
func FetchMany[T any](ctx context.Context, c *Client, kind models.Kind, productID int) ([]T, error) {
	var out []T
	if err := c.get(ctx, kind, kind.Path(productID), &out); err != nil {
		return nil, TranslateError(err, c.logger)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// CheckHealth проверяет состояние сервиса вида kind
func (c *Client) CheckHealth(ctx context.Context, kind models.Kind) error {
	if err := c.get(ctx, kind, HealthPath, nil); err != nil {
		return TranslateError(err, c.logger)
	}
	return nil
}
