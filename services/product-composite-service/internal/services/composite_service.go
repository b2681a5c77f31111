// Package services собирает композитный продукт из сервисов-владельцев
// и раскладывает операции записи на события.
package services

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/publisher"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Integration доступ к сервисам-владельцам
type Integration interface {
	GetProduct(ctx context.Context, productID int) (models.Product, error)
	GetRecommendations(ctx context.Context, productID int) ([]models.Recommendation, error)
	GetReviews(ctx context.Context, productID int) ([]models.Review, error)
	CheckHealth(ctx context.Context, kind models.Kind) error
	PublishCreate(ctx context.Context, entity models.Entity) *publisher.PublishResult
	PublishDelete(ctx context.Context, kind models.Kind, productID int) *publisher.PublishResult
}

// CompositeServiceInterface операции композитного сервиса
type CompositeServiceInterface interface {
	GetCompositeProduct(ctx context.Context, productID int) (models.CompositeProduct, error)
	// CreateCompositeProduct публикует события создания. При await ждет подтверждения брокера.
	CreateCompositeProduct(ctx context.Context, body models.CompositeProduct, await bool) error
	DeleteCompositeProduct(ctx context.Context, productID int, await bool) error
	Health(ctx context.Context) models.Health
}

// CompositeService реализует CompositeServiceInterface
type CompositeService struct {
	integration    Integration
	serviceAddress string
	logger         interfaces.LoggerPort
	tracer         trace.Tracer
}

func NewCompositeService(integration Integration, serviceAddress string, logger interfaces.LoggerPort) *CompositeService {
	return &CompositeService{
		integration:    integration,
		serviceAddress: serviceAddress,
		logger:         logger.WithComponent("product-composite-service"),
		tracer:         otel.Tracer("product-composite-service/services"),
	}
}

// GetCompositeProduct запрашивает продукт, рекомендации и отзывы параллельно.
// Ошибка получения продукта возвращается вызывающему,
// ошибки рекомендаций и отзывов заменяются пустым списком.
func (s *CompositeService) GetCompositeProduct(ctx context.Context, productID int) (models.CompositeProduct, error) {
	if productID < 1 {
		return models.CompositeProduct{}, apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}

	ctx, span := s.tracer.Start(ctx, "GetCompositeProduct", trace.WithAttributes(attribute.Int("product_id", productID)))
	defer span.End()

	var (
		product         models.Product
		recommendations []models.Recommendation
		reviews         []models.Review
	)

	// без WithContext: ошибка продукта не отменяет остальные вызовы
	var g errgroup.Group
	g.Go(func() error {
		var err error
		product, err = s.integration.GetProduct(ctx, productID)
		return err
	})
	g.Go(func() error {
		var err error
		recommendations, err = s.integration.GetRecommendations(ctx, productID)
		if err != nil {
			s.logger.WarnWithContext(ctx, "Не удалось получить рекомендации, возвращаем пустой список",
				interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
			recommendations = []models.Recommendation{}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reviews, err = s.integration.GetReviews(ctx, productID)
		if err != nil {
			s.logger.WarnWithContext(ctx, "Не удалось получить отзывы, возвращаем пустой список",
				interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
			reviews = []models.Review{}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return models.CompositeProduct{}, err
	}

	return models.NewCompositeProduct(product, recommendations, reviews, s.serviceAddress), nil
}

// CreateCompositeProduct публикует CREATE продукта, затем каждой рекомендации и каждого отзыва
func (s *CompositeService) CreateCompositeProduct(ctx context.Context, body models.CompositeProduct, await bool) error {
	if body.ProductID < 1 {
		return apperrors.NewInvalidInputError("Invalid productId: %d", body.ProductID)
	}

	product, recommendations, reviews := body.Split()

	results := make([]*publisher.PublishResult, 0, 1+len(recommendations)+len(reviews))
	results = append(results, s.integration.PublishCreate(ctx, product))
	for _, r := range recommendations {
		results = append(results, s.integration.PublishCreate(ctx, r))
	}
	for _, r := range reviews {
		results = append(results, s.integration.PublishCreate(ctx, r))
	}

	s.logger.InfoWithContext(ctx, "События создания композитного продукта отправлены",
		interfaces.LogField{Key: "product_id", Value: body.ProductID},
		interfaces.LogField{Key: "events", Value: len(results)})

	return s.await(ctx, await, results)
}

// DeleteCompositeProduct публикует DELETE во все три топика
func (s *CompositeService) DeleteCompositeProduct(ctx context.Context, productID int, await bool) error {
	if productID < 1 {
		return apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}

	results := make([]*publisher.PublishResult, 0, len(models.Kinds))
	for _, kind := range models.Kinds {
		results = append(results, s.integration.PublishDelete(ctx, kind, productID))
	}

	s.logger.InfoWithContext(ctx, "События удаления композитного продукта отправлены",
		interfaces.LogField{Key: "product_id", Value: productID})

	return s.await(ctx, await, results)
}

func (s *CompositeService) await(ctx context.Context, await bool, results []*publisher.PublishResult) error {
	if !await {
		return nil
	}
	if err := publisher.WaitAll(ctx, results...); err != nil {
		return fmt.Errorf("failed to publish events: %w", err)
	}
	return nil
}

// Health опрашивает сервисы-владельцы параллельно.
// Сервис со сбоем помечается DOWN, общий статус UP только если все UP.
func (s *CompositeService) Health(ctx context.Context) models.Health {
	var (
		mu         sync.Mutex
		components = make(map[string]models.ComponentHealth, len(models.Kinds))
	)

	var g errgroup.Group
	for _, kind := range models.Kinds {
		g.Go(func() error {
			component := models.ComponentHealth{Status: models.StatusUp}
			if err := s.integration.CheckHealth(ctx, kind); err != nil {
				s.logger.WarnWithContext(ctx, "Сервис недоступен",
					interfaces.LogField{Key: "service", Value: string(kind)}, interfaces.Err(err))
				component = models.ComponentHealth{
					Status:  models.StatusDown,
					Details: map[string]interface{}{"error": err.Error()},
				}
			}

			mu.Lock()
			components[string(kind)] = component
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := models.StatusUp
	for _, c := range components {
		if c.Status != models.StatusUp {
			status = models.StatusDown
		}
	}
	return models.Health{Status: status, Components: components}
}
