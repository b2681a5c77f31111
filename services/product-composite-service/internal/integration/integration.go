package integration

import (
	"context"

	"github.com/athebyme/product-composite-platform/pkg/events"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/publisher"
)

// EventPublisher асинхронная публикация событий
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key int, eventType events.Type, payload interface{}) *publisher.PublishResult
}

// Integration единая точка доступа к сервисам-владельцам.
// Чтение выполняется синхронным HTTP вызовом, запись публикуется событием.
type Integration struct {
	client    *Client
	publisher EventPublisher
}

var (
	_ models.ProductService        = (*Integration)(nil)
	_ models.RecommendationService = (*Integration)(nil)
	_ models.ReviewService         = (*Integration)(nil)
)

func NewIntegration(client *Client, publisher EventPublisher) *Integration {
	return &Integration{client: client, publisher: publisher}
}

func (i *Integration) GetProduct(ctx context.Context, productID int) (models.Product, error) {
	return Fetch[models.Product](ctx, i.client, models.KindProduct, productID)
}

func (i *Integration) GetRecommendations(ctx context.Context, productID int) ([]models.Recommendation, error) {
	return FetchMany[models.Recommendation](ctx, i.client, models.KindRecommendation, productID)
}

func (i *Integration) GetReviews(ctx context.Context, productID int) ([]models.Review, error) {
	return FetchMany[models.Review](ctx, i.client, models.KindReview, productID)
}

// CheckHealth проверяет состояние сервиса-владельца вида kind
func (i *Integration) CheckHealth(ctx context.Context, kind models.Kind) error {
	return i.client.CheckHealth(ctx, kind)
}

// PublishCreate публикует CREATE для сущности в топик ее вида
func (i *Integration) PublishCreate(ctx context.Context, entity models.Entity) *publisher.PublishResult {
	return i.publisher.Publish(ctx, entity.Kind().Topic(), entity.ProductKey(), events.Create, entity)
}

// PublishDelete публикует DELETE всех сущностей вида kind для productID
func (i *Integration) PublishDelete(ctx context.Context, kind models.Kind, productID int) *publisher.PublishResult {
	return i.publisher.Publish(ctx, kind.Topic(), productID, events.Delete, nil)
}

// Операции записи ниже не ждут подтверждения брокера.
// Результат публикации только логируется публикатором.

func (i *Integration) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	i.PublishCreate(ctx, product)
	return product, nil
}

func (i *Integration) DeleteProduct(ctx context.Context, productID int) error {
	i.PublishDelete(ctx, models.KindProduct, productID)
	return nil
}

func (i *Integration) CreateRecommendation(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	i.PublishCreate(ctx, rec)
	return rec, nil
}

func (i *Integration) DeleteRecommendations(ctx context.Context, productID int) error {
	i.PublishDelete(ctx, models.KindRecommendation, productID)
	return nil
}

func (i *Integration) CreateReview(ctx context.Context, review models.Review) (models.Review, error) {
	i.PublishCreate(ctx, review)
	return review, nil
}

func (i *Integration) DeleteReviews(ctx context.Context, productID int) error {
	i.PublishDelete(ctx, models.KindReview, productID)
	return nil
}
