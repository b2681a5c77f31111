package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/events"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/logger"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/publisher"
)

type broker struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (b *broker) Publish(_ context.Context, topic, key string, _ []byte, _ map[string]string) (*interfaces.DeliveryReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic+":"+key)
	if b.err != nil {
		return nil, b.err
	}
	return &interfaces.DeliveryReport{Topic: topic, Key: key}, nil
}

func (b *broker) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}

type fakeIntegration struct {
	product    models.Product
	productErr error
	recs       []models.Recommendation
	recsErr    error
	reviews    []models.Review
	reviewsErr error
	health     map[models.Kind]error

	// barrier заставляет три чтения дождаться друг друга
	barrier *sync.WaitGroup
	calls   atomic.Int32

	pub *publisher.EventPublisher
}

func (f *fakeIntegration) enter() error {
	f.calls.Add(1)
	if f.barrier == nil {
		return nil
	}
	f.barrier.Done()

	done := make(chan struct{})
	go func() {
		f.barrier.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("reads are not concurrent")
	}
}

func (f *fakeIntegration) GetProduct(context.Context, int) (models.Product, error) {
	if err := f.enter(); err != nil {
		return models.Product{}, err
	}
	return f.product, f.productErr
}

func (f *fakeIntegration) GetRecommendations(context.Context, int) ([]models.Recommendation, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.recs, f.recsErr
}

func (f *fakeIntegration) GetReviews(context.Context, int) ([]models.Review, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.reviews, f.reviewsErr
}

func (f *fakeIntegration) CheckHealth(_ context.Context, kind models.Kind) error {
	return f.health[kind]
}

func (f *fakeIntegration) PublishCreate(ctx context.Context, entity models.Entity) *publisher.PublishResult {
	return f.pub.Publish(ctx, entity.Kind().Topic(), entity.ProductKey(), events.Create, entity)
}

func (f *fakeIntegration) PublishDelete(ctx context.Context, kind models.Kind, productID int) *publisher.PublishResult {
	return f.pub.Publish(ctx, kind.Topic(), productID, events.Delete, nil)
}

func newTestService(t *testing.T, f *fakeIntegration, b *broker) *CompositeService {
	t.Helper()
	// один воркер сохраняет порядок отправки для проверок
	f.pub = publisher.NewEventPublisher(b, 1, 16, logger.NewNop())
	t.Cleanup(func() { _ = f.pub.Close(context.Background()) })
	return NewCompositeService(f, "composite:8080", logger.NewNop())
}

func TestGetCompositeProductMergesResults(t *testing.T) {
	f := &fakeIntegration{
		product: models.Product{ProductID: 1, Name: "widget", Weight: 3, ServiceAddress: "pro:1"},
		recs: []models.Recommendation{
			{ProductID: 1, RecommendationID: 1, Author: "a", Rate: 5, ServiceAddress: "rec:1"},
			{ProductID: 1, RecommendationID: 2, Author: "b", Rate: 4, ServiceAddress: "rec:1"},
		},
		reviews: []models.Review{{ProductID: 1, ReviewID: 1, Subject: "s", ServiceAddress: "rev:1"}},
		barrier: &sync.WaitGroup{},
	}
	f.barrier.Add(3)
	svc := newTestService(t, f, &broker{})

	cp, err := svc.GetCompositeProduct(context.Background(), 1)
	if err != nil {
		t.Fatalf("get composite: %v", err)
	}
	if cp.ProductID != 1 || cp.Name != "widget" || len(cp.Recommendations) != 2 || len(cp.Reviews) != 1 {
		t.Fatalf("unexpected composite: %+v", cp)
	}
	want := models.ServiceAddresses{Composite: "composite:8080", Product: "pro:1", Recommendation: "rec:1", Review: "rev:1"}
	if cp.ServiceAddresses == nil || *cp.ServiceAddresses != want {
		t.Fatalf("unexpected addresses: %+v", cp.ServiceAddresses)
	}
}

func TestGetCompositeProductDegradesOnSecondaryFailures(t *testing.T) {
	f := &fakeIntegration{
		product:    models.Product{ProductID: 1, Name: "widget"},
		recsErr:    errors.New("recommendation service down"),
		reviewsErr: &apperrors.ResponseError{StatusCode: 500, URL: "http://review"},
	}
	svc := newTestService(t, f, &broker{})

	cp, err := svc.GetCompositeProduct(context.Background(), 1)
	if err != nil {
		t.Fatalf("secondary failures must not fail the request: %v", err)
	}
	if cp.Recommendations == nil || len(cp.Recommendations) != 0 || cp.Reviews == nil || len(cp.Reviews) != 0 {
		t.Fatalf("expected empty lists, got %+v", cp)
	}
	if cp.ServiceAddresses.Recommendation != "" || cp.ServiceAddresses.Review != "" {
		t.Fatalf("addresses of failed services must be empty: %+v", cp.ServiceAddresses)
	}
}

func TestGetCompositeProductPropagatesProductFailure(t *testing.T) {
	f := &fakeIntegration{
		productErr: apperrors.NewNotFoundError("No product found for productId: %d", 13),
		recs:       []models.Recommendation{{ProductID: 13, RecommendationID: 1}},
	}
	svc := newTestService(t, f, &broker{})

	_, err := svc.GetCompositeProduct(context.Background(), 13)
	if !errors.Is(err, apperrors.ErrNotFound) || err.Error() != "No product found for productId: 13" {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := f.calls.Load(); got != 3 {
		t.Fatalf("all three calls should complete, got %d", got)
	}
}

func TestGetCompositeProductRejectsInvalidID(t *testing.T) {
	f := &fakeIntegration{}
	svc := newTestService(t, f, &broker{})

	_, err := svc.GetCompositeProduct(context.Background(), 0)
	if !errors.Is(err, apperrors.ErrInvalidInput) || err.Error() != "Invalid productId: 0" {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatal("downstream must not be called for invalid id")
	}
}

func TestCreateCompositeProductPublishesEvents(t *testing.T) {
	b := &broker{}
	svc := newTestService(t, &fakeIntegration{}, b)

	body := models.CompositeProduct{
		ProductID: 1,
		Name:      "widget",
		Recommendations: []models.RecommendationSummary{
			{RecommendationID: 1}, {RecommendationID: 2},
		},
		Reviews: []models.ReviewSummary{{ReviewID: 1}},
	}
	if err := svc.CreateCompositeProduct(context.Background(), body, true); err != nil {
		t.Fatalf("create: %v", err)
	}

	want := []string{"products:1", "recommendations:1", "recommendations:1", "reviews:1"}
	got := b.sent()
	if len(got) != len(want) {
		t.Fatalf("unexpected events: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected events: %v", got)
		}
	}
}

func TestCreateCompositeProductAwaitReportsFailure(t *testing.T) {
	b := &broker{err: errors.New("broker unavailable")}
	svc := newTestService(t, &fakeIntegration{}, b)
	body := models.CompositeProduct{ProductID: 2}

	if err := svc.CreateCompositeProduct(context.Background(), body, false); err != nil {
		t.Fatalf("fire-and-forget create must not fail: %v", err)
	}
	if err := svc.CreateCompositeProduct(context.Background(), body, true); !errors.Is(err, b.err) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestCreateCompositeProductRejectsInvalidID(t *testing.T) {
	b := &broker{}
	svc := newTestService(t, &fakeIntegration{}, b)

	err := svc.CreateCompositeProduct(context.Background(), models.CompositeProduct{ProductID: -1}, true)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(b.sent()) != 0 {
		t.Fatal("no events should be published")
	}
}

func TestDeleteCompositeProductPublishesToAllTopics(t *testing.T) {
	b := &broker{}
	svc := newTestService(t, &fakeIntegration{}, b)

	if err := svc.DeleteCompositeProduct(context.Background(), 5, true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := b.sent()
	if len(got) != 3 || got[0] != "products:5" || got[1] != "recommendations:5" || got[2] != "reviews:5" {
		t.Fatalf("unexpected events: %v", got)
	}

	if err := svc.DeleteCompositeProduct(context.Background(), 0, true); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHealthAggregation(t *testing.T) {
	f := &fakeIntegration{health: map[models.Kind]error{}}
	svc := newTestService(t, f, &broker{})

	health := svc.Health(context.Background())
	if health.Status != models.StatusUp || len(health.Components) != 3 {
		t.Fatalf("expected UP, got %+v", health)
	}

	f.health[models.KindReview] = errors.New("connection refused")
	health = svc.Health(context.Background())
	if health.Status != models.StatusDown {
		t.Fatalf("expected DOWN, got %+v", health)
	}
	review := health.Components["review"]
	if review.Status != models.StatusDown || review.Details["error"] != "connection refused" {
		t.Fatalf("unexpected review component: %+v", review)
	}
	if health.Components["product"].Status != models.StatusUp {
		t.Fatalf("healthy components must stay UP: %+v", health.Components)
	}
}
