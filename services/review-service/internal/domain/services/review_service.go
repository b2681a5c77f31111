package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
)

// ReviewStorage операции хранилища отзывов
type ReviewStorage interface {
	interfaces.StoragePort
	SaveReview(ctx context.Context, review models.Review) error
	FindByProductID(ctx context.Context, productID int) ([]models.Review, error)
	DeleteByProductID(ctx context.Context, productID int) error
}

type ReviewServiceInterface interface {
	models.ReviewService
	Health(ctx context.Context) models.Health
}

type ReviewService struct {
	storage        ReviewStorage
	serviceAddress string
	logger         interfaces.LoggerPort
}

func NewReviewService(storage ReviewStorage, serviceAddress string, logger interfaces.LoggerPort) *ReviewService {
	return &ReviewService{
		storage:        storage,
		serviceAddress: serviceAddress,
		logger:         logger.WithComponent("review-service"),
	}
}

func (s *ReviewService) CreateReview(ctx context.Context, review models.Review) (models.Review, error) {
	if review.ProductID < 1 {
		return models.Review{}, apperrors.NewInvalidInputError("Invalid productId: %d", review.ProductID)
	}

	if err := s.storage.SaveReview(ctx, review); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return models.Review{}, &apperrors.InvalidInputError{
				Message: fmt.Sprintf("Duplicate key, Product Id: %d, Review Id: %d", review.ProductID, review.ReviewID),
				Err:     err,
			}
		}
		return models.Review{}, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.InfoWithContext(ctx, "Отзыв создан",
		interfaces.LogField{Key: "product_id", Value: review.ProductID},
		interfaces.LogField{Key: "review_id", Value: review.ReviewID})

	review.ServiceAddress = s.serviceAddress
	return review, nil
}

func (s *ReviewService) GetReviews(ctx context.Context, productID int) ([]models.Review, error) {
	if productID < 1 {
		return nil, apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}

	reviews, err := s.storage.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	for i := range reviews {
		reviews[i].ServiceAddress = s.serviceAddress
	}
	return reviews, nil
}

func (s *ReviewService) DeleteReviews(ctx context.Context, productID int) error {
	if productID < 1 {
		return apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}
	if err := s.storage.DeleteByProductID(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete reviews: %w", err)
	}
	s.logger.InfoWithContext(ctx, "Отзывы удалены", interfaces.LogField{Key: "product_id", Value: productID})
	return nil
}

func (s *ReviewService) Health(ctx context.Context) models.Health {
	component := models.ComponentHealth{Status: models.StatusUp}
	if err := s.storage.Ping(ctx); err != nil {
		component = models.ComponentHealth{Status: models.StatusDown, Details: map[string]interface{}{"error": err.Error()}}
	}
	return models.Health{
		Status:     component.Status,
		Components: map[string]models.ComponentHealth{"sqlite": component},
	}
}
