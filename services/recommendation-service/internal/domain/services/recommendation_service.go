package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
)

// RecommendationStorage операции хранилища рекомендаций
type RecommendationStorage interface {
	interfaces.StoragePort
	SaveRecommendation(ctx context.Context, rec models.Recommendation) error
	FindByProductID(ctx context.Context, productID int) ([]models.Recommendation, error)
	DeleteByProductID(ctx context.Context, productID int) error
}

type RecommendationServiceInterface interface {
	models.RecommendationService
	Health(ctx context.Context) models.Health
}

// RecommendationService бизнес-логика рекомендаций
type RecommendationService struct {
	storage        RecommendationStorage
	serviceAddress string
	logger         interfaces.LoggerPort
}

func NewRecommendationService(storage RecommendationStorage, serviceAddress string, logger interfaces.LoggerPort) *RecommendationService {
	return &RecommendationService{
		storage:        storage,
		serviceAddress: serviceAddress,
		logger:         logger.WithComponent("recommendation-service"),
	}
}

func (s *RecommendationService) CreateRecommendation(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	if rec.ProductID < 1 {
		return models.Recommendation{}, apperrors.NewInvalidInputError("Invalid productId: %d", rec.ProductID)
	}

	if err := s.storage.SaveRecommendation(ctx, rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return models.Recommendation{}, &apperrors.InvalidInputError{
				Message: fmt.Sprintf("Duplicate key, Product Id: %d, Recommendation Id: %d", rec.ProductID, rec.RecommendationID),
				Err:     err,
			}
		}
		return models.Recommendation{}, fmt.Errorf("failed to create recommendation: %w", err)
	}

	s.logger.InfoWithContext(ctx, "Рекомендация создана",
		interfaces.LogField{Key: "product_id", Value: rec.ProductID},
		interfaces.LogField{Key: "recommendation_id", Value: rec.RecommendationID})

	rec.ServiceAddress = s.serviceAddress
	return rec, nil
}

// GetRecommendations возвращает рекомендации продукта, пустой список не является ошибкой
func (s *RecommendationService) GetRecommendations(ctx context.Context, productID int) ([]models.Recommendation, error) {
	if productID < 1 {
		return nil, apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}

	recs, err := s.storage.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	for i := range recs {
		recs[i].ServiceAddress = s.serviceAddress
	}

	s.logger.DebugWithContext(ctx, "Получены рекомендации",
		interfaces.LogField{Key: "product_id", Value: productID},
		interfaces.LogField{Key: "count", Value: len(recs)})
	return recs, nil
}

func (s *RecommendationService) DeleteRecommendations(ctx context.Context, productID int) error {
	if productID < 1 {
		return apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}
	if err := s.storage.DeleteByProductID(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete recommendations: %w", err)
	}
	s.logger.InfoWithContext(ctx, "Рекомендации удалены", interfaces.LogField{Key: "product_id", Value: productID})
	return nil
}

func (s *RecommendationService) Health(ctx context.Context) models.Health {
	if err := s.storage.Ping(ctx); err != nil {
		return models.Health{
			Status: models.StatusDown,
			Components: map[string]models.ComponentHealth{
				"redis": {Status: models.StatusDown, Details: map[string]interface{}{"error": err.Error()}},
			},
		}
	}
	return models.Health{
		Status:     models.StatusUp,
		Components: map[string]models.ComponentHealth{"redis": {Status: models.StatusUp}},
	}
}
