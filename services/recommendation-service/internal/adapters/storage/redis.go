package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/go-redis/redis/v8"
)

// RecommendationStorage хранит рекомендации продукта в одном Redis hash.
// Ключ hash: recommendation:{productId}, поле: recommendationId.
type RecommendationStorage struct {
	client *redis.Client
}

func NewRecommendationStorage(ctx context.Context, addr, password string, db int) (*RecommendationStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRecommendationStorageWithClient(client), nil
}

func NewRecommendationStorageWithClient(client *redis.Client) *RecommendationStorage {
	return &RecommendationStorage{client: client}
}

func hashKey(productID int) string {
	return "recommendation:" + strconv.Itoa(productID)
}

// SaveRecommendation сохраняет рекомендацию.
// Повтор пары (productId, recommendationId) возвращает errors.ErrDuplicateKey
func (s *RecommendationStorage) SaveRecommendation(ctx context.Context, rec models.Recommendation) error {
	rec.ServiceAddress = ""
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation: %w", err)
	}

	created, err := s.client.HSetNX(ctx, hashKey(rec.ProductID), strconv.Itoa(rec.RecommendationID), data).Result()
	if err != nil {
		return fmt.Errorf("failed to save recommendation: %w", err)
	}
	if !created {
		return fmt.Errorf("recommendation %d/%d already exists: %w", rec.ProductID, rec.RecommendationID, apperrors.ErrDuplicateKey)
	}
	return nil
}

// FindByProductID возвращает рекомендации, упорядоченные по recommendationId
func (s *RecommendationStorage) FindByProductID(ctx context.Context, productID int) ([]models.Recommendation, error) {
	values, err := s.client.HGetAll(ctx, hashKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	result := make([]models.Recommendation, 0, len(values))
	for field, value := range values {
		var rec models.Recommendation
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode recommendation %s: %w", field, err)
		}
		result = append(result, rec)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RecommendationID < result[j].RecommendationID
	})
	return result, nil
}

// DeleteByProductID удаляет все рекомендации продукта
func (s *RecommendationStorage) DeleteByProductID(ctx context.Context, productID int) error {
	if err := s.client.Del(ctx, hashKey(productID)).Err(); err != nil {
		return fmt.Errorf("failed to delete recommendations: %w", err)
	}
	return nil
}

func (s *RecommendationStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RecommendationStorage) Close() error {
	return s.client.Close()
}
