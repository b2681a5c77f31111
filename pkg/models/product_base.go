package models

import "context"

// ProductService определяет операции над продуктами.
// Реализуется сервисом-владельцем и интеграционным слоем композитного сервиса.
type ProductService interface {
	// CreateProduct создает продукт
	CreateProduct(ctx context.Context, product Product) (Product, error)

	// GetProduct получает продукт по ID
	GetProduct(ctx context.Context, productID int) (Product, error)

	// DeleteProduct удаляет продукт, отсутствие продукта не является ошибкой
	DeleteProduct(ctx context.Context, productID int) error
}

// RecommendationService определяет операции над рекомендациями
type RecommendationService interface {
	CreateRecommendation(ctx context.Context, recommendation Recommendation) (Recommendation, error)

	GetRecommendations(ctx context.Context, productID int) ([]Recommendation, error)

	// DeleteRecommendations удаляет все рекомендации продукта
	DeleteRecommendations(ctx context.Context, productID int) error
}

// ReviewService определяет операции над отзывами
type ReviewService interface {
	CreateReview(ctx context.Context, review Review) (Review, error)

	GetReviews(ctx context.Context, productID int) ([]Review, error)

	// DeleteReviews удаляет все отзывы продукта
	DeleteReviews(ctx context.Context, productID int) error
}
