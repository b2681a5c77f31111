package models

import "time"

// RecommendationSummary рекомендация в составе композитного продукта
type RecommendationSummary struct {
	RecommendationID int    `json:"recommendationId"`
	Author           string `json:"author"`
	Rate             int    `json:"rate"`
	Content          string `json:"content"`
}

// ReviewSummary отзыв в составе композитного продукта
type ReviewSummary struct {
	ReviewID int    `json:"reviewId"`
	Author   string `json:"author"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
}

// ServiceAddresses адреса экземпляров, участвовавших в ответе
type ServiceAddresses struct {
	Composite      string `json:"cmp"`
	Product        string `json:"pro"`
	Review         string `json:"rev"`
	Recommendation string `json:"rec"`
}

// CompositeProduct объединенное представление продукта.
// Не хранится, собирается на время одного запроса.
type CompositeProduct struct {
	ProductID        int                     `json:"productId"`
	Name             string                  `json:"name"`
	Weight           int                     `json:"weight"`
	Recommendations  []RecommendationSummary `json:"recommendations"`
	Reviews          []ReviewSummary         `json:"reviews"`
	ServiceAddresses *ServiceAddresses       `json:"serviceAddresses,omitempty"`
}

// NewCompositeProduct собирает композитный продукт из ответов сервисов-владельцев
func NewCompositeProduct(product Product, recommendations []Recommendation, reviews []Review, compositeAddress string) CompositeProduct {
	cp := CompositeProduct{
		ProductID:       product.ProductID,
		Name:            product.Name,
		Weight:          product.Weight,
		Recommendations: make([]RecommendationSummary, 0, len(recommendations)),
		Reviews:         make([]ReviewSummary, 0, len(reviews)),
	}
	addrs := &ServiceAddresses{Composite: compositeAddress, Product: product.ServiceAddress}

	for _, r := range recommendations {
		cp.Recommendations = append(cp.Recommendations, RecommendationSummary{
			RecommendationID: r.RecommendationID,
			Author:           r.Author,
			Rate:             r.Rate,
			Content:          r.Content,
		})
		if addrs.Recommendation == "" {
			addrs.Recommendation = r.ServiceAddress
		}
	}
	for _, r := range reviews {
		cp.Reviews = append(cp.Reviews, ReviewSummary{
			ReviewID: r.ReviewID,
			Author:   r.Author,
			Subject:  r.Subject,
			Content:  r.Content,
		})
		if addrs.Review == "" {
			addrs.Review = r.ServiceAddress
		}
	}
	cp.ServiceAddresses = addrs
	return cp
}

// Split раскладывает композитный продукт на сущности сервисов-владельцев
func (c CompositeProduct) Split() (Product, []Recommendation, []Review) {
	product := Product{ProductID: c.ProductID, Name: c.Name, Weight: c.Weight}

	recommendations := make([]Recommendation, 0, len(c.Recommendations))
	for _, r := range c.Recommendations {
		recommendations = append(recommendations, Recommendation{
			ProductID:        c.ProductID,
			RecommendationID: r.RecommendationID,
			Author:           r.Author,
			Rate:             r.Rate,
			Content:          r.Content,
		})
	}

	reviews := make([]Review, 0, len(c.Reviews))
	for _, r := range c.Reviews {
		reviews = append(reviews, Review{
			ProductID: c.ProductID,
			ReviewID:  r.ReviewID,
			Author:    r.Author,
			Subject:   r.Subject,
			Content:   r.Content,
		})
	}
	return product, recommendations, reviews
}

// HTTPErrorInfo тело ответа с ошибкой, общее для всех сервисов
type HTTPErrorInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}

// HealthStatus состояние сервиса или его компонента
type HealthStatus string

const (
	StatusUp   HealthStatus = "UP"
	StatusDown HealthStatus = "DOWN"
)

// ComponentHealth состояние одной зависимости
type ComponentHealth struct {
	Status  HealthStatus           `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Health агрегированное состояние
type Health struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}
