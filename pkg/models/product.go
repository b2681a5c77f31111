package models

import "fmt"

// Kind вид ресурса, которым владеет отдельный сервис
type Kind string

const (
	KindProduct        Kind = "product"
	KindRecommendation Kind = "recommendation"
	KindReview         Kind = "review"
)

// Топики событий для каждого вида ресурса
const (
	TopicProducts        = "products"
	TopicRecommendations = "recommendations"
	TopicReviews         = "reviews"
)

// Kinds все виды ресурсов в порядке их публикации
var Kinds = []Kind{KindProduct, KindRecommendation, KindReview}

// Topic возвращает топик событий вида ресурса
func (k Kind) Topic() string {
	switch k {
	case KindProduct:
		return TopicProducts
	case KindRecommendation:
		return TopicRecommendations
	case KindReview:
		return TopicReviews
	default:
		return ""
	}
}

// Path возвращает путь ресурса у сервиса-владельца для productId
func (k Kind) Path(productID int) string {
	if k == KindProduct {
		return fmt.Sprintf("/product/%d", productID)
	}
	return fmt.Sprintf("/%s?productId=%d", k, productID)
}

// Entity общий интерфейс сущностей, переносимых событиями
type Entity interface {
	Kind() Kind
	ProductKey() int
}

// Product продукт, один на productId
type Product struct {
	ProductID      int    `json:"productId"`
	Name           string `json:"name"`
	Weight         int    `json:"weight"`
	ServiceAddress string `json:"serviceAddress,omitempty"`
}

func (p Product) Kind() Kind { return KindProduct }

func (p Product) ProductKey() int { return p.ProductID }

// Recommendation рекомендация, может быть несколько на productId
type Recommendation struct {
	ProductID        int    `json:"productId"`
	RecommendationID int    `json:"recommendationId"`
	Author           string `json:"author"`
	Rate             int    `json:"rate"`
	Content          string `json:"content"`
	ServiceAddress   string `json:"serviceAddress,omitempty"`
}

func (r Recommendation) Kind() Kind { return KindRecommendation }

func (r Recommendation) ProductKey() int { return r.ProductID }

// Review отзыв, может быть несколько на productId
type Review struct {
	ProductID      int    `json:"productId"`
	ReviewID       int    `json:"reviewId"`
	Author         string `json:"author"`
	Subject        string `json:"subject"`
	Content        string `json:"content"`
	ServiceAddress string `json:"serviceAddress,omitempty"`
}

func (r Review) Kind() Kind { return KindReview }

func (r Review) ProductKey() int { return r.ProductID }
