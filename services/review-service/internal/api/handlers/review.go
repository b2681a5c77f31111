package handlers

import (
	"net/http"

	"github.com/athebyme/product-composite-platform/pkg/api"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/review-service/internal/domain/services"
)

type ReviewHandler struct {
	service services.ReviewServiceInterface
	logger  interfaces.LoggerPort
}

func NewReviewHandler(service services.ReviewServiceInterface, logger interfaces.LoggerPort) *ReviewHandler {
	return &ReviewHandler{service: service, logger: logger}
}

// GetReviews GET /review?productId={id}
func (h *ReviewHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := api.ParseProductID(r.URL.Query().Get("productId"))
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	reviews, err := h.service.GetReviews(r.Context(), productID)
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	api.JSON(w, r, http.StatusOK, reviews)
}

func (h *ReviewHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health(r.Context())
	status := http.StatusOK
	if health.Status != models.StatusUp {
		status = http.StatusServiceUnavailable
	}
	api.JSON(w, r, status, health)
}
