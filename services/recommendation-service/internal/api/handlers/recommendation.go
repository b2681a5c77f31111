package handlers

import (
	"net/http"

	"github.com/athebyme/product-composite-platform/pkg/api"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/recommendation-service/internal/domain/services"
)

// RecommendationHandler обработчик запросов рекомендаций
type RecommendationHandler struct {
	service services.RecommendationServiceInterface
	logger  interfaces.LoggerPort
}

func NewRecommendationHandler(service services.RecommendationServiceInterface, logger interfaces.LoggerPort) *RecommendationHandler {
	return &RecommendationHandler{service: service, logger: logger}
}

// GetRecommendations GET /recommendation?productId={id}
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	productID, err := api.ParseProductID(r.URL.Query().Get("productId"))
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	recs, err := h.service.GetRecommendations(r.Context(), productID)
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	api.JSON(w, r, http.StatusOK, recs)
}

func (h *RecommendationHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health(r.Context())
	status := http.StatusOK
	if health.Status != models.StatusUp {
		status = http.StatusServiceUnavailable
	}
	api.JSON(w, r, status, health)
}
