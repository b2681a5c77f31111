package handlers

import (
	"net/http"

	"github.com/athebyme/product-composite-platform/pkg/api"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/product-service/internal/domain/services"
	"github.com/go-chi/chi/v5"
)

// ProductHandler обработчик запросов для продуктов
type ProductHandler struct {
	productService services.ProductServiceInterface
	logger         interfaces.LoggerPort
}

// NewProductHandler создает новый обработчик продуктов
func NewProductHandler(productService services.ProductServiceInterface, logger interfaces.LoggerPort) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// GetProduct обрабатывает запрос на получение продукта по ID
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := api.ParseProductID(chi.URLParam(r, "productId"))
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	product, err := h.productService.GetProduct(r.Context(), productID)
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	api.JSON(w, r, http.StatusOK, product)
}

// Health возвращает состояние сервиса и его зависимостей
func (h *ProductHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.productService.Health(r.Context())
	status := http.StatusOK
	if health.Status != models.StatusUp {
		status = http.StatusServiceUnavailable
	}
	api.JSON(w, r, status, health)
}
