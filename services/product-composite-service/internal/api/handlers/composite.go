package handlers

import (
	"net/http"
	"strconv"

	"github.com/athebyme/product-composite-platform/pkg/api"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/services/product-composite-service/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// CompositeHandler обработчик запросов композитного продукта
type CompositeHandler struct {
	compositeService services.CompositeServiceInterface
	logger           interfaces.LoggerPort
}

// NewCompositeHandler создает новый обработчик
func NewCompositeHandler(compositeService services.CompositeServiceInterface, logger interfaces.LoggerPort) *CompositeHandler {
	return &CompositeHandler{
		compositeService: compositeService,
		logger:           logger,
	}
}

// GetCompositeProduct godoc
// @Summary      Получить композитный продукт
// @Description  Собирает продукт, его рекомендации и отзывы. Сбой рекомендаций или отзывов дает пустой список.
// @Tags         product-composite
// @Produce      json
// @Param        productId  path      int  true  "ID продукта"
// @Success      200        {object}  models.CompositeProduct
// @Failure      400        {object}  models.HTTPErrorInfo
// @Failure      404        {object}  models.HTTPErrorInfo
// @Failure      422        {object}  models.HTTPErrorInfo
// @Router       /product-composite/{productId} [get]
func (h *CompositeHandler) GetCompositeProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := api.ParseProductID(chi.URLParam(r, "productId"))
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	composite, err := h.compositeService.GetCompositeProduct(r.Context(), productID)
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	api.JSON(w, r, http.StatusOK, composite)
}

// CreateCompositeProduct godoc
// @Summary      Создать композитный продукт
// @Description  Публикует события создания продукта, рекомендаций и отзывов.
// @Description  С await=true ответ отправляется после подтверждения брокера.
// @Tags         product-composite
// @Accept       json
// @Param        request  body   models.CompositeProduct  true   "Композитный продукт"
// @Param        await    query  bool                     false  "Ждать подтверждения публикации"
// @Success      200
// @Success      202
// @Failure      400  {object}  models.HTTPErrorInfo
// @Failure      422  {object}  models.HTTPErrorInfo
// @Router       /product-composite [post]
func (h *CompositeHandler) CreateCompositeProduct(w http.ResponseWriter, r *http.Request) {
	await, err := parseAwait(r)
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	var body models.CompositeProduct
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		api.Error(w, r, &api.BadRequestError{Message: "Invalid request body"}, h.logger)
		return
	}

	if err := h.compositeService.CreateCompositeProduct(r.Context(), body, await); err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	w.WriteHeader(writeStatus(await))
}

// DeleteCompositeProduct godoc
// @Summary      Удалить композитный продукт
// @Description  Публикует события удаления во все сервисы-владельцы. Удаление отсутствующего продукта не является ошибкой.
// @Tags         product-composite
// @Param        productId  path   int   true   "ID продукта"
// @Param        await      query  bool  false  "Ждать подтверждения публикации"
// @Success      200
// @Success      202
// @Failure      400  {object}  models.HTTPErrorInfo
// @Failure      422  {object}  models.HTTPErrorInfo
// @Router       /product-composite/{productId} [delete]
func (h *CompositeHandler) DeleteCompositeProduct(w http.ResponseWriter, r *http.Request) {
	await, err := parseAwait(r)
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	productID, err := api.ParseProductID(chi.URLParam(r, "productId"))
	if err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	if err := h.compositeService.DeleteCompositeProduct(r.Context(), productID, await); err != nil {
		api.Error(w, r, err, h.logger)
		return
	}

	w.WriteHeader(writeStatus(await))
}

// Health godoc
// @Summary      Состояние сервисов-владельцев
// @Tags         actuator
// @Produce      json
// @Success      200  {object}  models.Health
// @Failure      503  {object}  models.Health
// @Router       /actuator/health [get]
func (h *CompositeHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.compositeService.Health(r.Context())
	status := http.StatusOK
	if health.Status != models.StatusUp {
		status = http.StatusServiceUnavailable
	}
	api.JSON(w, r, status, health)
}

func parseAwait(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("await")
	if raw == "" {
		return false, nil
	}
	await, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &api.BadRequestError{Message: "Type mismatch: await must be a boolean"}
	}
	return await, nil
}

// writeStatus 202 пока событие только поставлено в очередь, 200 после подтверждения
func writeStatus(await bool) int {
	if await {
		return http.StatusOK
	}
	return http.StatusAccepted
}
