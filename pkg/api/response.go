// Package api содержит общие для HTTP слоя сервисов ответы и разбор параметров.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/go-chi/render"
)

// ErrBadRequest запрос не может быть разобран
var ErrBadRequest = errors.New("bad request")

// BadRequestError ошибка разбора запроса
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

// JSON отправляет ответ со статусом status
func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// StatusFor возвращает HTTP статус для ошибки
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error отправляет ошибку в формате HTTPErrorInfo.
// Внутренние ошибки логируются, клиенту возвращается общий текст.
func Error(w http.ResponseWriter, r *http.Request, err error, logger interfaces.LoggerPort) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorWithContext(r.Context(), "Ошибка обработки запроса",
			interfaces.LogField{Key: "path", Value: r.URL.Path}, interfaces.Err(err))
		message = http.StatusText(status)
	}

	JSON(w, r, status, models.HTTPErrorInfo{
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	})
}

// ParseProductID разбирает идентификатор продукта.
// Не число дает BadRequestError, значение меньше 1 дает InvalidInputError.
func ParseProductID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &BadRequestError{Message: "Type mismatch: productId must be an integer"}
	}
	if id < 1 {
		return 0, apperrors.NewInvalidInputError("Invalid productId: %d", id)
	}
	return id, nil
}
