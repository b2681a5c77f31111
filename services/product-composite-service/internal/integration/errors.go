package integration

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
)

// TranslateError приводит ошибку вызова нижестоящего сервиса к NotFound или InvalidInput.
// Остальные ошибки логируются и возвращаются без изменений.
func TranslateError(err error, logger interfaces.LoggerPort) error {
	if err == nil {
		return nil
	}

	var respErr *apperrors.ResponseError
	if !errors.As(err, &respErr) {
		logger.Warn("Ошибка вызова нижестоящего сервиса", interfaces.Err(err))
		return err
	}

	switch respErr.StatusCode {
	case http.StatusNotFound:
		return apperrors.NewNotFoundError("%s", ErrorMessage(respErr))
	case http.StatusUnprocessableEntity:
		return &apperrors.InvalidInputError{Message: ErrorMessage(respErr), Err: respErr}
	default:
		logger.Warn("Неожиданная HTTP ошибка, пробрасываем дальше",
			interfaces.LogField{Key: "status", Value: respErr.StatusCode},
			interfaces.LogField{Key: "url", Value: respErr.URL},
			interfaces.LogField{Key: "body", Value: string(respErr.Body)})
		return err
	}
}

// ErrorMessage извлекает message из тела ответа с ошибкой.
// Если тело не разбирается, возвращает текст самой ошибки.
func ErrorMessage(respErr *apperrors.ResponseError) string {
	if respErr == nil {
		return ""
	}

	// разбираем только message, остальные поля тела могут иметь любой формат
	var info struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respErr.Body, &info); err != nil || info.Message == "" {
		return respErr.Error()
	}
	return info.Message
}
