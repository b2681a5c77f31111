// Package errors содержит общую для всех сервисов таксономию ошибок.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss возвращается кэшем, если ключ не найден
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotFound запрашиваемая сущность не существует
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput запрос или событие содержат некорректные данные
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateKey хранилище уже содержит сущность с таким ключом
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrEventProcessing событие не может быть обработано ни при каком числе повторов
	ErrEventProcessing = errors.New("event processing failed")
)

// NotFoundError ошибка отсутствия сущности с сообщением для клиента
type NotFoundError struct {
	Message string
}

func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidInputError ошибка валидации входных данных
type InvalidInputError struct {
	Message string
	Err     error
}

func NewInvalidInputError(format string, args ...interface{}) *InvalidInputError {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

func (e *InvalidInputError) Error() string { return e.Message }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func (e *InvalidInputError) Unwrap() error { return e.Err }

// EventProcessingError фатальная ошибка обработки события.
// Такие события не повторяются, а отправляются в dead letter topic.
type EventProcessingError struct {
	Message string
	Err     error
}

func NewEventProcessingError(format string, args ...interface{}) *EventProcessingError {
	return &EventProcessingError{Message: fmt.Sprintf(format, args...)}
}

func (e *EventProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EventProcessingError) Is(target error) bool { return target == ErrEventProcessing }

func (e *EventProcessingError) Unwrap() error { return e.Err }

// ResponseError ответ нижестоящего сервиса с неуспешным HTTP статусом
type ResponseError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%d response from %s: %s", e.StatusCode, e.URL, string(e.Body))
}

// IsFatal сообщает, что повтор обработки события не имеет смысла
func IsFatal(err error) bool {
	return errors.Is(err, ErrEventProcessing)
}
