// Package processor применяет события CREATE и DELETE к сервису-владельцу.
package processor

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/events"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
)

// Handlers операции сервиса-владельца над сущностью T
type Handlers[T models.Entity] struct {
	// Create применяет событие CREATE
	Create func(ctx context.Context, entity T) error

	// Delete применяет событие DELETE по ключу агрегата
	Delete func(ctx context.Context, productID int) error
}

// MessageProcessor обрабатывает события одного топика.
// Повторы не выполняются: ошибки возвращаются слою доставки.
type MessageProcessor[T models.Entity] struct {
	handlers Handlers[T]
	logger   interfaces.LoggerPort
}

// New создает обработчик событий
func New[T models.Entity](handlers Handlers[T], logger interfaces.LoggerPort) *MessageProcessor[T] {
	var zero T
	return &MessageProcessor[T]{
		handlers: handlers,
		logger:   logger.WithComponent(string(zero.Kind()) + "-processor"),
	}
}

// Handle реализует interfaces.MessageHandler
func (p *MessageProcessor[T]) Handle(ctx context.Context, msg *interfaces.Message) error {
	event, err := events.Decode(msg.Value)
	if err != nil {
		return &apperrors.EventProcessingError{Message: "Unable to decode event", Err: err}
	}

	p.logger.InfoWithContext(ctx, "Обработка события",
		interfaces.LogField{Key: "event_type", Value: event.Type()},
		interfaces.LogField{Key: "key", Value: event.Key()},
		interfaces.LogField{Key: "created_at", Value: event.CreatedAt()},
	)
	return p.Process(ctx, event)
}

// Process применяет событие к сервису-владельцу
func (p *MessageProcessor[T]) Process(ctx context.Context, event events.Event) error {
	switch event.Type() {
	case events.Create:
		return p.create(ctx, event)

	case events.Delete:
		p.logger.InfoWithContext(ctx, "Удаление по событию", interfaces.LogField{Key: "key", Value: event.Key()})
		if err := p.handlers.Delete(ctx, event.Key()); err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) {
				return &apperrors.EventProcessingError{Message: "Invalid key in DELETE event", Err: err}
			}
			return fmt.Errorf("failed to apply delete event for key %d: %w", event.Key(), err)
		}
		return nil

	default:
		msg := fmt.Sprintf("Incorrect event type: %s, expected a CREATE or DELETE event", event.Type())
		p.logger.WarnWithContext(ctx, msg)
		return apperrors.NewEventProcessingError("%s", msg)
	}
}

func (p *MessageProcessor[T]) create(ctx context.Context, event events.Event) error {
	if !event.HasData() {
		return apperrors.NewEventProcessingError("CREATE event with key %d has no data", event.Key())
	}

	var entity T
	if err := event.DecodeData(&entity); err != nil {
		return &apperrors.EventProcessingError{
			Message: fmt.Sprintf("Unable to decode %s from CREATE event with key %d", entity.Kind(), event.Key()),
			Err:     err,
		}
	}
	if entity.ProductKey() != event.Key() {
		return apperrors.NewEventProcessingError("CREATE event key %d does not match productId %d", event.Key(), entity.ProductKey())
	}

	p.logger.InfoWithContext(ctx, "Создание по событию", interfaces.LogField{Key: "key", Value: event.Key()})
	err := p.handlers.Create(ctx, entity)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrDuplicateKey):
		// повторная доставка уже примененного события
		p.logger.WarnWithContext(ctx, "Событие уже применено",
			interfaces.LogField{Key: "key", Value: event.Key()}, interfaces.Err(err))
		return nil
	case errors.Is(err, apperrors.ErrInvalidInput):
		return &apperrors.EventProcessingError{Message: "Invalid entity in CREATE event", Err: err}
	default:
		return fmt.Errorf("failed to apply create event for key %d: %w", event.Key(), err)
	}
}
