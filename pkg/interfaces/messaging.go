package interfaces

import (
	"context"
	"time"
)

// Message представляет сообщение, полученное из топика
type Message struct {
	ID          string            `json:"id"`           // Уникальный ID сообщения
	Topic       string            `json:"topic"`        // Тема сообщения
	Partition   int32             `json:"partition"`    // Партиция
	Offset      int64             `json:"offset"`       // Смещение в партиции
	Key         string            `json:"key"`          // Ключ сообщения
	Value       []byte            `json:"value"`        // Содержимое сообщения
	Headers     map[string]string `json:"headers"`      // Заголовки сообщения
	PublishedAt time.Time         `json:"published_at"` // Время публикации
	Attempts    int               `json:"attempts"`     // Число попыток обработки
}

// DeliveryReport подтверждение брокера о записи сообщения
type DeliveryReport struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       string
}

// MessageHandler определяет функцию обработчика сообщений.
// Сообщение подтверждается только после успешного возврата.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher отправляет сообщения в топик и ждет подтверждения брокера
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) (*DeliveryReport, error)
}

// MessagingPort определяет интерфейс системы обмена сообщениями
type MessagingPort interface {
	Publisher

	// Subscribe подписывается на топик, возвращает функцию отписки
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (func() error, error)

	Close() error
}
