// Package events описывает событие изменения агрегата, которое публикуется
// композитным сервисом и применяется сервисами-владельцами.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Type тип события
type Type string

const (
	Create Type = "CREATE"
	Delete Type = "DELETE"
)

// Valid сообщает, известен ли тип события
func (t Type) Valid() bool {
	return t == Create || t == Delete
}

// Event неизменяемая единица изменения агрегата
type Event struct {
	eventType Type
	key       int
	data      json.RawMessage
	createdAt time.Time
}

// envelope представление события на проводе
type envelope struct {
	EventType      Type            `json:"eventType"`
	Key            int             `json:"key"`
	Data           json.RawMessage `json:"data,omitempty"`
	EventCreatedAt time.Time       `json:"eventCreatedAt"`
}

// New создает событие с временем создания time.Now
func New(eventType Type, key int, data json.RawMessage) Event {
	return newAt(eventType, key, data, time.Now().UTC())
}

// NewWithPayload сериализует payload и создает событие.
// Для nil payload поле data остается пустым.
func NewWithPayload(eventType Type, key int, payload interface{}) (Event, error) {
	if payload == nil {
		return New(eventType, key, nil), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return New(eventType, key, data), nil
}

func newAt(eventType Type, key int, data json.RawMessage, createdAt time.Time) Event {
	return Event{
		eventType: eventType,
		key:       key,
		data:      cloneData(data),
		createdAt: createdAt,
	}
}

func (e Event) Type() Type { return e.eventType }

func (e Event) Key() int { return e.key }

// PartitionKey ключ сообщения в топике
func (e Event) PartitionKey() string { return strconv.Itoa(e.key) }

// Data возвращает копию полезной нагрузки
func (e Event) Data() json.RawMessage { return cloneData(e.data) }

// HasData сообщает, есть ли у события полезная нагрузка
func (e Event) HasData() bool {
	trimmed := bytes.TrimSpace(e.data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func (e Event) CreatedAt() time.Time { return e.createdAt }

// DecodeData десериализует полезную нагрузку в v
func (e Event) DecodeData(v interface{}) error {
	if !e.HasData() {
		return fmt.Errorf("event %s with key %d has no data", e.eventType, e.key)
	}
	return json.Unmarshal(e.data, v)
}

// Encode сериализует событие в JSON
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(envelope{
		EventType:      e.eventType,
		Key:            e.key,
		Data:           e.data,
		EventCreatedAt: e.createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return b, nil
}

// Decode разбирает событие из JSON. Тип события не проверяется,
// неизвестные типы отклоняет обработчик.
func Decode(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return newAt(env.EventType, env.Key, env.Data, env.EventCreatedAt), nil
}

func (e Event) String() string {
	return fmt.Sprintf("Event{type=%s, key=%d, createdAt=%s}", e.eventType, e.key, e.createdAt.Format(time.RFC3339Nano))
}

func cloneData(data json.RawMessage) json.RawMessage {
	if data == nil {
		return nil
	}
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}
