package messaging

import (
	"errors"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// partitionFlow управление выборкой партиций, реализуется *kafka.Consumer
type partitionFlow interface {
	Pause(partitions []kafka.TopicPartition) error
	Resume(partitions []kafka.TopicPartition) error
}

// backlog держит сообщения, которые очередь партиции не приняла.
// Партиция с отложенными сообщениями стоит на паузе, остальные партиции
// продолжают читаться. Используется только из цикла чтения consumer.
type backlog struct {
	dispatcher *Dispatcher
	flow       partitionFlow
	logger     interfaces.LoggerPort
	pending    map[PartitionKey][]*interfaces.Message
}

func newBacklog(dispatcher *Dispatcher, flow partitionFlow, logger interfaces.LoggerPort) *backlog {
	return &backlog{
		dispatcher: dispatcher,
		flow:       flow,
		logger:     logger,
		pending:    make(map[PartitionKey][]*interfaces.Message),
	}
}

// offer передает сообщение обработчику партиции или откладывает его
func (b *backlog) offer(msg *interfaces.Message) {
	key := PartitionKey{Topic: msg.Topic, Partition: msg.Partition}
	if queued, ok := b.pending[key]; ok {
		b.pending[key] = append(queued, msg)
		return
	}

	err := b.dispatcher.Dispatch(msg)
	switch {
	case err == nil:
	case errors.Is(err, ErrPartitionBusy):
		b.pending[key] = []*interfaces.Message{msg}
		b.pause(key)
	default:
		b.logger.Warn("Сообщение не передано обработчику партиции",
			interfaces.LogField{Key: "partition", Value: msg.Partition},
			interfaces.LogField{Key: "offset", Value: msg.Offset},
			interfaces.Err(err))
	}
}

// flush повторяет передачу отложенных сообщений и снимает паузу с освободившихся партиций
func (b *backlog) flush() {
	for key, queued := range b.pending {
		for len(queued) > 0 {
			err := b.dispatcher.Dispatch(queued[0])
			if errors.Is(err, ErrPartitionBusy) {
				break
			}
			if err != nil {
				b.logger.Warn("Отложенные сообщения партиции отброшены",
					interfaces.LogField{Key: "partition", Value: key.Partition},
					interfaces.LogField{Key: "count", Value: len(queued)},
					interfaces.Err(err))
				queued = nil
				break
			}
			queued = queued[1:]
		}

		if len(queued) > 0 {
			b.pending[key] = queued
			continue
		}
		delete(b.pending, key)
		b.resume(key)
	}
}

// revoke забывает отложенные сообщения отозванных партиций,
// их получит новый владелец с последнего подтвержденного смещения
func (b *backlog) revoke(keys ...PartitionKey) {
	for _, key := range keys {
		delete(b.pending, key)
	}
}

func (b *backlog) size() int {
	n := 0
	for _, queued := range b.pending {
		n += len(queued)
	}
	return n
}

func (b *backlog) pause(key PartitionKey) {
	if err := b.flow.Pause(topicPartitions(key)); err != nil {
		b.logger.Warn("Ошибка приостановки партиции",
			interfaces.LogField{Key: "partition", Value: key.Partition}, interfaces.Err(err))
		return
	}
	b.logger.Debug("Партиция приостановлена", interfaces.LogField{Key: "partition", Value: key.Partition})
}

func (b *backlog) resume(key PartitionKey) {
	if err := b.flow.Resume(topicPartitions(key)); err != nil {
		b.logger.Warn("Ошибка возобновления партиции",
			interfaces.LogField{Key: "partition", Value: key.Partition}, interfaces.Err(err))
		return
	}
	b.logger.Debug("Партиция возобновлена", interfaces.LogField{Key: "partition", Value: key.Partition})
}

func topicPartitions(key PartitionKey) []kafka.TopicPartition {
	topic := key.Topic
	return []kafka.TopicPartition{{Topic: &topic, Partition: key.Partition}}
}
