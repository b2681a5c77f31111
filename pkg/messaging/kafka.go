package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/config"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Служебные заголовки сообщений
const (
	HeaderMessageID = "message_id"
	HeaderTimestamp = "timestamp"
)

// Options настройки подключения к Kafka
type Options struct {
	Brokers           []string
	GroupID           string
	ClientID          string
	DeadLetterSuffix  string
	AutoOffsetReset   string
	SessionTimeout    time.Duration
	PollTimeout       time.Duration
	DeliveryTimeout   time.Duration
	EnableIdempotence bool
	CompressionType   string
	LingerMs          int
	Retry             RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.DeadLetterSuffix == "" {
		o.DeadLetterSuffix = ".dlq"
	}
	if o.AutoOffsetReset == "" {
		o.AutoOffsetReset = "earliest"
	}
	if o.SessionTimeout <= 0 {
		o.SessionTimeout = 30 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 100 * time.Millisecond
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = 30 * time.Second
	}
	if o.CompressionType == "" {
		o.CompressionType = "none"
	}
	if o.Retry.MaxAttempts < 1 {
		o.Retry = DefaultRetryPolicy()
	}
	return o
}

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer       *kafka.Producer
	consumers      map[string]*subscription
	consumersMutex sync.Mutex
	opts           Options
	logger         interfaces.LoggerPort
	closeOnce      sync.Once
}

type subscription struct {
	consumer     *kafka.Consumer
	dispatcher   *Dispatcher
	backlog      *backlog
	drainTimeout time.Duration
	log          interfaces.LoggerPort
	cancel       context.CancelFunc
	done         chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(opts Options, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	opts = opts.withDefaults()
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            strings.Join(opts.Brokers, ","),
		"client.id":                    opts.ClientID,
		"acks":                         "all",
		"enable.idempotence":           opts.EnableIdempotence,
		"partitioner":                  "murmur2_random",
		"retries":                      5,
		"retry.backoff.ms":             500,
		"compression.type":             opts.CompressionType,
		"linger.ms":                    opts.LingerMs,
		"message.max.bytes":            1000000,
		"queue.buffering.max.messages": 100000,
		"delivery.timeout.ms":          int(opts.DeliveryTimeout.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaMessaging{
		producer:  producer,
		consumers: make(map[string]*subscription),
		opts:      opts,
		logger:    logger.WithComponent("kafka"),
	}
	go k.watchProducerEvents()

	return k, nil
}

// watchProducerEvents логирует события producer, не относящиеся к конкретному сообщению
func (k *KafkaMessaging) watchProducerEvents() {
	for ev := range k.producer.Events() {
		switch e := ev.(type) {
		case kafka.Error:
			k.logger.Error("Ошибка Kafka producer",
				interfaces.LogField{Key: "code", Value: e.Code().String()}, interfaces.Err(e))
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				k.logger.Error("Ошибка доставки сообщения", interfaces.Err(e.TopicPartition.Error))
			}
		}
	}
}

// messageToKafkaMessage преобразует сообщение в kafka.Message
func messageToKafkaMessage(topic, key string, value []byte, headers map[string]string) *kafka.Message {
	kafkaHeaders := make([]kafka.Header, 0, len(headers)+2)
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}

	// служебные заголовки
	if _, ok := headers[HeaderMessageID]; !ok {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: HeaderMessageID, Value: []byte(uuid.New().String())})
	}
	if _, ok := headers[HeaderTimestamp]; !ok {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: HeaderTimestamp, Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))})
	}

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
	}
}

// kafkaMessageToMessage преобразует kafka.Message в Message
func kafkaMessageToMessage(msg *kafka.Message) *interfaces.Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	publishedAt := msg.Timestamp
	if tsStr, ok := headers[HeaderTimestamp]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
			publishedAt = ts
		}
	}

	var topic string
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	return &interfaces.Message{
		ID:          headers[HeaderMessageID],
		Topic:       topic,
		Partition:   msg.TopicPartition.Partition,
		Offset:      int64(msg.TopicPartition.Offset),
		Key:         string(msg.Key),
		Value:       msg.Value,
		Headers:     headers,
		PublishedAt: publishedAt,
	}
}

// Publish отправляет сообщение и ждет подтверждения брокера.
// Сообщения с одинаковым ключом попадают в одну партицию.
func (k *KafkaMessaging) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) (*interfaces.DeliveryReport, error) {
	carrier := propagation.MapCarrier{}
	for hk, hv := range headers {
		carrier[hk] = hv
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	deliveryChan := make(chan kafka.Event, 1)
	if err := k.producer.Produce(messageToKafkaMessage(topic, key, value, carrier), deliveryChan); err != nil {
		return nil, fmt.Errorf("failed to produce message to %s: %w", topic, err)
	}

	timer := time.NewTimer(k.opts.DeliveryTimeout + time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delivery to %s was not confirmed: %w", topic, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("delivery to %s was not confirmed within %s", topic, k.opts.DeliveryTimeout)
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return nil, fmt.Errorf("unexpected delivery event: %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return nil, fmt.Errorf("failed to deliver message to %s: %w", topic, m.TopicPartition.Error)
		}
		return &interfaces.DeliveryReport{
			Topic:     topic,
			Partition: m.TopicPartition.Partition,
			Offset:    int64(m.TopicPartition.Offset),
			Key:       key,
		}, nil
	}
}

// DeadLetterTopic имя dead letter topic для топика
func (k *KafkaMessaging) DeadLetterTopic(topic string) string {
	return topic + k.opts.DeadLetterSuffix
}

func (k *KafkaMessaging) publishDeadLetter(ctx context.Context, msg *interfaces.Message, cause error) error {
	_, err := k.Publish(ctx, k.DeadLetterTopic(msg.Topic), msg.Key, msg.Value, DeadLetterHeaders(msg, cause))
	return err
}

// Subscribe подписывается на топик в составе группы потребителей.
// Сообщения каждой партиции передаются handler последовательно, смещение
// фиксируется после успешной обработки или отправки в dead letter topic.
func (k *KafkaMessaging) Subscribe(ctx context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":        strings.Join(k.opts.Brokers, ","),
		"group.id":                 k.opts.GroupID,
		"client.id":                k.opts.ClientID,
		"auto.offset.reset":        k.opts.AutoOffsetReset,
		"enable.auto.commit":       false,
		"session.timeout.ms":       int(k.opts.SessionTimeout.Milliseconds()),
		"heartbeat.interval.ms":    3000,
		"max.poll.interval.ms":     300000,
		"fetch.min.bytes":          1,
		"fetch.wait.max.ms":        500,
		"reconnect.backoff.ms":     50,
		"reconnect.backoff.max.ms": 10000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log := k.logger.WithField("topic", topic)
	commit := func(msg *interfaces.Message) error {
		_, err := consumer.CommitOffsets([]kafka.TopicPartition{{
			Topic:     &msg.Topic,
			Partition: msg.Partition,
			Offset:    kafka.Offset(msg.Offset + 1),
		}})
		return err
	}
	dispatcher := NewDispatcher(handler, k.opts.Retry, k.publishDeadLetter, commit, log)
	pending := newBacklog(dispatcher, consumer, log)

	rebalance := func(c *kafka.Consumer, ev kafka.Event) error {
		switch e := ev.(type) {
		case kafka.AssignedPartitions:
			log.Info("Назначены партиции", interfaces.LogField{Key: "partitions", Value: partitionsString(e.Partitions)})
		case kafka.RevokedPartitions:
			log.Info("Отозваны партиции", interfaces.LogField{Key: "partitions", Value: partitionsString(e.Partitions)})
			keys := partitionKeys(e.Partitions)
			pending.revoke(keys...)
			dispatcher.Revoke(keys...)
		}
		return nil
	}

	if err := consumer.SubscribeTopics([]string{topic}, rebalance); err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		consumer:     consumer,
		dispatcher:   dispatcher,
		backlog:      pending,
		drainTimeout: k.opts.SessionTimeout,
		log:          log,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	id := uuid.New().String()

	k.consumersMutex.Lock()
	k.consumers[id] = sub
	k.consumersMutex.Unlock()

	go k.consumeMessages(subCtx, sub, log)

	var once sync.Once
	var closeErr error
	unsubscribe := func() error {
		once.Do(func() {
			k.consumersMutex.Lock()
			delete(k.consumers, id)
			k.consumersMutex.Unlock()
			closeErr = sub.stop()
		})
		return closeErr
	}

	return unsubscribe, nil
}

// stop останавливает чтение и дописывает уже принятые сообщения до закрытия consumer
func (s *subscription) stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done

		ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		if err := s.dispatcher.Drain(ctx); err != nil {
			s.log.Warn("Очереди партиций не обработаны до конца, сообщения будут доставлены повторно", interfaces.Err(err))
		}
		s.stopErr = s.consumer.Close()
	})
	return s.stopErr
}

// consumeMessages читает сообщения из Kafka до отмены контекста
func (k *KafkaMessaging) consumeMessages(ctx context.Context, sub *subscription, log interfaces.LoggerPort) {
	defer close(sub.done)
	pollMs := int(k.opts.PollTimeout.Milliseconds())

	for ctx.Err() == nil {
		sub.backlog.flush()

		ev := sub.consumer.Poll(pollMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				log.Warn("Ошибка чтения сообщения", interfaces.Err(e.TopicPartition.Error))
				continue
			}
			sub.backlog.offer(kafkaMessageToMessage(e))

		case kafka.Error:
			if e.Code() == kafka.ErrAllBrokersDown {
				log.Error("Все брокеры Kafka недоступны", interfaces.Err(e))
				continue
			}
			log.Warn("Ошибка Kafka consumer",
				interfaces.LogField{Key: "code", Value: e.Code().String()}, interfaces.Err(e))

		case kafka.PartitionEOF:
			// конец партиции, ничего не делаем

		default:
			log.Debug("Событие Kafka", interfaces.LogField{Key: "event", Value: e.String()})
		}
	}

	if n := sub.backlog.size(); n > 0 {
		log.Info("Отложенные сообщения будут доставлены повторно", interfaces.LogField{Key: "count", Value: n})
	}
}

func partitionKeys(partitions []kafka.TopicPartition) []PartitionKey {
	keys := make([]PartitionKey, 0, len(partitions))
	for _, p := range partitions {
		if p.Topic == nil {
			continue
		}
		keys = append(keys, PartitionKey{Topic: *p.Topic, Partition: p.Partition})
	}
	return keys
}

func partitionsString(partitions []kafka.TopicPartition) string {
	parts := make([]string, 0, len(partitions))
	for _, key := range partitionKeys(partitions) {
		parts = append(parts, fmt.Sprintf("%s[%d]", key.Topic, key.Partition))
	}
	return strings.Join(parts, ",")
}

// EnsureTopics создает отсутствующие топики вместе с их dead letter topic
func (k *KafkaMessaging) EnsureTopics(ctx context.Context, topics []string, partitions, replicationFactor int) error {
	existing, err := k.ListTopics(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[t] = struct{}{}
	}

	var specs []kafka.TopicSpecification
	for _, topic := range topics {
		for _, name := range []string{topic, k.DeadLetterTopic(topic)} {
			if _, ok := known[name]; ok {
				continue
			}
			specs = append(specs, kafka.TopicSpecification{
				Topic:             name,
				NumPartitions:     partitions,
				ReplicationFactor: replicationFactor,
			})
		}
	}
	if len(specs) == 0 {
		return nil
	}

	adminClient, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer adminClient.Close()

	result, err := adminClient.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, r := range result {
		code := r.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %s", r.Topic, r.Error.String())
		}
		k.logger.Info("Топик создан", interfaces.LogField{Key: "topic", Value: r.Topic})
	}
	return nil
}

// ListTopics возвращает список всех тем
func (k *KafkaMessaging) ListTopics(ctx context.Context) ([]string, error) {
	adminClient, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer adminClient.Close()

	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	metadata, err := adminClient.GetMetadata(nil, true, int(timeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to get kafka metadata: %w", err)
	}

	topics := make([]string, 0, len(metadata.Topics))
	for topic := range metadata.Topics {
		topics = append(topics, topic)
	}
	return topics, nil
}

// Ping проверяет доступность брокеров
func (k *KafkaMessaging) Ping(ctx context.Context) error {
	_, err := k.ListTopics(ctx)
	return err
}

// Close останавливает подписки и отправляет накопленные сообщения
func (k *KafkaMessaging) Close() error {
	var errs []error
	k.closeOnce.Do(func() {
		k.consumersMutex.Lock()
		subs := make([]*subscription, 0, len(k.consumers))
		for id, sub := range k.consumers {
			subs = append(subs, sub)
			delete(k.consumers, id)
		}
		k.consumersMutex.Unlock()

		for _, sub := range subs {
			if err := sub.stop(); err != nil {
				errs = append(errs, err)
			}
		}

		if remaining := k.producer.Flush(15 * 1000); remaining > 0 {
			errs = append(errs, fmt.Errorf("%d messages were not delivered before close", remaining))
		}
		k.producer.Close()
	})
	return errors.Join(errs...)
}

// OptionsFromConfig собирает настройки Kafka из конфигурации сервиса
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Brokers:           cfg.Kafka.Brokers,
		GroupID:           cfg.Kafka.GroupID,
		ClientID:          cfg.AppName,
		DeadLetterSuffix:  cfg.Kafka.DeadLetterSuffix,
		AutoOffsetReset:   cfg.Kafka.AutoOffsetReset,
		SessionTimeout:    cfg.Kafka.SessionTimeout,
		PollTimeout:       cfg.Kafka.PollTimeout,
		DeliveryTimeout:   cfg.Kafka.DeliveryTimeout,
		EnableIdempotence: cfg.Kafka.EnableIdempotence,
		CompressionType:   cfg.Kafka.CompressionType,
		LingerMs:          cfg.Kafka.LingerMs,
		Retry: RetryPolicy{
			MaxAttempts: cfg.Kafka.MaxRetries,
			Backoff:     cfg.Kafka.RetryBackoff,
			MaxBackoff:  cfg.Kafka.MaxRetryBackoff,
		},
	}
}
