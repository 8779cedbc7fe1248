package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/aster/pkg/tracing"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// Producer publishes person lifecycle events.
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishPersonEvent publishes a person event, keyed by person id so
// events for one person stay ordered within a partition.
func (p *Producer) PublishPersonEvent(ctx context.Context, event *PersonEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishPersonEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.PersonID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "workspace_id", Value: []byte(event.WorkspaceID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish person event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"person_id":  event.PersonID,
	}).Debug("Published person event")

	return nil
}

// EmitPersonMerged satisfies the merge engine's EventEmitter.
func (p *Producer) EmitPersonMerged(ctx context.Context, workspaceID string, keepID string, mergeID string) error {
	return p.PublishPersonEvent(ctx, &PersonEvent{
		EventType:   PersonEventMerged,
		WorkspaceID: workspaceID,
		PersonID:    keepID,
		MergedFrom:  mergeID,
	})
}

// EmitPersonDeleted publishes a person.deleted event.
func (p *Producer) EmitPersonDeleted(ctx context.Context, workspaceID string, personID string) error {
	return p.PublishPersonEvent(ctx, &PersonEvent{
		EventType:   PersonEventDeleted,
		WorkspaceID: workspaceID,
		PersonID:    personID,
	})
}
