package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/codecompass/logger"
)

// Publisher emits auth events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// messageWriter is the subset of *kafkago.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON to a single topic, keyed by subject
// so events for one user stay ordered within a partition.
type KafkaPublisher struct {
	cfg    Config
	log    *logger.Logger
	writer messageWriter
	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher validates cfg and builds a publisher. The underlying
// writer connects lazily, so a broker outage does not block startup.
func NewKafkaPublisher(cfg Config, log *logger.Logger) (*KafkaPublisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("events: kafka is disabled")
	}
	if log == nil {
		log = logger.Nop()
	}

	transport, err := newTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("events: transport: %w", err)
	}
	p := &KafkaPublisher{cfg: cfg, log: log.WithComponent("events.kafka")}
	p.writer = &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Transport:              transport,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           parseDuration(cfg.BatchTimeout),
		WriteTimeout:           parseDuration(cfg.WriteTimeout),
		RequiredAcks:           kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression(cfg.Compression),
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}
	return p, nil
}

func newPublisherWithWriter(cfg Config, w messageWriter, log *logger.Logger) *KafkaPublisher {
	cfg.ApplyDefaults()
	return &KafkaPublisher{cfg: cfg, writer: w, log: log.WithComponent("events.kafka")}
}

// Publish writes e to the configured topic, retrying with linear backoff.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("events: publisher is closed")
	}

	value, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(e.Subject),
		Value: value,
		Time:  e.Timestamp,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Retries; attempt++ {
		if lastErr = p.writer.WriteMessages(ctx, msg); lastErr == nil {
			return nil
		}
		if attempt < p.cfg.Retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("events: write after %d retries: %w", p.cfg.Retries, lastErr)
}

// Close flushes pending writes and releases the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
