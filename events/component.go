package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/codecompass/component"
	"github.com/kbukum/codecompass/logger"
)

// Component owns the Kafka publisher and the queue in front of it.
type Component struct {
	cfg       Config
	log       *logger.Logger
	kafka     *KafkaPublisher
	publisher *AsyncPublisher
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates an events component for the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("events")}
}

func (c *Component) Name() string { return "events" }

// Start builds the publisher. No broker connection is made until the first event.
func (c *Component) Start(_ context.Context) error {
	if c.publisher != nil {
		return nil
	}
	p, err := NewKafkaPublisher(c.cfg, c.log)
	if err != nil {
		return err
	}
	c.kafka = p
	c.publisher = NewAsyncPublisher(p, c.cfg.QueueSize, c.log)
	c.log.Info("Event publisher ready", map[string]interface{}{
		"brokers":    c.cfg.Brokers,
		"topic":      c.cfg.Topic,
		"queue_size": c.cfg.QueueSize,
	})
	return nil
}

// Stop drains queued events until ctx ends, then closes the writer.
func (c *Component) Stop(ctx context.Context) error {
	if c.publisher == nil {
		return nil
	}
	drainErr := c.publisher.Close(ctx)
	closeErr := c.kafka.Close()
	c.publisher, c.kafka = nil, nil
	return errors.Join(drainErr, closeErr)
}

func (c *Component) Health(_ context.Context) component.Health {
	if c.publisher == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Type:    "kafka",
		Details: fmt.Sprintf("%s topic=%s", strings.Join(c.cfg.Brokers, ","), c.cfg.Topic),
	}
}

// Publisher returns the live publisher, or Nop before Start.
func (c *Component) Publisher() Publisher {
	return publisherFunc(func(ctx context.Context, e Event) error {
		if c.publisher == nil {
			return nil
		}
		return c.publisher.Publish(ctx, e)
	})
}

type publisherFunc func(ctx context.Context, e Event) error

func (f publisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
