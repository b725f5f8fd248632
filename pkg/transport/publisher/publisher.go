// Package publisher forwards domain events to a RabbitMQ topic exchange.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type (
	// channel is the part of *amqp.Channel the publisher uses.
	channel interface {
		ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
		PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
		Close() error
	}

	connection interface {
		Close() error
		IsClosed() bool
	}
)

type Publisher struct {
	conn     connection
	channel  channel
	exchange string
	timeout  time.Duration
	logger   *logger.Logger
}

// Init opens a channel on conn and declares the durable topic exchange named by cfg.Exchange.Output.
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("error opening channel", zap.Error(err))
		conn.Close()
		return nil, err
	}

	p, err := newPublisher(ch, conn, cfg.Exchange.Output, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch channel, conn connection, exchange string, logger *logger.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		logger.Error("error declare exchange",
			zap.String("exchange", exchange),
			zap.Error(err),
		)
		ch.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		timeout:  5 * time.Second,
		logger:   logger,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("error closing channel", zap.Error(err))
	}
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// IsHealthy reports whether the broker connection is open.
func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Publish wraps payload into a new event and sends it with routingKey as the event type.
func (p *Publisher) Publish(payload any, routingKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("error encode payload for publish", zap.Error(err))
		return err
	}

	return p.PublishEvent(*entity.NewEvent(routingKey, body))
}

// PublishEvent sends an already built event, routed by its type.
func (p *Publisher) PublishEvent(event entity.Event) error {
	eventJson, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Type:         event.Type,
			Body:         eventJson,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		p.logger.Error("error publishing event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return err
	}

	p.logger.Debug("successfully published event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	return nil
}
