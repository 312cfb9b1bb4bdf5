package events

import (
	"context"
	"encoding/json"

	"expobook/pkg/logger"
	"expobook/pkg/middleware"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const ExchangeKind = "topic"

// AMQPChannel is the subset of *amqp.Channel the publisher needs.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher routes booking events to a topic exchange using the event
// type as routing key, so consumers can bind to "booking.*".
type AMQPPublisher struct {
	channel  AMQPChannel
	exchange string
	source   string
	log      *logger.Logger
}

func NewAMQPPublisher(channel AMQPChannel, exchange, source string, log *logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		channel:  channel,
		exchange: exchange,
		source:   source,
		log:      log,
	}
}

func (p *AMQPPublisher) PublishBooking(ctx context.Context, event BookingEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to encode booking event", "type", event.Type, "booking_id", event.BookingID, "error", err)
		return
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: middleware.RequestIDFromContext(ctx),
		Timestamp:     event.OccurredAt,
		Type:          string(event.Type),
		AppId:         p.source,
		Headers: amqp.Table{
			"schema_version": SchemaVersion,
			"exhibition_id":  event.ExhibitionID,
		},
		Body: body,
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"type", event.Type,
			"booking_id", event.BookingID,
			"exhibition_id", event.ExhibitionID,
			"exchange", p.exchange,
			"error", err,
		)
	}
}
