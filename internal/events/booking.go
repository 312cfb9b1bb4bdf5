// Package events announces committed booking changes.
package events

import (
	"context"
	"time"

	"expobook/pkg/kafka"
	"expobook/pkg/logger"
	"expobook/pkg/middleware"
	"expobook/pkg/model"
)

type Type string

const (
	BookingCreated Type = "booking.created"
	BookingUpdated Type = "booking.updated"
	BookingDeleted Type = "booking.deleted"

	SchemaVersion = "1"
)

type BookingEvent struct {
	Type              Type            `json:"type"`
	BookingID         string          `json:"bookingId"`
	UserID            string          `json:"userId"`
	ExhibitionID      string          `json:"exhibitionId"`
	BoothType         model.BoothType `json:"boothType"`
	Amount            int             `json:"amount"`
	PreviousBoothType model.BoothType `json:"previousBoothType,omitempty"`
	PreviousAmount    int             `json:"previousAmount,omitempty"`
	ActorID           string          `json:"actorId"`
	OccurredAt        time.Time       `json:"occurredAt"`
}

func NewBookingEvent(t Type, booking *model.Booking, actor model.Principal, at time.Time) BookingEvent {
	return BookingEvent{
		Type:         t,
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		ExhibitionID: booking.ExhibitionID,
		BoothType:    booking.BoothType,
		Amount:       booking.Amount,
		ActorID:      actor.ID,
		OccurredAt:   at.UTC(),
	}
}

// Publisher delivers booking events. Publishing happens after commit and is
// best effort: failures are logged by the implementation, never returned.
type Publisher interface {
	PublishBooking(ctx context.Context, event BookingEvent)
}

type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer MessagePublisher
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer MessagePublisher, source string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

// PublishBooking keys messages by exhibition so events for one exhibition
// stay ordered within a partition.
func (p *KafkaPublisher) PublishBooking(ctx context.Context, event BookingEvent) {
	builder := kafka.NewMessage().
		WithKey(event.ExhibitionID).
		WithValue(event).
		WithEventType(string(event.Type)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithTimestamp(event.OccurredAt)
	builder = builder.WithCorrelationID(middleware.RequestIDFromContext(ctx))

	msg, err := builder.Build()
	if err != nil {
		p.log.Error("Failed to build booking event", "type", event.Type, "booking_id", event.BookingID, "error", err)
		return
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"type", event.Type,
			"booking_id", event.BookingID,
			"exhibition_id", event.ExhibitionID,
			"error", err,
		)
	}
}

type NoopPublisher struct{}

func (NoopPublisher) PublishBooking(context.Context, BookingEvent) {}
