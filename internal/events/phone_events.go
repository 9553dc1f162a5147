package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Perlovich/phone-sharing-service/internal/phone"
)

const (
	EventTypePhoneBooked   = "PhoneBooked"
	EventTypePhoneReturned = "PhoneReturned"

	phoneEventVersion   = 1
	phoneBookedSchema   = "contracts/events/phone/PhoneBooked.v1.payload.schema.json"
	phoneReturnedSchema = "contracts/events/phone/PhoneReturned.v1.payload.schema.json"
)

type PhoneBookedPayload struct {
	PhoneID     string    `json:"phoneId"`
	PhoneName   string    `json:"phoneName"`
	BookerName  string    `json:"bookerName"`
	BookingTime time.Time `json:"bookingTime"`
}

type PhoneReturnedPayload struct {
	PhoneID    string    `json:"phoneId"`
	PhoneName  string    `json:"phoneName"`
	ReturnedAt time.Time `json:"returnedAt"`
}

type (
	PhoneBookedEvent   = EventEnvelope[PhoneBookedPayload]
	PhoneReturnedEvent = EventEnvelope[PhoneReturnedPayload]
)

// newPhoneBookedEvent expects a booked phone.
func newPhoneBookedEvent(p phone.Phone, seq *int64, producer string, occurredAt time.Time) PhoneBookedEvent {
	payload := PhoneBookedPayload{
		PhoneID:   p.ID.String(),
		PhoneName: p.Name,
	}
	if p.BookerName != nil {
		payload.BookerName = *p.BookerName
	}
	if p.BookingTime != nil {
		payload.BookingTime = p.BookingTime.UTC()
	}

	return PhoneBookedEvent{
		EventName:    EventTypePhoneBooked,
		EventVersion: phoneEventVersion,
		EventID:      uuid.NewString(),
		Producer:     producer,
		PartitionKey: p.ID.String(),
		Sequence:     seq,
		OccurredAt:   occurredAt,
		Schema:       phoneBookedSchema,
		Payload:      payload,
	}
}

func newPhoneReturnedEvent(p phone.Phone, seq *int64, producer string, occurredAt time.Time) PhoneReturnedEvent {
	return PhoneReturnedEvent{
		EventName:    EventTypePhoneReturned,
		EventVersion: phoneEventVersion,
		EventID:      uuid.NewString(),
		Producer:     producer,
		PartitionKey: p.ID.String(),
		Sequence:     seq,
		OccurredAt:   occurredAt,
		Schema:       phoneReturnedSchema,
		Payload: PhoneReturnedPayload{
			PhoneID:    p.ID.String(),
			PhoneName:  p.Name,
			ReturnedAt: occurredAt,
		},
	}
}
