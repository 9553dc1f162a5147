package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Perlovich/phone-sharing-service/internal/phone"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published  []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeSequences struct {
	next map[uuid.UUID]int64
	err  error
}

func (s *fakeSequences) Next(ctx context.Context, phoneID uuid.UUID) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next[phoneID]++
	return s.next[phoneID], nil
}

var (
	testPhoneID = uuid.MustParse("2524f734-e876-11ed-a05b-0242ac120003")
	testNow     = time.Date(2023, 5, 2, 10, 40, 0, 0, time.UTC)
)

func bookedPhone() phone.Phone {
	name := "John Doe"
	at := testNow
	return phone.Phone{ID: testPhoneID, Name: "Apple iPhone 11", BookerName: &name, BookingTime: &at, Version: 2}
}

func newTestPublisher(ch channel, seq SequenceSource) *Publisher {
	p := newPublisher(ch, PublisherOptions{Sequences: seq})
	p.now = func() time.Time { return testNow }
	return p
}

func TestPublishPhoneBooked(t *testing.T) {
	ch := &fakeChannel{}
	seq := &fakeSequences{next: map[uuid.UUID]int64{}}
	p := newTestPublisher(ch, seq)

	if err := p.PublishPhoneBooked(context.Background(), bookedPhone()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(ch.published))
	}

	msg := ch.published[0]
	if msg.exchange != EventsExchange || msg.key != PhoneBookedRoutingKey {
		t.Fatalf("published to %s/%s", msg.exchange, msg.key)
	}
	if msg.msg.ContentType != "application/json" || msg.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing properties: %+v", msg.msg)
	}

	var ev PhoneBookedEvent
	if err := json.Unmarshal(msg.msg.Body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := ev.Validate(EventTypePhoneBooked, 1); err != nil {
		t.Fatalf("envelope invalid: %v", err)
	}
	if ev.PartitionKey != testPhoneID.String() || ev.Producer != defaultProducer || ev.Schema != phoneBookedSchema {
		t.Fatalf("unexpected envelope: %+v", ev)
	}
	if ev.Sequence == nil || *ev.Sequence != 1 {
		t.Fatalf("sequence = %v, want 1", ev.Sequence)
	}
	if ev.Payload.BookerName != "John Doe" || !ev.Payload.BookingTime.Equal(testNow) || ev.Payload.PhoneName != "Apple iPhone 11" {
		t.Fatalf("unexpected payload: %+v", ev.Payload)
	}
}

func TestPublishPhoneReturned_SequenceAdvancesPerPhone(t *testing.T) {
	ch := &fakeChannel{}
	seq := &fakeSequences{next: map[uuid.UUID]int64{}}
	p := newTestPublisher(ch, seq)
	ctx := context.Background()

	if err := p.PublishPhoneBooked(ctx, bookedPhone()); err != nil {
		t.Fatalf("publish booked: %v", err)
	}
	if err := p.PublishPhoneReturned(ctx, phone.Phone{ID: testPhoneID, Name: "Apple iPhone 11", Version: 3}); err != nil {
		t.Fatalf("publish returned: %v", err)
	}

	var ev PhoneReturnedEvent
	if err := json.Unmarshal(ch.published[1].msg.Body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ch.published[1].key != PhoneReturnedRoutingKey {
		t.Fatalf("routing key = %s", ch.published[1].key)
	}
	if err := ev.Validate(EventTypePhoneReturned, 1); err != nil {
		t.Fatalf("envelope invalid: %v", err)
	}
	if ev.Sequence == nil || *ev.Sequence != 2 {
		t.Fatalf("sequence = %v, want 2", ev.Sequence)
	}
	if !ev.Payload.ReturnedAt.Equal(testNow) {
		t.Fatalf("returnedAt = %v", ev.Payload.ReturnedAt)
	}
}

func TestPublish_WithoutSequences(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch, nil)

	if err := p.PublishPhoneBooked(context.Background(), bookedPhone()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var ev PhoneBookedEvent
	if err := json.Unmarshal(ch.published[0].msg.Body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Sequence != nil {
		t.Fatalf("expected no sequence, got %d", *ev.Sequence)
	}
}

func TestPublish_Errors(t *testing.T) {
	t.Run("sequence failure publishes nothing", func(t *testing.T) {
		ch := &fakeChannel{}
		p := newTestPublisher(ch, &fakeSequences{err: errors.New("db down")})

		if err := p.PublishPhoneBooked(context.Background(), bookedPhone()); err == nil {
			t.Fatalf("expected error")
		}
		if len(ch.published) != 0 {
			t.Fatalf("published despite sequence failure")
		}
	})

	t.Run("broker failure surfaces", func(t *testing.T) {
		ch := &fakeChannel{publishErr: amqp.ErrClosed}
		p := newTestPublisher(ch, nil)

		if err := p.PublishPhoneReturned(context.Background(), bookedPhone()); !errors.Is(err, amqp.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})
}

func TestEnvelopeValidate(t *testing.T) {
	ev := newPhoneBookedEvent(bookedPhone(), nil, "test", testNow)

	if err := ev.Validate(EventTypePhoneBooked, 1); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}
	if err := ev.Validate(EventTypePhoneReturned, 1); err == nil {
		t.Fatalf("expected error for wrong eventName")
	}
	if err := ev.Validate(EventTypePhoneBooked, 2); err == nil {
		t.Fatalf("expected error for wrong eventVersion")
	}
	ev.PartitionKey = ""
	if err := ev.Validate(EventTypePhoneBooked, 1); err == nil {
		t.Fatalf("expected error for missing partitionKey")
	}
}

func TestPublisherClose(t *testing.T) {
	ch := &fakeChannel{}
	if err := newTestPublisher(ch, nil).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ch.closed {
		t.Fatalf("channel not closed")
	}
}
