package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Perlovich/phone-sharing-service/internal/phone"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SequenceSource hands out per-phone event numbers.
type SequenceSource interface {
	Next(ctx context.Context, phoneID uuid.UUID) (int64, error)
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch       channel
	seq      SequenceSource
	producer string
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
	// Sequences is optional; without it events carry no sequence.
	Sequences SequenceSource
}

func NewPublisher(conn *amqp.Connection, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, opts), nil
}

func newPublisher(ch channel, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	return &Publisher{
		ch:       ch,
		seq:      opts.Sequences,
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishPhoneBooked(ctx context.Context, ph phone.Phone) error {
	seq, err := p.nextSequence(ctx, ph)
	if err != nil {
		return err
	}

	body, err := json.Marshal(newPhoneBookedEvent(ph, seq, p.producer, p.now()))
	if err != nil {
		return fmt.Errorf("marshal PhoneBooked envelope: %w", err)
	}
	return p.publishJSON(ctx, PhoneBookedRoutingKey, body)
}

func (p *Publisher) PublishPhoneReturned(ctx context.Context, ph phone.Phone) error {
	seq, err := p.nextSequence(ctx, ph)
	if err != nil {
		return err
	}

	body, err := json.Marshal(newPhoneReturnedEvent(ph, seq, p.producer, p.now()))
	if err != nil {
		return fmt.Errorf("marshal PhoneReturned envelope: %w", err)
	}
	return p.publishJSON(ctx, PhoneReturnedRoutingKey, body)
}

func (p *Publisher) nextSequence(ctx context.Context, ph phone.Phone) (*int64, error) {
	if p.seq == nil {
		return nil, nil
	}
	seq, err := p.seq.Next(ctx, ph.ID)
	if err != nil {
		return nil, fmt.Errorf("reserve sequence: %w", err)
	}
	return &seq, nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
