package sharing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Perlovich/phone-sharing-service/internal/logger"
	"github.com/Perlovich/phone-sharing-service/internal/metadata"
	"github.com/Perlovich/phone-sharing-service/internal/metrics"
	"github.com/Perlovich/phone-sharing-service/internal/phone"
)

const (
	operationBook   = "book"
	operationReturn = "return"
)

// PhoneView is a phone as listed to users: ledger state plus metadata.
type PhoneView struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Available   bool       `json:"available"`
	BookerName  *string    `json:"bookerName"`
	BookingTime *time.Time `json:"bookingTime"`
	Technology  string     `json:"technology"`
	Band2G      string     `json:"_2g"`
	Band3G      string     `json:"_3g"`
	Band4G      string     `json:"_4g"`
}

type Ledger interface {
	ListPhones(ctx context.Context) ([]phone.Phone, error)
	BookPhone(ctx context.Context, id uuid.UUID, bookerName string) (phone.Result, error)
	ReturnPhone(ctx context.Context, id uuid.UUID) (phone.Result, error)
}

type MetadataResolver interface {
	Get(ctx context.Context, name string) metadata.Metadata
}

type EventPublisher interface {
	PublishPhoneBooked(ctx context.Context, p phone.Phone) error
	PublishPhoneReturned(ctx context.Context, p phone.Phone) error
}

type Service struct {
	ledger   Ledger
	metadata MetadataResolver
	events   EventPublisher
	metrics  *metrics.Metrics
	log      logger.Logger
}

type Options struct {
	// Events is optional.
	Events  EventPublisher
	Metrics *metrics.Metrics
	Logger  logger.Logger
}

func NewService(ledger Ledger, md MetadataResolver, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		ledger:   ledger,
		metadata: md,
		events:   opts.Events,
		metrics:  opts.Metrics,
		log:      log.With("component", "sharing"),
	}
}

// ListPhones returns every phone in ledger order, each joined with its
// metadata. Lookups run concurrently and the call waits for all of them.
func (s *Service) ListPhones(ctx context.Context) ([]PhoneView, error) {
	phones, err := s.ledger.ListPhones(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]PhoneView, len(phones))
	// Get never fails; a failed lookup already yields the default metadata.
	var g errgroup.Group
	for i, p := range phones {
		i, p := i, p
		g.Go(func() error {
			views[i] = newPhoneView(p, s.metadata.Get(ctx, p.Name))
			return nil
		})
	}
	g.Wait()

	return views, nil
}

func (s *Service) BookPhone(ctx context.Context, id uuid.UUID, bookerName string) error {
	res, err := s.ledger.BookPhone(ctx, id, bookerName)
	if err != nil {
		s.metrics.LedgerOperation(operationBook, failureOutcome(err))
		return err
	}
	if !res.Changed {
		s.metrics.LedgerOperation(operationBook, metrics.OutcomeNoop)
		return nil
	}

	s.metrics.LedgerOperation(operationBook, metrics.OutcomeBooked)
	s.log.Info("phone booked", "phone_id", id, "booker", *res.Phone.BookerName)
	if s.events != nil {
		if err := s.events.PublishPhoneBooked(context.WithoutCancel(ctx), res.Phone); err != nil {
			s.log.Error("publish PhoneBooked failed", "phone_id", id, "error", err)
		}
	}
	return nil
}

func (s *Service) ReturnPhone(ctx context.Context, id uuid.UUID) error {
	res, err := s.ledger.ReturnPhone(ctx, id)
	if err != nil {
		s.metrics.LedgerOperation(operationReturn, failureOutcome(err))
		return err
	}
	if !res.Changed {
		s.metrics.LedgerOperation(operationReturn, metrics.OutcomeNoop)
		return nil
	}

	s.metrics.LedgerOperation(operationReturn, metrics.OutcomeReturned)
	s.log.Info("phone returned", "phone_id", id)
	if s.events != nil {
		if err := s.events.PublishPhoneReturned(context.WithoutCancel(ctx), res.Phone); err != nil {
			s.log.Error("publish PhoneReturned failed", "phone_id", id, "error", err)
		}
	}
	return nil
}

func newPhoneView(p phone.Phone, md metadata.Metadata) PhoneView {
	return PhoneView{
		ID:          p.ID,
		Name:        p.Name,
		Available:   p.Available(),
		BookerName:  p.BookerName,
		BookingTime: p.BookingTime,
		Technology:  md.Technology,
		Band2G:      md.Band2G,
		Band3G:      md.Band3G,
		Band4G:      md.Band4G,
	}
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, phone.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, phone.ErrInvalidBooker):
		return metrics.OutcomeInvalidBooker
	case errors.Is(err, phone.ErrAlreadyBooked):
		return metrics.OutcomeAlreadyBooked
	case errors.Is(err, phone.ErrConcurrentModification):
		return metrics.OutcomeConcurrentWrite
	default:
		return metrics.OutcomeError
	}
}
