package phone

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Perlovich/phone-sharing-service/internal/logger"
)

var (
	ErrInvalidBooker          = errors.New("invalid booker name")
	ErrAlreadyBooked          = errors.New("phone already booked")
	ErrConcurrentModification = errors.New("phone modified concurrently")
)

var validate = validator.New()

// Service is the booking ledger. It takes no in-process lock: concurrent
// writers are arbitrated by the repository's version check, and a lost race
// is reported as ErrConcurrentModification without retrying.
type Service struct {
	repo  Repository
	clock Clock
	log   logger.Logger
}

func NewService(repo Repository, clock Clock, log logger.Logger) *Service {
	return &Service{
		repo:  repo,
		clock: clock,
		log:   log.With("component", "ledger"),
	}
}

func (s *Service) ListPhones(ctx context.Context) ([]Phone, error) {
	phones, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}
	SortPhones(phones)
	return phones, nil
}

// BookPhone books the phone under the trimmed bookerName. Booking a phone the
// same name already holds is a no-op.
func (s *Service) BookPhone(ctx context.Context, id uuid.UUID, bookerName string) (Result, error) {
	name, err := validateBookerName(bookerName)
	if err != nil {
		return Result{}, err
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return Result{}, err
	}

	switch {
	case p.BookerName == nil:
		s.log.Debug("booking phone", "phone_id", id, "booker", name)
		now := s.clock.Now()
		p.BookerName = &name
		p.BookingTime = &now
		saved, err := s.save(ctx, p)
		if err != nil {
			return Result{}, err
		}
		return Result{Phone: saved, Changed: true}, nil
	case *p.BookerName == name:
		s.log.Debug("phone already booked by the same booker", "phone_id", id, "booker", name)
		return Result{Phone: p}, nil
	default:
		return Result{}, fmt.Errorf("the phone is already booked by %s: %w", *p.BookerName, ErrAlreadyBooked)
	}
}

// ReturnPhone clears the booking. Anyone may return any phone; returning an
// unbooked phone is a no-op.
func (s *Service) ReturnPhone(ctx context.Context, id uuid.UUID) (Result, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return Result{}, err
	}

	if p.BookerName == nil {
		s.log.Debug("phone already returned", "phone_id", id)
		return Result{Phone: p}, nil
	}

	s.log.Debug("returning phone", "phone_id", id, "booker", *p.BookerName)
	p.BookerName = nil
	p.BookingTime = nil
	saved, err := s.save(ctx, p)
	if err != nil {
		return Result{}, err
	}
	return Result{Phone: saved, Changed: true}, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (Phone, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Phone{}, fmt.Errorf("no phone found for id %s: %w", id, ErrNotFound)
		}
		return Phone{}, fmt.Errorf("find phone %s: %w", id, err)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p Phone) (Phone, error) {
	saved, err := s.repo.Save(ctx, p)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			s.log.Warn("lost optimistic concurrency race", "phone_id", p.ID, "version", p.Version)
			return Phone{}, fmt.Errorf("the phone was modified by someone else at the same time: %w", ErrConcurrentModification)
		}
		return Phone{}, fmt.Errorf("save phone %s: %w", p.ID, err)
	}
	return saved, nil
}

func validateBookerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if err := validate.Var(name, fmt.Sprintf("required,max=%d", MaxBookerNameLength)); err != nil {
		return "", fmt.Errorf("bookerName must be 1 to %d characters: %w", MaxBookerNameLength, ErrInvalidBooker)
	}
	return name, nil
}
