package service

import (
	"context"
	"errors"
	"fmt"

	"expobook/internal/access"
	bookingserrors "expobook/internal/bookings/errors"
	"expobook/internal/bookings/repository"
	"expobook/internal/bookings/validator"
	"expobook/internal/events"
	exhibitionserrors "expobook/internal/exhibitions/errors"
	"expobook/internal/quota"
	"expobook/pkg/clock"
	"expobook/pkg/config"
	apperrors "expobook/pkg/errors"
	"expobook/pkg/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "expobook/internal/bookings/service"

type BookingService interface {
	List(ctx context.Context, principal model.Principal) ([]*model.BookingDetails, error)
	GetByID(ctx context.Context, principal model.Principal, id string) (*model.BookingDetails, error)
	Create(ctx context.Context, principal model.Principal, exhibitionID string, req *model.BookingRequest) (*model.BookingDetails, error)
	Update(ctx context.Context, principal model.Principal, id string, updates *model.BookingUpdate) (*model.BookingDetails, error)
	Delete(ctx context.Context, principal model.Principal, id string) error
}

// ExhibitionLookup resolves the exhibitions bookings point at.
type ExhibitionLookup interface {
	FindByID(ctx context.Context, id string) (*model.Exhibition, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Exhibition, error)
}

// UserDirectory resolves booking owners for enrichment.
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	exhibitions ExhibitionLookup
	users       UserDirectory
	ledger      *quota.Ledger
	validator   *validator.BookingValidator
	publisher   events.Publisher
	clock       clock.Clock
	tracer      trace.Tracer
	cfg         *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	exhibitions ExhibitionLookup,
	users UserDirectory,
	ledger *quota.Ledger,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &bookingService{
		repo:        repo,
		exhibitions: exhibitions,
		users:       users,
		ledger:      ledger,
		validator:   validator,
		publisher:   publisher,
		clock:       clk,
		tracer:      otel.Tracer(tracerName),
		cfg:         cfg,
	}
}

func (s *bookingService) List(ctx context.Context, principal model.Principal) ([]*model.BookingDetails, error) {
	if principal.ID == "" {
		return nil, apperrors.Forbidden("You are not allowed to list bookings")
	}

	bookings, err := s.repo.Find(ctx, model.BookingFilter{UserID: access.BookingOwnerScope(principal)})
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "principal", principal.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	details, err := s.enrich(ctx, bookings)
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (s *bookingService) GetByID(ctx context.Context, principal model.Principal, id string) (*model.BookingDetails, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "Failed to retrieve booking")
	}
	if err := access.AuthorizeBooking(principal, booking, access.ActionRead); err != nil {
		return nil, err
	}

	return s.enrichOne(ctx, booking)
}

func (s *bookingService) Create(ctx context.Context, principal model.Principal, exhibitionID string, req *model.BookingRequest) (*model.BookingDetails, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Create", trace.WithAttributes(
		attribute.String("exhibition.id", exhibitionID),
		attribute.String("principal.id", principal.ID),
	))
	defer span.End()

	if err := access.AuthorizeBookingCreate(principal); err != nil {
		return nil, recordSpanError(span, err)
	}
	if exhibitionID == "" {
		return nil, recordSpanError(span, apperrors.InvalidInput("Exhibition ID cannot be empty"))
	}
	if req == nil {
		return nil, recordSpanError(span, apperrors.InvalidInput("Booking request cannot be empty"))
	}

	booking := &model.Booking{
		UserID:       principal.ID,
		ExhibitionID: exhibitionID,
		BoothType:    req.BoothType,
		Amount:       req.Amount,
	}

	var exhibition *model.Exhibition
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		var err error
		exhibition, err = s.exhibitions.FindByID(ctx, exhibitionID)
		if err != nil {
			return s.mapExhibitionError(err, exhibitionID)
		}

		if !req.BoothType.Valid() {
			return invalidBoothType(req.BoothType)
		}
		if err := s.validator.ValidateRequest(req); err != nil {
			return apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()})
		}
		if clock.BeforeToday(s.clock, s.cfg.Location, exhibition.StartDate.Time) {
			return apperrors.BadRequest("Cannot book an exhibition whose start date has passed")
		}
		if req.Amount > s.ledger.Available(exhibition, req.BoothType) {
			return insufficientQuota(req.BoothType, s.ledger.Available(exhibition, req.BoothType))
		}
		if err := s.checkCap(ctx, principal.ID, exhibitionID, req.Amount, ""); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, booking); err != nil {
			return s.mapError(err, "", "Failed to create booking")
		}
		if err := s.ledger.Reserve(ctx, exhibition, req.BoothType, req.Amount); err != nil {
			return s.mapQuotaError(err, req.BoothType, exhibitionID)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to create booking",
			"exhibition_id", exhibitionID,
			"principal", principal.ID,
			"booth_type", req.BoothType,
			"amount", req.Amount,
			"error", err,
		)
		return nil, recordSpanError(span, err)
	}

	span.SetAttributes(attribute.String("booking.id", booking.ID))
	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"exhibition_id", exhibitionID,
		"user_id", booking.UserID,
		"booth_type", booking.BoothType,
		"amount", booking.Amount,
		"remaining_quota", exhibition.Quota(booking.BoothType),
	)

	s.publisher.PublishBooking(ctx, events.NewBookingEvent(events.BookingCreated, booking, principal, s.clock.Now()))

	return s.detailsWith(ctx, booking, exhibition)
}

// Update releases the old reservation and takes the new one in the same
// transaction, so a change that does not fit leaves both quotas untouched.
func (s *bookingService) Update(ctx context.Context, principal model.Principal, id string, updates *model.BookingUpdate) (*model.BookingDetails, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Update", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("principal.id", principal.ID),
	))
	defer span.End()

	if id == "" {
		return nil, recordSpanError(span, apperrors.InvalidInput("Booking ID cannot be empty"))
	}
	if updates == nil {
		updates = &model.BookingUpdate{}
	}

	var (
		booking    *model.Booking
		exhibition *model.Exhibition
		previous   model.Booking
	)
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return s.mapError(err, id, "Failed to check booking existence")
		}
		if err := access.AuthorizeBooking(principal, booking, access.ActionUpdate); err != nil {
			return err
		}
		previous = *booking

		newType := booking.BoothType
		if updates.BoothType != nil {
			newType = *updates.BoothType
		}
		newAmount := booking.Amount
		if updates.Amount != nil {
			newAmount = *updates.Amount
		}

		if !newType.Valid() {
			return invalidBoothType(newType)
		}
		if err := s.validator.ValidateUpdate(updates); err != nil {
			return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
		}

		exhibition, err = s.exhibitions.FindByID(ctx, booking.ExhibitionID)
		if err != nil {
			return s.mapExhibitionError(err, booking.ExhibitionID)
		}

		available := s.ledger.Available(exhibition, newType)
		if newType == previous.BoothType {
			available += previous.Amount
		}
		if newAmount > available {
			return insufficientQuota(newType, available)
		}
		if err := s.checkCap(ctx, booking.UserID, booking.ExhibitionID, newAmount, booking.ID); err != nil {
			return err
		}

		if err := s.ledger.Release(ctx, exhibition, previous.BoothType, previous.Amount); err != nil {
			return s.mapQuotaError(err, previous.BoothType, booking.ExhibitionID)
		}
		if err := s.ledger.Reserve(ctx, exhibition, newType, newAmount); err != nil {
			return s.mapQuotaError(err, newType, booking.ExhibitionID)
		}

		booking.BoothType = newType
		booking.Amount = newAmount
		if err := s.repo.Update(ctx, booking); err != nil {
			return s.mapError(err, id, "Failed to update booking")
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to update booking", "id", id, "principal", principal.ID, "error", err)
		return nil, recordSpanError(span, err)
	}

	s.cfg.Log.Info("Booking updated successfully",
		"id", id,
		"previous_booth_type", previous.BoothType,
		"previous_amount", previous.Amount,
		"booth_type", booking.BoothType,
		"amount", booking.Amount,
	)

	event := events.NewBookingEvent(events.BookingUpdated, booking, principal, s.clock.Now())
	event.PreviousBoothType = previous.BoothType
	event.PreviousAmount = previous.Amount
	s.publisher.PublishBooking(ctx, event)

	return s.detailsWith(ctx, booking, exhibition)
}

// Delete gives the booking's booths back before removing it. A booking whose
// exhibition is gone is removed without a restore.
func (s *bookingService) Delete(ctx context.Context, principal model.Principal, id string) error {
	ctx, span := s.tracer.Start(ctx, "BookingService.Delete", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("principal.id", principal.ID),
	))
	defer span.End()

	if id == "" {
		return recordSpanError(span, apperrors.InvalidInput("Booking ID cannot be empty"))
	}

	var (
		booking  *model.Booking
		restored bool
	)
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return s.mapError(err, id, "Failed to check booking existence")
		}
		if err := access.AuthorizeBooking(principal, booking, access.ActionDelete); err != nil {
			return err
		}

		exhibition, err := s.exhibitions.FindByID(ctx, booking.ExhibitionID)
		switch {
		case errors.Is(err, exhibitionserrors.ErrNotFound):
		case err != nil:
			return s.mapExhibitionError(err, booking.ExhibitionID)
		default:
			if err := s.ledger.Release(ctx, exhibition, booking.BoothType, booking.Amount); err != nil {
				return s.mapQuotaError(err, booking.BoothType, booking.ExhibitionID)
			}
			restored = true
		}

		if err := s.repo.Delete(ctx, id); err != nil {
			return s.mapError(err, id, "Failed to delete booking")
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to delete booking", "id", id, "principal", principal.ID, "error", err)
		return recordSpanError(span, err)
	}

	s.cfg.Log.Info("Booking deleted successfully",
		"id", id,
		"exhibition_id", booking.ExhibitionID,
		"quota_restored", restored,
	)

	s.publisher.PublishBooking(ctx, events.NewBookingEvent(events.BookingDeleted, booking, principal, s.clock.Now()))
	return nil
}

func (s *bookingService) checkCap(ctx context.Context, userID, exhibitionID string, candidate int, excludeID string) error {
	ok, err := s.ledger.CapCheck(ctx, userID, exhibitionID, candidate, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check booth cap", err)
	}
	if !ok {
		return capExceeded()
	}
	return nil
}

func (s *bookingService) enrichOne(ctx context.Context, booking *model.Booking) (*model.BookingDetails, error) {
	details, err := s.enrich(ctx, []*model.Booking{booking})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// detailsWith enriches booking using an exhibition already loaded in the
// transaction.
func (s *bookingService) detailsWith(ctx context.Context, booking *model.Booking, exhibition *model.Exhibition) (*model.BookingDetails, error) {
	users, err := s.users.FindByIDs(ctx, []string{booking.UserID})
	if err != nil {
		return nil, apperrors.Internal("Failed to load booking owner", err)
	}
	return newDetails(booking, exhibition, users[booking.UserID]), nil
}

func (s *bookingService) enrich(ctx context.Context, bookings []*model.Booking) ([]*model.BookingDetails, error) {
	exhibitionIDs := make([]string, 0, len(bookings))
	userIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		exhibitionIDs = append(exhibitionIDs, b.ExhibitionID)
		userIDs = append(userIDs, b.UserID)
	}

	exhibitions, err := s.exhibitions.FindByIDs(ctx, exhibitionIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to load booking exhibitions", err)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to load booking owners", err)
	}

	details := make([]*model.BookingDetails, 0, len(bookings))
	for _, b := range bookings {
		details = append(details, newDetails(b, exhibitions[b.ExhibitionID], users[b.UserID]))
	}
	return details, nil
}

func newDetails(booking *model.Booking, exhibition *model.Exhibition, owner *model.User) *model.BookingDetails {
	details := &model.BookingDetails{
		Booking:    *booking,
		Exhibition: exhibition,
	}
	if owner != nil {
		details.User = owner.Profile()
	}
	return details
}

func (s *bookingService) mapError(err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrCapExceeded):
		return capExceeded()
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func (s *bookingService) mapExhibitionError(err error, id string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, exhibitionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Exhibition", id)
	case errors.Is(err, exhibitionserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid exhibition ID format")
	}
	s.cfg.Log.Error("Failed to load exhibition", "id", id, "error", err)
	return apperrors.Internal("Failed to load exhibition", err)
}

func (s *bookingService) mapQuotaError(err error, boothType model.BoothType, exhibitionID string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, exhibitionserrors.ErrInsufficientQuota):
		return insufficientQuota(boothType, -1)
	case errors.Is(err, exhibitionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Exhibition", exhibitionID)
	}
	s.cfg.Log.Error("Failed to adjust booth quota", "exhibition_id", exhibitionID, "booth_type", boothType, "error", err)
	return apperrors.Internal("Failed to adjust booth quota", err)
}

func invalidBoothType(bt model.BoothType) error {
	return apperrors.BadRequest(fmt.Sprintf("Invalid booth type %q: must be small or big", string(bt)))
}

// insufficientQuota names the booth type; available < 0 omits the count.
func insufficientQuota(bt model.BoothType, available int) error {
	if available < 0 {
		return apperrors.BadRequest(fmt.Sprintf("Not enough %s booths available", bt))
	}
	return apperrors.BadRequest(fmt.Sprintf("Not enough %s booths available: %d left", bt, available)).
		WithDetails(map[string]any{"boothType": string(bt), "available": available})
}

func capExceeded() error {
	return apperrors.BadRequest(fmt.Sprintf("A user may book at most %d booths per exhibition", model.MaxBoothsPerUser)).
		WithDetails(map[string]any{"cap": model.MaxBoothsPerUser})
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
