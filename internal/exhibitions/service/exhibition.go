package service

import (
	"context"
	"errors"

	"expobook/internal/access"
	exhibitionserrors "expobook/internal/exhibitions/errors"
	"expobook/internal/exhibitions/repository"
	"expobook/internal/exhibitions/validator"
	"expobook/internal/quota"
	"expobook/pkg/clock"
	"expobook/pkg/config"
	apperrors "expobook/pkg/errors"
	"expobook/pkg/model"
	"expobook/pkg/sanitizer"
)

type ExhibitionService interface {
	List(ctx context.Context) ([]*model.Exhibition, error)
	GetByID(ctx context.Context, id string) (*model.Exhibition, error)
	Availability(ctx context.Context, id string) (*model.Availability, error)
	Create(ctx context.Context, principal model.Principal, exhibition *model.Exhibition) error
	Update(ctx context.Context, principal model.Principal, id string, updates *model.ExhibitionUpdate) (*model.Exhibition, error)
	Delete(ctx context.Context, principal model.Principal, id string) error
}

// BookingCounter counts bookings referencing an exhibition.
type BookingCounter interface {
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
}

type exhibitionService struct {
	repo      repository.ExhibitionRepository
	bookings  BookingCounter
	ledger    *quota.Ledger
	validator *validator.ExhibitionValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewExhibitionService(
	repo repository.ExhibitionRepository,
	bookings BookingCounter,
	ledger *quota.Ledger,
	validator *validator.ExhibitionValidator,
	clk clock.Clock,
	cfg *config.Config,
) ExhibitionService {
	return &exhibitionService{
		repo:      repo,
		bookings:  bookings,
		ledger:    ledger,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *exhibitionService) List(ctx context.Context) ([]*model.Exhibition, error) {
	exhibitions, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list exhibitions", "error", err)
		return nil, apperrors.Internal("Failed to retrieve exhibitions", err)
	}
	return exhibitions, nil
}

func (s *exhibitionService) GetByID(ctx context.Context, id string) (*model.Exhibition, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Exhibition ID cannot be empty")
	}

	exhibition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "Failed to retrieve exhibition")
	}
	return exhibition, nil
}

// Availability reports the live counters next to the totals summed from the
// bookings themselves.
func (s *exhibitionService) Availability(ctx context.Context, id string) (*model.Availability, error) {
	exhibition, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &model.Availability{
		ExhibitionID:    exhibition.ID,
		SmallBoothQuota: exhibition.SmallBoothQuota,
		BigBoothQuota:   exhibition.BigBoothQuota,
	}
	if report.SmallBooked, err = s.ledger.TotalBoothsForType(ctx, id, model.BoothSmall); err != nil {
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	if report.BigBooked, err = s.ledger.TotalBoothsForType(ctx, id, model.BoothBig); err != nil {
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	return report, nil
}

func (s *exhibitionService) Create(ctx context.Context, principal model.Principal, exhibition *model.Exhibition) error {
	if err := access.AuthorizeExhibition(principal, access.ActionCreate); err != nil {
		return err
	}

	s.sanitize(exhibition)
	if err := s.validator.Validate(exhibition); err != nil {
		s.cfg.Log.Warn("Exhibition validation failed", "error", err)
		return apperrors.Validation("Invalid exhibition input", map[string]any{"error": err.Error()})
	}
	if err := s.validateStartDate(exhibition); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, exhibition); err != nil {
		return s.mapError(err, "", "Failed to create exhibition")
	}

	s.cfg.Log.Info("Exhibition created successfully",
		"id", exhibition.ID,
		"name", exhibition.Name,
		"start_date", exhibition.StartDate.String(),
		"small_booth_quota", exhibition.SmallBoothQuota,
		"big_booth_quota", exhibition.BigBoothQuota,
	)
	return nil
}

func (s *exhibitionService) Update(ctx context.Context, principal model.Principal, id string, updates *model.ExhibitionUpdate) (*model.Exhibition, error) {
	if err := access.AuthorizeExhibition(principal, access.ActionUpdate); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Exhibition ID cannot be empty")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Exhibition update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	var merged *model.Exhibition
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.mapError(err, id, "Failed to check exhibition existence")
		}

		if quotaChanged(existing, updates) {
			if err := s.ensureNoBookings(ctx, id); err != nil {
				return err
			}
		}

		dateChanged := updates.StartDate != nil && !model.DateOf(updates.StartDate.Time).Equal(existing.StartDate.Time)
		merged = mergeExhibitionUpdates(existing, updates)
		merged.StartDate = model.DateOf(merged.StartDate.Time)
		s.sanitize(merged)
		if err := s.validator.Validate(merged); err != nil {
			return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
		}
		if dateChanged {
			if err := s.validateStartDate(merged); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, merged); err != nil {
			return s.mapError(err, id, "Failed to update exhibition")
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to update exhibition", "id", id, "error", err)
		if errors.Is(err, exhibitionserrors.ErrHasBookings) {
			return nil, apperrors.Conflict("Booth quotas cannot be changed while the exhibition has bookings")
		}
		return nil, err
	}

	s.cfg.Log.Info("Exhibition updated successfully", "id", id)
	return merged, nil
}

// Delete refuses while bookings still reference the exhibition, so released
// quota always has somewhere to go.
func (s *exhibitionService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if err := access.AuthorizeExhibition(principal, access.ActionDelete); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Exhibition ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureNoBookings(ctx, id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return s.mapError(err, id, "Failed to delete exhibition")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, exhibitionserrors.ErrHasBookings) {
			return apperrors.Conflict("Exhibition has active bookings and cannot be deleted")
		}
		return err
	}

	s.cfg.Log.Info("Exhibition deleted successfully", "id", id)
	return nil
}

// ensureNoBookings guards changes that would break quota + booked == initial.
func (s *exhibitionService) ensureNoBookings(ctx context.Context, id string) error {
	count, err := s.bookings.Count(ctx, model.BookingFilter{ExhibitionID: id})
	if err != nil {
		return apperrors.Internal("Failed to check exhibition bookings", err)
	}
	if count > 0 {
		return exhibitionserrors.ErrHasBookings
	}
	return nil
}

func (s *exhibitionService) validateStartDate(exhibition *model.Exhibition) error {
	exhibition.StartDate = model.DateOf(exhibition.StartDate.Time)
	if clock.BeforeToday(s.clock, s.cfg.Location, exhibition.StartDate.Time) {
		return apperrors.BadRequest("Start date cannot be earlier than today")
	}
	return nil
}

func (s *exhibitionService) sanitize(exhibition *model.Exhibition) {
	exhibition.Name = sanitizer.NormalizeName(exhibition.Name)
	exhibition.Venue = sanitizer.NormalizeName(exhibition.Venue)
	exhibition.Description = sanitizer.NormalizeText(exhibition.Description)
	exhibition.PosterPicture = sanitizer.NormalizeURL(exhibition.PosterPicture)
}

func (s *exhibitionService) mapError(err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, exhibitionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Exhibition", id)
	case errors.Is(err, exhibitionserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid exhibition ID format")
	case errors.Is(err, exhibitionserrors.ErrDuplicateName):
		return apperrors.Conflict("An exhibition with this name already exists")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func quotaChanged(existing *model.Exhibition, updates *model.ExhibitionUpdate) bool {
	return (updates.SmallBoothQuota != nil && *updates.SmallBoothQuota != existing.SmallBoothQuota) ||
		(updates.BigBoothQuota != nil && *updates.BigBoothQuota != existing.BigBoothQuota)
}

func mergeExhibitionUpdates(existing *model.Exhibition, updates *model.ExhibitionUpdate) *model.Exhibition {
	merged := *existing

	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Venue != nil {
		merged.Venue = *updates.Venue
	}
	if updates.StartDate != nil {
		merged.StartDate = *updates.StartDate
	}
	if updates.DurationDay != nil {
		merged.DurationDay = *updates.DurationDay
	}
	if updates.SmallBoothQuota != nil {
		merged.SmallBoothQuota = *updates.SmallBoothQuota
	}
	if updates.BigBoothQuota != nil {
		merged.BigBoothQuota = *updates.BigBoothQuota
	}
	if updates.PosterPicture != nil {
		merged.PosterPicture = *updates.PosterPicture
	}

	return &merged
}
