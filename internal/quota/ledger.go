// Package quota keeps exhibition booth inventory and booking totals in step.
//
// The exhibition's quota counters are the single source of truth for
// availability. Reserve and Release must run inside the same transaction as
// the booking write they account for.
package quota

import (
	"context"
	"fmt"

	exhibitionserrors "expobook/internal/exhibitions/errors"
	"expobook/pkg/model"
)

// BookingTotals sums booking amounts matching a filter.
type BookingTotals interface {
	SumAmount(ctx context.Context, filter model.BookingFilter) (int, error)
}

// Inventory applies a delta to an exhibition's remaining quota, refusing to
// drive it below zero.
type Inventory interface {
	AdjustQuota(ctx context.Context, exhibitionID string, boothType model.BoothType, delta int) error
}

type Ledger struct {
	bookings  BookingTotals
	inventory Inventory
}

func NewLedger(bookings BookingTotals, inventory Inventory) *Ledger {
	return &Ledger{
		bookings:  bookings,
		inventory: inventory,
	}
}

// TotalBoothsForUser sums the booths userID holds on exhibitionID. When
// excludeBookingID is set that booking is left out of the sum.
func (l *Ledger) TotalBoothsForUser(ctx context.Context, userID, exhibitionID, excludeBookingID string) (int, error) {
	total, err := l.bookings.SumAmount(ctx, model.BookingFilter{
		UserID:       userID,
		ExhibitionID: exhibitionID,
		ExcludeID:    excludeBookingID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to total booths for user: %w", err)
	}
	return total, nil
}

// TotalBoothsForType sums the booths of boothType booked on exhibitionID.
func (l *Ledger) TotalBoothsForType(ctx context.Context, exhibitionID string, boothType model.BoothType) (int, error) {
	total, err := l.bookings.SumAmount(ctx, model.BookingFilter{
		ExhibitionID: exhibitionID,
		BoothType:    boothType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to total %s booths: %w", boothType, err)
	}
	return total, nil
}

// CapCheck reports whether userID may hold candidate more booths on
// exhibitionID on top of what it already holds.
func (l *Ledger) CapCheck(ctx context.Context, userID, exhibitionID string, candidate int, excludeBookingID string) (bool, error) {
	held, err := l.TotalBoothsForUser(ctx, userID, exhibitionID, excludeBookingID)
	if err != nil {
		return false, err
	}
	return model.WithinBoothCap(held, candidate), nil
}

// Available is the inventory of boothType left on exhibition.
func (l *Ledger) Available(exhibition *model.Exhibition, boothType model.BoothType) int {
	return exhibition.Quota(boothType)
}

// Reserve takes amount booths of boothType out of the exhibition's inventory
// and mirrors the change on exhibition.
func (l *Ledger) Reserve(ctx context.Context, exhibition *model.Exhibition, boothType model.BoothType, amount int) error {
	if amount < 1 {
		return fmt.Errorf("reserve amount must be positive, got %d", amount)
	}
	if amount > exhibition.Quota(boothType) {
		return exhibitionserrors.ErrInsufficientQuota
	}
	if err := l.inventory.AdjustQuota(ctx, exhibition.ID, boothType, -amount); err != nil {
		return err
	}
	exhibition.SetQuota(boothType, exhibition.Quota(boothType)-amount)
	return nil
}

// Release returns amount booths of boothType to the exhibition's inventory.
func (l *Ledger) Release(ctx context.Context, exhibition *model.Exhibition, boothType model.BoothType, amount int) error {
	if amount < 1 {
		return fmt.Errorf("release amount must be positive, got %d", amount)
	}
	if err := l.inventory.AdjustQuota(ctx, exhibition.ID, boothType, amount); err != nil {
		return err
	}
	exhibition.SetQuota(boothType, exhibition.Quota(boothType)+amount)
	return nil
}
