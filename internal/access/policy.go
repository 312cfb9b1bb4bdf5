// Package access decides which principals may act on which records.
// Admins act on any record; members act only on bookings they own and may
// only read exhibitions.
package access

import (
	apperrors "expobook/pkg/errors"
	"expobook/pkg/model"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func CanManageExhibitions(p model.Principal) bool {
	return p.IsAdmin()
}

func CanAccessBooking(p model.Principal, booking *model.Booking) bool {
	return p.IsAdmin() || (p.ID != "" && booking.UserID == p.ID)
}

// BookingOwnerScope is the owner filter applied when p lists bookings. An
// empty scope means every booking.
func BookingOwnerScope(p model.Principal) string {
	if p.IsAdmin() {
		return ""
	}
	return p.ID
}

// AuthorizeExhibition returns a Forbidden error when p may not perform action
// on exhibitions.
func AuthorizeExhibition(p model.Principal, action Action) error {
	if action == ActionRead || CanManageExhibitions(p) {
		return nil
	}
	return apperrors.Forbidden("Only administrators can " + string(action) + " exhibitions")
}

// AuthorizeBooking returns a Forbidden error when p may not perform action on
// booking.
func AuthorizeBooking(p model.Principal, booking *model.Booking, action Action) error {
	if CanAccessBooking(p, booking) {
		return nil
	}
	return apperrors.Forbidden("You are not allowed to " + string(action) + " this booking")
}

// AuthorizeBookingCreate requires an authenticated principal with a known role.
func AuthorizeBookingCreate(p model.Principal) error {
	if p.ID == "" || !p.Role.Valid() {
		return apperrors.Forbidden("You are not allowed to create bookings")
	}
	return nil
}
