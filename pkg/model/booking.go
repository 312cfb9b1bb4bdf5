package model

import (
	"time"
)

type Booking struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID       string    `json:"userId" bson:"user_id" validate:"required,mongodb"`
	ExhibitionID string    `json:"exhibitionId" bson:"exhibition_id" validate:"required,mongodb"`
	BoothType    BoothType `json:"boothType" bson:"booth_type" validate:"required,booth_type"`
	Amount       int       `json:"amount" bson:"amount" validate:"required,min=1,max=6"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

type BookingRequest struct {
	BoothType BoothType `json:"boothType" validate:"required,booth_type"`
	Amount    int       `json:"amount" validate:"required,min=1"`
}

type BookingUpdate struct {
	BoothType *BoothType `json:"boothType,omitempty" validate:"omitempty,booth_type"`
	Amount    *int       `json:"amount,omitempty" validate:"omitempty,min=1"`
}

// BookingFilter selects bookings by equality on each non-empty field.
// ExcludeID drops one booking from the match.
type BookingFilter struct {
	UserID       string
	ExhibitionID string
	BoothType    BoothType
	ExcludeID    string
}

type BookingDetails struct {
	Booking
	Exhibition *Exhibition  `json:"exhibition,omitempty"`
	User       *UserProfile `json:"user,omitempty"`
}
