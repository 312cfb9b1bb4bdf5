package model

import "time"

type Exhibition struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name            string    `json:"name" bson:"name" validate:"required,min=2,max=200"`
	Description     string    `json:"description" bson:"description" validate:"required,max=5000"`
	Venue           string    `json:"venue" bson:"venue" validate:"required,min=2,max=200"`
	StartDate       Date      `json:"startDate" bson:"start_date" validate:"required"`
	DurationDay     int       `json:"durationDay" bson:"duration_day" validate:"required,min=1"`
	SmallBoothQuota int       `json:"smallBoothQuota" bson:"small_booth_quota" validate:"min=0"`
	BigBoothQuota   int       `json:"bigBoothQuota" bson:"big_booth_quota" validate:"min=0"`
	PosterPicture   string    `json:"posterPicture" bson:"poster_picture" validate:"required,url"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updated_at"`
}

// Quota returns the remaining inventory for the given booth type.
func (e *Exhibition) Quota(b BoothType) int {
	switch b {
	case BoothSmall:
		return e.SmallBoothQuota
	case BoothBig:
		return e.BigBoothQuota
	}
	return 0
}

func (e *Exhibition) SetQuota(b BoothType, n int) {
	switch b {
	case BoothSmall:
		e.SmallBoothQuota = n
	case BoothBig:
		e.BigBoothQuota = n
	}
}

type ExhibitionUpdate struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Venue           *string `json:"venue,omitempty" validate:"omitempty,min=2,max=200"`
	StartDate       *Date   `json:"startDate,omitempty"`
	DurationDay     *int    `json:"durationDay,omitempty" validate:"omitempty,min=1"`
	SmallBoothQuota *int    `json:"smallBoothQuota,omitempty" validate:"omitempty,min=0"`
	BigBoothQuota   *int    `json:"bigBoothQuota,omitempty" validate:"omitempty,min=0"`
	PosterPicture   *string `json:"posterPicture,omitempty" validate:"omitempty,url"`
}

// Availability pairs the live quota counters with the booked totals computed
// from the bookings themselves.
type Availability struct {
	ExhibitionID    string `json:"exhibitionId"`
	SmallBoothQuota int    `json:"smallBoothQuota"`
	BigBoothQuota   int    `json:"bigBoothQuota"`
	SmallBooked     int    `json:"smallBooked"`
	BigBooked       int    `json:"bigBooked"`
}
