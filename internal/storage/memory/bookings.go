package memory

import (
	"context"
	"sort"
	"time"

	bookingserrors "expobook/internal/bookings/errors"
	"expobook/internal/bookings/repository"
	"expobook/pkg/db"
	"expobook/pkg/model"
)

type bookingRecord struct {
	value model.Booking
	seq   uint64
}

type bookingRepository struct {
	store *Store
}

var _ repository.BookingRepository = (*bookingRepository)(nil)

func (s *Store) Bookings() repository.BookingRepository {
	return &bookingRepository{store: s}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.store.do(ctx, func(t *tx) error {
		booking.ID = ""
		if err := r.guardCap(booking); err != nil {
			return err
		}

		now := time.Now().UTC()
		booking.ID = r.store.newID()
		booking.CreatedAt = now
		booking.UpdatedAt = now

		id := booking.ID
		r.store.bookings[id] = &bookingRecord{value: *booking, seq: r.store.nextSeq()}
		t.record(func() { delete(r.store.bookings, id) })
		return nil
	})
}

func (r *bookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if !validID(id) {
		return nil, invalidID(bookingserrors.ErrInvalidID, id)
	}

	var found *model.Booking
	err := r.store.do(ctx, func(*tx) error {
		rec, ok := r.store.bookings[id]
		if !ok {
			return bookingserrors.ErrNotFound
		}
		value := rec.value
		found = &value
		return nil
	})
	return found, err
}

func (r *bookingRepository) Find(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error) {
	var records []*bookingRecord
	err := r.store.do(ctx, func(*tx) error {
		records = r.match(filter)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.value.CreatedAt.Equal(b.value.CreatedAt) {
			return a.value.CreatedAt.After(b.value.CreatedAt)
		}
		return a.seq > b.seq
	})

	bookings := make([]*model.Booking, 0, len(records))
	for _, rec := range records {
		value := rec.value
		bookings = append(bookings, &value)
	}
	return bookings, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	if !validID(booking.ID) {
		return invalidID(bookingserrors.ErrInvalidID, booking.ID)
	}

	return r.store.do(ctx, func(t *tx) error {
		rec, ok := r.store.bookings[booking.ID]
		if !ok {
			return bookingserrors.ErrNotFound
		}
		if err := r.guardCap(booking); err != nil {
			return err
		}

		previous := rec.value
		rec.value.BoothType = booking.BoothType
		rec.value.Amount = booking.Amount
		rec.value.UpdatedAt = time.Now().UTC()
		booking.UpdatedAt = rec.value.UpdatedAt
		t.record(func() { rec.value = previous })
		return nil
	})
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return invalidID(bookingserrors.ErrInvalidID, id)
	}

	return r.store.do(ctx, func(t *tx) error {
		rec, ok := r.store.bookings[id]
		if !ok {
			return bookingserrors.ErrNotFound
		}
		delete(r.store.bookings, id)
		t.record(func() { r.store.bookings[id] = rec })
		return nil
	})
}

func (r *bookingRepository) SumAmount(ctx context.Context, filter model.BookingFilter) (int, error) {
	var total int
	err := r.store.do(ctx, func(*tx) error {
		total = sumAmount(r.match(filter))
		return nil
	})
	return total, err
}

func (r *bookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	var count int64
	err := r.store.do(ctx, func(*tx) error {
		count = int64(len(r.match(filter)))
		return nil
	})
	return count, err
}

func (r *bookingRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.store.ExecuteTransaction(ctx, fn)
}

// guardCap must be called with the store locked.
func (r *bookingRepository) guardCap(booking *model.Booking) error {
	held := sumAmount(r.match(model.BookingFilter{
		UserID:       booking.UserID,
		ExhibitionID: booking.ExhibitionID,
		ExcludeID:    booking.ID,
	}))
	if !model.WithinBoothCap(held, booking.Amount) {
		return bookingserrors.ErrCapExceeded
	}
	return nil
}

func (r *bookingRepository) match(filter model.BookingFilter) []*bookingRecord {
	var out []*bookingRecord
	for id, rec := range r.store.bookings {
		b := rec.value
		if filter.ExcludeID != "" && id == filter.ExcludeID {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.ExhibitionID != "" && b.ExhibitionID != filter.ExhibitionID {
			continue
		}
		if filter.BoothType != "" && b.BoothType != filter.BoothType {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sumAmount(records []*bookingRecord) int {
	total := 0
	for _, rec := range records {
		total += rec.value.Amount
	}
	return total
}
