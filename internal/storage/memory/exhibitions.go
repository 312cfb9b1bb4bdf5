package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	exhibitionserrors "expobook/internal/exhibitions/errors"
	"expobook/internal/exhibitions/repository"
	"expobook/pkg/db"
	"expobook/pkg/model"
)

type exhibitionRecord struct {
	value model.Exhibition
	seq   uint64
}

type exhibitionRepository struct {
	store *Store
}

var _ repository.ExhibitionRepository = (*exhibitionRepository)(nil)

func (s *Store) Exhibitions() repository.ExhibitionRepository {
	return &exhibitionRepository{store: s}
}

func (r *exhibitionRepository) Create(ctx context.Context, exhibition *model.Exhibition) error {
	return r.store.do(ctx, func(t *tx) error {
		if r.nameTaken(exhibition.Name, "") {
			return exhibitionserrors.ErrDuplicateName
		}

		now := time.Now().UTC()
		exhibition.ID = r.store.newID()
		exhibition.CreatedAt = now
		exhibition.UpdatedAt = now

		id := exhibition.ID
		r.store.exhibitions[id] = &exhibitionRecord{value: *exhibition, seq: r.store.nextSeq()}
		t.record(func() { delete(r.store.exhibitions, id) })
		return nil
	})
}

func (r *exhibitionRepository) FindByID(ctx context.Context, id string) (*model.Exhibition, error) {
	if !validID(id) {
		return nil, invalidID(exhibitionserrors.ErrInvalidID, id)
	}

	var found *model.Exhibition
	err := r.store.do(ctx, func(*tx) error {
		rec, ok := r.store.exhibitions[id]
		if !ok {
			return exhibitionserrors.ErrNotFound
		}
		value := rec.value
		found = &value
		return nil
	})
	return found, err
}

func (r *exhibitionRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Exhibition, error) {
	result := make(map[string]*model.Exhibition, len(ids))
	err := r.store.do(ctx, func(*tx) error {
		for _, id := range ids {
			if rec, ok := r.store.exhibitions[id]; ok {
				value := rec.value
				result[id] = &value
			}
		}
		return nil
	})
	return result, err
}

func (r *exhibitionRepository) FindAll(ctx context.Context) ([]*model.Exhibition, error) {
	var records []*exhibitionRecord
	err := r.store.do(ctx, func(*tx) error {
		for _, rec := range r.store.exhibitions {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.value.StartDate.Equal(b.value.StartDate.Time) {
			return a.value.StartDate.Before(b.value.StartDate.Time)
		}
		return a.seq < b.seq
	})

	exhibitions := make([]*model.Exhibition, 0, len(records))
	for _, rec := range records {
		value := rec.value
		exhibitions = append(exhibitions, &value)
	}
	return exhibitions, nil
}

func (r *exhibitionRepository) Update(ctx context.Context, exhibition *model.Exhibition) error {
	if !validID(exhibition.ID) {
		return invalidID(exhibitionserrors.ErrInvalidID, exhibition.ID)
	}

	return r.store.do(ctx, func(t *tx) error {
		rec, ok := r.store.exhibitions[exhibition.ID]
		if !ok {
			return exhibitionserrors.ErrNotFound
		}
		if r.nameTaken(exhibition.Name, exhibition.ID) {
			return exhibitionserrors.ErrDuplicateName
		}

		previous := rec.value
		exhibition.CreatedAt = previous.CreatedAt
		exhibition.UpdatedAt = time.Now().UTC()
		rec.value = *exhibition
		t.record(func() { rec.value = previous })
		return nil
	})
}

func (r *exhibitionRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return invalidID(exhibitionserrors.ErrInvalidID, id)
	}

	return r.store.do(ctx, func(t *tx) error {
		rec, ok := r.store.exhibitions[id]
		if !ok {
			return exhibitionserrors.ErrNotFound
		}
		delete(r.store.exhibitions, id)
		t.record(func() { r.store.exhibitions[id] = rec })
		return nil
	})
}

func (r *exhibitionRepository) AdjustQuota(ctx context.Context, id string, boothType model.BoothType, delta int) error {
	if !boothType.Valid() {
		return fmt.Errorf("unknown booth type %q", boothType)
	}
	if !validID(id) {
		return invalidID(exhibitionserrors.ErrInvalidID, id)
	}

	return r.store.do(ctx, func(t *tx) error {
		rec, ok := r.store.exhibitions[id]
		if !ok {
			return exhibitionserrors.ErrNotFound
		}

		current := rec.value.Quota(boothType)
		if current+delta < 0 {
			return exhibitionserrors.ErrInsufficientQuota
		}

		previous := rec.value
		rec.value.SetQuota(boothType, current+delta)
		rec.value.UpdatedAt = time.Now().UTC()
		t.record(func() { rec.value = previous })
		return nil
	})
}

func (r *exhibitionRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.store.ExecuteTransaction(ctx, fn)
}

func (r *exhibitionRepository) nameTaken(name, exceptID string) bool {
	for id, rec := range r.store.exhibitions {
		if id != exceptID && rec.value.Name == name {
			return true
		}
	}
	return false
}
