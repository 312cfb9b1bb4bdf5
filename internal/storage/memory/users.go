package memory

import (
	"context"
	"strings"
	"time"

	autherrors "expobook/internal/auth/errors"
	"expobook/internal/auth/repository"
	"expobook/pkg/model"
)

type userRecord struct {
	value model.User
}

type userRepository struct {
	store *Store
}

var _ repository.UserRepository = (*userRepository)(nil)

func (s *Store) Users() repository.UserRepository {
	return &userRepository{store: s}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.store.do(ctx, func(t *tx) error {
		email := strings.ToLower(user.Email)
		for _, rec := range r.store.users {
			if rec.value.Email == email {
				return autherrors.ErrDuplicateEmail
			}
		}

		user.ID = r.store.newID()
		user.Email = email
		user.CreatedAt = time.Now().UTC()

		id := user.ID
		r.store.users[id] = &userRecord{value: *user}
		t.record(func() { delete(r.store.users, id) })
		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, invalidID(autherrors.ErrInvalidID, id)
	}

	var found *model.User
	err := r.store.do(ctx, func(*tx) error {
		rec, ok := r.store.users[id]
		if !ok {
			return autherrors.ErrNotFound
		}
		value := rec.value
		found = &value
		return nil
	})
	return found, err
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(email)

	var found *model.User
	err := r.store.do(ctx, func(*tx) error {
		for _, rec := range r.store.users {
			if rec.value.Email == email {
				value := rec.value
				found = &value
				return nil
			}
		}
		return autherrors.ErrNotFound
	})
	return found, err
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	result := make(map[string]*model.User, len(ids))
	err := r.store.do(ctx, func(*tx) error {
		for _, id := range ids {
			if rec, ok := r.store.users[id]; ok {
				value := rec.value
				result[id] = &value
			}
		}
		return nil
	})
	return result, err
}
