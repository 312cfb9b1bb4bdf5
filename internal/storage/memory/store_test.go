package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	autherrors "expobook/internal/auth/errors"
	bookingserrors "expobook/internal/bookings/errors"
	exhibitionserrors "expobook/internal/exhibitions/errors"
	"expobook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newExhibition(t *testing.T, s *Store, small, big int) *model.Exhibition {
	t.Helper()
	e := &model.Exhibition{
		Name:            "Expo " + primitive.NewObjectID().Hex(),
		Description:     "desc",
		Venue:           "Hall A",
		StartDate:       model.DateOf(time.Now().AddDate(0, 0, 7)),
		DurationDay:     2,
		SmallBoothQuota: small,
		BigBoothQuota:   big,
		PosterPicture:   "https://example.com/p.png",
	}
	require.NoError(t, s.Exhibitions().Create(context.Background(), e))
	return e
}

func TestExecuteTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 5, 5)
	userID := primitive.NewObjectID().Hex()
	boom := errors.New("boom")

	err := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Bookings().Create(ctx, &model.Booking{
			UserID: userID, ExhibitionID: e.ID, BoothType: model.BoothSmall, Amount: 3,
		}))
		require.NoError(t, s.Exhibitions().AdjustQuota(ctx, e.ID, model.BoothSmall, -3))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Exhibitions().FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.SmallBoothQuota)

	count, err := s.Bookings().Count(ctx, model.BookingFilter{ExhibitionID: e.ID})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExecuteTransaction_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 5, 5)

	assert.Panics(t, func() {
		_ = s.ExecuteTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, s.Exhibitions().AdjustQuota(ctx, e.ID, model.BoothBig, -2))
			panic("boom")
		})
	})

	got, err := s.Exhibitions().FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.BigBoothQuota)
}

func TestExecuteTransaction_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 5, 5)

	err := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
		inner := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
			return s.Exhibitions().AdjustQuota(ctx, e.ID, model.BoothSmall, -1)
		})
		require.NoError(t, inner)
		return errors.New("outer fails")
	})
	require.Error(t, err)

	got, _ := s.Exhibitions().FindByID(ctx, e.ID)
	assert.Equal(t, 5, got.SmallBoothQuota, "inner write must roll back with the outer transaction")
}

func TestAdjustQuota(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 2, 0)
	repo := s.Exhibitions()

	require.ErrorIs(t, repo.AdjustQuota(ctx, e.ID, model.BoothSmall, -3), exhibitionserrors.ErrInsufficientQuota)
	require.ErrorIs(t, repo.AdjustQuota(ctx, e.ID, model.BoothBig, -1), exhibitionserrors.ErrInsufficientQuota)
	require.NoError(t, repo.AdjustQuota(ctx, e.ID, model.BoothSmall, -2))
	require.NoError(t, repo.AdjustQuota(ctx, e.ID, model.BoothBig, 4))
	require.ErrorIs(t, repo.AdjustQuota(ctx, primitive.NewObjectID().Hex(), model.BoothBig, 1), exhibitionserrors.ErrNotFound)
	require.ErrorIs(t, repo.AdjustQuota(ctx, "nope", model.BoothBig, 1), exhibitionserrors.ErrInvalidID)

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SmallBoothQuota)
	assert.Equal(t, 4, got.BigBoothQuota)
}

func TestAdjustQuota_ConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 10, 0)
	repo := s.Exhibitions()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.AdjustQuota(ctx, e.ID, model.BoothSmall, -1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := repo.FindByID(ctx, e.ID)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, got.SmallBoothQuota)
}

func TestBookingCreate_GuardsCap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 10, 10)
	repo := s.Bookings()
	userID := primitive.NewObjectID().Hex()

	for _, amount := range []int{3, 3} {
		require.NoError(t, repo.Create(ctx, &model.Booking{
			UserID: userID, ExhibitionID: e.ID, BoothType: model.BoothSmall, Amount: amount,
		}))
	}

	err := repo.Create(ctx, &model.Booking{
		UserID: userID, ExhibitionID: e.ID, BoothType: model.BoothBig, Amount: 1,
	})
	require.ErrorIs(t, err, bookingserrors.ErrCapExceeded)

	other := primitive.NewObjectID().Hex()
	require.NoError(t, repo.Create(ctx, &model.Booking{
		UserID: other, ExhibitionID: e.ID, BoothType: model.BoothBig, Amount: 6,
	}), "cap is per user")
}

func TestBookingUpdate_GuardsCapExcludingItself(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 10, 10)
	repo := s.Bookings()
	userID := primitive.NewObjectID().Hex()

	first := &model.Booking{UserID: userID, ExhibitionID: e.ID, BoothType: model.BoothSmall, Amount: 2}
	second := &model.Booking{UserID: userID, ExhibitionID: e.ID, BoothType: model.BoothBig, Amount: 2}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	first.Amount = 4
	require.NoError(t, repo.Update(ctx, first))

	first.Amount = 5
	require.ErrorIs(t, repo.Update(ctx, first), bookingserrors.ErrCapExceeded)

	got, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Amount)
}

func TestBookingFind_NewestFirstAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 10, 10)
	repo := s.Bookings()
	alice := primitive.NewObjectID().Hex()
	bob := primitive.NewObjectID().Hex()

	var ids []string
	for _, owner := range []string{alice, bob, alice} {
		b := &model.Booking{UserID: owner, ExhibitionID: e.ID, BoothType: model.BoothSmall, Amount: 1}
		require.NoError(t, repo.Create(ctx, b))
		ids = append(ids, b.ID)
	}

	all, err := repo.Find(ctx, model.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	own, err := repo.Find(ctx, model.BookingFilter{UserID: alice})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, ids[2], own[0].ID)

	total, err := repo.SumAmount(ctx, model.BookingFilter{UserID: alice, ExhibitionID: e.ID, ExcludeID: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 3, 3)

	got, err := s.Exhibitions().FindByID(ctx, e.ID)
	require.NoError(t, err)
	got.SmallBoothQuota = 99

	again, _ := s.Exhibitions().FindByID(ctx, e.ID)
	assert.Equal(t, 3, again.SmallBoothQuota)
}

func TestUsers_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Users()

	require.NoError(t, repo.Create(ctx, &model.User{Name: "Ann", Email: "ann@example.com", Role: model.RoleMember}))
	err := repo.Create(ctx, &model.User{Name: "Ann", Email: "ANN@example.com", Role: model.RoleMember})
	require.ErrorIs(t, err, autherrors.ErrDuplicateEmail)

	u, err := repo.FindByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
}

func TestExhibitions_DuplicateName(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	e := newExhibition(t, s, 1, 1)

	dup := *e
	err := s.Exhibitions().Create(ctx, &dup)
	require.ErrorIs(t, err, exhibitionserrors.ErrDuplicateName)
}
