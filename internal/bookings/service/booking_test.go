package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	bookingserrors "expobook/internal/bookings/errors"
	"expobook/internal/bookings/repository"
	"expobook/internal/bookings/validator"
	"expobook/internal/events"
	"expobook/internal/quota"
	"expobook/internal/storage/memory"
	"expobook/pkg/clock"
	"expobook/pkg/config"
	apperrors "expobook/pkg/errors"
	"expobook/pkg/logger"
	"expobook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
}

func (p *recordingPublisher) PublishBooking(_ context.Context, event events.BookingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	clock     *clock.FakeClock
	publisher *recordingPublisher
	svc       BookingService
	admin     model.Principal
	seq       int
}

var now = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRepo(t, nil)
}

// newFixtureWithRepo lets a test swap the booking repository seen by the
// service while the ledger keeps using the store.
func newFixtureWithRepo(t *testing.T, wrap func(repository.BookingRepository) repository.BookingRepository) *fixture {
	t.Helper()

	store := memory.NewStore()
	cfg := &config.Config{Log: logger.Discard(), Location: time.UTC}
	clk := clock.Fake(now)
	pub := &recordingPublisher{}

	bookings := store.Bookings()
	repo := bookings
	if wrap != nil {
		repo = wrap(bookings)
	}
	ledger := quota.NewLedger(bookings, store.Exhibitions())

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		store:     store,
		clock:     clk,
		publisher: pub,
		svc: NewBookingService(
			repo,
			store.Exhibitions(),
			store.Users(),
			ledger,
			validator.NewBookingValidator(cfg.Log),
			pub,
			clk,
			cfg,
		),
	}
	f.admin = f.user("Admin", model.RoleAdmin)
	return f
}

func (f *fixture) user(name string, role model.Role) model.Principal {
	f.t.Helper()
	f.seq++
	u := &model.User{Name: name, Email: fmt.Sprintf("user%d@example.com", f.seq), Role: role}
	require.NoError(f.t, f.store.Users().Create(f.ctx, u))
	return model.Principal{ID: u.ID, Role: role}
}

func (f *fixture) exhibition(start time.Time, small, big int) *model.Exhibition {
	f.t.Helper()
	f.seq++
	e := &model.Exhibition{
		Name:            fmt.Sprintf("Expo %d", f.seq),
		Description:     "Trade show",
		Venue:           "Hall 1",
		StartDate:       model.DateOf(start),
		DurationDay:     3,
		SmallBoothQuota: small,
		BigBoothQuota:   big,
		PosterPicture:   "https://example.com/poster.png",
	}
	require.NoError(f.t, f.store.Exhibitions().Create(f.ctx, e))
	return e
}

func (f *fixture) quotas(id string) (int, int) {
	f.t.Helper()
	e, err := f.store.Exhibitions().FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return e.SmallBoothQuota, e.BigBoothQuota
}

func (f *fixture) book(p model.Principal, exhibitionID string, bt model.BoothType, amount int) (*model.BookingDetails, error) {
	return f.svc.Create(f.ctx, p, exhibitionID, &model.BookingRequest{BoothType: bt, Amount: amount})
}

func requireCode(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.Equal(t, code, appErr.Code, "unexpected error: %v", err)
	return appErr
}

func tomorrow() time.Time { return now.AddDate(0, 0, 1) }

func TestCreate_ExhibitionScenario(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 5, 10)

	_, err := f.book(a, x.ID, model.BoothSmall, 3)
	require.NoError(t, err)
	small, _ := f.quotas(x.ID)
	assert.Equal(t, 2, small)

	_, err = f.book(a, x.ID, model.BoothSmall, 4)
	appErr := requireCode(t, err, apperrors.CodeBadRequest)
	assert.Contains(t, appErr.Message, "small")
	small, _ = f.quotas(x.ID)
	assert.Equal(t, 2, small)

	_, err = f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)
	small, _ = f.quotas(x.ID)
	assert.Equal(t, 0, small)

	_, err = f.book(a, x.ID, model.BoothBig, 2)
	appErr = requireCode(t, err, apperrors.CodeBadRequest)
	assert.Contains(t, appErr.Message, "6")
	_, big := f.quotas(x.ID)
	assert.Equal(t, 10, big)

	total, err := f.store.Bookings().SumAmount(f.ctx, model.BookingFilter{UserID: a.ID, ExhibitionID: x.ID})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestCreate_CapAcrossBookings(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 20, 20)

	_, err := f.book(a, x.ID, model.BoothSmall, 3)
	require.NoError(t, err)
	_, err = f.book(a, x.ID, model.BoothBig, 3)
	require.NoError(t, err)

	_, err = f.book(a, x.ID, model.BoothSmall, 1)
	requireCode(t, err, apperrors.CodeBadRequest)

	small, big := f.quotas(x.ID)
	assert.Equal(t, 17, small)
	assert.Equal(t, 17, big)

	// The cap is per exhibition.
	y := f.exhibition(tomorrow(), 20, 20)
	_, err = f.book(a, y.ID, model.BoothSmall, 6)
	require.NoError(t, err)
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	open := f.exhibition(tomorrow(), 5, 5)
	past := f.exhibition(now.AddDate(0, 0, -1), 5, 5)
	missing := "65f0c0ffee0000000000abcd"

	tests := []struct {
		name         string
		exhibitionID string
		boothType    model.BoothType
		amount       int
		principal    model.Principal
		wantCode     string
	}{
		{"missing exhibition", missing, model.BoothSmall, 1, a, apperrors.CodeNotFound},
		{"missing exhibition wins over bad booth type", missing, "huge", 1, a, apperrors.CodeNotFound},
		{"malformed exhibition id", "not-an-object-id", model.BoothSmall, 1, a, apperrors.CodeInvalidInput},
		{"invalid booth type", open.ID, "huge", 1, a, apperrors.CodeBadRequest},
		{"zero amount", open.ID, model.BoothSmall, 0, a, apperrors.CodeValidation},
		{"started exhibition", past.ID, model.BoothSmall, 1, a, apperrors.CodeBadRequest},
		{"over quota", open.ID, model.BoothBig, 6, a, apperrors.CodeBadRequest},
		{"anonymous", open.ID, model.BoothSmall, 1, model.Principal{}, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tt.principal, tt.exhibitionID, &model.BookingRequest{BoothType: tt.boothType, Amount: tt.amount})
			requireCode(t, err, tt.wantCode)
		})
	}

	count, err := f.store.Bookings().Count(f.ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
	small, big := f.quotas(open.ID)
	assert.Equal(t, 5, small)
	assert.Equal(t, 5, big)
	assert.Empty(t, f.publisher.types())
}

func TestCreate_StartingTodayIsBookable(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	x := f.exhibition(today, 5, 5)

	details, err := f.book(a, x.ID, model.BoothSmall, 1)
	require.NoError(t, err)
	require.NotNil(t, details.Exhibition)
	assert.Equal(t, 4, details.Exhibition.SmallBoothQuota)
	require.NotNil(t, details.User)
	assert.Equal(t, "Alice", details.User.Name)

	f.clock.Advance(24 * time.Hour)
	_, err = f.book(a, x.ID, model.BoothSmall, 1)
	requireCode(t, err, apperrors.CodeBadRequest)
}

func TestUpdate_SwitchBoothType(t *testing.T) {
	t.Run("fails without enough big booths", func(t *testing.T) {
		f := newFixture(t)
		a := f.user("Alice", model.RoleMember)
		x := f.exhibition(tomorrow(), 10, 2)
		created, err := f.book(a, x.ID, model.BoothSmall, 2)
		require.NoError(t, err)

		big := model.BoothBig
		three := 3
		_, err = f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{BoothType: &big, Amount: &three})
		appErr := requireCode(t, err, apperrors.CodeBadRequest)
		assert.Contains(t, appErr.Message, "big")

		small, bigQuota := f.quotas(x.ID)
		assert.Equal(t, 8, small)
		assert.Equal(t, 2, bigQuota)
		stored, err := f.store.Bookings().FindByID(f.ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BoothSmall, stored.BoothType)
		assert.Equal(t, 2, stored.Amount)
	})

	t.Run("releases small and reserves big", func(t *testing.T) {
		f := newFixture(t)
		a := f.user("Alice", model.RoleMember)
		x := f.exhibition(tomorrow(), 10, 3)
		created, err := f.book(a, x.ID, model.BoothSmall, 2)
		require.NoError(t, err)

		big := model.BoothBig
		three := 3
		updated, err := f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{BoothType: &big, Amount: &three})
		require.NoError(t, err)
		assert.Equal(t, model.BoothBig, updated.BoothType)
		assert.Equal(t, 3, updated.Amount)

		small, bigQuota := f.quotas(x.ID)
		assert.Equal(t, 10, small)
		assert.Equal(t, 0, bigQuota)

		last := f.publisher.events[len(f.publisher.events)-1]
		assert.Equal(t, events.BookingUpdated, last.Type)
		assert.Equal(t, model.BoothSmall, last.PreviousBoothType)
		assert.Equal(t, 2, last.PreviousAmount)
	})
}

func TestUpdate_SameTypeCountsOwnReservation(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 3, 0)
	created, err := f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)

	three := 3
	_, err = f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{Amount: &three})
	require.NoError(t, err)
	small, _ := f.quotas(x.ID)
	assert.Equal(t, 0, small)

	four := 4
	_, err = f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{Amount: &four})
	requireCode(t, err, apperrors.CodeBadRequest)

	one := 1
	_, err = f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{Amount: &one})
	require.NoError(t, err)
	small, _ = f.quotas(x.ID)
	assert.Equal(t, 2, small)
}

func TestUpdate_CapIncludesOtherBookings(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 20, 20)
	_, err := f.book(a, x.ID, model.BoothSmall, 4)
	require.NoError(t, err)
	second, err := f.book(a, x.ID, model.BoothBig, 1)
	require.NoError(t, err)

	three := 3
	_, err = f.svc.Update(f.ctx, a, second.ID, &model.BookingUpdate{Amount: &three})
	appErr := requireCode(t, err, apperrors.CodeBadRequest)
	assert.Equal(t, model.MaxBoothsPerUser, appErr.Details["cap"])

	two := 2
	_, err = f.svc.Update(f.ctx, a, second.ID, &model.BookingUpdate{Amount: &two})
	require.NoError(t, err)
}

type capGuardRepo struct {
	repository.BookingRepository
}

func (capGuardRepo) Update(context.Context, *model.Booking) error {
	return bookingserrors.ErrCapExceeded
}

func TestUpdate_PersistenceCapGuardSurfacesAsBadRequest(t *testing.T) {
	f := newFixtureWithRepo(t, func(r repository.BookingRepository) repository.BookingRepository {
		return capGuardRepo{BookingRepository: r}
	})
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)
	created, err := f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)

	big := model.BoothBig
	_, err = f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{BoothType: &big})
	appErr := requireCode(t, err, apperrors.CodeBadRequest)
	assert.Contains(t, appErr.Message, "6")

	small, bigQuota := f.quotas(x.ID)
	assert.Equal(t, 8, small)
	assert.Equal(t, 10, bigQuota)
}

func TestUpdate_Rejections(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)
	created, err := f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)

	bogus := model.BoothType("huge")
	zero := 0
	tests := []struct {
		name     string
		id       string
		update   *model.BookingUpdate
		wantCode string
	}{
		{"missing booking", "65f0c0ffee0000000000abcd", &model.BookingUpdate{BoothType: &bogus}, apperrors.CodeNotFound},
		{"invalid booth type", created.ID, &model.BookingUpdate{BoothType: &bogus}, apperrors.CodeBadRequest},
		{"zero amount", created.ID, &model.BookingUpdate{Amount: &zero}, apperrors.CodeValidation},
		{"empty update", created.ID, &model.BookingUpdate{}, apperrors.CodeValidation},
		{"malformed id", "nope", &model.BookingUpdate{}, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(f.ctx, a, tt.id, tt.update)
			requireCode(t, err, tt.wantCode)
		})
	}

	small, _ := f.quotas(x.ID)
	assert.Equal(t, 8, small)
}

func TestUpdate_MissingExhibition(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)
	created, err := f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)
	require.NoError(t, f.store.Exhibitions().Delete(f.ctx, x.ID))

	one := 1
	_, err = f.svc.Update(f.ctx, a, created.ID, &model.BookingUpdate{Amount: &one})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	b := f.user("Bob", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)
	created, err := f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)

	_, err = f.svc.GetByID(f.ctx, b, created.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	one := 1
	_, err = f.svc.Update(f.ctx, b, created.ID, &model.BookingUpdate{Amount: &one})
	requireCode(t, err, apperrors.CodeForbidden)

	err = f.svc.Delete(f.ctx, b, created.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	small, _ := f.quotas(x.ID)
	assert.Equal(t, 8, small)

	got, err := f.svc.GetByID(f.ctx, f.admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.UserID)

	_, err = f.svc.Update(f.ctx, f.admin, created.ID, &model.BookingUpdate{Amount: &one})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, f.admin, created.ID))
	small, _ = f.quotas(x.ID)
	assert.Equal(t, 10, small)
}

func TestDelete_RestoresExactAmount(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)
	created, err := f.book(a, x.ID, model.BoothBig, 4)
	require.NoError(t, err)
	_, err = f.book(a, x.ID, model.BoothSmall, 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, a, created.ID))

	small, big := f.quotas(x.ID)
	assert.Equal(t, 9, small)
	assert.Equal(t, 10, big)

	_, err = f.svc.GetByID(f.ctx, a, created.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	err = f.svc.Delete(f.ctx, a, created.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	assert.Equal(t, []events.Type{events.BookingCreated, events.BookingCreated, events.BookingDeleted}, f.publisher.types())
}

func TestDelete_MissingExhibitionSkipsRestore(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)
	created, err := f.book(a, x.ID, model.BoothSmall, 2)
	require.NoError(t, err)
	require.NoError(t, f.store.Exhibitions().Delete(f.ctx, x.ID))

	require.NoError(t, f.svc.Delete(f.ctx, a, created.ID))

	count, err := f.store.Bookings().Count(f.ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestList_ScopedAndNewestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice", model.RoleMember)
	b := f.user("Bob", model.RoleMember)
	x := f.exhibition(tomorrow(), 10, 10)

	first, err := f.book(a, x.ID, model.BoothSmall, 1)
	require.NoError(t, err)
	_, err = f.book(b, x.ID, model.BoothSmall, 1)
	require.NoError(t, err)
	second, err := f.book(a, x.ID, model.BoothBig, 1)
	require.NoError(t, err)

	own, err := f.svc.List(f.ctx, a)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID)
	assert.Equal(t, first.ID, own[1].ID)
	for _, d := range own {
		require.NotNil(t, d.Exhibition)
		assert.Equal(t, x.ID, d.Exhibition.ID)
		require.NotNil(t, d.User)
		assert.Equal(t, "Alice", d.User.Name)
	}

	all, err := f.svc.List(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.List(f.ctx, model.Principal{})
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	f := newFixture(t)
	x := f.exhibition(tomorrow(), 5, 0)

	members := make([]model.Principal, 12)
	for i := range members {
		members[i] = f.user(fmt.Sprintf("Member%d", i), model.RoleMember)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, m := range members {
		wg.Add(1)
		go func(p model.Principal) {
			defer wg.Done()
			if _, err := f.book(p, x.ID, model.BoothSmall, 1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(m)
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	small, _ := f.quotas(x.ID)
	assert.Equal(t, 0, small)
}

func TestQuotaConservation(t *testing.T) {
	f := newFixture(t)
	const initialSmall, initialBig = 8, 5
	x := f.exhibition(tomorrow(), initialSmall, initialBig)
	members := []model.Principal{
		f.user("Alice", model.RoleMember),
		f.user("Bob", model.RoleMember),
		f.user("Carol", model.RoleMember),
	}

	rng := rand.New(rand.NewSource(42))
	var ids []string
	boothTypes := []model.BoothType{model.BoothSmall, model.BoothBig}

	for i := 0; i < 200; i++ {
		p := members[rng.Intn(len(members))]
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			if d, err := f.book(p, x.ID, boothTypes[rng.Intn(2)], 1+rng.Intn(4)); err == nil {
				ids = append(ids, d.ID)
			}
		case op == 1:
			bt := boothTypes[rng.Intn(2)]
			amount := 1 + rng.Intn(4)
			_, _ = f.svc.Update(f.ctx, f.admin, ids[rng.Intn(len(ids))], &model.BookingUpdate{BoothType: &bt, Amount: &amount})
		default:
			idx := rng.Intn(len(ids))
			if err := f.svc.Delete(f.ctx, f.admin, ids[idx]); err == nil {
				ids = append(ids[:idx], ids[idx+1:]...)
			}
		}

		small, big := f.quotas(x.ID)
		bookedSmall, err := f.store.Bookings().SumAmount(f.ctx, model.BookingFilter{ExhibitionID: x.ID, BoothType: model.BoothSmall})
		require.NoError(t, err)
		bookedBig, err := f.store.Bookings().SumAmount(f.ctx, model.BookingFilter{ExhibitionID: x.ID, BoothType: model.BoothBig})
		require.NoError(t, err)

		require.Equal(t, initialSmall, small+bookedSmall, "small quota drifted at step %d", i)
		require.Equal(t, initialBig, big+bookedBig, "big quota drifted at step %d", i)
		require.GreaterOrEqual(t, small, 0)
		require.GreaterOrEqual(t, big, 0)

		for _, m := range members {
			held, err := f.store.Bookings().SumAmount(f.ctx, model.BookingFilter{UserID: m.ID, ExhibitionID: x.ID})
			require.NoError(t, err)
			require.LessOrEqual(t, held, model.MaxBoothsPerUser)
		}
	}
}
