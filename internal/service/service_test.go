package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/marios-pizza/internal/catalog"
	"github.com/mmeshcher/marios-pizza/internal/model"
	"github.com/mmeshcher/marios-pizza/internal/receipt"
	"github.com/mmeshcher/marios-pizza/internal/repository"
)

type stubStore struct {
	getErr error
	putErr error
	putKey []string
}

func (s *stubStore) Close() error { return nil }

func (s *stubStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	return nil, s.getErr
}

func (s *stubStore) Put(ctx context.Context, scope, key string, value []byte) error {
	s.putKey = append(s.putKey, key)
	return s.putErr
}

func (s *stubStore) Delete(ctx context.Context, scope, key string) error { return nil }

func noSleep(time.Duration) {}

func newTestService(t *testing.T, store Store, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{
		WithSleep(noSleep),
		WithReceiptBuilder(receipt.NewBuilder(catalog.Default(),
			receipt.WithIDGenerator(func() string { return "ORD-ABC123" }),
		)),
	}, opts...)
	return NewService(store, catalog.Default(), nil, opts...)
}

func fillValidOrder(t *testing.T, sess *Session) {
	t.Helper()
	_, err := sess.Update(context.Background(), []byte(`{
		"customerName": "Luigi",
		"phone": "9876543210",
		"email": "luigi@example.in",
		"address": "12 MG Road",
		"toppings": ["onions"]
	}`))
	require.NoError(t, err)
}

func TestSession_DefaultState(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())

	state := svc.Session(context.Background(), "s1").State()

	assert.Equal(t, model.DefaultOrderDraft(), state.Draft)
	assert.False(t, state.Valid)
	assert.Contains(t, state.Errors, "toppings")
	assert.Equal(t, int64(399+40), state.Pricing.Total)
}

func TestSession_SameIDReturnsSameSession(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()

	assert.Same(t, svc.Session(ctx, "a"), svc.Session(ctx, "a"))
	assert.NotSame(t, svc.Session(ctx, "a"), svc.Session(ctx, "b"))
}

func TestSession_UpdateAndPersist(t *testing.T) {
	store := repository.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")

	state, err := sess.Update(ctx, []byte(`{"qty": 2, "toppings": ["onions", "onions"], "sidesQty": {"coke": 1}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"onions"}, state.Draft.Toppings)
	assert.Equal(t, int64(828), state.Pricing.PizzaTotal)
	assert.Equal(t, int64(918), state.Pricing.Total)

	data, err := store.Get(ctx, "s1", DraftKey)
	require.NoError(t, err)
	var saved model.OrderDraft
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, 2, saved.Qty)

	restored := newTestService(t, store).Session(ctx, "s1").State()
	assert.Equal(t, state.Draft, restored.Draft)
}

func TestSession_UpdateReplacesSides(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")

	_, err := sess.Update(ctx, []byte(`{"sidesQty": {"coke": 1, "fries": 500}}`))
	require.NoError(t, err)
	state, err := sess.Update(ctx, []byte(`{"sidesQty": {"sprite": 2}}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"sprite": 2}, state.Draft.SidesQty)
}

func TestSession_UpdateMalformed(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")

	_, err := sess.Update(ctx, []byte(`{"qty": "many"}`))
	assert.ErrorIs(t, err, ErrMalformedPatch)

	_, err = sess.Update(ctx, []byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedPatch)

	assert.Equal(t, 1, sess.State().Draft.Qty, "draft must stay unchanged")
}

func TestSession_RestoreMalformedDraft(t *testing.T) {
	store := repository.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "s1", DraftKey, []byte(`{"qty": "oops"`)))

	state := newTestService(t, store).Session(ctx, "s1").State()

	assert.Equal(t, model.DefaultOrderDraft(), state.Draft)
}

func TestSession_RestoreMergesOverDefaults(t *testing.T) {
	store := repository.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "s1", DraftKey, []byte(`{"customerName": "Anna", "sidesQty": {"fries": -4}}`)))

	draft := newTestService(t, store).Session(ctx, "s1").State().Draft

	assert.Equal(t, "Anna", draft.CustomerName)
	assert.Equal(t, "medium", draft.Size)
	assert.True(t, draft.IsDelivery)
	assert.Equal(t, 0, draft.SidesQty["fries"])
}

func TestSession_RestoreStoreError(t *testing.T) {
	svc := newTestService(t, &stubStore{getErr: errors.New("db down")})

	state := svc.Session(context.Background(), "s1").State()

	assert.Equal(t, model.DefaultOrderDraft(), state.Draft)
}

func TestSession_SaveErrorDoesNotFailMutation(t *testing.T) {
	svc := newTestService(t, &stubStore{getErr: repository.ErrNotFound, putErr: errors.New("db down")})

	state, err := svc.Session(context.Background(), "s1").SetQty(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 3, state.Draft.Qty)
}

func TestSession_SetQtyClamps(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")

	state, _ := sess.SetQty(ctx, 15)
	assert.Equal(t, 10, state.Draft.Qty)

	state, _ = sess.SetQty(ctx, 0)
	assert.Equal(t, 1, state.Draft.Qty)
}

func TestSession_ToggleTopping(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")

	state, err := sess.ToggleTopping(ctx, "ham")
	require.NoError(t, err)
	assert.Equal(t, []string{"ham"}, state.Draft.Toppings)
	assert.NotContains(t, state.Errors, "toppings")

	state, err = sess.ToggleTopping(ctx, "ham")
	require.NoError(t, err)
	assert.Empty(t, state.Draft.Toppings)
	assert.Contains(t, state.Errors, "toppings")

	_, err = sess.ToggleTopping(ctx, "anchovies")
	assert.ErrorIs(t, err, ErrUnknownTopping)
}

func TestSession_SetSideQty(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")

	state, err := sess.SetSideQty(ctx, "fries", 150)
	require.NoError(t, err)
	assert.Equal(t, 99, state.Draft.SidesQty["fries"])

	state, err = sess.SetSideQty(ctx, "fries", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Draft.SidesQty["fries"])
	assert.Empty(t, state.Pricing.SidesLines)

	_, err = sess.SetSideQty(ctx, "lassi", 1)
	assert.ErrorIs(t, err, ErrUnknownSide)
}

func TestSession_Reset(t *testing.T) {
	store := repository.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")
	fillValidOrder(t, sess)

	state := sess.Reset(ctx)

	assert.Equal(t, model.DefaultOrderDraft(), state.Draft)
	_, err := store.Get(ctx, "s1", DraftKey)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSession_PlaceInvalid(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Session(ctx, "s1").Place(ctx)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors, "customerName")
	assert.Contains(t, vErr.Error(), "toppings")
}

func TestSession_Place(t *testing.T) {
	store := repository.NewMemoryRepository()
	var slept time.Duration
	svc := newTestService(t, store, WithPlacementDelay(time.Second), WithSleep(func(d time.Duration) { slept = d }))
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")
	fillValidOrder(t, sess)

	_, ok := sess.Receipt()
	require.False(t, ok)

	r, err := sess.Place(ctx)
	require.NoError(t, err)

	assert.Equal(t, time.Second, slept)
	assert.Equal(t, "ORD-ABC123", r.ID)
	assert.Equal(t, int64(399+15+40), r.Total)
	assert.False(t, sess.State().Submitting)

	held, ok := sess.Receipt()
	require.True(t, ok)
	assert.Equal(t, r.ID, held.ID)

	data, err := store.Get(ctx, "s1", LastReceiptKey)
	require.NoError(t, err)
	var saved model.Receipt
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, r.Total, saved.Total)
}

func TestSession_PlacePending(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	svc := newTestService(t, repository.NewMemoryRepository(), WithSleep(func(time.Duration) {
		close(entered)
		<-release
	}))
	ctx := context.Background()
	sess := svc.Session(ctx, "s1")
	fillValidOrder(t, sess)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Place(ctx)
		done <- err
	}()

	<-entered
	assert.True(t, sess.State().Submitting)

	_, err := sess.Place(ctx)
	assert.ErrorIs(t, err, ErrPlacementPending)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, sess.State().Submitting)
}

func TestRegister(t *testing.T) {
	store := repository.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	draft := model.RegistrationDraft{
		Name:            "Mario",
		Email:           "mario@example.com",
		Phone:           "9876543210",
		Password:        "Abc123!x",
		ConfirmPassword: "Abc123!x",
		Gender:          model.GenderOther,
		AcceptTerms:     true,
	}
	require.Empty(t, svc.CheckRegistration(draft))
	require.NoError(t, svc.Register(ctx, "s1", draft))

	data, err := store.Get(ctx, "s1", RegisteredUserKey)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Abc123!x", "passwords must not be stored")

	var user model.RegisteredUser
	require.NoError(t, json.Unmarshal(data, &user))
	assert.Equal(t, "Mario", user.Name)

	draft.AcceptTerms = false
	err = svc.Register(ctx, "s1", draft)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "You must accept Terms & Conditions", vErr.Errors["acceptTerms"])
}

func TestRegister_StoreError(t *testing.T) {
	svc := newTestService(t, &stubStore{putErr: errors.New("db down")})

	err := svc.Register(context.Background(), "s1", model.RegistrationDraft{
		Name:            "Mario",
		Email:           "mario@example.com",
		Phone:           "9876543210",
		Password:        "Abc123!x",
		ConfirmPassword: "Abc123!x",
		Gender:          model.GenderMale,
		AcceptTerms:     true,
	})
	assert.Error(t, err)
}

func TestSession_RestoreLastReceipt(t *testing.T) {
	store := repository.NewMemoryRepository()
	ctx := context.Background()

	sess := newTestService(t, store).Session(ctx, "s1")
	fillValidOrder(t, sess)
	placed, err := sess.Place(ctx)
	require.NoError(t, err)

	restored, ok := newTestService(t, store).Session(ctx, "s1").Receipt()
	require.True(t, ok)
	assert.Equal(t, placed.ID, restored.ID)
	assert.Equal(t, placed.Total, restored.Total)
	assert.True(t, placed.CreatedAt.Equal(restored.CreatedAt))

	require.NoError(t, store.Put(ctx, "s2", LastReceiptKey, []byte(`{"id": 5}`)))
	_, ok = newTestService(t, store).Session(ctx, "s2").Receipt()
	assert.False(t, ok)
}
