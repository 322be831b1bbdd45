package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// memStore is an in-memory Store.  One mutex stands in for row locks:
// transactions run one at a time, and a snapshot taken at the start is
// restored when the callback fails, giving the same all-or-nothing
// semantics the MySQL store provides.
type memStore struct {
	mu           sync.Mutex
	nextID       uint64
	events       map[uint64]*model.Event
	reservations map[uint64]*model.Reservation
}

func newMemStore() *memStore {
	return &memStore{
		events:       map[uint64]*model.Event{},
		reservations: map[uint64]*model.Reservation{},
	}
}

func (s *memStore) addEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := ev
	s.events[ev.ID] = &cp
}

func (s *memStore) event(id uint64) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.events[id]
}

func (s *memStore) reservation(id uint64) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.reservations[id]
}

func (s *memStore) snapshot() (map[uint64]*model.Event, map[uint64]*model.Reservation) {
	evs := make(map[uint64]*model.Event, len(s.events))
	for id, ev := range s.events {
		cp := *ev
		evs[id] = &cp
	}
	rs := make(map[uint64]*model.Reservation, len(s.reservations))
	for id, r := range s.reservations {
		cp := *r
		rs[id] = &cp
	}
	return evs, rs
}

func (s *memStore) InTx(ctx context.Context, fn func(tx StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs, rs, nextID := func() (map[uint64]*model.Event, map[uint64]*model.Reservation, uint64) {
		e, r := s.snapshot()
		return e, r, s.nextID
	}()
	if err := fn(&memTx{s: s}); err != nil {
		s.events, s.reservations, s.nextID = evs, rs, nextID
		return err
	}
	return nil
}

func (s *memStore) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id, r := range s.reservations {
		if len(ids) >= limit {
			break
		}
		if r.Status == model.ReservationPending && r.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) EventForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	ev, ok := t.s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (t *memTx) SaveEvent(ctx context.Context, ev *model.Event) error {
	cp := *ev
	t.s.events[ev.ID] = &cp
	return nil
}

func (t *memTx) ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, ok := t.s.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	t.s.nextID++
	r.ID = t.s.nextID
	cp := *r
	t.s.reservations[r.ID] = &cp
	return nil
}

func (t *memTx) SaveReservation(ctx context.Context, r *model.Reservation) error {
	cp := *r
	t.s.reservations[r.ID] = &cp
	return nil
}

func (t *memTx) HasPendingReservation(ctx context.Context, userID, eventID uint64) (bool, error) {
	for _, r := range t.s.reservations {
		if r.UserID == userID && r.EventID == eventID && r.Status == model.ReservationPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) PaymentReferenceExists(ctx context.Context, ref string) (bool, error) {
	for _, r := range t.s.reservations {
		if r.PaymentRef != nil && *r.PaymentRef == ref {
			return true, nil
		}
	}
	return false, nil
}

// testClock is a manually advanced clock shared with WithClock.
type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTestClock() *testClock {
	return &testClock{cur: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func newTestService(capacity uint32) (*ReservationService, *memStore, *testClock) {
	store := newMemStore()
	clock := newTestClock()
	store.addEvent(model.Event{
		ID:               1,
		Title:            "Arena Night",
		EventDate:        clock.Now().Add(72 * time.Hour),
		VenueName:        "Arena",
		TotalCapacity:    capacity,
		AvailableTickets: capacity,
		TicketPriceCents: 1500,
		IsActive:         true,
	})
	svc := NewReservationService(store).WithClock(clock.Now)
	svc.notifyCancelled = func(*model.Reservation) {} // no broker in tests
	return svc, store, clock
}

func registered(userID uint64) Actor {
	return Actor{UserID: userID, Role: model.RoleRegistered}
}

// checkInvariant asserts available + sum(active quantities) == capacity.
func checkInvariant(t *testing.T, store *memStore, eventID uint64) {
	t.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	ev := store.events[eventID]
	var held uint32
	for _, r := range store.reservations {
		if r.EventID == eventID && r.IsActive() {
			held += r.TicketQuantity
		}
	}
	assert.Equal(t, ev.TotalCapacity, ev.AvailableTickets+held)
}

func TestCreateReservation(t *testing.T) {
	svc, store, _ := newTestService(100)

	r, err := svc.Create(context.Background(), registered(5), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, r.Status)
	assert.Equal(t, model.PaymentPending, r.PaymentStatus)
	assert.Equal(t, uint32(1500), r.UnitPriceCents)
	assert.Equal(t, uint32(4500), r.TotalAmountCents)
	assert.Equal(t, uint32(97), store.event(1).AvailableTickets)
	checkInvariant(t, store, 1)
}

func TestCreateQuantityBounds(t *testing.T) {
	svc, store, _ := newTestService(100)
	ctx := context.Background()

	_, err := svc.Create(ctx, registered(1), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Create(ctx, registered(1), 1, model.MaxTicketsPerReservation+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Create(ctx, registered(1), 1, model.MaxTicketsPerReservation)
	assert.NoError(t, err)
	checkInvariant(t, store, 1)
}

func TestCreateRejectsBadEvents(t *testing.T) {
	svc, store, clock := newTestService(10)
	ctx := context.Background()

	_, err := svc.Create(ctx, registered(1), 42, 1)
	assert.ErrorIs(t, err, ErrEventNotFound)

	inactive := store.event(1)
	inactive.ID = 2
	inactive.IsActive = false
	store.addEvent(inactive)
	_, err = svc.Create(ctx, registered(1), 2, 1)
	assert.ErrorIs(t, err, ErrEventInactive)

	started := store.event(1)
	started.ID = 3
	started.EventDate = clock.Now().Add(-time.Hour)
	store.addEvent(started)
	_, err = svc.Create(ctx, registered(1), 3, 1)
	assert.ErrorIs(t, err, ErrEventNotUpcoming)
}

func TestCreateInsufficientInventory(t *testing.T) {
	svc, store, _ := newTestService(5)
	ctx := context.Background()

	_, err := svc.Create(ctx, registered(1), 1, 4)
	require.NoError(t, err)

	_, err = svc.Create(ctx, registered(2), 1, 4)
	var inv *InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, uint32(1), inv.Available)
	assert.Equal(t, uint32(1), store.event(1).AvailableTickets, "failed create must not leak inventory")
	checkInvariant(t, store, 1)
}

func TestCreateDuplicatePending(t *testing.T) {
	svc, store, _ := newTestService(100)
	ctx := context.Background()

	_, err := svc.Create(ctx, registered(9), 1, 2)
	require.NoError(t, err)

	_, err = svc.Create(ctx, registered(9), 1, 2)
	assert.ErrorIs(t, err, ErrDuplicatePendingReservation)

	// A different user is unaffected.
	_, err = svc.Create(ctx, registered(10), 1, 2)
	assert.NoError(t, err)
	checkInvariant(t, store, 1)
}

func TestCreateConcurrentNeverOversells(t *testing.T) {
	const capacity = 50
	const attempts = 120
	svc, store, _ := newTestService(capacity)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), registered(uint64(i+1)), 1, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var inv *InsufficientInventoryError
		assert.ErrorAs(t, err, &inv)
	}
	assert.Equal(t, capacity, succeeded, "exactly the capacity must be sold")
	soldOutEvent := store.event(1)
	assert.True(t, soldOutEvent.IsSoldOut())
	checkInvariant(t, store, 1)
}

func TestProcessPayment(t *testing.T) {
	svc, store, _ := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(5), 1, 2)
	require.NoError(t, err)

	paid, err := svc.ProcessPayment(ctx, registered(5), r.ID, "ref-001")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, paid.Status)
	assert.Equal(t, model.PaymentCompleted, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentRef)
	assert.Equal(t, "ref-001", *paid.PaymentRef)

	// Payment holds no extra inventory; the tickets were taken at create.
	assert.Equal(t, uint32(98), store.event(1).AvailableTickets)
	checkInvariant(t, store, 1)

	// Paying twice is rejected.
	_, err = svc.ProcessPayment(ctx, registered(5), r.ID, "ref-002")
	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestProcessPaymentOwnership(t *testing.T) {
	svc, _, _ := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(5), 1, 2)
	require.NoError(t, err)

	// Another user, even an admin, cannot pay someone else's reservation;
	// the error is indistinguishable from a missing id.
	_, err = svc.ProcessPayment(ctx, Actor{UserID: 6, Role: model.RoleAdmin}, r.ID, "ref-x")
	assert.ErrorIs(t, err, ErrReservationNotFound)

	_, err = svc.ProcessPayment(ctx, registered(5), 999, "ref-x")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestProcessPaymentDuplicateReference(t *testing.T) {
	svc, _, _ := newTestService(100)
	ctx := context.Background()

	r1, err := svc.Create(ctx, registered(1), 1, 1)
	require.NoError(t, err)
	r2, err := svc.Create(ctx, registered(2), 1, 1)
	require.NoError(t, err)

	_, err = svc.ProcessPayment(ctx, registered(1), r1.ID, "shared-ref")
	require.NoError(t, err)

	_, err = svc.ProcessPayment(ctx, registered(2), r2.ID, "shared-ref")
	assert.ErrorIs(t, err, ErrDuplicatePaymentReference)
}

func TestProcessPaymentExpiredHold(t *testing.T) {
	svc, _, clock := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(1), 1, 1)
	require.NoError(t, err)

	clock.Advance(model.PendingTimeout + time.Minute)

	// The sweeper has not run yet, but the expired hold already rejects
	// payment.
	_, err = svc.ProcessPayment(ctx, registered(1), r.ID, "late-ref")
	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestCancelReleasesInventory(t *testing.T) {
	svc, store, _ := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(5), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(96), store.event(1).AvailableTickets)

	cancelled, err := svc.Cancel(ctx, registered(5), r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	assert.Equal(t, model.PaymentPending, cancelled.PaymentStatus)
	assert.Equal(t, uint32(100), store.event(1).AvailableTickets)
	checkInvariant(t, store, 1)

	// Cancel is terminal.
	_, err = svc.Cancel(ctx, registered(5), r.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelAfterPaymentRefunds(t *testing.T) {
	svc, store, _ := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(5), 1, 2)
	require.NoError(t, err)
	_, err = svc.ProcessPayment(ctx, registered(5), r.ID, "ref-77")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, registered(5), r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	assert.Equal(t, model.PaymentRefunded, cancelled.PaymentStatus)
	assert.Equal(t, uint32(100), store.event(1).AvailableTickets)
	checkInvariant(t, store, 1)
}

func TestCancelPermissions(t *testing.T) {
	svc, _, _ := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(5), 1, 1)
	require.NoError(t, err)

	// Another registered user sees not-found, not forbidden.
	_, err = svc.Cancel(ctx, registered(6), r.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	// An admin may cancel on the owner's behalf.
	cancelled, err := svc.Cancel(ctx, Actor{UserID: 99, Role: model.RoleAdmin}, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
}

func TestCancelAfterEventStarted(t *testing.T) {
	svc, _, clock := newTestService(100)
	ctx := context.Background()

	r, err := svc.Create(ctx, registered(5), 1, 1)
	require.NoError(t, err)
	_, err = svc.ProcessPayment(ctx, registered(5), r.ID, "ref-started")
	require.NoError(t, err)

	clock.Advance(73 * time.Hour)

	_, err = svc.Cancel(ctx, registered(5), r.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestReleaseExpired(t *testing.T) {
	svc, store, clock := newTestService(100)
	ctx := context.Background()

	r1, err := svc.Create(ctx, registered(1), 1, 3)
	require.NoError(t, err)
	r2, err := svc.Create(ctx, registered(2), 1, 2)
	require.NoError(t, err)
	_, err = svc.ProcessPayment(ctx, registered(2), r2.ID, "ref-keep")
	require.NoError(t, err)

	clock.Advance(model.PendingTimeout + time.Minute)

	n, err := svc.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired := store.reservation(r1.ID)
	assert.Equal(t, model.ReservationCancelled, expired.Status)

	kept := store.reservation(r2.ID)
	assert.Equal(t, model.ReservationConfirmed, kept.Status, "confirmed reservations never expire")

	// Only the expired hold's tickets return.
	assert.Equal(t, uint32(98), store.event(1).AvailableTickets)
	checkInvariant(t, store, 1)

	// A second sweep finds nothing; the pass is idempotent.
	n, err = svc.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReleaseExpiredNotifiesCancellation(t *testing.T) {
	svc, _, clock := newTestService(100)
	ctx := context.Background()

	var mu sync.Mutex
	var notified []*model.Reservation
	svc.notifyCancelled = func(r *model.Reservation) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, r)
	}

	r, err := svc.Create(ctx, registered(1), 1, 3)
	require.NoError(t, err)

	clock.Advance(model.PendingTimeout + time.Minute)

	n, err := svc.ReleaseExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Notification runs asynchronously after the cancelling transaction.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, r.ID, notified[0].ID)
	assert.Equal(t, model.ReservationCancelled, notified[0].Status)
	assert.Equal(t, model.PaymentPending, notified[0].PaymentStatus, "nothing was paid, nothing refunded")
}

// flakyStore wraps a Store and fails the first few transactions with the
// transient sentinel to exercise the retry loop.
type flakyStore struct {
	inner    Store
	failures int
}

func (f *flakyStore) InTx(ctx context.Context, fn func(tx StoreTx) error) error {
	if f.failures > 0 {
		f.failures--
		return ErrTransient
	}
	return f.inner.InTx(ctx, fn)
}

func (f *flakyStore) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	return f.inner.ExpiredPending(ctx, cutoff, limit)
}

func TestTransientConflictsAreRetried(t *testing.T) {
	_, store, clock := newTestService(10)

	svc := NewReservationService(&flakyStore{inner: store, failures: 2}).WithClock(clock.Now)
	r, err := svc.Create(context.Background(), registered(1), 1, 1)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)

	svc = NewReservationService(&flakyStore{inner: store, failures: 3}).WithClock(clock.Now)
	_, err = svc.Create(context.Background(), registered(2), 1, 1)
	assert.ErrorIs(t, err, ErrTransient, "retries are bounded")
}
