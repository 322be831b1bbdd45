package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservationSnapshotsPrice(t *testing.T) {
	now := time.Now().UTC()
	ev := upcomingEvent(100)

	r := NewReservation(7, ev, 4, now)
	assert.Equal(t, uint64(7), r.UserID)
	assert.Equal(t, ev.ID, r.EventID)
	assert.Equal(t, ReservationPending, r.Status)
	assert.Equal(t, PaymentPending, r.PaymentStatus)
	assert.Equal(t, uint32(2500), r.UnitPriceCents)
	assert.Equal(t, uint32(10000), r.TotalAmountCents)

	// Later price edits must not change what the customer owes.
	ev.TicketPriceCents = 9900
	assert.Equal(t, uint32(2500), r.UnitPriceCents)
}

func TestReservationConfirmPayment(t *testing.T) {
	now := time.Now().UTC()
	r := NewReservation(1, upcomingEvent(10), 2, now)

	require.True(t, r.IsPayable(now))
	r.ConfirmPayment("pay-123", now.Add(time.Minute))

	assert.Equal(t, ReservationConfirmed, r.Status)
	assert.Equal(t, PaymentCompleted, r.PaymentStatus)
	require.NotNil(t, r.PaymentRef)
	assert.Equal(t, "pay-123", *r.PaymentRef)
	assert.False(t, r.IsPayable(now), "confirmed reservation is no longer payable")
	assert.True(t, r.IsActive())
}

func TestReservationExpiry(t *testing.T) {
	created := time.Now().UTC()
	r := NewReservation(1, upcomingEvent(10), 1, created)

	assert.False(t, r.IsExpired(created.Add(PendingTimeout)))
	assert.True(t, r.IsExpired(created.Add(PendingTimeout+time.Second)))
	assert.False(t, r.IsPayable(created.Add(PendingTimeout+time.Second)),
		"expired hold must reject payment even before the sweeper runs")

	r.ConfirmPayment("ref", created.Add(time.Minute))
	assert.False(t, r.IsExpired(created.Add(time.Hour)), "confirmed reservations never expire")
}

func TestReservationCancelRefundsCompletedPayment(t *testing.T) {
	now := time.Now().UTC()
	eventDate := now.Add(24 * time.Hour)
	r := NewReservation(1, upcomingEvent(10), 2, now)
	r.ConfirmPayment("ref-1", now)

	require.True(t, r.CanCancel(eventDate, now))
	r.Cancel(now.Add(time.Minute))

	assert.Equal(t, ReservationCancelled, r.Status)
	assert.Equal(t, PaymentRefunded, r.PaymentStatus)
	assert.False(t, r.IsActive())
}

func TestReservationCancelPendingKeepsPaymentState(t *testing.T) {
	now := time.Now().UTC()
	r := NewReservation(1, upcomingEvent(10), 2, now)

	r.Cancel(now)
	assert.Equal(t, ReservationCancelled, r.Status)
	assert.Equal(t, PaymentPending, r.PaymentStatus, "nothing was paid, nothing to refund")
}

func TestReservationCanCancel(t *testing.T) {
	now := time.Now().UTC()
	r := NewReservation(1, upcomingEvent(10), 1, now)

	assert.False(t, r.CanCancel(now.Add(-time.Hour), now), "event already started")
	assert.True(t, r.CanCancel(now.Add(time.Hour), now))

	r.Cancel(now)
	assert.False(t, r.CanCancel(now.Add(time.Hour), now), "cancel is terminal")
}
