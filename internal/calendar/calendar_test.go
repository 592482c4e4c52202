package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExternal struct {
	id  string
	err error
}

func (s *stubExternal) CreateEvent(_ context.Context, _ *Appointment) (string, error) {
	return s.id, s.err
}

func TestBookAppointment(t *testing.T) {
	start := time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryStore(), &stubExternal{id: "evt-99"}, nil)

	res, err := svc.BookAppointment(context.Background(), BookingRequest{
		UserID:        "user-1",
		ProspectPhone: "+6581234567",
		PropertyID:    "prop-1",
		PropertyTitle: "Sunny 2BR at Tiong Bahru",
		StartsAt:      start,
		Duration:      45 * time.Minute,
	})
	require.NoError(t, err)

	assert.True(t, res.CreatedInExternalCalendar)
	assert.Equal(t, "evt-99", res.Appointment.ExternalID)
	assert.Equal(t, "Viewing — Sunny 2BR at Tiong Bahru", res.Appointment.Title)
	assert.Equal(t, start.Add(45*time.Minute), res.Appointment.EndsAt)
	assert.NotEmpty(t, res.Appointment.ID)
}

func TestBookAppointmentExternalFailureKeepsLocalRecord(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, &stubExternal{err: errors.New("api down")}, nil)
	start := time.Now().UTC().Add(48 * time.Hour)

	res, err := svc.BookAppointment(context.Background(), BookingRequest{
		UserID:        "user-1",
		ProspectPhone: "+6581234567",
		PropertyTitle: "Marina One Residences",
		StartsAt:      start,
	})
	require.NoError(t, err)

	assert.False(t, res.CreatedInExternalCalendar)
	assert.Empty(t, res.Appointment.ExternalID)
	// Default duration applies when not supplied.
	assert.Equal(t, start.Add(45*time.Minute), res.Appointment.EndsAt)

	upcoming, err := svc.UpcomingForProspect(context.Background(), "user-1", "+6581234567")
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, res.Appointment.ID, upcoming[0].ID)
}

func TestBookAppointmentRequiresStart(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	_, err := svc.BookAppointment(context.Background(), BookingRequest{UserID: "user-1"})
	assert.Error(t, err)
}

func TestListUpcomingSortsAndFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	later := &Appointment{UserID: "u", ProspectPhone: "p", StartsAt: now.Add(72 * time.Hour)}
	sooner := &Appointment{UserID: "u", ProspectPhone: "p", StartsAt: now.Add(24 * time.Hour)}
	past := &Appointment{UserID: "u", ProspectPhone: "p", StartsAt: now.Add(-24 * time.Hour)}
	other := &Appointment{UserID: "u", ProspectPhone: "other", StartsAt: now.Add(24 * time.Hour)}
	for _, a := range []*Appointment{later, sooner, past, other} {
		require.NoError(t, store.Create(ctx, a))
	}

	got, err := store.ListUpcoming(ctx, "u", "p", now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}
