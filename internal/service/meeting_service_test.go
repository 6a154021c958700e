package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMeeting_Success(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)

	res, err := f.meetings.Start(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, models.MeetingActive, res.Meeting.Status)
	assert.Equal(t, uint(42), res.Meeting.BookingID)
	assert.NotEmpty(t, res.Meeting.ExternalSessionID)
	assert.NotEmpty(t, res.Meeting.ExternalSessionSecret)
	require.NotNil(t, res.Meeting.StartedAt)
	assert.Equal(t, f.clock.Now(), *res.Meeting.StartedAt)

	assert.Equal(t, sdksig.RoleHost, res.HostSignature.Role)
	claims, err := f.signer.Verify(res.HostSignature.Signature)
	require.NoError(t, err)
	assert.Equal(t, res.Meeting.ExternalSessionID, claims.Session)

	_, err = f.tokens.Validate(res.JoinToken.Token, 42)
	assert.NoError(t, err)

	assert.Equal(t, []string{RoutingMeetingStarted}, f.publisher.Keys())
}

func TestStartMeeting_BookingNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.meetings.Start(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartMeeting_ConflictWhileActive(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	f.startMeeting(t, 42)

	res, err := f.meetings.Start(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMeetingAlreadyActive)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Nil(t, res)
	assert.Equal(t, int64(1), f.countMeetings(t, 42), "no second row")
}

func TestStartMeeting_AfterEndIsAllowed(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	first := f.startMeeting(t, 42)

	_, err := f.meetings.End(context.Background(), first.Meeting.ID, "")
	require.NoError(t, err)

	second, err := f.meetings.Start(context.Background(), 42)
	require.NoError(t, err)
	assert.NotEqual(t, first.Meeting.ID, second.Meeting.ID)
	assert.Equal(t, int64(2), f.countMeetings(t, 42))
}

func TestStartMeeting_ConcurrentStartsCreateOneRow(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := f.meetings.Start(context.Background(), 42)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrMeetingAlreadyActive):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, int64(1), f.countMeetings(t, 42))
}

func TestStartMeeting_ProvisionFailure(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	f.meetings.provisioner = failingProvisioner{}

	_, err := f.meetings.Start(context.Background(), 42)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, int64(0), f.countMeetings(t, 42))
}

func TestEndMeeting_ComputesDuration(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	f.clock.Advance(44*time.Minute + 40*time.Second)
	ended, err := f.meetings.End(context.Background(), res.Meeting.ID, "https://cdn.example.com/rec/1.mp4")
	require.NoError(t, err)

	assert.Equal(t, models.MeetingEnded, ended.Status)
	assert.Equal(t, 45, ended.DurationMinutes)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, f.clock.Now(), *ended.EndedAt)

	stored, err := f.meetings.Get(context.Background(), res.Meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingEnded, stored.Status)
	assert.Equal(t, 45, stored.DurationMinutes)
	assert.Equal(t, "https://cdn.example.com/rec/1.mp4", stored.RecordingURL)

	assert.Equal(t, []string{RoutingMeetingStarted, RoutingMeetingEnded}, f.publisher.Keys())
}

func TestEndMeeting_ImmediateEndIsZeroMinutes(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	ended, err := f.meetings.End(context.Background(), res.Meeting.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, ended.DurationMinutes)
}

func TestEndMeeting_Twice(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	f.clock.Advance(10 * time.Minute)
	first, err := f.meetings.End(context.Background(), res.Meeting.ID, "")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.meetings.End(context.Background(), res.Meeting.ID, "")
	assert.ErrorIs(t, err, ErrMeetingAlreadyEnded)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.meetings.Get(context.Background(), res.Meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, first.DurationMinutes, stored.DurationMinutes)
	assert.True(t, first.EndedAt.Equal(*stored.EndedAt))
}

func TestEndMeeting_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.meetings.End(context.Background(), 12345, "")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestEndMeeting_TriggersAnalyticsRefresh(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	spy := &refreshSpy{calls: make(chan struct{}, 1)}
	f.meetings.analytics = spy
	res := f.startMeeting(t, 42)

	_, err := f.meetings.End(context.Background(), res.Meeting.ID, "")
	require.NoError(t, err)

	select {
	case <-spy.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("analytics refresh was not triggered")
	}
}

func TestActiveForBooking(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)

	_, err := f.meetings.ActiveForBooking(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMeetingNotFound)

	res := f.startMeeting(t, 42)
	active, err := f.meetings.ActiveForBooking(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, res.Meeting.ID, active.ID)

	_, err = f.meetings.End(context.Background(), res.Meeting.ID, "")
	require.NoError(t, err)
	_, err = f.meetings.ActiveForBooking(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}
