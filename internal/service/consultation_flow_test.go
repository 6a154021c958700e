package service

import (
	"context"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsultationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBooking(t, 42)

	// operator opens the room
	started, err := f.meetings.Start(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, models.MeetingActive, started.Meeting.Status)
	assert.Equal(t, sdksig.RoleHost, started.HostSignature.Role)

	// visitor follows the join link
	info, err := f.access.JoinInfo(ctx, started.JoinToken.Token, 42)
	require.NoError(t, err)

	entry, err := f.admission.EnterWaiting(ctx, info.MeetingID, info.VisitorName, info.VisitorEmail)
	require.NoError(t, err)
	assert.Equal(t, models.WaitingPending, entry.Status)

	f.clock.Advance(5 * time.Second)
	_, err = f.admission.Admit(ctx, entry.ID)
	require.NoError(t, err)

	// next admission poll
	f.clock.Advance(3 * time.Second)
	status, err := f.admission.StatusFor(ctx, info.MeetingID, info.VisitorEmail)
	require.NoError(t, err)
	assert.Equal(t, models.WaitingAdmitted, status.Status)

	visitor := Principal{
		Role:  models.RoleVisitor,
		Name:  info.VisitorName,
		Token: started.JoinToken.Token,
		Email: info.VisitorEmail,
	}
	sig, err := f.signatures.Sign(ctx, visitor, info.SessionNumber, sdksig.RoleAttendee)
	require.NoError(t, err)
	assert.Equal(t, sdksig.RoleAttendee, sig.Signature.Role)
	assert.NotEqual(t, started.HostSignature.Signature, sig.Signature.Signature)

	f.clock.Advance(40 * time.Minute)
	ended, err := f.meetings.End(ctx, started.Meeting.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.MeetingEnded, ended.Status)
	assert.GreaterOrEqual(t, ended.DurationMinutes, 0)
	assert.Equal(t, 40, ended.DurationMinutes)

	after, err := f.admission.StatusFor(ctx, info.MeetingID, info.VisitorEmail)
	require.NoError(t, err)
	assert.Equal(t, models.WaitingAdmitted, after.Status)
	assert.True(t, status.DecidedAt.Equal(*after.DecidedAt))

	assert.Equal(t, []string{RoutingMeetingStarted, RoutingWaitingAdmitted, RoutingMeetingEnded}, f.publisher.Keys())
}
