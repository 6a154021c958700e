package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Clock ---

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --- Fakes ---

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	p.keys = append(p.keys, routingKey)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type failingProvisioner struct{}

func (failingProvisioner) Provision(ctx context.Context) (sdksig.Session, error) {
	return sdksig.Session{}, errors.New("sdk unavailable")
}

type refreshSpy struct {
	calls chan struct{}
}

func (r *refreshSpy) Refresh(ctx context.Context) error {
	r.calls <- struct{}{}
	return nil
}

// --- Fixture ---

type fixture struct {
	db        *gorm.DB
	clock     *testClock
	publisher *recordingPublisher
	signer    *sdksig.Signer
	tokens    *jointoken.Signer

	meetingRepo repository.MeetingRepository
	bookingRepo repository.BookingRepository
	waitingRepo repository.WaitingRepository
	chatRepo    repository.ChatRepository

	meetings   *meetingService
	access     *accessService
	admission  *admissionService
	signatures *signatureService
	chat       *chatService
	analytics  *analyticsService
}

const testGrace = 2 * time.Minute

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "meetings.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:        db,
		clock:     newTestClock(),
		publisher: &recordingPublisher{},
		signer:    sdksig.NewSigner("sdk-key", "sdk-secret", time.Hour),
		tokens:    jointoken.NewSigner("join-secret", 4*time.Hour),

		meetingRepo: repository.NewMeetingRepository(db),
		bookingRepo: repository.NewBookingRepository(db),
		waitingRepo: repository.NewWaitingRepository(db),
		chatRepo:    repository.NewChatRepository(db),
	}

	f.analytics = NewAnalyticsService(f.meetingRepo, time.Minute).(*analyticsService)
	f.analytics.now = f.clock.Now

	f.meetings = NewMeetingService(f.meetingRepo, f.bookingRepo, sdksig.NewRandomProvisioner(), f.signer, f.tokens, f.publisher, nil).(*meetingService)
	f.meetings.now = f.clock.Now

	f.access = NewAccessService(f.tokens, f.meetingRepo, f.bookingRepo, f.signer.SDKKey(), testGrace).(*accessService)
	f.access.now = f.clock.Now

	f.admission = NewAdmissionService(f.waitingRepo, f.meetingRepo, f.chatRepo, f.publisher).(*admissionService)
	f.admission.now = f.clock.Now

	f.signatures = NewSignatureService(f.signer, f.meetingRepo, f.waitingRepo, f.access).(*signatureService)

	f.chat = NewChatService(f.chatRepo, f.meetingRepo, nil).(*chatService)
	f.chat.now = f.clock.Now

	return f
}

func (f *fixture) seedBooking(t *testing.T, id uint) *models.Booking {
	t.Helper()
	b := &models.Booking{
		ID:      id,
		Name:    "Somchai Jaidee",
		Email:   "somchai@example.com",
		Service: "Retirement planning",
		Date:    "2026-03-02",
		Time:    "09:00",
	}
	require.NoError(t, f.db.Create(b).Error)
	return b
}

func (f *fixture) startMeeting(t *testing.T, bookingID uint) *StartResult {
	t.Helper()
	res, err := f.meetings.Start(context.Background(), bookingID)
	require.NoError(t, err)
	return res
}

func (f *fixture) countMeetings(t *testing.T, bookingID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Meeting{}).Where("booking_id = ?", bookingID).Count(&n).Error)
	return n
}
