package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/database"
	"gorm.io/gorm"
)

const analyticsRefreshTimeout = 30 * time.Second

type StartResult struct {
	Meeting       *models.Meeting
	Booking       *models.Booking
	HostSignature sdksig.Signature
	JoinToken     jointoken.Token
}

type MeetingService interface {
	Start(ctx context.Context, bookingID uint) (*StartResult, error)
	End(ctx context.Context, meetingID uint, recordingURL string) (*models.Meeting, error)
	Get(ctx context.Context, meetingID uint) (*models.Meeting, error)
	ActiveForBooking(ctx context.Context, bookingID uint) (*models.Meeting, error)
}

type meetingService struct {
	meetingRepo repository.MeetingRepository
	bookingRepo repository.BookingRepository
	provisioner sdksig.Provisioner
	signer      SessionSigner
	tokens      JoinTokens
	publisher   EventPublisher
	analytics   AnalyticsRefresher
	now         func() time.Time
}

func NewMeetingService(
	meetingRepo repository.MeetingRepository,
	bookingRepo repository.BookingRepository,
	provisioner sdksig.Provisioner,
	signer SessionSigner,
	tokens JoinTokens,
	publisher EventPublisher,
	analytics AnalyticsRefresher,
) MeetingService {
	return &meetingService{
		meetingRepo: meetingRepo,
		bookingRepo: bookingRepo,
		provisioner: provisioner,
		signer:      signer,
		tokens:      tokens,
		publisher:   publisher,
		analytics:   analytics,
		now:         utcNow,
	}
}

func (s *meetingService) Start(ctx context.Context, bookingID uint) (*StartResult, error) {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	// Cheap pre-check so a duplicate start does not allocate an external session.
	if _, err := s.meetingRepo.FindActiveByBooking(ctx, s.meetingRepo.GetDB(), bookingID); err == nil {
		return nil, ErrMeetingAlreadyActive
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session, err := s.provisioner.Provision(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: provision session: %v", ErrExternalService, err)
	}
	hostSig, err := s.signer.Sign(session.Number, sdksig.RoleHost)
	if err != nil {
		return nil, fmt.Errorf("%w: sign host: %v", ErrExternalService, err)
	}
	token, err := s.tokens.Issue(bookingID)
	if err != nil {
		return nil, fmt.Errorf("issue join token: %w", err)
	}

	now := s.now()
	meeting := &models.Meeting{
		BookingID:             bookingID,
		Status:                models.MeetingActive,
		ExternalSessionID:     session.Number,
		ExternalSessionSecret: session.Password,
		StartedAt:             &now,
	}

	err = s.meetingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.meetingRepo.FindActiveByBooking(ctx, tx, bookingID)
		if err == nil {
			return ErrMeetingAlreadyActive
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.meetingRepo.Create(ctx, tx, meeting); err != nil {
			// idx_meeting_active caught a concurrent start
			if database.IsUniqueViolation(err) {
				return ErrMeetingAlreadyActive
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MeetingService] started meeting %d for booking %d", meeting.ID, bookingID)
	publish(s.publisher, "MeetingService", RoutingMeetingStarted, lifecycleEvent(meeting))

	return &StartResult{
		Meeting:       meeting,
		Booking:       booking,
		HostSignature: hostSig,
		JoinToken:     token,
	}, nil
}

func (s *meetingService) End(ctx context.Context, meetingID uint, recordingURL string) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	switch meeting.Status {
	case models.MeetingEnded:
		return nil, ErrMeetingAlreadyEnded
	case models.MeetingActive:
	default:
		return nil, ErrMeetingNotActive
	}

	endedAt := s.now()
	startedAt := meeting.CreatedAt
	if meeting.StartedAt != nil {
		startedAt = *meeting.StartedAt
	}
	duration := models.DurationMinutes(startedAt, endedAt)

	ok, err := s.meetingRepo.MarkEnded(ctx, s.meetingRepo.GetDB(), meetingID, endedAt, duration, recordingURL)
	if err != nil {
		return nil, fmt.Errorf("end meeting: %w", err)
	}
	if !ok {
		return nil, ErrMeetingAlreadyEnded
	}

	meeting.Status = models.MeetingEnded
	meeting.EndedAt = &endedAt
	meeting.DurationMinutes = duration
	if recordingURL != "" {
		meeting.RecordingURL = recordingURL
	}

	log.Printf("[MeetingService] ended meeting %d after %d min", meeting.ID, duration)
	publish(s.publisher, "MeetingService", RoutingMeetingEnded, lifecycleEvent(meeting))
	s.refreshAnalytics()

	return meeting, nil
}

func (s *meetingService) Get(ctx context.Context, meetingID uint) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return meeting, nil
}

func (s *meetingService) ActiveForBooking(ctx context.Context, bookingID uint) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.FindActiveByBooking(ctx, s.meetingRepo.GetDB(), bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return meeting, nil
}

func (s *meetingService) refreshAnalytics() {
	if s.analytics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsRefreshTimeout)
		defer cancel()
		if err := s.analytics.Refresh(ctx); err != nil {
			log.Printf("[MeetingService] analytics refresh failed: %v", err)
		}
	}()
}

// MeetingEvent is the payload published on meeting.* routing keys.
type MeetingEvent struct {
	MeetingID       uint                 `json:"meeting_id"`
	BookingID       uint                 `json:"booking_id"`
	Status          models.MeetingStatus `json:"status"`
	StartedAt       *time.Time           `json:"started_at,omitempty"`
	EndedAt         *time.Time           `json:"ended_at,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	RecordingURL    string               `json:"recording_url,omitempty"`
}

func lifecycleEvent(m *models.Meeting) MeetingEvent {
	return MeetingEvent{
		MeetingID:       m.ID,
		BookingID:       m.BookingID,
		Status:          m.Status,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		DurationMinutes: m.DurationMinutes,
		RecordingURL:    m.RecordingURL,
	}
}
