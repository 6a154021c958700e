package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"gorm.io/gorm"
)

// JoinInfo is what a visitor's join page needs before entering the waiting
// room. The session password is only handed out with an attendee signature.
type JoinInfo struct {
	MeetingID     uint
	BookingID     uint
	Status        models.MeetingStatus
	SessionNumber string
	SDKKey        string
	VisitorName   string
	VisitorEmail  string
	Service       string
	Date          string
	Time          string
}

type AccessService interface {
	Issue(ctx context.Context, bookingID uint) (jointoken.Token, error)
	Validate(ctx context.Context, token string, bookingID uint) (*models.Meeting, error)
	JoinInfo(ctx context.Context, token string, bookingID uint) (*JoinInfo, error)
	AuthorizeMeeting(ctx context.Context, token string, meetingID uint) (*models.Meeting, error)
}

type accessService struct {
	tokens      JoinTokens
	meetingRepo repository.MeetingRepository
	bookingRepo repository.BookingRepository
	sdkKey      string
	grace       time.Duration
	now         func() time.Time
}

func NewAccessService(
	tokens JoinTokens,
	meetingRepo repository.MeetingRepository,
	bookingRepo repository.BookingRepository,
	sdkKey string,
	grace time.Duration,
) AccessService {
	if grace < 0 {
		grace = 0
	}
	return &accessService{
		tokens:      tokens,
		meetingRepo: meetingRepo,
		bookingRepo: bookingRepo,
		sdkKey:      sdkKey,
		grace:       grace,
		now:         utcNow,
	}
}

func (s *accessService) Issue(ctx context.Context, bookingID uint) (jointoken.Token, error) {
	if _, err := s.bookingRepo.FindByID(ctx, bookingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jointoken.Token{}, ErrBookingNotFound
		}
		return jointoken.Token{}, err
	}
	return s.tokens.Issue(bookingID)
}

// Validate accepts token only for bookingID and only while the booking's
// latest meeting is active or ended less than the grace window ago.
func (s *accessService) Validate(ctx context.Context, token string, bookingID uint) (*models.Meeting, error) {
	if _, err := s.tokens.Validate(token, bookingID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJoinToken, err)
	}

	meeting, err := s.meetingRepo.FindLatestByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJoinWindowClosed
		}
		return nil, err
	}
	if err := s.checkWindow(meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

func (s *accessService) JoinInfo(ctx context.Context, token string, bookingID uint) (*JoinInfo, error) {
	meeting, err := s.Validate(ctx, token, bookingID)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &JoinInfo{
		MeetingID:     meeting.ID,
		BookingID:     bookingID,
		Status:        meeting.Status,
		SessionNumber: meeting.ExternalSessionID,
		SDKKey:        s.sdkKey,
		VisitorName:   booking.Name,
		VisitorEmail:  booking.Email,
		Service:       booking.Service,
		Date:          booking.Date,
		Time:          booking.Time,
	}, nil
}

func (s *accessService) AuthorizeMeeting(ctx context.Context, token string, meetingID uint) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	if _, err := s.tokens.Validate(token, meeting.BookingID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJoinToken, err)
	}
	if err := s.checkWindow(meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

func (s *accessService) checkWindow(m *models.Meeting) error {
	switch m.Status {
	case models.MeetingActive:
		return nil
	case models.MeetingEnded:
		if m.EndedAt != nil && s.now().Before(m.EndedAt.Add(s.grace)) {
			return nil
		}
	}
	return ErrJoinWindowClosed
}
