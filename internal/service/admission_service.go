package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/database"
	"gorm.io/gorm"
)

type AdmissionService interface {
	EnterWaiting(ctx context.Context, meetingID uint, visitorName, visitorEmail string) (*models.WaitingEntry, error)
	Admit(ctx context.Context, entryID uint) (*models.WaitingEntry, error)
	Reject(ctx context.Context, entryID uint) (*models.WaitingEntry, error)
	StatusFor(ctx context.Context, meetingID uint, visitorEmail string) (*models.WaitingEntry, error)
	Queue(ctx context.Context, meetingID uint, status *models.WaitingStatus) ([]models.WaitingEntry, error)
	PendingCount(ctx context.Context) (int64, error)
}

type admissionService struct {
	waitingRepo repository.WaitingRepository
	meetingRepo repository.MeetingRepository
	chatRepo    repository.ChatRepository
	publisher   EventPublisher
	now         func() time.Time
}

func NewAdmissionService(
	waitingRepo repository.WaitingRepository,
	meetingRepo repository.MeetingRepository,
	chatRepo repository.ChatRepository,
	publisher EventPublisher,
) AdmissionService {
	return &admissionService{
		waitingRepo: waitingRepo,
		meetingRepo: meetingRepo,
		chatRepo:    chatRepo,
		publisher:   publisher,
		now:         utcNow,
	}
}

func (s *admissionService) EnterWaiting(ctx context.Context, meetingID uint, visitorName, visitorEmail string) (*models.WaitingEntry, error) {
	name := strings.TrimSpace(visitorName)
	if name == "" {
		return nil, invalid("visitor_name", "is required")
	}
	email := normalizeEmail(visitorEmail)
	if email == "" {
		return nil, invalid("visitor_email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("visitor_email", "is not a valid address")
	}

	meeting, err := s.findMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, ErrMeetingNotActive
	}

	// A returning visitor keeps their entry, pending or decided.
	if entry, err := s.waitingRepo.FindLatest(ctx, meetingID, email); err == nil {
		return entry, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := &models.WaitingEntry{
		MeetingID:    meetingID,
		VisitorName:  name,
		VisitorEmail: email,
		Status:       models.WaitingPending,
		RequestedAt:  s.now(),
	}
	if err := s.waitingRepo.Create(ctx, entry); err != nil {
		// a concurrent request inserted the pending entry first
		if database.IsUniqueViolation(err) {
			return s.waitingRepo.FindPending(ctx, meetingID, email)
		}
		return nil, fmt.Errorf("create waiting entry: %w", err)
	}
	return entry, nil
}

func (s *admissionService) Admit(ctx context.Context, entryID uint) (*models.WaitingEntry, error) {
	return s.decide(ctx, entryID, models.DecisionAdmit)
}

func (s *admissionService) Reject(ctx context.Context, entryID uint) (*models.WaitingEntry, error) {
	return s.decide(ctx, entryID, models.DecisionReject)
}

func (s *admissionService) decide(ctx context.Context, entryID uint, decision models.Decision) (*models.WaitingEntry, error) {
	entry, err := s.waitingRepo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	next, err := entry.Status.Transition(decision)
	if err != nil {
		if errors.Is(err, models.ErrTerminalStatus) {
			return nil, ErrEntryAlreadyDecided
		}
		return nil, err
	}

	meeting, err := s.findMeeting(ctx, entry.MeetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, ErrMeetingNotActive
	}

	decidedAt := s.now()
	ok, err := s.waitingRepo.Decide(ctx, entry.ID, entry.Status, next, decidedAt)
	if err != nil {
		return nil, fmt.Errorf("decide waiting entry: %w", err)
	}
	if !ok {
		return nil, ErrEntryAlreadyDecided
	}
	entry.Status = next
	entry.DecidedAt = &decidedAt

	routingKey := RoutingWaitingRejected
	if next == models.WaitingAdmitted {
		routingKey = RoutingWaitingAdmitted
		s.announce(ctx, entry)
	}
	publish(s.publisher, "AdmissionService", routingKey, entry)

	return entry, nil
}

// announce posts the admission to the meeting chat. Failure does not undo the decision.
func (s *admissionService) announce(ctx context.Context, entry *models.WaitingEntry) {
	if s.chatRepo == nil {
		return
	}
	msg := &models.ChatMessage{
		MeetingID:  entry.MeetingID,
		SenderRole: models.RoleSystem,
		SenderName: "System",
		Content:    entry.VisitorName + " joined the meeting",
		CreatedAt:  s.now(),
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		log.Printf("[AdmissionService] announce entry %d failed: %v", entry.ID, err)
	}
}

func (s *admissionService) StatusFor(ctx context.Context, meetingID uint, visitorEmail string) (*models.WaitingEntry, error) {
	email := normalizeEmail(visitorEmail)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	entry, err := s.waitingRepo.FindLatest(ctx, meetingID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (s *admissionService) Queue(ctx context.Context, meetingID uint, status *models.WaitingStatus) ([]models.WaitingEntry, error) {
	if status != nil && !status.Valid() {
		return nil, invalid("status", "must be waiting, admitted or rejected")
	}
	if _, err := s.findMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	return s.waitingRepo.ListByMeeting(ctx, meetingID, status)
}

func (s *admissionService) PendingCount(ctx context.Context) (int64, error) {
	return s.waitingRepo.CountPendingInActiveMeetings(ctx)
}

func (s *admissionService) findMeeting(ctx context.Context, meetingID uint) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return meeting, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
