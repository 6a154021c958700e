package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"gorm.io/gorm"
)

// Principal identifies who is asking. Operators are authenticated upstream;
// visitors carry their join token and the email they queued with.
type Principal struct {
	Role  models.SenderRole
	Name  string
	Token string
	Email string
}

func (p Principal) IsOperator() bool {
	return p.Role == models.RoleOperator
}

type SignatureResult struct {
	Signature sdksig.Signature
	MeetingID uint
	Password  string
}

type SignatureService interface {
	Sign(ctx context.Context, p Principal, sessionNumber string, role sdksig.Role) (*SignatureResult, error)
}

type signatureService struct {
	signer      SessionSigner
	meetingRepo repository.MeetingRepository
	waitingRepo repository.WaitingRepository
	access      AccessService
}

func NewSignatureService(
	signer SessionSigner,
	meetingRepo repository.MeetingRepository,
	waitingRepo repository.WaitingRepository,
	access AccessService,
) SignatureService {
	return &signatureService{
		signer:      signer,
		meetingRepo: meetingRepo,
		waitingRepo: waitingRepo,
		access:      access,
	}
}

func (s *signatureService) Sign(ctx context.Context, p Principal, sessionNumber string, role sdksig.Role) (*SignatureResult, error) {
	sessionNumber = strings.TrimSpace(sessionNumber)
	if sessionNumber == "" {
		return nil, invalid("session_number", "is required")
	}
	if !role.Valid() {
		return nil, invalid("role", "must be 0 (attendee) or 1 (host)")
	}

	meeting, err := s.meetingRepo.FindActiveBySession(ctx, sessionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}

	if !p.IsOperator() {
		if role != sdksig.RoleAttendee {
			return nil, ErrRoleNotAllowed
		}
		if _, err := s.access.AuthorizeMeeting(ctx, p.Token, meeting.ID); err != nil {
			return nil, err
		}
		entry, err := s.waitingRepo.FindLatest(ctx, meeting.ID, normalizeEmail(p.Email))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotAdmitted
			}
			return nil, err
		}
		if entry.Status != models.WaitingAdmitted {
			return nil, ErrNotAdmitted
		}
	}

	sig, err := s.signer.Sign(meeting.ExternalSessionID, role)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", ErrExternalService, err)
	}
	return &SignatureResult{
		Signature: sig,
		MeetingID: meeting.ID,
		Password:  meeting.ExternalSessionSecret,
	}, nil
}
