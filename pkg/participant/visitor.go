package participant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/polling"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/videosdk"
)

var (
	ErrClosed   = errors.New("participant: session closed")
	ErrRejected = errors.New("participant: visitor was rejected")
)

// VisitorAPI is the slice of the meeting API a visitor uses.
type VisitorAPI interface {
	EnterWaiting(ctx context.Context, meetingID uint, name, email string) (*dto.WaitingEntryResponse, error)
	WaitingStatus(ctx context.Context, meetingID uint, email string) (*dto.WaitingEntryResponse, error)
	Signature(ctx context.Context, sessionNumber string, role int, email string) (*dto.SignatureResponse, error)
	Messages(ctx context.Context, meetingID, afterID uint) ([]dto.MessageResponse, error)
}

type VisitorConfig struct {
	MeetingID     uint
	SessionNumber string
	Name          string
	Email         string
	Intervals     Intervals
	Embed         *videosdk.Embed

	// OnDecision fires once when the operator admits or rejects the visitor.
	OnDecision func(status models.WaitingStatus)
	// OnJoin fires after the SDK join attempt; err is nil on success.
	OnJoin              func(err error)
	OnMessages          func(msgs []dto.MessageResponse)
	OnPersistentFailure func(err error)
}

// VisitorSession walks a visitor through the waiting room: enter, poll for the
// decision, then sign, join the SDK session and poll chat.
type VisitorSession struct {
	api VisitorAPI
	cfg VisitorConfig

	group  polling.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
	status  models.WaitingStatus
	joinErr error
}

func NewVisitorSession(api VisitorAPI, cfg VisitorConfig) *VisitorSession {
	cfg.Intervals = cfg.Intervals.withDefaults()
	return &VisitorSession{api: api, cfg: cfg}
}

// Start enters the waiting room and begins polling for the decision. A
// visitor already decided on an earlier visit continues straight from there.
func (s *VisitorSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return polling.ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	entry, err := s.api.EnterWaiting(ctx, s.cfg.MeetingID, s.cfg.Name, s.cfg.Email)
	if err != nil {
		return fmt.Errorf("enter waiting room: %w", err)
	}
	s.setStatus(entry.Status)

	switch entry.Status {
	case models.WaitingAdmitted:
		s.decided(entry.Status)
		return nil
	case models.WaitingRejected:
		s.decided(entry.Status)
		return ErrRejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err = s.group.Go(s.ctx, s.pollAdmission, pollOptions("admission", s.cfg.Intervals.Admission, s.cfg.OnPersistentFailure))
	return err
}

func (s *VisitorSession) pollAdmission(ctx context.Context) error {
	entry, err := s.api.WaitingStatus(ctx, s.cfg.MeetingID, s.cfg.Email)
	if err != nil {
		return err
	}
	if entry.Status == models.WaitingPending {
		return nil
	}
	s.setStatus(entry.Status)
	s.decided(entry.Status)
	return polling.ErrDone
}

// decided reports the decision and, on admission, joins in the background
// so the admission poll can end.
func (s *VisitorSession) decided(status models.WaitingStatus) {
	if s.cfg.OnDecision != nil {
		s.cfg.OnDecision(status)
	}
	if status != models.WaitingAdmitted {
		log.Printf("[Visitor] meeting %d: %s", s.cfg.MeetingID, status)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.join(s.ctx)
		s.mu.Lock()
		s.joinErr = err
		s.mu.Unlock()
		if err != nil {
			log.Printf("[Visitor] meeting %d: join failed: %v", s.cfg.MeetingID, err)
		}
		if s.cfg.OnJoin != nil {
			s.cfg.OnJoin(err)
		}
		s.startChat()
	}()
}

func (s *VisitorSession) join(ctx context.Context) error {
	sig, err := s.api.Signature(ctx, s.cfg.SessionNumber, 0, s.cfg.Email)
	if err != nil {
		return fmt.Errorf("request signature: %w", err)
	}
	if s.cfg.Embed == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.cfg.Embed.Join(ctx, videosdk.JoinParams{
		SessionNumber: sig.SessionNumber,
		Password:      sig.Password,
		Signature:     sig.Signature,
		SDKKey:        sig.SDKKey,
		UserName:      s.cfg.Name,
		UserEmail:     s.cfg.Email,
		Role:          sig.Role,
	})
}

func (s *VisitorSession) startChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	opts := pollOptions("visitor-chat", s.cfg.Intervals.Chat, s.cfg.OnPersistentFailure)
	opts.Immediate = true
	if _, err := s.group.Go(s.ctx, chatPoll(s.api, s.cfg.MeetingID, s.cfg.OnMessages), opts); err != nil {
		log.Printf("[Visitor] meeting %d: chat poll not started: %v", s.cfg.MeetingID, err)
	}
}

func (s *VisitorSession) setStatus(status models.WaitingStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Status is the last admission status seen.
func (s *VisitorSession) Status() models.WaitingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// JoinErr is the outcome of the last join attempt.
func (s *VisitorSession) JoinErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinErr
}

// Polling reports how many poll loops are still running.
func (s *VisitorSession) Polling() int {
	return s.group.Running()
}

// Close stops every poll and leaves the SDK session if a join is in progress
// or complete. It is safe to call more than once.
func (s *VisitorSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	// leave before cancelling so an in-flight join ends as left, not failed
	err := s.leave()
	if cancel != nil {
		cancel()
	}
	s.group.StopAll()
	s.wg.Wait()
	// a join that completed while Close was waiting is left as well
	return errors.Join(err, s.leave())
}

func (s *VisitorSession) leave() error {
	if s.cfg.Embed == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	return s.cfg.Embed.Leave(ctx)
}
