package participant

import (
	"context"
	"sync"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/polling"
)

// OperatorAPI is the slice of the meeting API the operator console polls.
type OperatorAPI interface {
	Queue(ctx context.Context, meetingID uint, status string) ([]dto.WaitingEntryResponse, error)
	Messages(ctx context.Context, meetingID, afterID uint) ([]dto.MessageResponse, error)
	PendingCount(ctx context.Context) (int64, error)
}

type OperatorConfig struct {
	// MeetingID selects the meeting whose queue and chat are followed. Zero
	// runs only the notification counter.
	MeetingID uint
	Intervals Intervals

	OnQueue             func(entries []dto.WaitingEntryResponse)
	OnMessages          func(msgs []dto.MessageResponse)
	OnPending           func(n int64)
	OnPersistentFailure func(err error)
}

// OperatorSession refreshes the waiting queue, the chat and the pending
// counter while the operator console is open.
type OperatorSession struct {
	api OperatorAPI
	cfg OperatorConfig

	group polling.Group

	mu      sync.Mutex
	started bool
	closed  bool
}

func NewOperatorSession(api OperatorAPI, cfg OperatorConfig) *OperatorSession {
	cfg.Intervals = cfg.Intervals.withDefaults()
	return &OperatorSession{api: api, cfg: cfg}
}

func (s *OperatorSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return polling.ErrAlreadyStarted
	}
	s.started = true

	type poll struct {
		opts polling.Options
		fn   polling.Func
	}
	var polls []poll
	if s.cfg.MeetingID != 0 {
		polls = append(polls,
			poll{pollOptions("queue", s.cfg.Intervals.Queue, s.cfg.OnPersistentFailure), s.pollQueue},
			poll{pollOptions("operator-chat", s.cfg.Intervals.Chat, s.cfg.OnPersistentFailure), chatPoll(s.api, s.cfg.MeetingID, s.cfg.OnMessages)},
		)
	}
	polls = append(polls, poll{pollOptions("counter", s.cfg.Intervals.Counter, s.cfg.OnPersistentFailure), s.pollCounter})

	for _, p := range polls {
		p.opts.Immediate = true
		if _, err := s.group.Go(ctx, p.fn, p.opts); err != nil {
			s.group.StopAll()
			return err
		}
	}
	return nil
}

func (s *OperatorSession) pollQueue(ctx context.Context) error {
	entries, err := s.api.Queue(ctx, s.cfg.MeetingID, string(models.WaitingPending))
	if err != nil {
		return err
	}
	if s.cfg.OnQueue != nil {
		s.cfg.OnQueue(entries)
	}
	return nil
}

func (s *OperatorSession) pollCounter(ctx context.Context) error {
	n, err := s.api.PendingCount(ctx)
	if err != nil {
		return err
	}
	if s.cfg.OnPending != nil {
		s.cfg.OnPending(n)
	}
	return nil
}

func (s *OperatorSession) Polling() int {
	return s.group.Running()
}

// Close stops every poll. It is safe to call more than once.
func (s *OperatorSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.group.StopAll()
}
