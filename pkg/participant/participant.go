// Package participant keeps a visitor's or an operator's view of a meeting in
// sync with the server by polling, and drives the embedded video SDK for the
// visitor once they are admitted.
package participant

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/polling"
)

const (
	failureThreshold = 3
	backoffFactor    = 8
	leaveTimeout     = 5 * time.Second
)

// Intervals are the per-deployment polling periods.
type Intervals struct {
	Admission time.Duration
	Chat      time.Duration
	Queue     time.Duration
	Counter   time.Duration
}

var DefaultIntervals = Intervals{
	Admission: 3 * time.Second,
	Chat:      3 * time.Second,
	Queue:     10 * time.Second,
	Counter:   30 * time.Second,
}

// IntervalsFrom converts the sync config endpoint's response, keeping the
// defaults for any value the server left at zero.
func IntervalsFrom(cfg *dto.SyncConfigResponse) Intervals {
	in := DefaultIntervals
	if cfg == nil {
		return in
	}
	set := func(dst *time.Duration, ms int64) {
		if ms > 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
	set(&in.Admission, cfg.AdmissionIntervalMS)
	set(&in.Chat, cfg.ChatIntervalMS)
	set(&in.Queue, cfg.QueueIntervalMS)
	set(&in.Counter, cfg.CounterIntervalMS)
	return in
}

func (in Intervals) withDefaults() Intervals {
	if in.Admission <= 0 {
		in.Admission = DefaultIntervals.Admission
	}
	if in.Chat <= 0 {
		in.Chat = DefaultIntervals.Chat
	}
	if in.Queue <= 0 {
		in.Queue = DefaultIntervals.Queue
	}
	if in.Counter <= 0 {
		in.Counter = DefaultIntervals.Counter
	}
	return in
}

func pollOptions(name string, interval time.Duration, onFailure func(error)) polling.Options {
	return polling.Options{
		Name:                name,
		Interval:            interval,
		MaxBackoff:          backoffFactor * interval,
		FailureThreshold:    failureThreshold,
		OnPersistentFailure: onFailure,
	}
}

// chatCursor remembers the newest message id seen so each poll only fetches
// what is new.
type chatCursor struct {
	lastID uint
}

func (c *chatCursor) advance(msgs []dto.MessageResponse) {
	for _, m := range msgs {
		if m.ID > c.lastID {
			c.lastID = m.ID
		}
	}
}

type chatLister interface {
	Messages(ctx context.Context, meetingID, afterID uint) ([]dto.MessageResponse, error)
}

// chatPoll is shared by both sessions. The cursor is only touched from the
// poll goroutine.
func chatPoll(api chatLister, meetingID uint, onMessages func([]dto.MessageResponse)) polling.Func {
	cursor := &chatCursor{}
	return func(ctx context.Context) error {
		msgs, err := api.Messages(ctx, meetingID, cursor.lastID)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}
		cursor.advance(msgs)
		if onMessages != nil {
			onMessages(msgs)
		}
		return nil
	}
}
