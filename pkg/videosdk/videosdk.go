// Package videosdk wraps the third-party video SDK behind a small adapter and
// tracks the embedded client's join lifecycle.
package videosdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const DefaultJoinTimeout = 30 * time.Second

var (
	ErrInvalidParams = errors.New("videosdk: invalid join params")
	ErrBusy          = errors.New("videosdk: already joining or joined")
	ErrLeft          = errors.New("videosdk: left during join")
)

// JoinParams carries everything the SDK needs to enter a session.
type JoinParams struct {
	SessionNumber string
	Password      string
	Signature     string
	SDKKey        string
	UserName      string
	UserEmail     string
	Role          int
}

func (p JoinParams) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"session number", p.SessionNumber},
		{"signature", p.Signature},
		{"sdk key", p.SDKKey},
		{"user name", p.UserName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParams, strings.Join(missing, ", "))
	}
	if p.Role != 0 && p.Role != 1 {
		return fmt.Errorf("%w: role %d", ErrInvalidParams, p.Role)
	}
	return nil
}

// Adapter is the black-box SDK surface. Implementations block until the SDK
// reports success or failure.
type Adapter interface {
	Initialize(ctx context.Context) error
	Join(ctx context.Context, params JoinParams) error
	Leave(ctx context.Context) error
}

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateJoining State = "joining"
	StateJoined  State = "joined"
	StateError   State = "error"
	StateLeft    State = "left"
)

type Status struct {
	State  State
	Reason string
}

// Embed drives one embedded SDK client: loading → joining → joined | error.
// The SDK is initialized lazily on first use and only once; every caller
// waits on the same readiness result.
type Embed struct {
	adapter     Adapter
	joinTimeout time.Duration

	initOnce sync.Once
	ready    chan struct{}
	initErr  error

	mu        sync.Mutex
	status    Status
	listeners []func(Status)
}

func NewEmbed(adapter Adapter, joinTimeout time.Duration) *Embed {
	if adapter == nil {
		panic("videosdk: adapter is required")
	}
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}
	return &Embed{
		adapter:     adapter,
		joinTimeout: joinTimeout,
		ready:       make(chan struct{}),
		status:      Status{State: StateIdle},
	}
}

// OnChange registers fn for every later state change.
func (e *Embed) OnChange(fn func(Status)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *Embed) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Ready starts SDK initialization on the first call and waits for it.
func (e *Embed) Ready(ctx context.Context) error {
	e.initOnce.Do(func() {
		go func() {
			defer close(e.ready)
			// detached from ctx so a caller giving up does not poison later waiters
			initCtx, cancel := context.WithTimeout(context.Background(), e.joinTimeout)
			defer cancel()
			e.initErr = e.adapter.Initialize(initCtx)
		}()
	})
	select {
	case <-e.ready:
		return e.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Embed) Join(ctx context.Context, params JoinParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	cur := e.Status().State
	switch cur {
	case StateLoading, StateJoining, StateJoined:
		return ErrBusy
	}
	if !e.transition(cur, Status{State: StateLoading}) {
		return ErrBusy
	}

	if err := e.Ready(ctx); err != nil {
		if e.transition(StateLoading, Status{State: StateError, Reason: "initialize: " + err.Error()}) {
			return fmt.Errorf("videosdk: initialize: %w", err)
		}
		return ErrLeft
	}

	if !e.transition(StateLoading, Status{State: StateJoining}) {
		return ErrLeft
	}

	joinCtx, cancel := context.WithTimeout(ctx, e.joinTimeout)
	defer cancel()
	err := e.adapter.Join(joinCtx, params)
	if err != nil {
		if e.transition(StateJoining, Status{State: StateError, Reason: err.Error()}) {
			return fmt.Errorf("videosdk: join: %w", err)
		}
		return ErrLeft
	}
	if !e.transition(StateJoining, Status{State: StateJoined}) {
		return ErrLeft
	}
	return nil
}

// Leave asks the SDK to leave when a join is in progress or complete.
// Otherwise it does nothing.
func (e *Embed) Leave(ctx context.Context) error {
	e.mu.Lock()
	state := e.status.State
	e.mu.Unlock()

	switch state {
	case StateLoading:
		e.transition(StateLoading, Status{State: StateLeft})
		return nil
	case StateJoining, StateJoined:
	default:
		return nil
	}

	if !e.transition(state, Status{State: StateLeft}) {
		return nil
	}
	if err := e.adapter.Leave(ctx); err != nil {
		return fmt.Errorf("videosdk: leave: %w", err)
	}
	return nil
}

// transition moves to next only if the current state is still from.
func (e *Embed) transition(from State, next Status) bool {
	e.mu.Lock()
	if e.status.State != from {
		e.mu.Unlock()
		return false
	}
	e.status = next
	listeners := append(([]func(Status))(nil), e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
	return true
}
