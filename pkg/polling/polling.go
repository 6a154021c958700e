// Package polling runs owned, cancelable periodic tasks for clients that keep
// their view in sync with the server by re-reading state on an interval.
package polling

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrAlreadyStarted = errors.New("polling task already started")

	// ErrDone ends the loop from inside the task function without counting as a failure.
	ErrDone = errors.New("polling task done")
)

// Func performs one poll. It must only read server state.
type Func func(ctx context.Context) error

type Options struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single tick. Defaults to Interval.
	Timeout time.Duration
	// MaxBackoff caps how long consecutive failures push the next attempt
	// out. Zero keeps the fixed interval.
	MaxBackoff time.Duration
	// FailureThreshold consecutive failures trigger OnPersistentFailure once
	// per failure streak. Zero disables the callback.
	FailureThreshold    int
	OnPersistentFailure func(err error)
	// Immediate runs the first poll on Start instead of one interval later.
	Immediate bool
	Logger    *log.Logger
}

type Task struct {
	fn   Func
	opts Options

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	failures int
	skip     int

	tickerFactory func(interval time.Duration) ticker
}

func NewTask(fn Func, opts Options) *Task {
	if fn == nil {
		panic("polling: task function is required")
	}
	if opts.Interval <= 0 {
		panic("polling: interval must be positive")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}
	if opts.Name == "" {
		opts.Name = "task"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Task{
		fn:   fn,
		opts: opts,
		tickerFactory: func(interval time.Duration) ticker {
			return newRealTicker(interval)
		},
	}
}

func (t *Task) Name() string { return t.opts.Name }

func (t *Task) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	tk := t.tickerFactory(t.opts.Interval)
	t.running = true
	t.stopCh = stopCh
	t.doneCh = doneCh
	t.failures = 0
	t.skip = 0
	t.mu.Unlock()

	go t.run(ctx, tk, stopCh, doneCh)
	return nil
}

// Stop ends the loop and waits for an in-flight poll to return. It is safe to
// call more than once and after the task finished on its own, but not from
// inside the task function.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.running = false
	t.stopCh = nil
	t.doneCh = nil
	t.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Failures reports the current streak of consecutive failed polls.
func (t *Task) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

func (t *Task) run(ctx context.Context, tk ticker, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	defer tk.Stop()
	defer t.finish(doneCh)

	// run on a ctx that also ends on Stop so an in-flight poll is abandoned
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-pollCtx.Done():
		}
	}()

	if t.opts.Immediate && !t.tick(pollCtx) {
		return
	}
	for {
		select {
		case <-pollCtx.Done():
			return
		case <-tk.Chan():
			if !t.tick(pollCtx) {
				return
			}
		}
	}
}

// finish clears the running state when the loop ended without Stop.
func (t *Task) finish(doneCh chan struct{}) {
	t.mu.Lock()
	if t.doneCh == doneCh {
		t.running = false
		t.stopCh = nil
		t.doneCh = nil
	}
	t.mu.Unlock()
}

// tick runs one poll unless a backoff skip is pending. It returns false when
// the loop should end.
func (t *Task) tick(ctx context.Context) bool {
	t.mu.Lock()
	if t.skip > 0 {
		t.skip--
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	tickCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	err := t.fn(tickCtx)
	cancel()

	switch {
	case err == nil:
		t.mu.Lock()
		t.failures = 0
		t.mu.Unlock()
		return true
	case errors.Is(err, ErrDone):
		return false
	case ctx.Err() != nil:
		return false
	}

	t.mu.Lock()
	t.failures++
	failures := t.failures
	t.skip = t.skipFor(failures)
	t.mu.Unlock()

	t.opts.Logger.Printf("[Polling] %s failed (%d in a row): %v", t.opts.Name, failures, err)
	if t.opts.FailureThreshold > 0 && failures == t.opts.FailureThreshold && t.opts.OnPersistentFailure != nil {
		t.opts.OnPersistentFailure(err)
	}
	return true
}

// skipFor returns how many ticks to skip after the n-th consecutive failure:
// the wait doubles each time until it reaches MaxBackoff.
func (t *Task) skipFor(n int) int {
	if t.opts.MaxBackoff <= t.opts.Interval {
		return 0
	}
	maxSkip := int(t.opts.MaxBackoff/t.opts.Interval) - 1
	skip := 1
	for i := 1; i < n && skip < maxSkip; i++ {
		skip = skip*2 + 1
	}
	if skip > maxSkip {
		skip = maxSkip
	}
	return skip
}

// Group owns a set of tasks that are torn down together.
type Group struct {
	mu    sync.Mutex
	tasks []*Task
}

// Go starts a new task and adds it to the group.
func (g *Group) Go(ctx context.Context, fn Func, opts Options) (*Task, error) {
	task := NewTask(fn, opts)
	if err := g.Start(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (g *Group) Start(ctx context.Context, task *Task) error {
	if err := task.Start(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	g.tasks = append(g.tasks, task)
	g.mu.Unlock()
	return nil
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// Running counts the tasks whose loop has not ended.
func (g *Group) Running() int {
	g.mu.Lock()
	tasks := append([]*Task(nil), g.tasks...)
	g.mu.Unlock()

	n := 0
	for _, task := range tasks {
		if task.Running() {
			n++
		}
	}
	return n
}

// StopAll stops every task and forgets them.
func (g *Group) StopAll() {
	g.mu.Lock()
	tasks := g.tasks
	g.tasks = nil
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task *Task) {
			defer wg.Done()
			task.Stop()
		}(task)
	}
	wg.Wait()
}

type ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realTicker struct {
	ticker *time.Ticker
}

func newRealTicker(interval time.Duration) *realTicker {
	return &realTicker{ticker: time.NewTicker(interval)}
}

func (t *realTicker) Chan() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
