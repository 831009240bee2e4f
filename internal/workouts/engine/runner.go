package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/workouttracker/internal/workouts"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=runner_mocks_test.go -package=engine_test

type Completer interface {
	CompleteWorkout(ctx context.Context, sessionID int, req workouts.CompleteRequest) error
}

type Command int

const (
	CmdNext Command = iota
	CmdTogglePause
	CmdIncrementReps
	CmdDecrementReps
	CmdFinish
)

// Runner drives an Engine from one goroutine: it owns the only ticker,
// applies commands between ticks and posts the completion when the session
// ends.
type Runner struct {
	engine       *Engine
	completer    Completer
	tickInterval time.Duration
	commands     chan Command
	events       chan Event
}

func NewRunner(engine *Engine, completer Completer, tickInterval time.Duration) *Runner {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Runner{
		engine:       engine,
		completer:    completer,
		tickInterval: tickInterval,
		commands:     make(chan Command),
		events:       make(chan Event, 64),
	}
}

// Events is closed when Run returns.
func (r *Runner) Events() <-chan Event {
	return r.events
}

func (r *Runner) Send(ctx context.Context, cmd Command) error {
	select {
	case r.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the engine and blocks until the session completes and the
// completion is stored, or ctx is done. The returned request is what was sent.
func (r *Runner) Run(ctx context.Context) (workouts.CompleteRequest, error) {
	defer close(r.events)

	events, err := r.engine.Start()
	if err != nil {
		return workouts.CompleteRequest{}, err
	}
	r.emit(ctx, events)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for r.engine.State() != StateCompleted {
		select {
		case <-ctx.Done():
			return workouts.CompleteRequest{}, ctx.Err()
		case <-ticker.C:
			r.emit(ctx, r.engine.Tick())
		case cmd := <-r.commands:
			events, err := r.apply(cmd)
			if err != nil {
				log.Debugf("workout command %d rejected: %s", cmd, err)
				continue
			}
			r.emit(ctx, events)
		}
	}
	ticker.Stop()

	req := r.engine.CompleteRequest()
	if err := r.completer.CompleteWorkout(ctx, r.engine.SessionID(), req); err != nil {
		return req, fmt.Errorf("complete workout %d: %w", r.engine.SessionID(), err)
	}
	return req, nil
}

func (r *Runner) apply(cmd Command) ([]Event, error) {
	switch cmd {
	case CmdNext:
		return r.engine.Next()
	case CmdTogglePause:
		return r.engine.TogglePause()
	case CmdIncrementReps, CmdDecrementReps:
		var reps int
		var err error
		if cmd == CmdIncrementReps {
			reps, err = r.engine.IncrementReps()
		} else {
			reps, err = r.engine.DecrementReps()
		}
		if err != nil {
			return nil, err
		}
		ev := r.engine.event(EventReps)
		ev.Reps = reps
		return []Event{ev}, nil
	case CmdFinish:
		return r.engine.Finish()
	default:
		return nil, errors.New("unknown command")
	}
}

func (r *Runner) emit(ctx context.Context, events []Event) {
	for _, ev := range events {
		select {
		case r.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
