// Package engine runs a started workout session on the client side: it walks
// the exercise snapshot in order, counts timed exercises down, keeps pause
// bookkeeping and builds the completion payload for the API.
package engine

import (
	"errors"
	"time"

	"github.com/2beens/workouttracker/internal/routines"
	"github.com/2beens/workouttracker/internal/workouts"
)

// CueThreshold is the remaining seconds at and below which every tick of a
// timed exercise emits EventCue.
const CueThreshold = 10

var (
	ErrNotInProgress   = errors.New("workout is not in progress")
	ErrAlreadyStarted  = errors.New("workout already started")
	ErrPaused          = errors.New("workout is paused")
	ErrNotPaused       = errors.New("workout is not paused")
	ErrNotRepsExercise = errors.New("current exercise is not rep based")
)

type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

type EventKind int

const (
	EventStarted EventKind = iota
	EventTick
	// EventReps carries the new rep count of the current exercise.
	EventReps
	EventCue
	EventExerciseLogged
	EventAdvanced
	EventPaused
	EventResumed
	EventCompleted
)

type Event struct {
	Kind  EventKind
	Index int
	// Exercise is the name of the exercise at Index.
	Exercise string
	// Remaining is the countdown of a timed exercise, in seconds.
	Remaining int
	Reps      int
	Elapsed   time.Duration
}

type progress struct {
	repsDone int
	logged   bool
	log      workouts.ExerciseLog
}

// Engine is the state of one workout session. It is not safe for concurrent
// use; Runner owns it from a single goroutine.
type Engine struct {
	sessionID int
	exercises []routines.Exercise
	progress  []progress
	index     int
	state     State

	paused     bool
	startedAt  time.Time
	pausedAt   time.Time
	totalPause time.Duration
	endedAt    time.Time

	timer countdown
	now   func() time.Time
}

func New(sessionID int, exercises []routines.Exercise, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	snapshot := make([]routines.Exercise, len(exercises))
	copy(snapshot, exercises)

	return &Engine{
		sessionID: sessionID,
		exercises: snapshot,
		progress:  make([]progress, len(snapshot)),
		state:     StateNotStarted,
		now:       now,
	}
}

func (e *Engine) SessionID() int { return e.sessionID }
func (e *Engine) State() State   { return e.state }
func (e *Engine) Paused() bool   { return e.paused }
func (e *Engine) Index() int     { return e.index }

func (e *Engine) Exercises() []routines.Exercise {
	exercises := make([]routines.Exercise, len(e.exercises))
	copy(exercises, e.exercises)
	return exercises
}

// Current returns the exercise being performed, false when not in progress.
func (e *Engine) Current() (routines.Exercise, bool) {
	if e.state != StateInProgress {
		return routines.Exercise{}, false
	}
	return e.exercises[e.index], true
}

// Remaining returns the countdown of the current timed exercise.
func (e *Engine) Remaining() int {
	return e.timer.remaining
}

func (e *Engine) Reps() int {
	if e.state != StateInProgress {
		return 0
	}
	return e.progress[e.index].repsDone
}

func (e *Engine) Start() ([]Event, error) {
	if e.state != StateNotStarted {
		return nil, ErrAlreadyStarted
	}

	e.startedAt = e.now()
	e.state = StateInProgress
	e.index = 0

	events := []Event{{Kind: EventStarted}}
	if len(e.exercises) == 0 {
		return append(events, e.complete()...), nil
	}
	return append(events, e.enter(0)...), nil
}

// Tick advances the clock by one second. Paused sessions ignore ticks.
func (e *Engine) Tick() []Event {
	if e.state != StateInProgress || e.paused {
		return nil
	}

	events := []Event{e.event(EventTick)}
	if !e.timer.tick() {
		return events
	}

	events[0].Remaining = e.timer.remaining
	if e.timer.remaining <= CueThreshold {
		events = append(events, e.event(EventCue))
	}
	if e.timer.expired() {
		target := e.targetSeconds()
		e.timer.cancel()
		events = append(events, e.logCurrent(target)...)
		events = append(events, e.advance()...)
	}

	return events
}

// Next logs the current exercise and moves on, completing the session after
// the last one. Rep exercises are accepted at any counter value; a skipped
// timed exercise logs the seconds it actually ran.
func (e *Engine) Next() ([]Event, error) {
	if e.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	if e.paused {
		return nil, ErrPaused
	}

	var events []Event
	current := e.exercises[e.index]
	if current.IsTimed() {
		ran := e.targetSeconds() - e.timer.remaining
		e.timer.cancel()
		events = e.logCurrent(ran)
	} else {
		events = e.logCurrent(0)
	}

	return append(events, e.advance()...), nil
}

func (e *Engine) IncrementReps() (int, error) {
	return e.adjustReps(1)
}

func (e *Engine) DecrementReps() (int, error) {
	return e.adjustReps(-1)
}

func (e *Engine) adjustReps(delta int) (int, error) {
	if e.state != StateInProgress {
		return 0, ErrNotInProgress
	}
	if e.paused {
		return 0, ErrPaused
	}
	if e.exercises[e.index].IsTimed() {
		return 0, ErrNotRepsExercise
	}

	p := &e.progress[e.index]
	p.repsDone = max(0, p.repsDone+delta)
	return p.repsDone, nil
}

func (e *Engine) Pause() ([]Event, error) {
	if e.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	if e.paused {
		return nil, ErrPaused
	}

	e.paused = true
	e.pausedAt = e.now()
	e.timer.pause()
	return []Event{e.event(EventPaused)}, nil
}

// Resume adds the wall clock time spent paused to the pause total.
func (e *Engine) Resume() ([]Event, error) {
	if e.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	if !e.paused {
		return nil, ErrNotPaused
	}

	e.closePause()
	e.timer.resume()
	return []Event{e.event(EventResumed)}, nil
}

func (e *Engine) TogglePause() ([]Event, error) {
	if e.paused {
		return e.Resume()
	}
	return e.Pause()
}

// Finish ends the session early. Exercises not reached stay unlogged.
func (e *Engine) Finish() ([]Event, error) {
	if e.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	return e.complete(), nil
}

// NetDuration is the time since start minus all paused intervals, frozen once
// the session completes.
func (e *Engine) NetDuration() time.Duration {
	if e.state == StateNotStarted {
		return 0
	}

	end := e.endedAt
	if e.state != StateCompleted {
		end = e.now()
	}

	pauses := e.totalPause
	if e.paused {
		pauses += end.Sub(e.pausedAt)
	}

	return max(0, end.Sub(e.startedAt)-pauses)
}

// CompleteRequest builds the completion payload. Duration is in whole seconds.
func (e *Engine) CompleteRequest() workouts.CompleteRequest {
	req := workouts.CompleteRequest{
		Duration:     int(e.NetDuration() / time.Second),
		ExerciseLogs: make([]workouts.ExerciseLog, 0, len(e.progress)),
	}
	for _, p := range e.progress {
		if p.logged {
			req.ExerciseLogs = append(req.ExerciseLogs, p.log)
		}
	}
	return req
}

func (e *Engine) enter(index int) []Event {
	e.index = index
	e.timer.cancel()
	if e.exercises[index].IsTimed() {
		e.timer.arm(e.targetSeconds())
	}
	ev := e.event(EventAdvanced)
	ev.Remaining = e.timer.remaining
	return []Event{ev}
}

func (e *Engine) advance() []Event {
	if e.index >= len(e.exercises)-1 {
		return e.complete()
	}
	return e.enter(e.index + 1)
}

func (e *Engine) complete() []Event {
	if e.paused {
		e.closePause()
	}
	e.timer.cancel()
	e.endedAt = e.now()
	e.state = StateCompleted

	ev := Event{Kind: EventCompleted, Index: e.index, Elapsed: e.NetDuration()}
	return []Event{ev}
}

func (e *Engine) closePause() {
	e.totalPause += e.now().Sub(e.pausedAt)
	e.paused = false
	e.pausedAt = time.Time{}
}

func (e *Engine) targetSeconds() int {
	d := e.exercises[e.index].DurationSeconds
	if d == nil {
		return 0
	}
	return *d
}

// logCurrent records the current exercise. durationSeconds is only used for
// timed exercises.
func (e *Engine) logCurrent(durationSeconds int) []Event {
	exercise := e.exercises[e.index]
	p := &e.progress[e.index]
	endTime := e.now().UTC()

	entry := workouts.ExerciseLog{
		ExerciseID: exercise.ID,
		EndTime:    &endTime,
		Notes:      exercise.Notes,
	}
	if exercise.IsTimed() {
		entry.Duration = durationSeconds
	} else {
		if exercise.Sets != nil {
			entry.Sets = *exercise.Sets
		}
		if exercise.Weight != nil {
			entry.Weight = *exercise.Weight
		}
		entry.Reps = p.repsDone
	}

	p.logged = true
	p.log = entry

	ev := e.event(EventExerciseLogged)
	ev.Reps = entry.Reps
	return []Event{ev}
}

func (e *Engine) event(kind EventKind) Event {
	ev := Event{
		Kind:      kind,
		Index:     e.index,
		Remaining: e.timer.remaining,
		Elapsed:   e.NetDuration(),
	}
	if e.index < len(e.exercises) {
		ev.Exercise = e.exercises[e.index].Name
		ev.Reps = e.progress[e.index].repsDone
	}
	return ev
}
