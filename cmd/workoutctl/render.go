package main

import (
	"fmt"
	"io"
	"time"

	"github.com/2beens/workouttracker/internal/workouts/engine"
)

// bell makes the terminal beep on every cue tick.
const bell = "\a"

type renderer struct {
	out      io.Writer
	total    int
	lastReps int
}

func newRenderer(out io.Writer, total int) *renderer {
	return &renderer{out: out, total: total}
}

func (r *renderer) render(ev engine.Event) {
	switch ev.Kind {
	case engine.EventStarted:
		fmt.Fprintln(r.out, "Workout started")
	case engine.EventAdvanced:
		r.lastReps = ev.Reps
		fmt.Fprintf(r.out, "\n[%d/%d] %s", ev.Index+1, r.total, ev.Exercise)
		if ev.Remaining > 0 {
			fmt.Fprintf(r.out, " (%s)", formatClock(ev.Remaining))
		}
		fmt.Fprintln(r.out)
	case engine.EventTick:
		if ev.Remaining > 0 {
			fmt.Fprintf(r.out, "\r  %s ", formatClock(ev.Remaining))
		}
	case engine.EventReps:
		if ev.Reps != r.lastReps {
			r.lastReps = ev.Reps
			fmt.Fprintf(r.out, "  reps: %d\n", ev.Reps)
		}
	case engine.EventCue:
		fmt.Fprint(r.out, bell)
	case engine.EventExerciseLogged:
		fmt.Fprintf(r.out, "\n  done: %s\n", ev.Exercise)
	case engine.EventPaused:
		fmt.Fprintln(r.out, "\n  paused")
	case engine.EventResumed:
		fmt.Fprintln(r.out, "  resumed")
	case engine.EventCompleted:
		fmt.Fprintf(r.out, "\nWorkout complete in %s\n", formatDuration(ev.Elapsed))
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func formatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
