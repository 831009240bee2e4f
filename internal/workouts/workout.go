package workouts

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/workouttracker/internal/routines"
)

var (
	ErrSessionNotFound = errors.New("workout session not found")
	ErrRoutineNotFound = errors.New("routine not found")
	ErrUnknownExercise = errors.New("exercise is not part of the workout session")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Session struct {
	ID            int        `json:"id"`
	UserID        int        `json:"userId"`
	RoutineID     int        `json:"routineId"`
	RoutineName   string     `json:"routineName"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Status        Status     `json:"status"`
	TotalDuration *int       `json:"totalDuration"`
	Notes         string     `json:"notes"`
	Logs          []Log      `json:"logs,omitempty"`
}

// Log is the per exercise record of a session. It is created empty when the
// session starts and filled in once on completion.
type Log struct {
	ID              int        `json:"id"`
	SessionID       int        `json:"sessionId"`
	ExerciseID      int        `json:"exerciseId"`
	ExerciseName    string     `json:"exerciseName"`
	OrderIndex      int        `json:"orderIndex"`
	SetsCompleted   int        `json:"setsCompleted"`
	RepsCompleted   int        `json:"repsCompleted"`
	WeightUsed      float64    `json:"weightUsed"`
	DurationSeconds int        `json:"durationSeconds"`
	CompletedAt     *time.Time `json:"completedAt"`
	Notes           string     `json:"notes"`
}

type StartRequest struct {
	RoutineID int `json:"routineId"`
}

// Started is a new session together with the exercise snapshot it runs.
type Started struct {
	SessionID int                 `json:"sessionId"`
	StartTime time.Time           `json:"startTime"`
	Exercises []routines.Exercise `json:"exercises"`
}

type ExerciseLog struct {
	ExerciseID int        `json:"exerciseId"`
	Sets       int        `json:"sets"`
	Reps       int        `json:"reps"`
	Weight     float64    `json:"weight"`
	Duration   int        `json:"duration"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Notes      string     `json:"notes"`
}

type CompleteRequest struct {
	// Duration is the net session length in seconds, pauses excluded.
	Duration     int           `json:"duration"`
	ExerciseLogs []ExerciseLog `json:"exerciseLogs"`
}

type HistoryEntry struct {
	ID                 int       `json:"id"`
	RoutineID          int       `json:"routineId"`
	RoutineName        string    `json:"routineName"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	TotalDuration      int       `json:"totalDuration"`
	TotalExercises     int       `json:"totalExercises"`
	CompletedExercises int       `json:"completedExercises"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a completion payload before anything is written.
func (req *CompleteRequest) Validate() error {
	if req.Duration < 0 {
		return &ValidationError{Field: "duration", Message: "Duration cannot be negative"}
	}
	if req.Duration > math.MaxInt32 {
		return &ValidationError{Field: "duration", Message: "Duration is too long"}
	}

	seen := make(map[int]bool, len(req.ExerciseLogs))
	for i, l := range req.ExerciseLogs {
		field := func(name string) string {
			return fmt.Sprintf("exerciseLogs[%d].%s", i, name)
		}
		if l.ExerciseID <= 0 {
			return &ValidationError{Field: field("exerciseId"), Message: "Exercise id is required"}
		}
		if l.ExerciseID > math.MaxInt32 {
			return &ValidationError{Field: field("exerciseId"), Message: "Exercise id is out of range"}
		}
		if seen[l.ExerciseID] {
			return &ValidationError{Field: field("exerciseId"), Message: "Exercise logged more than once"}
		}
		seen[l.ExerciseID] = true
		if l.Sets < 0 || l.Reps < 0 || l.Weight < 0 || l.Duration < 0 {
			return &ValidationError{Field: field("values"), Message: "Logged values cannot be negative"}
		}
		if l.Sets > math.MaxInt32 || l.Reps > math.MaxInt32 || l.Duration > math.MaxInt32 {
			return &ValidationError{Field: field("values"), Message: "Logged values are too large"}
		}
	}

	return nil
}
