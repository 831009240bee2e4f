package routines

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrRoutineNotFound = errors.New("routine not found")

type Kind string

const (
	KindReps  Kind = "reps"
	KindTimed Kind = "timed"
)

const (
	UnitSeconds = "seconds"
	UnitMinutes = "minutes"
)

// Exercise is one step of a routine. Reps exercises carry sets, reps and
// weight, timed exercises carry only DurationSeconds.
type Exercise struct {
	ID              int      `json:"id"`
	RoutineID       int      `json:"routineId"`
	Name            string   `json:"name"`
	Kind            Kind     `json:"type"`
	Sets            *int     `json:"sets,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	Notes           string   `json:"notes"`
	OrderIndex      int      `json:"orderIndex"`
}

func (e *Exercise) IsTimed() bool {
	return e.Kind == KindTimed
}

type Routine struct {
	ID            int        `json:"id"`
	UserID        int        `json:"userId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExerciseCount int        `json:"exerciseCount"`
	Exercises     []Exercise `json:"exercises,omitempty"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ExerciseRequest struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Sets     *int     `json:"sets,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type CreateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Exercises   []ExerciseRequest `json:"exercises"`
}

// NewRoutine validates a create request and turns it into a routine ready to
// be stored. Timed durations are converted to seconds, and fields that do not
// belong to the exercise kind are dropped.
func NewRoutine(userID int, req CreateRequest) (*Routine, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "Routine name is required"}
	}
	if len(req.Exercises) == 0 {
		return nil, &ValidationError{Field: "exercises", Message: "At least one exercise is required"}
	}

	routine := &Routine{
		UserID:        userID,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		ExerciseCount: len(req.Exercises),
		Exercises:     make([]Exercise, 0, len(req.Exercises)),
	}
	for i, er := range req.Exercises {
		exercise, err := newExercise(i, er)
		if err != nil {
			return nil, err
		}
		routine.Exercises = append(routine.Exercises, *exercise)
	}

	return routine, nil
}

func newExercise(index int, req ExerciseRequest) (*Exercise, error) {
	field := func(name string) string {
		return fmt.Sprintf("exercises[%d].%s", index, name)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: field("name"), Message: "Exercise name is required"}
	}

	exercise := &Exercise{
		Name:       name,
		Notes:      strings.TrimSpace(req.Notes),
		OrderIndex: index,
	}

	switch Kind(strings.ToLower(strings.TrimSpace(req.Type))) {
	case KindTimed:
		seconds, err := durationSeconds(req.Duration, req.Unit)
		if err != nil {
			return nil, &ValidationError{Field: field(err.field), Message: err.msg}
		}
		exercise.Kind = KindTimed
		exercise.DurationSeconds = &seconds
	case KindReps, "":
		if req.Sets == nil || *req.Sets < 1 {
			return nil, &ValidationError{Field: field("sets"), Message: "Sets must be at least 1"}
		}
		if *req.Sets > maxCount {
			return nil, &ValidationError{Field: field("sets"), Message: "Sets is too large"}
		}
		if req.Reps == nil || *req.Reps < 1 {
			return nil, &ValidationError{Field: field("reps"), Message: "Reps must be at least 1"}
		}
		if *req.Reps > maxCount {
			return nil, &ValidationError{Field: field("reps"), Message: "Reps is too large"}
		}
		if req.Weight != nil && *req.Weight < 0 {
			return nil, &ValidationError{Field: field("weight"), Message: "Weight cannot be negative"}
		}
		exercise.Kind = KindReps
		exercise.Sets = req.Sets
		exercise.Reps = req.Reps
		exercise.Weight = req.Weight
	default:
		return nil, &ValidationError{Field: field("type"), Message: "Exercise type must be reps or timed"}
	}

	return exercise, nil
}

// maxCount is the largest value an INTEGER column holds.
const maxCount = math.MaxInt32

type durationErr struct {
	field string
	msg   string
}

// durationSeconds normalises a timed duration to whole seconds.
func durationSeconds(duration *float64, unit string) (int, *durationErr) {
	if duration == nil || *duration <= 0 {
		return 0, &durationErr{field: "duration", msg: "Duration must be greater than 0"}
	}

	var seconds float64
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case UnitSeconds, "":
		seconds = *duration
	case UnitMinutes:
		seconds = *duration * 60
	default:
		return 0, &durationErr{field: "unit", msg: "Unit must be seconds or minutes"}
	}

	if math.Round(seconds) > maxCount {
		return 0, &durationErr{field: "duration", msg: "Duration is too long"}
	}
	rounded := int(math.Round(seconds))
	if rounded < 1 {
		return 0, &durationErr{field: "duration", msg: "Duration must be at least 1 second"}
	}
	return rounded, nil
}
