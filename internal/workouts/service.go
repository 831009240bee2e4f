package workouts

import (
	"context"
	"math"
	"time"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Start(ctx context.Context, userID, routineID int, startTime time.Time) (*Started, error)
	Complete(ctx context.Context, userID, sessionID int, req CompleteRequest, endTime time.Time) error
	History(ctx context.Context, userID int) ([]HistoryEntry, error)
	Get(ctx context.Context, userID, sessionID int) (*Session, error)
}

type Service struct {
	repo           workoutsRepo
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewService(repo workoutsRepo, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// timestamp is truncated to what postgres stores, so the value returned to
// the client equals the stored one.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) Start(ctx context.Context, userID, routineID int) (_ *Started, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.start")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("routine.id", routineID))

	if routineID <= 0 {
		return nil, &ValidationError{Field: "routineId", Message: "Routine ID is required"}
	}
	if routineID > math.MaxInt32 {
		return nil, ErrRoutineNotFound
	}

	started, err := s.repo.Start(ctx, userID, routineID, s.timestamp())
	if err != nil {
		return nil, err
	}

	s.metricsManager.CounterWorkoutsStarted.Inc()
	log.Debugf("user %d started workout session %d for routine %d", userID, started.SessionID, routineID)
	return started, nil
}

func (s *Service) Complete(ctx context.Context, userID, sessionID int, req CompleteRequest) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.complete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("session.id", sessionID))
	span.SetAttributes(attribute.Int("duration", req.Duration))

	if err := req.Validate(); err != nil {
		return err
	}
	if sessionID > math.MaxInt32 {
		return ErrSessionNotFound
	}

	if err := s.repo.Complete(ctx, userID, sessionID, req, s.timestamp()); err != nil {
		return err
	}

	s.metricsManager.CounterWorkoutsCompleted.Inc()
	s.metricsManager.HistWorkoutDuration.Observe(float64(req.Duration))
	log.Debugf("user %d completed workout session %d in %ds", userID, sessionID, req.Duration)
	return nil
}

func (s *Service) History(ctx context.Context, userID int) (_ []HistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.history")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return s.repo.History(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, sessionID int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if sessionID > math.MaxInt32 {
		return nil, ErrSessionNotFound
	}

	return s.repo.Get(ctx, userID, sessionID)
}
