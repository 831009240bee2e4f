package routines

import (
	"context"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=routines_test

type routinesRepo interface {
	Create(ctx context.Context, routine Routine) (*Routine, error)
	List(ctx context.Context, userID int) ([]Routine, error)
	Get(ctx context.Context, userID, id int) (*Routine, error)
	Delete(ctx context.Context, userID, id int) error
}

type detailCache interface {
	Get(userID, routineID int) (*Routine, bool)
	Set(routine *Routine)
	Invalidate(userID, routineID int)
}

type Service struct {
	repo           routinesRepo
	cache          detailCache
	metricsManager *metrics.Manager
}

func NewService(repo routinesRepo, cache detailCache, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		metricsManager: metricsManager,
	}
}

func (s *Service) Create(ctx context.Context, userID int, req CreateRequest) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.routines.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))

	routine, err := NewRoutine(userID, req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, *routine)
	if err != nil {
		return nil, err
	}

	s.metricsManager.CounterRoutinesCreated.Inc()
	log.Debugf("routine %d [%s] created with %d exercises for user %d", created.ID, created.Name, len(created.Exercises), userID)
	return created, nil
}

func (s *Service) List(ctx context.Context, userID int) (_ []Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.routines.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id int) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.routines.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("id", id))

	if routine, ok := s.cache.Get(userID, id); ok {
		span.SetAttributes(attribute.Bool("cached", true))
		return routine, nil
	}

	routine, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(routine)
	return routine, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.routines.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("id", id))

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.cache.Invalidate(userID, id)
	log.Debugf("routine %d of user %d deleted", id, userID)
	return nil
}
