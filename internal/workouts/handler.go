package workouts

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type workoutService interface {
	Start(ctx context.Context, userID, routineID int) (*Started, error)
	Complete(ctx context.Context, userID, sessionID int, req CompleteRequest) error
	History(ctx context.Context, userID int) ([]HistoryEntry, error)
	Get(ctx context.Context, userID, sessionID int) (*Session, error)
}

type Handler struct {
	service workoutService
}

func NewHandler(service workoutService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(api *mux.Router) {
	api.HandleFunc("/workouts/start", h.HandleStart).Methods("POST", "OPTIONS").Name("start-workout")
	api.HandleFunc("/workouts/history", h.HandleHistory).Methods("GET", "OPTIONS").Name("workout-history")
	api.HandleFunc("/workouts/{id:[0-9]+}/complete", h.HandleComplete).Methods("POST", "OPTIONS").Name("complete-workout")
	api.HandleFunc("/workouts/{id:[0-9]+}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.start")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	var req StartRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Routine ID is required", "routineId")
		return
	}

	started, err := h.service.Start(ctx, session.UserID, req.RoutineID)
	if err != nil {
		var validationErr *ValidationError
		switch {
		case errors.As(err, &validationErr):
			pkg.WriteJSONError(w, http.StatusBadRequest, validationErr.Message, validationErr.Field)
		case errors.Is(err, ErrRoutineNotFound):
			pkg.WriteJSONError(w, http.StatusNotFound, "Routine not found", "")
		default:
			log.Errorf("start workout for routine %d: %s", req.RoutineID, err)
			span.SetStatus(codes.Error, err.Error())
			pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to start workout", "")
		}
		return
	}

	pkg.WriteJSONResponseOK(w, started)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.complete")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	sessionID, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "Workout session not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid session id", "sessionId")
		return
	}

	var req CompleteRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid completion data", "")
		return
	}

	if err := h.service.Complete(ctx, session.UserID, sessionID, req); err != nil {
		var validationErr *ValidationError
		switch {
		case errors.As(err, &validationErr):
			pkg.WriteJSONError(w, http.StatusBadRequest, validationErr.Message, validationErr.Field)
		case errors.Is(err, ErrSessionNotFound):
			pkg.WriteJSONError(w, http.StatusNotFound, "Workout session not found", "")
		case errors.Is(err, ErrUnknownExercise):
			pkg.WriteJSONError(w, http.StatusBadRequest, "Exercise is not part of this workout", "exerciseLogs")
		default:
			log.Errorf("complete workout session %d: %s", sessionID, err)
			span.SetStatus(codes.Error, err.Error())
			pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to complete workout", "")
		}
		return
	}

	pkg.WriteMessageOK(w, "Workout completed successfully")
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.history")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	history, err := h.service.History(ctx, session.UserID)
	if err != nil {
		log.Errorf("workout history for user %d: %s", session.UserID, err)
		span.SetStatus(codes.Error, err.Error())
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to load workout history", "")
		return
	}

	pkg.WriteJSONResponseOK(w, history)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	sessionID, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "Workout session not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid session id", "sessionId")
		return
	}

	workout, err := h.service.Get(ctx, session.UserID, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "Workout session not found", "")
			return
		}
		log.Errorf("get workout session %d: %s", sessionID, err)
		span.SetStatus(codes.Error, err.Error())
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to load workout", "")
		return
	}

	pkg.WriteJSONResponseOK(w, workout)
}
