package routines

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=routines_test

type routineService interface {
	Create(ctx context.Context, userID int, req CreateRequest) (*Routine, error)
	List(ctx context.Context, userID int) ([]Routine, error)
	Get(ctx context.Context, userID, id int) (*Routine, error)
	Delete(ctx context.Context, userID, id int) error
}

type CreateResponse struct {
	ID int `json:"id"`
}

type Handler struct {
	service routineService
}

func NewHandler(service routineService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(api *mux.Router) {
	api.HandleFunc("/routines", h.HandleList).Methods("GET", "OPTIONS").Name("list-routines")
	api.HandleFunc("/routines", h.HandleCreate).Methods("POST", "OPTIONS").Name("create-routine")
	api.HandleFunc("/routines/{id:[0-9]+}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-routine")
	api.HandleFunc("/routines/{id:[0-9]+}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-routine")
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.list")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	routines, err := h.service.List(ctx, session.UserID)
	if err != nil {
		log.Errorf("list routines for user %d: %s", session.UserID, err)
		span.SetStatus(codes.Error, err.Error())
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to load routines", "")
		return
	}

	pkg.WriteJSONResponseOK(w, routines)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.create")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	var req CreateRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("create routine, decode body: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid routine data", "")
		return
	}

	routine, err := h.service.Create(ctx, session.UserID, req)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			pkg.WriteJSONError(w, http.StatusBadRequest, validationErr.Message, validationErr.Field)
			return
		}
		log.Errorf("create routine for user %d: %s", session.UserID, err)
		span.SetStatus(codes.Error, err.Error())
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to create routine", "")
		return
	}

	span.SetAttributes(attribute.Int("routine.id", routine.ID))
	pkg.WriteJSONResponseOK(w, CreateResponse{ID: routine.ID})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	id, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "Routine not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid routine id", "id")
		return
	}

	routine, err := h.service.Get(ctx, session.UserID, id)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "Routine not found", "")
			return
		}
		log.Errorf("get routine %d: %s", id, err)
		span.SetStatus(codes.Error, err.Error())
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to load routine", "")
		return
	}

	pkg.WriteJSONResponseOK(w, routine)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.delete")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	id, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "Routine not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid routine id", "id")
		return
	}

	if err := h.service.Delete(ctx, session.UserID, id); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "Routine not found", "")
			return
		}
		log.Errorf("delete routine %d: %s", id, err)
		span.SetStatus(codes.Error, err.Error())
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to delete routine", "")
		return
	}

	pkg.WriteMessageOK(w, "Routine deleted successfully")
}
