package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/middleware"
	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=users_test

type userService interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int) (*User, error)
	Create(ctx context.Context, params CreateParams) (*User, error)
	Update(ctx context.Context, id int, params UpdateParams) error
	Delete(ctx context.Context, id int) error
}

type sessionStore interface {
	Create(ctx context.Context, session auth.Session) (string, error)
	Destroy(ctx context.Context, token string) error
}

type cookieStore interface {
	Save(w http.ResponseWriter, r *http.Request, token string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsAdmin  bool   `json:"isAdmin"`
}

type AdminUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role,omitempty"`
}

type CreateUserResponse struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

type Handler struct {
	service        userService
	sessions       sessionStore
	cookies        cookieStore
	metricsManager *metrics.Manager
}

func NewHandler(
	service userService,
	sessions sessionStore,
	cookies cookieStore,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		service:        service,
		sessions:       sessions,
		cookies:        cookies,
		metricsManager: metricsManager,
	}
}

// SetupRoutes registers the account routes on api (/api) and the user
// management routes on admin (/api/admin, gated to admins by the caller).
func (h *Handler) SetupRoutes(
	api *mux.Router,
	admin *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
) {
	// rate limit the login and register endpoints to prevent abuse
	limited := func(name string, hf http.HandlerFunc) http.Handler {
		return middleware.RateLimit(rateLimiter, name, allowedPerMin, h.metricsManager)(hf)
	}
	api.Handle("/register", limited("register", h.HandleRegister)).Methods("POST", "OPTIONS").Name("register")
	api.Handle("/login", limited("login", h.HandleLogin)).Methods("POST", "OPTIONS").Name("login")
	api.HandleFunc("/logout", h.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	api.HandleFunc("/me", h.HandleMe).Methods("GET", "OPTIONS").Name("me")

	admin.HandleFunc("/users", h.HandleList).Methods("GET", "OPTIONS").Name("admin-list-users")
	admin.HandleFunc("/users", h.HandleCreate).Methods("POST", "OPTIONS").Name("admin-create-user")
	admin.HandleFunc("/users/{id:[0-9]+}", h.HandleGet).Methods("GET", "OPTIONS").Name("admin-get-user")
	admin.HandleFunc("/users/{id:[0-9]+}", h.HandleUpdate).Methods("PUT", "OPTIONS").Name("admin-update-user")
	admin.HandleFunc("/users/{id:[0-9]+}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("admin-delete-user")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	var creds Credentials
	if err := pkg.DecodeJSONBody(r, &creds); err != nil {
		log.Tracef("register, decode body: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	user, err := h.service.Register(ctx, creds.Username, creds.Password)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeUserError(w, err, "Registration failed")
		return
	}

	h.metricsManager.CounterRegistrations.Inc()
	log.Debugf("new user registered: %d [%s]", user.ID, user.Username)
	pkg.WriteMessageOK(w, "User registered successfully")
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var creds Credentials
	if err := pkg.DecodeJSONBody(r, &creds); err != nil {
		log.Tracef("login, decode body: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Username and password are required", "")
		return
	}

	user, err := h.service.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Tracef("failed login attempt for user: %s", creds.Username)
			h.metricsManager.CounterLogins.WithLabelValues("invalid").Inc()
			span.SetStatus(codes.Error, "invalid-credentials")
			pkg.WriteJSONError(w, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}
		log.Errorf("login, authenticate: %s", err)
		h.metricsManager.CounterLogins.WithLabelValues("error").Inc()
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error", "")
		return
	}

	token, err := h.sessions.Create(ctx, auth.Session{
		UserID:   user.ID,
		Username: user.Username,
		Avatar:   user.Avatar,
		Role:     user.Role,
	})
	if err != nil {
		log.Errorf("login, create session: %s", err)
		h.metricsManager.CounterLogins.WithLabelValues("error").Inc()
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error", "")
		return
	}

	if err := h.cookies.Save(w, r, token); err != nil {
		log.Errorf("login, save session cookie: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error", "")
		return
	}

	h.metricsManager.CounterLogins.WithLabelValues("ok").Inc()
	log.Tracef("new login success: %s", user.Username)
	pkg.WriteJSONResponseOK(w, LoginResponse{
		ID:       user.ID,
		Username: user.Username,
		Avatar:   user.Avatar,
		IsAdmin:  user.IsAdmin(),
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	session, ok := auth.FromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	if err := h.sessions.Destroy(ctx, session.Token); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		log.Errorf("logout, destroy session: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Could not log out", "")
		return
	}

	if err := h.cookies.Clear(w, r); err != nil {
		log.Warnf("logout, clear cookie: %s", err)
	}

	pkg.WriteMessageOK(w, "Logged out successfully")
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	pkg.WriteJSONResponseOK(w, LoginResponse{
		ID:       session.UserID,
		Username: session.Username,
		Avatar:   session.Avatar,
		IsAdmin:  session.IsAdmin(),
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.admin.users.list")
	defer span.End()

	users, err := h.service.List(ctx)
	if err != nil {
		log.Errorf("admin list users: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to fetch users", "")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, NewUserResponse(&users[i]))
	}
	pkg.WriteJSONResponseOK(w, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.admin.users.get")
	defer span.End()

	id, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid user id", "id")
		return
	}

	user, err := h.service.Get(ctx, id)
	if err != nil {
		writeUserError(w, err, "Failed to fetch user")
		return
	}

	pkg.WriteJSONResponseOK(w, NewUserResponse(user))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.admin.users.create")
	defer span.End()

	var req AdminUserRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	user, err := h.service.Create(ctx, CreateParams(req))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeUserError(w, err, "Failed to create user")
		return
	}

	log.Debugf("admin created user %d [%s]", user.ID, user.Username)
	pkg.WriteJSONResponseOK(w, CreateUserResponse{
		ID:      user.ID,
		Message: "User created successfully",
	})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.admin.users.update")
	defer span.End()

	id, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid user id", "id")
		return
	}

	var req AdminUserRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := h.service.Update(ctx, id, UpdateParams(req)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeUserError(w, err, "Failed to update user")
		return
	}

	pkg.WriteMessageOK(w, "User updated successfully")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.admin.users.delete")
	defer span.End()

	id, err := pkg.ParseID(mux.Vars(r)["id"])
	if errors.Is(err, pkg.ErrIDOutOfRange) {
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid user id", "id")
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeUserError(w, err, "Failed to delete user")
		return
	}

	pkg.WriteMessageOK(w, "User deleted successfully")
}

func writeUserError(w http.ResponseWriter, err error, fallbackMsg string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		pkg.WriteJSONError(w, http.StatusBadRequest, validationErr.Message, validationErr.Field)
	case errors.Is(err, ErrUsernameTaken):
		pkg.WriteJSONError(w, http.StatusBadRequest, "Username already exists", "username")
	case errors.Is(err, ErrBootstrapAdminRename):
		pkg.WriteJSONError(w, http.StatusBadRequest, "Cannot change admin username", "username")
	case errors.Is(err, ErrBootstrapAdminDemote):
		pkg.WriteJSONError(w, http.StatusBadRequest, "Cannot change admin role", "role")
	case errors.Is(err, ErrBootstrapAdminDelete):
		pkg.WriteJSONError(w, http.StatusForbidden, "Cannot delete admin user", "")
	case errors.Is(err, ErrUserNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found", "")
	default:
		log.Errorf("%s: %s", fallbackMsg, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, fallbackMsg, "")
	}
}
