package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=users_test

type usersRepo interface {
	Create(ctx context.Context, user User) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id int) error
}

type sessionRevoker interface {
	DestroyUserSessions(ctx context.Context, userID int) (int, error)
}

// CreateParams is an admin request for a new account.
type CreateParams struct {
	Username string
	Password string
	Role     auth.Role
}

// UpdateParams is an admin edit; empty Password and Role keep the current values.
type UpdateParams struct {
	Username string
	Password string
	Role     auth.Role
}

type Service struct {
	repo     usersRepo
	sessions sessionRevoker
}

func NewService(repo usersRepo, sessions sessionRevoker) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.register")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return s.create(ctx, CreateParams{
		Username: username,
		Password: password,
		Role:     auth.RoleUser,
	})
}

// Authenticate returns the user for valid credentials, ErrInvalidCredentials otherwise.
func (s *Service) Authenticate(ctx context.Context, username, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.authenticate")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// EnsureBootstrapAdmin creates the admin account when it is missing. An
// existing admin account is left untouched. An account with that name but
// without the admin role is never promoted: its password is not the one
// configured, so ErrBootstrapAdminNotAdmin is returned instead.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, passwordHash string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.ensure-admin")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	existing, err := s.repo.GetByUsername(ctx, BootstrapAdminUsername)
	switch {
	case err == nil:
		if existing.Role != auth.RoleAdmin {
			log.Errorf("account [%s] (id %d) has role [%s], refusing to promote it", existing.Username, existing.ID, existing.Role)
			return nil, ErrBootstrapAdminNotAdmin
		}
		return existing, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("get admin user: %w", err)
	}

	admin, err := s.repo.Create(ctx, User{
		Username:     BootstrapAdminUsername,
		PasswordHash: passwordHash,
		Avatar:       AvatarFor(BootstrapAdminUsername),
		Role:         auth.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}

	log.Infof("bootstrap admin user created with id %d", admin.ID)
	return admin, nil
}

func (s *Service) List(ctx context.Context) (_ []User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, params CreateParams) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if params.Role == "" {
		params.Role = auth.RoleUser
	}
	return s.create(ctx, params)
}

func (s *Service) create(ctx context.Context, params CreateParams) (*User, error) {
	if err := ValidateUsername(params.Username); err != nil {
		return nil, err
	}
	if IsReservedUsername(params.Username) {
		return nil, errReservedUsername
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}
	if !params.Role.Valid() {
		return nil, &ValidationError{Field: "role", Message: "Role must be admin or user"}
	}

	passwordHash, err := pkg.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, User{
		Username:     params.Username,
		PasswordHash: passwordHash,
		Avatar:       AvatarFor(params.Username),
		Role:         params.Role,
	})
}

func (s *Service) Update(ctx context.Context, id int, params UpdateParams) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("id", id))

	if err := ValidateUsername(params.Username); err != nil {
		return err
	}
	if params.Password != "" {
		if err := ValidatePassword(params.Password); err != nil {
			return err
		}
	}
	if params.Role != "" && !params.Role.Valid() {
		return &ValidationError{Field: "role", Message: "Role must be admin or user"}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.IsBootstrapAdmin() {
		if params.Username != BootstrapAdminUsername {
			return ErrBootstrapAdminRename
		}
		if params.Role != "" && params.Role != auth.RoleAdmin {
			return ErrBootstrapAdminDemote
		}
	} else if IsReservedUsername(params.Username) {
		return errReservedUsername
	}

	identityChanged := user.Username != params.Username || (params.Role != "" && params.Role != user.Role)

	user.Username = params.Username
	user.Avatar = AvatarFor(params.Username)
	if params.Role != "" {
		user.Role = params.Role
	}
	if params.Password != "" {
		user.PasswordHash, err = pkg.HashPassword(params.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}

	if err := s.repo.Update(ctx, *user); err != nil {
		return err
	}

	// sessions carry username and role, make the user log in again
	if identityChanged {
		s.revokeSessions(ctx, id)
	}
	return nil
}

// Delete removes a user and revokes their sessions. The bootstrap admin is
// always refused.
func (s *Service) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("id", id))

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsBootstrapAdmin() {
		return ErrBootstrapAdminDelete
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.revokeSessions(ctx, id)
	return nil
}

func (s *Service) revokeSessions(ctx context.Context, userID int) {
	if s.sessions == nil {
		return
	}
	revoked, err := s.sessions.DestroyUserSessions(ctx, userID)
	if err != nil {
		log.Errorf("revoke sessions of user %d, %d revoked: %s", userID, revoked, err)
		return
	}
	if revoked > 0 {
		log.Debugf("revoked %d sessions of user %d", revoked, userID)
	}
}
