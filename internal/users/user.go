package users

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/2beens/workouttracker/internal/auth"
)

// BootstrapAdminUsername is the account created on first start. It can be
// neither renamed nor deleted, and always keeps the admin role.
const BootstrapAdminUsername = "admin"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUsernameTaken          = errors.New("username already exists")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrBootstrapAdminRename   = errors.New("cannot change the admin username")
	ErrBootstrapAdminDemote   = errors.New("cannot change the admin role")
	ErrBootstrapAdminDelete   = errors.New("cannot delete the admin user")
	ErrBootstrapAdminNotAdmin = errors.New("account named admin is not an admin")
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == auth.RoleAdmin
}

func (u *User) IsBootstrapAdmin() bool {
	return u.Username == BootstrapAdminUsername
}

// IsReservedUsername reports whether username would collide with the
// bootstrap admin account.
func IsReservedUsername(username string) bool {
	return strings.EqualFold(strings.TrimSpace(username), BootstrapAdminUsername)
}

// AvatarFor returns the first letter of the username, uppercased.
func AvatarFor(username string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(username))
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// UserResponse is the public shape of a user in API responses.
type UserResponse struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	Role      auth.Role `json:"role"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Avatar:    u.Avatar,
		Role:      u.Role,
		IsAdmin:   u.IsAdmin(),
		CreatedAt: u.CreatedAt,
	}
}
