package store

import (
	"errors"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ErrUserNotFound is returned when a user doesn't exist
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an email that already exists
var ErrEmailTaken = errors.New("email already registered")

// ErrUsernameTaken is returned when registering with a username that already exists
var ErrUsernameTaken = errors.New("username already registered")

// UserFilter narrows List results. Zero values mean no filtering.
type UserFilter struct {
	Search   string // matches email, first name or last name
	Active   *bool
	Position string
	Limit    int
	Offset   int
}

// UsersStore abstracts user account storage operations
type UsersStore interface {
	// GetByID retrieves a user by primary key.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetByID(id uint) (*model.User, error)

	// GetByEmail retrieves a user by email.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetByEmail(email string) (*model.User, error)

	// Create inserts a new user.
	// Returns ErrEmailTaken or ErrUsernameTaken when the email or
	// username is already registered.
	Create(user *model.User) error

	// Update persists changes to an existing user.
	Update(user *model.User) error

	// List returns users matching the filter and the total count
	// before limit/offset are applied.
	List(filter UserFilter) ([]model.User, int64, error)

	// SetRefreshToken stores the current refresh token for a user.
	// Passing nil invalidates any outstanding refresh token.
	SetRefreshToken(userID uint, token *string) error

	// SetPassword updates the password hash and invalidates the
	// stored refresh token in the same transaction.
	SetPassword(userID uint, passwordHash string) error

	// RecordLogin updates last_login and resets failed attempts.
	RecordLogin(userID uint) error

	// RecordFailedLogin increments the failed login counter.
	RecordFailedLogin(userID uint) error
}
