package domain

import (
	"context"
	"time"
)

// User represents a user row in the primary store. PasswordHash never
// leaves the server.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username" validate:"required,min=3,max=50"`
	Email        string    `json:"email" db:"email" validate:"required,email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"firstName" db:"first_name" validate:"required,min=1,max=100"`
	LastName     string    `json:"lastName" db:"last_name" validate:"required,min=1,max=100"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// Exists reports whether a user with the given ID exists
	Exists(ctx context.Context, id int64) (bool, error)

	// List retrieves a paginated list of users
	List(ctx context.Context, limit, offset int) ([]*User, error)

	// Count returns the total number of users
	Count(ctx context.Context) (int, error)

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// Delete removes a user
	Delete(ctx context.Context, id int64) error
}
