package secretskeeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Credentials represents an email/password pair for signup or login
type Credentials struct {
	Email    string
	Password string
}

// CredentialsValidator validates credentials during login and returns the user
type CredentialsValidator func(ctx context.Context, email, password string) (*User, error)

// CreateUserFunc creates a new local user with the given credentials
type CreateUserFunc func(ctx context.Context, creds *Credentials) (*User, error)

// Login failure reasons. Both surface to the client as the same redirect so
// an attacker cannot probe which emails are registered.
var (
	ErrUnknownUser       = errors.New("user not found")
	ErrIncorrectPassword = errors.New("incorrect password")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// NewCredentialsValidator creates a CredentialsValidator backed by a store.
// Lookup is by email; the stored bcrypt hash is compared against the
// submitted password.
func NewCredentialsValidator(store UserStore) CredentialsValidator {
	return func(ctx context.Context, email, password string) (*User, error) {
		user, err := store.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, ErrUnknownUser
			}
			return nil, err
		}

		// OAuth-only accounts have no password to compare against
		if user.Password == "" {
			return nil, ErrIncorrectPassword
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		return user, nil
	}
}

// NewCreateUserFunc creates a CreateUserFunc backed by a store. The email
// must not already be registered; the password is stored as a bcrypt hash.
func NewCreateUserFunc(store UserStore) CreateUserFunc {
	return func(ctx context.Context, creds *Credentials) (*User, error) {
		if _, err := store.GetUserByEmail(ctx, creds.Email); err == nil {
			return nil, fmt.Errorf("email already registered")
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		user := &User{
			Email:    creds.Email,
			Password: string(passwordHash),
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		log.Printf("Created local user %s for %s", user.Id(), user.Email)
		return user, nil
	}
}
