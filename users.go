package secretskeeper

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUserNotFound is returned by stores when no record matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// User is the sole persisted entity. A record is created on first local
// registration or on the first OAuth callback for an unseen Google subject.
// At least one of Password or GoogleID is set by construction. After
// creation the only mutation is appending to Secrets; records are never
// deleted.
type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Email uniquely identifies the account for local login.
	Email string `bson:"email" json:"email"`

	// Password is a bcrypt hash. Empty for OAuth-only accounts.
	Password string `bson:"password,omitempty" json:"password,omitempty"`

	// GoogleID is the OAuth provider's subject id. Empty for local-only accounts.
	GoogleID string `bson:"googleId,omitempty" json:"google_id,omitempty"`

	// Secrets holds the user's submitted secrets, oldest first. The entries
	// are opaque text with no validation or size bound.
	Secrets []string `bson:"secret" json:"secrets"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Id returns the hex form of the document id. This is the value carried by
// sessions and auth tokens.
func (u *User) Id() string {
	return u.ID.Hex()
}

// UserStore manages User records in a document store.
type UserStore interface {
	// CreateUser inserts a new record. Email uniqueness is the caller's
	// concern first, the store's index second.
	CreateUser(ctx context.Context, user *User) error

	// GetUserById retrieves a user by the hex document id.
	GetUserById(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email, or ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByGoogleId retrieves a user by OAuth subject id, or ErrUserNotFound.
	GetUserByGoogleId(ctx context.Context, googleId string) (*User, error)

	// AppendSecret appends one secret to the user's record.
	AppendSecret(ctx context.Context, id string, secret string) error

	// UsersWithSecrets returns every user holding at least one secret.
	UsersWithSecrets(ctx context.Context) ([]*User, error)
}

// EnsureGoogleUser looks up the user for an OAuth subject id, creating a
// passwordless record on first sight. A repeat callback for the same subject
// returns the existing record.
func EnsureGoogleUser(ctx context.Context, store UserStore, googleId, email string) (*User, error) {
	user, err := store.GetUserByGoogleId(ctx, googleId)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &User{Email: email, GoogleID: googleId}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
