package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	sk "github.com/Gaurangi-25/Secrets-Keeper"
)

// FSUserStore stores users as JSON files. Suitable for development and
// tests; lookups by email and google id scan the storage directory.
type FSUserStore struct {
	StoragePath string
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", userId+".json")
}

func (s *FSUserStore) CreateUser(_ context.Context, user *sk.User) error {
	if existing, _ := s.scan(func(u *sk.User) bool { return u.Email == user.Email }); existing != nil {
		return fmt.Errorf("email already registered")
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	return s.save(user)
}

func (s *FSUserStore) GetUserById(_ context.Context, userId string) (*sk.User, error) {
	path := s.getUserPath(userId)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sk.ErrUserNotFound
		}
		return nil, err
	}

	var user sk.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSUserStore) GetUserByEmail(_ context.Context, email string) (*sk.User, error) {
	user, err := s.scan(func(u *sk.User) bool { return u.Email == email })
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, sk.ErrUserNotFound
	}
	return user, nil
}

func (s *FSUserStore) GetUserByGoogleId(_ context.Context, googleId string) (*sk.User, error) {
	user, err := s.scan(func(u *sk.User) bool { return u.GoogleID != "" && u.GoogleID == googleId })
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, sk.ErrUserNotFound
	}
	return user, nil
}

func (s *FSUserStore) AppendSecret(ctx context.Context, userId string, secret string) error {
	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return err
	}
	user.Secrets = append(user.Secrets, secret)
	user.UpdatedAt = time.Now()
	return s.save(user)
}

func (s *FSUserStore) UsersWithSecrets(_ context.Context) ([]*sk.User, error) {
	var users []*sk.User
	err := s.walk(func(u *sk.User) bool {
		if len(u.Secrets) > 0 {
			users = append(users, u)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *FSUserStore) save(user *sk.User) error {
	path := s.getUserPath(user.Id())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}

	return writeAtomicFile(path, data)
}

// scan returns the first user matching the predicate, or nil
func (s *FSUserStore) scan(match func(*sk.User) bool) (*sk.User, error) {
	var found *sk.User
	err := s.walk(func(u *sk.User) bool {
		if match(u) {
			found = u
			return true
		}
		return false
	})
	return found, err
}

// walk visits every stored user until the visitor returns true
func (s *FSUserStore) walk(visit func(*sk.User) bool) error {
	dir := filepath.Join(s.StoragePath, "users")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		var user sk.User
		if err := json.Unmarshal(data, &user); err != nil {
			return err
		}
		if visit(&user) {
			return nil
		}
	}
	return nil
}
