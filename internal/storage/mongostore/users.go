package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserExists is returned when attempting to create a duplicate handle.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials is returned when authentication fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User represents a player account document.
type User struct {
	ID           string    `bson:"_id"`
	Handle       string    `bson:"handle"`
	Nickname     string    `bson:"nickname"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser inserts a new user with a bcrypt-hashed password and a freshly
// minted identifier.
//
// Precondition: handle and password must be non-empty.
// Postcondition: Returns the created User, or ErrUserExists if the handle is taken.
func (s *Store) CreateUser(ctx context.Context, handle, nickname, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Handle:       handle,
		Nickname:     nickname,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by id.
//
// Postcondition: Returns (nil, nil) when no user matches.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var user User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user %q: %w", id, err)
	}
	return &user, nil
}

// GetUserByHandle retrieves a user by their unique handle.
//
// Postcondition: Returns (nil, nil) when no user matches.
func (s *Store) GetUserByHandle(ctx context.Context, handle string) (*User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var user User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"handle": handle}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by handle %q: %w", handle, err)
	}
	return &user, nil
}

// Authenticate verifies credentials and returns the matching user.
//
// Postcondition: Returns the User if credentials are valid, or
// ErrInvalidCredentials for an unknown handle or a wrong password.
func (s *Store) Authenticate(ctx context.Context, handle, password string) (*User, error) {
	user, err := s.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
