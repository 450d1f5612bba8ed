// Package auth validates and hashes credentials against the credential
// store and produces the session identity bound to a connection after a
// successful login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/haneul-lab/lobbychat/internal/logging"
	"github.com/haneul-lab/lobbychat/internal/users"
)

const minPasswordLength = 4

var loginIDPattern = regexp.MustCompile(`^[a-z0-9]{4,12}$`)

// Identity describes an authenticated user as bound to a connection.
type Identity struct {
	UserID   string
	LoginID  string
	Name     string
	Nickname string
	IsAdmin  bool
}

// Service implements registration and login over a users.Repository.
type Service struct {
	repo users.Repository
	cost int
	log  logging.Logger
}

// NewService builds an auth service. cost is the bcrypt cost factor; values
// outside bcrypt's valid range fall back to bcrypt.DefaultCost, which keeps
// a single hash in the tens of milliseconds.
func NewService(repo users.Repository, cost int, log logging.Logger) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost, log: log}
}

func validateRegistration(loginID, password, name, nickname string) error {
	switch {
	case loginID == "":
		return &ValidationError{Field: "loginId", Reason: "must not be empty"}
	case password == "":
		return &ValidationError{Field: "password", Reason: "must not be empty"}
	case name == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case nickname == "":
		return &ValidationError{Field: "nickname", Reason: "must not be empty"}
	}

	if !loginIDPattern.MatchString(loginID) {
		return &ValidationError{Field: "loginId", Reason: "must be 4-12 lowercase letters or digits"}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}

	return nil
}

// Register validates the four fields, hashes the password, and persists a
// new user record. Input is rejected before any storage round-trip. The
// courtesy uniqueness lookup keeps the expensive hash off the common
// duplicate path; the store's unique constraint is what actually closes the
// concurrent-registration race.
func (s *Service) Register(ctx context.Context, loginID, password, name, nickname string) (string, error) {
	if err := validateRegistration(loginID, password, name, nickname); err != nil {
		return "", err
	}

	_, err := s.repo.FindByLogin(ctx, loginID)
	switch {
	case err == nil:
		return "", ErrLoginTaken
	case !errors.Is(err, users.ErrNotFound):
		return "", fmt.Errorf("checking login availability: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	user := &users.User{
		ID:           uuid.NewString(),
		LoginID:      loginID,
		PasswordHash: string(hash),
		Name:         name,
		Nickname:     nickname,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicateLogin) {
			return "", ErrLoginTaken
		}
		return "", fmt.Errorf("creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "loginId", loginID, "userId", user.ID)
	return user.ID, nil
}

// Login verifies the password against the stored hash. An unknown login id
// and a wrong password both come back as ErrInvalidCredentials so callers
// cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, loginID, password string) (*Identity, error) {
	user, err := s.repo.FindByLogin(ctx, loginID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		UserID:   user.ID,
		LoginID:  user.LoginID,
		Name:     user.Name,
		Nickname: user.Nickname,
		IsAdmin:  user.IsAdmin,
	}, nil
}
