package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizgen-service/internal/domain"
)

// UserStore persists accounts and their profiles.
type UserStore interface {
	// CreateUser fails with domain.ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, user domain.User) error
	CreateProfile(ctx context.Context, profile domain.Profile) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

const defaultAvatarURL = "/static/avatars/default.png"

// AccountService handles registration. Profile creation is an explicit step
// of the use case rather than a side effect of saving a user, so the creation
// order is visible and testable.
type AccountService struct {
	users UserStore
	clock func() time.Time
}

func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users, clock: time.Now}
}

// Register creates the user, then creates their profile.
func (s *AccountService) Register(ctx context.Context, email, password, fullName string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    s.clock(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	profile := domain.Profile{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FullName:  fullName,
		AvatarURL: defaultAvatarURL,
	}
	if err := s.users.CreateProfile(ctx, profile); err != nil {
		return domain.User{}, fmt.Errorf("create profile: %w", err)
	}
	return user, nil
}
