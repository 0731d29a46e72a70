package service

import (
	"context"
	"errors"

	"tradeboard/internal/model"
	"tradeboard/internal/util"
)

type userStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

type AuthService struct {
	users     userStore
	jwtSecret string
}

func NewAuthService(users userStore, jwtSecret string) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// Register creates a new user account on one side of the marketplace.
func (s *AuthService) Register(ctx context.Context, email, password, fullName, accountType string) (*model.User, error) {
	if accountType != model.AccountClient && accountType != model.AccountProfessional {
		return nil, errors.New("account_type must be client or professional")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already exists")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		AccountType:  accountType,
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login checks user credentials and returns JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return "", errors.New("invalid email or password")
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", errors.New("invalid email or password")
	}

	token, err := util.GenerateJWT(u.ID, u.AccountType, s.jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

// Profile returns the user record for an authenticated id.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}
