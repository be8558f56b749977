// Package auth resolves caller credentials to roles. The rest of the
// system only ever sees the resolved role, never a credential.
package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/store"
)

type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

// Register creates an account with a bcrypt-hashed credential.
func (s *Service) Register(ctx context.Context, name, password string, role domain.Role) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.Validationf("name is mandatory")
	}
	if password == "" {
		return 0, domain.Validationf("password is mandatory")
	}
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return 0, domain.Validationf("role must be admin or user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return s.store.CreateUser(ctx, &domain.User{
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Authenticate verifies the credential and yields the account's role.
// Unknown names and wrong passwords report the same error.
func (s *Service) Authenticate(ctx context.Context, name, password string) (domain.Role, error) {
	u, err := s.store.UserByName(ctx, name)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}
	return u.Role, nil
}

// ChangePassword re-hashes and stores a new credential for an existing
// account.
func (s *Service) ChangePassword(ctx context.Context, name, password string) error {
	if password == "" {
		return domain.Validationf("password is mandatory")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.SetUserPassword(ctx, name, string(hash))
}
