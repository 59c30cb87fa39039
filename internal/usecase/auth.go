package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// PasswordHasher abstracts the password hashing scheme so the service does
// not depend on a concrete KDF.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// AuthService registers accounts and checks credentials.
type AuthService struct {
	Users  domain.UserRepository
	Hasher PasswordHasher
}

// NewAuthService constructs an AuthService.
func NewAuthService(users domain.UserRepository, hasher PasswordHasher) AuthService {
	return AuthService{Users: users, Hasher: hasher}
}

const minPasswordLen = 8

// Register creates an account. Email is stored lowercased; a duplicate email
// surfaces domain.ErrConflict.
func (s AuthService) Register(ctx domain.Context, email, password, displayName string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("%w: valid email required", domain.ErrInvalidArgument)
	}
	if len(password) < minPasswordLen {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLen)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := domain.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	u.PasswordHash = ""
	return u, nil
}

// Login verifies credentials and returns the account. Unknown email and bad
// password are indistinguishable to the caller.
func (s AuthService) Login(ctx domain.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	ok, err := s.Hasher.Verify(password, u.PasswordHash)
	if err != nil || !ok {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	u.PasswordHash = ""
	return u, nil
}
