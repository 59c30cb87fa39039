package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algoprep/algoprep-api/internal/domain"
)

type fakeUsers struct {
	byEmail map[string]domain.User
	nextID  int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]domain.User{}} }

func (f *fakeUsers) Create(_ domain.Context, u domain.User) (string, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return "", fmt.Errorf("%w: email taken", domain.ErrConflict)
	}
	f.nextID++
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	f.byEmail[u.Email] = u
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Get(_ domain.Context, id string) (domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }
func (plainHasher) Verify(plain, encoded string) (bool, error) {
	return encoded == "h:"+plain, nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(newFakeUsers(), plainHasher{})
	ctx := context.Background()

	u, err := svc.Register(ctx, " Dev@Example.COM ", "hunter2hunter2", "Dev")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", u.Email)
	assert.NotEmpty(t, u.ID)
	assert.Empty(t, u.PasswordHash, "hash never leaves the service")

	got, err := svc.Login(ctx, "dev@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(newFakeUsers(), plainHasher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "hunter2hunter2", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Register(ctx, "dev@example.com", "short", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(newFakeUsers(), plainHasher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "dev@example.com", "hunter2hunter2", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "DEV@example.com", "hunter2hunter2", "")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAuthService_LoginFailuresIndistinguishable(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(newFakeUsers(), plainHasher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "dev@example.com", "hunter2hunter2", "")
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
	_, errWrongPw := svc.Login(ctx, "dev@example.com", "wrong-password")
	assert.ErrorIs(t, errUnknown, domain.ErrUnauthenticated)
	assert.ErrorIs(t, errWrongPw, domain.ErrUnauthenticated)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}
