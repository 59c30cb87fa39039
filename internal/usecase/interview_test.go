package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algoprep/algoprep-api/internal/domain"
)

type fakeInterviews struct {
	byID   map[string]domain.Interview
	nextID int
}

func newFakeInterviews() *fakeInterviews {
	return &fakeInterviews{byID: map[string]domain.Interview{}}
}

func (f *fakeInterviews) Create(_ domain.Context, iv domain.Interview) (string, error) {
	f.nextID++
	iv.ID = fmt.Sprintf("iv-%d", f.nextID)
	f.byID[iv.ID] = iv
	return iv.ID, nil
}

func (f *fakeInterviews) Get(_ domain.Context, ownerID, id string) (domain.Interview, error) {
	iv, ok := f.byID[id]
	if !ok || iv.OwnerID != ownerID {
		return domain.Interview{}, domain.ErrNotFound
	}
	return iv, nil
}

func (f *fakeInterviews) ListByOwner(_ domain.Context, ownerID string) ([]domain.Interview, error) {
	var out []domain.Interview
	for _, iv := range f.byID {
		if iv.OwnerID == ownerID {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (f *fakeInterviews) Delete(_ domain.Context, ownerID, id string) error {
	iv, ok := f.byID[id]
	if !ok || iv.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func TestInterviewService_CreateDefaultsStatus(t *testing.T) {
	t.Parallel()

	svc := NewInterviewService(newFakeInterviews())
	iv, err := svc.Create(context.Background(), "u1", domain.Interview{Title: "Phone screen"})
	require.NoError(t, err)
	assert.Equal(t, domain.InterviewScheduled, iv.Status)
	assert.Equal(t, "u1", iv.OwnerID)
	assert.NotEmpty(t, iv.ID)
}

func TestInterviewService_CreateValidation(t *testing.T) {
	t.Parallel()

	svc := NewInterviewService(newFakeInterviews())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", domain.Interview{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.Create(ctx, "u1", domain.Interview{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Create(ctx, "u1", domain.Interview{Title: "x", Status: "paused"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestInterviewService_OwnerIsolation(t *testing.T) {
	t.Parallel()

	repo := newFakeInterviews()
	svc := NewInterviewService(repo)
	ctx := context.Background()

	iv, err := svc.Create(ctx, "u1", domain.Interview{Title: "Onsite"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", iv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(ctx, "u2", iv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.Get(ctx, "u1", iv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Onsite", got.Title)

	require.NoError(t, svc.Delete(ctx, "u1", iv.ID))
	_, err = svc.Get(ctx, "u1", iv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
