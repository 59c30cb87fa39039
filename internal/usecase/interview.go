package usecase

import (
	"fmt"
	"time"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// InterviewService manages a user's scheduled mock interviews. Every
// operation is owner-scoped: callers can only see and mutate their own
// records.
type InterviewService struct {
	Interviews domain.InterviewRepository
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(repo domain.InterviewRepository) InterviewService {
	return InterviewService{Interviews: repo}
}

// Create schedules an interview for ownerID.
func (s InterviewService) Create(ctx domain.Context, ownerID string, iv domain.Interview) (domain.Interview, error) {
	if ownerID == "" {
		return domain.Interview{}, fmt.Errorf("%w: no resolved principal", domain.ErrUnauthenticated)
	}
	if iv.Title == "" {
		return domain.Interview{}, fmt.Errorf("%w: title required", domain.ErrInvalidArgument)
	}
	if iv.Status == "" {
		iv.Status = domain.InterviewScheduled
	}
	switch iv.Status {
	case domain.InterviewScheduled, domain.InterviewCompleted, domain.InterviewCancelled:
	default:
		return domain.Interview{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, iv.Status)
	}

	now := time.Now().UTC()
	iv.OwnerID = ownerID
	iv.CreatedAt = now
	iv.UpdatedAt = now
	id, err := s.Interviews.Create(ctx, iv)
	if err != nil {
		return domain.Interview{}, err
	}
	iv.ID = id
	return iv, nil
}

// Get returns one interview owned by ownerID.
func (s InterviewService) Get(ctx domain.Context, ownerID, id string) (domain.Interview, error) {
	if ownerID == "" {
		return domain.Interview{}, fmt.Errorf("%w: no resolved principal", domain.ErrUnauthenticated)
	}
	if id == "" {
		return domain.Interview{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Interviews.Get(ctx, ownerID, id)
}

// List returns all interviews owned by ownerID, newest first.
func (s InterviewService) List(ctx domain.Context, ownerID string) ([]domain.Interview, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: no resolved principal", domain.ErrUnauthenticated)
	}
	return s.Interviews.ListByOwner(ctx, ownerID)
}

// Delete removes one interview owned by ownerID.
func (s InterviewService) Delete(ctx domain.Context, ownerID, id string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: no resolved principal", domain.ErrUnauthenticated)
	}
	if id == "" {
		return fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Interviews.Delete(ctx, ownerID, id)
}
