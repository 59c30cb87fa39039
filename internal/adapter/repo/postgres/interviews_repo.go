package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// InterviewRepo persists scheduled interviews. Question lists are stored as a
// JSONB document alongside the row.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

// Create inserts a new interview and returns its id.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()
	id := iv.ID
	if id == "" {
		id = uuid.New().String()
	}
	questions, err := json.Marshal(iv.Questions)
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO interviews (id, owner_id, title, status, scheduled_at, questions, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`
	if _, err := r.Pool.Exec(ctx, q, id, iv.OwnerID, iv.Title, iv.Status, iv.ScheduledAt, questions, now); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	return id, nil
}

// Get loads one interview owned by ownerID.
func (r *InterviewRepo) Get(ctx domain.Context, ownerID, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()
	q := `SELECT id, owner_id, title, status, scheduled_at, questions, created_at, updated_at
	FROM interviews WHERE id=$1 AND owner_id=$2`
	return scanInterview(r.Pool.QueryRow(ctx, q, id, ownerID))
}

// ListByOwner returns all interviews for an owner, newest first.
func (r *InterviewRepo) ListByOwner(ctx domain.Context, ownerID string) ([]domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.ListByOwner")
	defer span.End()
	q := `SELECT id, owner_id, title, status, scheduled_at, questions, created_at, updated_at
	FROM interviews WHERE owner_id=$1 ORDER BY scheduled_at DESC`
	rows, err := r.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Interview, 0)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("op=interview.list: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	return out, nil
}

// Delete removes one interview owned by ownerID.
func (r *InterviewRepo) Delete(ctx domain.Context, ownerID, id string) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM interviews WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("op=interview.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=interview.delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanInterview(row pgx.Row) (domain.Interview, error) {
	var (
		iv        domain.Interview
		questions []byte
	)
	err := row.Scan(&iv.ID, &iv.OwnerID, &iv.Title, &iv.Status, &iv.ScheduledAt, &questions, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, err
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &iv.Questions); err != nil {
			return domain.Interview{}, err
		}
	}
	return iv, nil
}
