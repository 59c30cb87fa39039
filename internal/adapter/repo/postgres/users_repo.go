package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// UserRepo persists and loads user accounts.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

// Create inserts a new user and returns its id. A duplicate email maps to
// domain.ErrConflict.
func (r *UserRepo) Create(ctx domain.Context, u domain.User) (string, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO users (id, email, password_hash, display_name, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$5)`
	if _, err := r.Pool.Exec(ctx, q, id, u.Email, u.PasswordHash, u.DisplayName, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("op=user.create: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=user.create: %w", err)
	}
	return id, nil
}

// GetByEmail loads a user by email.
func (r *UserRepo) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.GetByEmail")
	defer span.End()
	q := `SELECT id, email, password_hash, display_name, created_at, updated_at FROM users WHERE email=$1`
	return r.scanUser(r.Pool.QueryRow(ctx, q, email), "user.get_by_email")
}

// Get loads a user by id.
func (r *UserRepo) Get(ctx domain.Context, id string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Get")
	defer span.End()
	q := `SELECT id, email, password_hash, display_name, created_at, updated_at FROM users WHERE id=$1`
	return r.scanUser(r.Pool.QueryRow(ctx, q, id), "user.get")
}

func (r *UserRepo) scanUser(row pgx.Row, op string) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=%s: %w", op, err)
	}
	return u, nil
}
