// Package domain holds the core entities, ports and error taxonomy of the
// interview-prep backend. It has no dependencies on adapters.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
	ErrInternal            = errors.New("internal error")
)

// TaskKind enumerates the four analysis tasks.
type TaskKind string

const (
	TaskAnalyze       TaskKind = "analyze"
	TaskComplexity    TaskKind = "complexity"
	TaskOptimize      TaskKind = "optimize"
	TaskGenerateTests TaskKind = "generate_tests"
)

// CodeKeyed reports whether the task's cache identity includes the submitted
// code. Test-case generation is code-independent.
func (t TaskKind) CodeKeyed() bool { return t != TaskGenerateTests }

// OptimizationFocus values accepted by the optimize task.
const (
	FocusTime  = "time"
	FocusSpace = "space"
)

// User is a registered account able to request analyses.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InterviewQuestion is one question inside a scheduled interview.
type InterviewQuestion struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Prompt     string `json:"prompt"`
	Difficulty string `json:"difficulty"`
}

// InterviewStatus values.
const (
	InterviewScheduled = "scheduled"
	InterviewCompleted = "completed"
	InterviewCancelled = "cancelled"
)

// Interview is a scheduled mock-interview session owned by a user.
type Interview struct {
	ID          string
	OwnerID     string
	Title       string
	Status      string
	ScheduledAt time.Time
	Questions   []InterviewQuestion
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repositories (ports)

type UserRepository interface {
	Create(ctx Context, u User) (string, error)
	GetByEmail(ctx Context, email string) (User, error)
	Get(ctx Context, id string) (User, error)
}

type InterviewRepository interface {
	Create(ctx Context, iv Interview) (string, error)
	Get(ctx Context, ownerID, id string) (Interview, error)
	ListByOwner(ctx Context, ownerID string) ([]Interview, error)
	Delete(ctx Context, ownerID, id string) error
}

// AnalysisRepository is the persistent cache of analysis records.
// Find returns ErrNotFound when no record matches the fingerprint.
// UpsertSlot atomically creates the record for the fingerprint or sets the
// task's result slot and explanation on the existing one.
type AnalysisRepository interface {
	Find(ctx Context, fp Fingerprint) (AnalysisRecord, error)
	UpsertSlot(ctx Context, fp Fingerprint, upd SlotUpdate) (AnalysisRecord, error)
}

// TaskPayload carries the task-specific request fields embedded into the
// model prompt.
type TaskPayload struct {
	Code              string
	Language          string
	ProblemStatement  string
	Constraints       string
	OptimizationFocus string
}

// ModelClient is the outbound port to the language-model provider. It owns
// prompt construction for each task. A single attempt per call; transport or
// non-success responses surface as errors wrapping ErrUpstreamUnavailable.
type ModelClient interface {
	Complete(ctx Context, task TaskKind, payload TaskPayload) (string, error)
}

// ResponseNormalizer converts raw model text into the task's strict shape.
// Total: every input yields a result, failures become the default shape with
// Failed set.
type ResponseNormalizer interface {
	Parse(task TaskKind, raw string) NormalizedResult
	Failure(task TaskKind) NormalizedResult
}

// NormalizedResult is the outcome of normalizing one model response. Exactly
// one slot matching Task is populated. Failed marks the default failure shape
// produced when the text survived neither the strict parse nor the repair
// pass.
type NormalizedResult struct {
	Task        TaskKind
	Failed      bool
	Explanation string

	Algorithm    *AlgorithmAnalysis
	Complexity   *ComplexityAnalysis
	Optimization *OptimizationSuggestions
	TestCases    []TestCase
}

// Locker serializes same-fingerprint writers. Acquire returns a release
// function and whether the lease was obtained; implementations degrade to
// best-effort when the backing store is unavailable.
type Locker interface {
	Acquire(ctx Context, key string, ttl time.Duration) (release func(), ok bool)
}

// EventPublisher emits analysis lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx Context, evt AnalysisCompletedEvent) error
}

// AnalysisCompletedEvent is published after a successful normalization and
// cache write.
type AnalysisCompletedEvent struct {
	OwnerID    string    `json:"owner_id"`
	ScopeKey   string    `json:"scope_key"`
	Task       TaskKind  `json:"task"`
	Language   string    `json:"language"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Context is an alias so the domain does not spell out std context everywhere;
// adapters and usecases pass context.Context through.
type Context = context.Context
