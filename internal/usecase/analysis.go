// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/algoprep/algoprep-api/internal/adapter/observability"
	"github.com/algoprep/algoprep-api/internal/domain"
)

// AnalysisService orchestrates the four analysis tasks: derive the cache
// fingerprint, consult the cache, on miss call the model, normalize, write
// through, and tag the response with fromCache.
type AnalysisService struct {
	Cache  domain.AnalysisRepository
	Model  domain.ModelClient
	Parser domain.ResponseNormalizer
	Locker domain.Locker
	Events domain.EventPublisher

	LockTTL time.Duration
}

// NewAnalysisService constructs an AnalysisService with its dependencies.
func NewAnalysisService(cache domain.AnalysisRepository, model domain.ModelClient, parser domain.ResponseNormalizer, locker domain.Locker, events domain.EventPublisher, lockTTL time.Duration) AnalysisService {
	return AnalysisService{Cache: cache, Model: model, Parser: parser, Locker: locker, Events: events, LockTTL: lockTTL}
}

// TaskInput is the validated request for one analysis task.
type TaskInput struct {
	OwnerID string
	Scope   domain.Scope
	Payload domain.TaskPayload
}

// TaskOutput is the orchestrator's answer. Failed marks a soft failure: the
// model or its output was unusable, the shape is defaulted, and nothing was
// cached.
type TaskOutput struct {
	domain.NormalizedResult
	FromCache bool
}

// Analyze runs the algorithm-analysis task.
func (s AnalysisService) Analyze(ctx domain.Context, in TaskInput) (TaskOutput, error) {
	return s.run(ctx, domain.TaskAnalyze, in)
}

// Complexity runs the complexity-analysis task.
func (s AnalysisService) Complexity(ctx domain.Context, in TaskInput) (TaskOutput, error) {
	return s.run(ctx, domain.TaskComplexity, in)
}

// Optimize runs the optimization task.
func (s AnalysisService) Optimize(ctx domain.Context, in TaskInput) (TaskOutput, error) {
	return s.run(ctx, domain.TaskOptimize, in)
}

// GenerateTests runs the test-case generation task. Caching for this task is
// code-independent.
func (s AnalysisService) GenerateTests(ctx domain.Context, in TaskInput) (TaskOutput, error) {
	return s.run(ctx, domain.TaskGenerateTests, in)
}

func (s AnalysisService) run(ctx domain.Context, task domain.TaskKind, in TaskInput) (TaskOutput, error) {
	if in.OwnerID == "" {
		return TaskOutput{}, fmt.Errorf("%w: no resolved principal", domain.ErrUnauthenticated)
	}
	if err := validateTaskInput(task, in); err != nil {
		return TaskOutput{}, err
	}

	fp := domain.NewFingerprint(in.OwnerID, in.Scope, task, in.Payload.Code)

	if out, ok := s.cached(ctx, task, fp); ok {
		observability.CacheLookup(string(task), true)
		return out, nil
	}
	observability.CacheLookup(string(task), false)

	if s.Locker != nil {
		release, ok := s.Locker.Acquire(ctx, fp.LeaseKey(), s.lockTTL())
		if ok {
			defer release()
		} else if out, ok := s.cached(ctx, task, fp); ok {
			// A concurrent writer held the lease; it may have finished.
			return out, nil
		}
	}

	raw, err := s.Model.Complete(ctx, task, in.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return TaskOutput{}, err
		}
		slog.Warn("model call failed, returning default shape",
			slog.String("task", string(task)),
			slog.String("owner_id", in.OwnerID),
			slog.Any("error", err))
		observability.AnalysisFailuresTotal.WithLabelValues(string(task), "upstream").Inc()
		return TaskOutput{NormalizedResult: s.Parser.Failure(task)}, nil
	}

	res := s.Parser.Parse(task, raw)
	if res.Failed {
		slog.Warn("model response failed normalization",
			slog.String("task", string(task)),
			slog.String("owner_id", in.OwnerID),
			slog.Int("raw_len", len(raw)))
		observability.AnalysisFailuresTotal.WithLabelValues(string(task), "malformed").Inc()
		return TaskOutput{NormalizedResult: res}, nil
	}

	upd := domain.SlotUpdate{
		Task:         task,
		Language:     in.Payload.Language,
		Explanation:  res.Explanation,
		Algorithm:    res.Algorithm,
		Complexity:   res.Complexity,
		Optimization: res.Optimization,
		TestCases:    res.TestCases,
	}
	if task.CodeKeyed() {
		upd.Code = in.Payload.Code
	}
	if _, err := s.Cache.UpsertSlot(ctx, fp, upd); err != nil {
		slog.Error("analysis computed but not persisted",
			slog.String("task", string(task)),
			slog.String("owner_id", in.OwnerID),
			slog.Any("error", err))
		return TaskOutput{}, fmt.Errorf("%w: persist analysis: %v", domain.ErrInternal, err)
	}
	observability.AnalysisWritesTotal.WithLabelValues(string(task)).Inc()

	if s.Events != nil {
		evt := domain.AnalysisCompletedEvent{
			OwnerID:    in.OwnerID,
			ScopeKey:   in.Scope.Key(),
			Task:       task,
			Language:   in.Payload.Language,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.Events.PublishAnalysisCompleted(ctx, evt); err != nil {
			slog.Warn("analysis event not published", slog.Any("error", err))
		}
	}

	return TaskOutput{NormalizedResult: res}, nil
}

// cached answers the lookup: hit only when the record exists and the task's
// slot holds a usable value. Store read failures degrade to a miss.
func (s AnalysisService) cached(ctx domain.Context, task domain.TaskKind, fp domain.Fingerprint) (TaskOutput, bool) {
	rec, err := s.Cache.Find(ctx, fp)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("cache lookup failed, treating as miss",
				slog.String("task", string(task)),
				slog.Any("error", err))
		}
		return TaskOutput{}, false
	}
	if _, ok := rec.SlotValue(task); !ok {
		return TaskOutput{}, false
	}
	out := TaskOutput{
		FromCache: true,
		NormalizedResult: domain.NormalizedResult{
			Task:        task,
			Explanation: rec.Explanation(task),
		},
	}
	switch task {
	case domain.TaskAnalyze:
		out.Algorithm = rec.AlgorithmAnalysis
	case domain.TaskComplexity:
		out.Complexity = rec.ComplexityAnalysis
	case domain.TaskOptimize:
		out.Optimization = rec.OptimizationSuggestions
	case domain.TaskGenerateTests:
		out.TestCases = rec.TestCases
	}
	return out, true
}

func (s AnalysisService) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return 30 * time.Second
}

func validateTaskInput(task domain.TaskKind, in TaskInput) error {
	if !in.Scope.Valid() {
		return fmt.Errorf("%w: scope requires interviewId+questionId or problemId", domain.ErrInvalidArgument)
	}
	switch task {
	case domain.TaskAnalyze, domain.TaskComplexity:
		if in.Payload.Code == "" {
			return fmt.Errorf("%w: code required", domain.ErrInvalidArgument)
		}
	case domain.TaskOptimize:
		if in.Payload.Code == "" {
			return fmt.Errorf("%w: code required", domain.ErrInvalidArgument)
		}
		switch in.Payload.OptimizationFocus {
		case "", domain.FocusTime, domain.FocusSpace:
		default:
			return fmt.Errorf("%w: optimizationFocus must be time or space", domain.ErrInvalidArgument)
		}
	case domain.TaskGenerateTests:
		if in.Payload.ProblemStatement == "" {
			return fmt.Errorf("%w: problemStatement required", domain.ErrInvalidArgument)
		}
	}
	return nil
}
