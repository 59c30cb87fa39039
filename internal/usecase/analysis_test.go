package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algoprep/algoprep-api/internal/adapter/ai"
	"github.com/algoprep/algoprep-api/internal/domain"
)

type fakeCache struct {
	records  map[domain.Fingerprint]domain.AnalysisRecord
	finds    int
	upserts  int
	missNext int
	upErr    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: map[domain.Fingerprint]domain.AnalysisRecord{}}
}

func (f *fakeCache) Find(_ domain.Context, fp domain.Fingerprint) (domain.AnalysisRecord, error) {
	f.finds++
	if f.missNext > 0 {
		f.missNext--
		return domain.AnalysisRecord{}, domain.ErrNotFound
	}
	rec, ok := f.records[fp]
	if !ok {
		return domain.AnalysisRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeCache) UpsertSlot(_ domain.Context, fp domain.Fingerprint, upd domain.SlotUpdate) (domain.AnalysisRecord, error) {
	f.upserts++
	if f.upErr != nil {
		return domain.AnalysisRecord{}, f.upErr
	}
	rec, ok := f.records[fp]
	if !ok {
		rec = domain.AnalysisRecord{
			ID:       fmt.Sprintf("rec-%d", len(f.records)+1),
			OwnerID:  fp.OwnerID,
			Scope:    fp.Scope,
			CodeHash: fp.CodeHash,
		}
	}
	rec.Code = upd.Code
	rec.Language = upd.Language
	switch upd.Task {
	case domain.TaskAnalyze:
		rec.AlgorithmAnalysis = upd.Algorithm
		rec.AlgorithmExplanation = upd.Explanation
	case domain.TaskComplexity:
		rec.ComplexityAnalysis = upd.Complexity
		rec.ComplexityExplanation = upd.Explanation
	case domain.TaskOptimize:
		rec.OptimizationSuggestions = upd.Optimization
		rec.OptimizationExplanation = upd.Explanation
	case domain.TaskGenerateTests:
		rec.TestCases = upd.TestCases
		rec.TestCasesExplanation = upd.Explanation
	}
	f.records[fp] = rec
	return rec, nil
}

type fakeModel struct {
	responses []string
	err       error
	calls     int
	lastTask  domain.TaskKind
}

func (f *fakeModel) Complete(_ domain.Context, task domain.TaskKind, _ domain.TaskPayload) (string, error) {
	f.calls++
	f.lastTask = task
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

type fakeEvents struct {
	published []domain.AnalysisCompletedEvent
}

func (f *fakeEvents) PublishAnalysisCompleted(_ domain.Context, evt domain.AnalysisCompletedEvent) error {
	f.published = append(f.published, evt)
	return nil
}

type deniedLocker struct{ asked int }

func (l *deniedLocker) Acquire(domain.Context, string, time.Duration) (func(), bool) {
	l.asked++
	return func() {}, false
}

func newService(cache *fakeCache, model *fakeModel, events domain.EventPublisher) AnalysisService {
	return NewAnalysisService(cache, model, ai.NewNormalizer(), nil, events, time.Minute)
}

func analyzeInput(owner, code string) TaskInput {
	return TaskInput{
		OwnerID: owner,
		Scope:   domain.ProblemScope("two-sum"),
		Payload: domain.TaskPayload{Code: code, Language: "go"},
	}
}

const analyzeJSON = `{"approachIdentified":"hash map","optimizationTips":["precompute"],"edgeCasesFeedback":["empty input"],"alternativeApproaches":[],"detailedAnalysis":"uses a single pass"}`

func TestAnalysisService_MissThenHit(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	model := &fakeModel{responses: []string{analyzeJSON}}
	svc := newService(cache, model, nil)
	ctx := context.Background()

	first, err := svc.Analyze(ctx, analyzeInput("u1", "code-a"))
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.False(t, first.Failed)
	require.NotNil(t, first.Algorithm)
	assert.Equal(t, "hash map", first.Algorithm.ApproachIdentified)
	assert.Equal(t, 1, cache.upserts)

	second, err := svc.Analyze(ctx, analyzeInput("u1", "code-a"))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Algorithm, second.Algorithm)
	assert.Equal(t, first.Explanation, second.Explanation)
	assert.Equal(t, 1, model.calls, "cached hit must not call the model")
	assert.Equal(t, 1, cache.upserts, "cached hit must not write")
}

func TestAnalysisService_Unauthenticated(t *testing.T) {
	t.Parallel()

	svc := newService(newFakeCache(), &fakeModel{}, nil)
	_, err := svc.Analyze(context.Background(), analyzeInput("", "code"))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAnalysisService_Validation(t *testing.T) {
	t.Parallel()

	svc := newService(newFakeCache(), &fakeModel{}, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"missing scope", func() error {
			_, err := svc.Analyze(ctx, TaskInput{OwnerID: "u1", Payload: domain.TaskPayload{Code: "x"}})
			return err
		}},
		{"half-populated interview scope", func() error {
			in := analyzeInput("u1", "x")
			in.Scope = domain.Scope{Kind: domain.ScopeInterview, InterviewID: "i1"}
			_, err := svc.Analyze(ctx, in)
			return err
		}},
		{"missing code", func() error {
			_, err := svc.Analyze(ctx, analyzeInput("u1", ""))
			return err
		}},
		{"bad optimization focus", func() error {
			in := analyzeInput("u1", "x")
			in.Payload.OptimizationFocus = "memory"
			_, err := svc.Optimize(ctx, in)
			return err
		}},
		{"generate tests without problem statement", func() error {
			in := TaskInput{OwnerID: "u1", Scope: domain.ProblemScope("p1")}
			_, err := svc.GenerateTests(ctx, in)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), domain.ErrInvalidArgument)
		})
	}
}

func TestAnalysisService_ModelFailureIsSoftAndNeverCached(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	model := &fakeModel{err: fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnavailable)}
	svc := newService(cache, model, nil)
	ctx := context.Background()

	out, err := svc.Complexity(ctx, analyzeInput("u1", "code"))
	require.NoError(t, err, "upstream failure is a soft failure, not an error")
	assert.True(t, out.Failed)
	assert.False(t, out.FromCache)
	require.NotNil(t, out.Complexity)
	assert.Equal(t, "Unknown", out.Complexity.TimeComplexity.WorstCase)
	assert.Equal(t, 0, cache.upserts, "failed analysis must never be cached")

	// Provider recovers: same key is still a miss, then succeeds.
	model.err = nil
	model.responses = []string{`{"timeComplexity":{"bestCase":"O(n)","averageCase":"O(n)","worstCase":"O(n)"},"spaceComplexity":"O(1)","criticalOperations":[],"comparisonToOptimal":"optimal"}`}
	out, err = svc.Complexity(ctx, analyzeInput("u1", "code"))
	require.NoError(t, err)
	assert.False(t, out.FromCache)
	assert.False(t, out.Failed)
	assert.Equal(t, 1, cache.upserts)
}

func TestAnalysisService_MalformedResponseIsSoftAndNeverCached(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	model := &fakeModel{responses: []string{"I am sorry, I cannot help with that."}}
	svc := newService(cache, model, nil)

	out, err := svc.Analyze(context.Background(), analyzeInput("u1", "code"))
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t, 0, cache.upserts)
}

func TestAnalysisService_DistinctCodeDistinctEntries(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	model := &fakeModel{responses: []string{analyzeJSON, analyzeJSON}}
	svc := newService(cache, model, nil)
	ctx := context.Background()

	outA, err := svc.Analyze(ctx, analyzeInput("u1", "A"))
	require.NoError(t, err)
	assert.False(t, outA.FromCache)

	outB, err := svc.Analyze(ctx, analyzeInput("u1", "B"))
	require.NoError(t, err)
	assert.False(t, outB.FromCache, "different code is a different cache entry")
	assert.Len(t, cache.records, 2)

	outA2, err := svc.Analyze(ctx, analyzeInput("u1", "A"))
	require.NoError(t, err)
	assert.True(t, outA2.FromCache)
	assert.Equal(t, 2, model.calls)
}

func TestAnalysisService_GenerateTestsIgnoresCode(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	model := &fakeModel{responses: []string{`{"testCases":[{"input":"[]","expectedOutput":"0","purpose":"empty","difficulty":"edge","performanceTest":false}],"explanationText":"covers empties"}`}}
	svc := newService(cache, model, nil)
	ctx := context.Background()

	in := TaskInput{
		OwnerID: "u1",
		Scope:   domain.InterviewScope("i1", "7"),
		Payload: domain.TaskPayload{ProblemStatement: "count items"},
	}
	first, err := svc.GenerateTests(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, first.TestCases, 1)

	in.Payload.Code = "completely different code"
	second, err := svc.GenerateTests(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "test generation caching is code-independent")
	assert.Equal(t, first.TestCases, second.TestCases)
	assert.Equal(t, 1, model.calls)
}

func TestAnalysisService_UpsertFailureIsHardError(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.upErr = errors.New("connection reset")
	model := &fakeModel{responses: []string{analyzeJSON}}
	svc := newService(cache, model, nil)

	_, err := svc.Analyze(context.Background(), analyzeInput("u1", "code"))
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestAnalysisService_OversizePromptIsHardError(t *testing.T) {
	t.Parallel()

	model := &fakeModel{err: fmt.Errorf("%w: prompt too large", domain.ErrInvalidArgument)}
	svc := newService(newFakeCache(), model, nil)

	_, err := svc.Analyze(context.Background(), analyzeInput("u1", "code"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAnalysisService_PublishesEventOnSuccessOnly(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	events := &fakeEvents{}
	model := &fakeModel{responses: []string{"not json", analyzeJSON}}
	svc := newService(cache, model, events)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, analyzeInput("u1", "code"))
	require.NoError(t, err)
	assert.Empty(t, events.published, "soft failure publishes nothing")

	_, err = svc.Analyze(ctx, analyzeInput("u1", "code"))
	require.NoError(t, err)
	require.Len(t, events.published, 1)
	assert.Equal(t, "u1", events.published[0].OwnerID)
	assert.Equal(t, domain.TaskAnalyze, events.published[0].Task)
	assert.Equal(t, "problem:two-sum", events.published[0].ScopeKey)
}

func TestAnalysisService_LeaseDeniedRechecksCache(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	fp := domain.NewFingerprint("u1", domain.ProblemScope("two-sum"), domain.TaskAnalyze, "code-a")
	locker := &deniedLocker{}
	model := &fakeModel{}
	svc := NewAnalysisService(cache, model, ai.NewNormalizer(), locker, nil, time.Minute)

	// The concurrent winner's record is already stored, but the first lookup
	// races ahead of it and misses; the post-lease recheck sees it.
	cache.records[fp] = domain.AnalysisRecord{
		ID:                   "rec-1",
		OwnerID:              "u1",
		Scope:                fp.Scope,
		CodeHash:             fp.CodeHash,
		AlgorithmAnalysis:    &domain.AlgorithmAnalysis{ApproachIdentified: "two pointers"},
		AlgorithmExplanation: "written by the winner",
	}
	cache.missNext = 1

	out, err := svc.Analyze(context.Background(), analyzeInput("u1", "code-a"))
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.Equal(t, "two pointers", out.Algorithm.ApproachIdentified)
	assert.Equal(t, 1, locker.asked)
	assert.Equal(t, 0, model.calls, "the loser must not duplicate the model call")
	assert.Equal(t, 0, cache.upserts)
}
