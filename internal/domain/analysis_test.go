package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algoprep/algoprep-api/internal/domain"
)

func TestScope_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		scope domain.Scope
		want  bool
	}{
		{name: "interview_scope", scope: domain.InterviewScope("iv-1", "7"), want: true},
		{name: "interview_missing_question", scope: domain.InterviewScope("iv-1", ""), want: false},
		{name: "problem_scope", scope: domain.ProblemScope("p-1"), want: true},
		{name: "problem_missing_id", scope: domain.ProblemScope(""), want: false},
		{name: "zero_value", scope: domain.Scope{}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.scope.Valid())
		})
	}
}

func TestScope_Key(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "interview:iv-1:7", domain.InterviewScope("iv-1", "7").Key())
	assert.Equal(t, "problem:p-1", domain.ProblemScope("p-1").Key())
}

func TestNewFingerprint_CodeKeyed(t *testing.T) {
	t.Parallel()

	scope := domain.ProblemScope("p-1")
	a := domain.NewFingerprint("u-1", scope, domain.TaskAnalyze, "code A")
	b := domain.NewFingerprint("u-1", scope, domain.TaskAnalyze, "code B")
	a2 := domain.NewFingerprint("u-1", scope, domain.TaskAnalyze, "code A")

	require.NotEmpty(t, a.CodeHash)
	assert.NotEqual(t, a.CodeHash, b.CodeHash)
	assert.Equal(t, a, a2)
}

func TestNewFingerprint_GenerateTestsIgnoresCode(t *testing.T) {
	t.Parallel()

	scope := domain.InterviewScope("iv-1", "7")
	a := domain.NewFingerprint("u-1", scope, domain.TaskGenerateTests, "code A")
	b := domain.NewFingerprint("u-1", scope, domain.TaskGenerateTests, "")
	assert.Equal(t, a, b)
	assert.Empty(t, a.CodeHash)
}

func TestAnalysisRecord_SlotValue(t *testing.T) {
	t.Parallel()

	var r domain.AnalysisRecord
	_, ok := r.SlotValue(domain.TaskAnalyze)
	assert.False(t, ok)
	_, ok = r.SlotValue(domain.TaskGenerateTests)
	assert.False(t, ok, "empty test-case slice is not a cached result")

	r.TestCases = []domain.TestCase{{Input: "1", ExpectedOutput: "1"}}
	v, ok := r.SlotValue(domain.TaskGenerateTests)
	require.True(t, ok)
	assert.Len(t, v.([]domain.TestCase), 1)

	r.AlgorithmAnalysis = &domain.AlgorithmAnalysis{ApproachIdentified: "two pointers"}
	v, ok = r.SlotValue(domain.TaskAnalyze)
	require.True(t, ok)
	assert.Equal(t, "two pointers", v.(*domain.AlgorithmAnalysis).ApproachIdentified)
}

func TestAnalysisRecord_ExplanationPerTask(t *testing.T) {
	t.Parallel()

	r := domain.AnalysisRecord{
		AlgorithmExplanation:  "algo",
		ComplexityExplanation: "cx",
		TestCasesExplanation:  "tests",
	}
	assert.Equal(t, "algo", r.Explanation(domain.TaskAnalyze))
	assert.Equal(t, "cx", r.Explanation(domain.TaskComplexity))
	assert.Equal(t, "", r.Explanation(domain.TaskOptimize))
	assert.Equal(t, "tests", r.Explanation(domain.TaskGenerateTests))
}
