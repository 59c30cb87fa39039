package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ScopeKind discriminates what an analysis record belongs to.
type ScopeKind string

const (
	ScopeInterview ScopeKind = "interview"
	ScopeProblem   ScopeKind = "problem"
)

// Scope is a tagged union referencing either a question within a scheduled
// interview or a standalone problem. Construct values through InterviewScope
// or ProblemScope so a half-populated scope cannot exist.
type Scope struct {
	Kind        ScopeKind
	InterviewID string
	QuestionID  string
	ProblemID   string
}

// InterviewScope builds an interview-question scope.
func InterviewScope(interviewID, questionID string) Scope {
	return Scope{Kind: ScopeInterview, InterviewID: interviewID, QuestionID: questionID}
}

// ProblemScope builds a standalone-problem scope.
func ProblemScope(problemID string) Scope {
	return Scope{Kind: ScopeProblem, ProblemID: problemID}
}

// Valid reports whether the scope's required identifiers are present.
func (s Scope) Valid() bool {
	switch s.Kind {
	case ScopeInterview:
		return s.InterviewID != "" && s.QuestionID != ""
	case ScopeProblem:
		return s.ProblemID != ""
	}
	return false
}

// Key returns the canonical storage key for the scope.
func (s Scope) Key() string {
	if s.Kind == ScopeInterview {
		return fmt.Sprintf("interview:%s:%s", s.InterviewID, s.QuestionID)
	}
	return fmt.Sprintf("problem:%s", s.ProblemID)
}

// Fingerprint identifies one AnalysisRecord: owner + scope, plus the code
// hash for code-keyed tasks. CodeHash is empty for code-independent tasks.
type Fingerprint struct {
	OwnerID  string
	Scope    Scope
	CodeHash string
}

// NewFingerprint derives the cache key for a task. Code identity is the exact
// submitted text; no whitespace normalization is applied.
func NewFingerprint(ownerID string, scope Scope, task TaskKind, code string) Fingerprint {
	fp := Fingerprint{OwnerID: ownerID, Scope: scope}
	if task.CodeKeyed() {
		h := sha256.Sum256([]byte(code))
		fp.CodeHash = hex.EncodeToString(h[:])
	}
	return fp
}

// LeaseKey is the per-fingerprint key used to serialize concurrent writers.
func (fp Fingerprint) LeaseKey() string {
	return fp.OwnerID + "|" + fp.Scope.Key() + "|" + fp.CodeHash
}

// AlternativeApproach is one alternative solution strategy.
type AlternativeApproach struct {
	Description string `json:"description"`
	Complexity  string `json:"complexity"`
	Suitability string `json:"suitability"`
}

// AlgorithmAnalysis is the result slot of the analyze task.
type AlgorithmAnalysis struct {
	ApproachIdentified    string                `json:"approachIdentified"`
	OptimizationTips      []string              `json:"optimizationTips"`
	EdgeCasesFeedback     []string              `json:"edgeCasesFeedback"`
	AlternativeApproaches []AlternativeApproach `json:"alternativeApproaches"`
}

// TimeComplexity holds per-case asymptotic bounds.
type TimeComplexity struct {
	BestCase    string `json:"bestCase"`
	AverageCase string `json:"averageCase"`
	WorstCase   string `json:"worstCase"`
}

// CriticalOperation is an operation dominating the complexity.
type CriticalOperation struct {
	Operation   string `json:"operation"`
	Impact      string `json:"impact"`
	LineNumbers []int  `json:"lineNumbers"`
}

// ComplexityAnalysis is the result slot of the complexity task.
type ComplexityAnalysis struct {
	TimeComplexity      TimeComplexity      `json:"timeComplexity"`
	SpaceComplexity     string              `json:"spaceComplexity"`
	CriticalOperations  []CriticalOperation `json:"criticalOperations"`
	ComparisonToOptimal string              `json:"comparisonToOptimal"`
}

// Improvement describes one applied optimization.
type Improvement struct {
	Description       string `json:"description"`
	ComplexityBefore  string `json:"complexityBefore"`
	ComplexityAfter   string `json:"complexityAfter"`
	AlgorithmicChange string `json:"algorithmicChange"`
}

// OptimizationSuggestions is the result slot of the optimize task.
type OptimizationSuggestions struct {
	OptimizedCode string        `json:"optimizedCode"`
	Improvements  []Improvement `json:"improvements"`
}

// TestCase is one generated test case.
type TestCase struct {
	Input           string `json:"input"`
	ExpectedOutput  string `json:"expectedOutput"`
	Purpose         string `json:"purpose"`
	Difficulty      string `json:"difficulty"`
	PerformanceTest bool   `json:"performanceTest"`
}

// AnalysisRecord is one persisted document per fingerprint. The four result
// slots are independently nullable; a record accumulates results across task
// kinds over time. Each slot keeps its own explanation text so unrelated
// tasks never overwrite each other's narrative.
type AnalysisRecord struct {
	ID       string
	OwnerID  string
	Scope    Scope
	Code     string
	CodeHash string
	Language string

	AlgorithmAnalysis       *AlgorithmAnalysis
	ComplexityAnalysis      *ComplexityAnalysis
	OptimizationSuggestions *OptimizationSuggestions
	TestCases               []TestCase

	AlgorithmExplanation    string
	ComplexityExplanation   string
	OptimizationExplanation string
	TestCasesExplanation    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotValue returns the task's result slot and whether it holds a usable
// cached value. An empty test-case array counts as no cached result.
func (r AnalysisRecord) SlotValue(task TaskKind) (any, bool) {
	switch task {
	case TaskAnalyze:
		return r.AlgorithmAnalysis, r.AlgorithmAnalysis != nil
	case TaskComplexity:
		return r.ComplexityAnalysis, r.ComplexityAnalysis != nil
	case TaskOptimize:
		return r.OptimizationSuggestions, r.OptimizationSuggestions != nil
	case TaskGenerateTests:
		return r.TestCases, len(r.TestCases) > 0
	}
	return nil, false
}

// Explanation returns the explanation text stored for the task.
func (r AnalysisRecord) Explanation(task TaskKind) string {
	switch task {
	case TaskAnalyze:
		return r.AlgorithmExplanation
	case TaskComplexity:
		return r.ComplexityExplanation
	case TaskOptimize:
		return r.OptimizationExplanation
	case TaskGenerateTests:
		return r.TestCasesExplanation
	}
	return ""
}

// SlotUpdate carries one task's normalized result into the cache. Exactly one
// of the slot pointers matching Task is set.
type SlotUpdate struct {
	Task        TaskKind
	Code        string
	Language    string
	Explanation string

	Algorithm    *AlgorithmAnalysis
	Complexity   *ComplexityAnalysis
	Optimization *OptimizationSuggestions
	TestCases    []TestCase
}
