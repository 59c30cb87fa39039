// Package ai provides response normalization utilities for handling
// semi-structured LLM output.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// Normalizer repairs and validates raw model text into one of the four strict
// task result shapes. It is total: every input, including empty strings and
// plain prose, yields a well-formed result, and no parse error escapes it.
type Normalizer struct{}

// NewNormalizer creates a new normalizer.
func NewNormalizer() *Normalizer { return &Normalizer{} }

// Result is the outcome of normalizing one model response.
type Result = domain.NormalizedResult

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z0-9]*[ \t]*\r?\n?")
	fenceCloseRe = regexp.MustCompile("\r?\n?```\\s*$")
	// Non-literal array constructs the model sometimes emits inside JSON:
	// list-comprehension or range-like expressions instead of element literals.
	nonLiteralArrayRe = regexp.MustCompile(`\[[^\[\]{}"]*(?:\bfor\b|\brange\b|\.\.\.)[^\[\]{}"]*\]`)
)

// Parse converts raw model output into the task's strict shape.
func (n *Normalizer) Parse(task domain.TaskKind, raw string) Result {
	text := stripCodeFence(raw)

	obj, ok := parseObject(text)
	if !ok {
		obj, ok = parseObject(repairArrays(text))
	}
	if !ok {
		return FailureResult(task)
	}

	switch task {
	case domain.TaskAnalyze:
		return Result{
			Task: task,
			Algorithm: &domain.AlgorithmAnalysis{
				ApproachIdentified:    stringField(obj, "approachIdentified", "Unknown"),
				OptimizationTips:      stringSlice(obj["optimizationTips"]),
				EdgeCasesFeedback:     stringSlice(obj["edgeCasesFeedback"]),
				AlternativeApproaches: alternativeApproaches(obj["alternativeApproaches"]),
			},
			Explanation: stringField(obj, "detailedAnalysis", ""),
		}
	case domain.TaskComplexity:
		return Result{
			Task: task,
			Complexity: &domain.ComplexityAnalysis{
				TimeComplexity:      timeComplexity(obj["timeComplexity"]),
				SpaceComplexity:     stringField(obj, "spaceComplexity", "Unknown"),
				CriticalOperations:  criticalOperations(obj["criticalOperations"]),
				ComparisonToOptimal: stringField(obj, "comparisonToOptimal", "Unknown"),
			},
			Explanation: stringField(obj, "detailedAnalysis", ""),
		}
	case domain.TaskOptimize:
		return Result{
			Task: task,
			Optimization: &domain.OptimizationSuggestions{
				OptimizedCode: stringField(obj, "optimizedCode", ""),
				Improvements:  improvements(obj["improvements"]),
			},
			Explanation: stringField(obj, "explanationText", ""),
		}
	case domain.TaskGenerateTests:
		return Result{
			Task:        task,
			TestCases:   testCases(obj["testCases"]),
			Explanation: stringField(obj, "explanationText", ""),
		}
	}
	return FailureResult(task)
}

// Failure returns the task's default failure shape.
func (n *Normalizer) Failure(task domain.TaskKind) Result { return FailureResult(task) }

// FailureResult returns the task's default failure shape: every field present,
// analytical strings marked Unknown, collections empty.
func FailureResult(task domain.TaskKind) Result {
	r := Result{Task: task, Failed: true, Explanation: "Analysis failed"}
	switch task {
	case domain.TaskAnalyze:
		r.Algorithm = &domain.AlgorithmAnalysis{
			ApproachIdentified:    "Unknown",
			OptimizationTips:      []string{},
			EdgeCasesFeedback:     []string{},
			AlternativeApproaches: []domain.AlternativeApproach{},
		}
	case domain.TaskComplexity:
		r.Complexity = &domain.ComplexityAnalysis{
			TimeComplexity:      domain.TimeComplexity{BestCase: "Unknown", AverageCase: "Unknown", WorstCase: "Unknown"},
			SpaceComplexity:     "Unknown",
			CriticalOperations:  []domain.CriticalOperation{},
			ComparisonToOptimal: "Unknown",
		}
	case domain.TaskOptimize:
		r.Optimization = &domain.OptimizationSuggestions{
			OptimizedCode: "",
			Improvements:  []domain.Improvement{},
		}
	case domain.TaskGenerateTests:
		r.TestCases = []domain.TestCase{}
	}
	return r
}

// stripCodeFence removes an enclosing markdown code fence, with or without a
// language tag, leaving inner text untouched.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// repairArrays replaces non-literal array constructs with empty array
// literals so a second strict parse can succeed.
func repairArrays(s string) string {
	return nonLiteralArrayRe.ReplaceAllString(s, "[]")
}

func parseObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Coercion helpers. Missing or mistyped fields become type-appropriate
// defaults; a designated array field that is not an array becomes empty.

func stringField(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case string:
		if v == "" {
			return def
		}
		return v
	case nil:
		return def
	default:
		return coerceString(v)
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		out = append(out, coerceString(e))
	}
	return out
}

func intSlice(v any) []int {
	arr, ok := v.([]any)
	if !ok {
		return []int{}
	}
	out := make([]int, 0, len(arr))
	for _, e := range arr {
		if f, ok := e.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}

func objectAt(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func timeComplexity(v any) domain.TimeComplexity {
	tc := domain.TimeComplexity{BestCase: "Unknown", AverageCase: "Unknown", WorstCase: "Unknown"}
	m, ok := objectAt(v)
	if !ok {
		return tc
	}
	tc.BestCase = stringField(m, "bestCase", "Unknown")
	tc.AverageCase = stringField(m, "averageCase", "Unknown")
	tc.WorstCase = stringField(m, "worstCase", "Unknown")
	return tc
}

func alternativeApproaches(v any) []domain.AlternativeApproach {
	arr, ok := v.([]any)
	if !ok {
		return []domain.AlternativeApproach{}
	}
	out := make([]domain.AlternativeApproach, 0, len(arr))
	for _, e := range arr {
		m, ok := objectAt(e)
		if !ok {
			continue
		}
		out = append(out, domain.AlternativeApproach{
			Description: stringField(m, "description", ""),
			Complexity:  stringField(m, "complexity", ""),
			Suitability: stringField(m, "suitability", ""),
		})
	}
	return out
}

func criticalOperations(v any) []domain.CriticalOperation {
	arr, ok := v.([]any)
	if !ok {
		return []domain.CriticalOperation{}
	}
	out := make([]domain.CriticalOperation, 0, len(arr))
	for _, e := range arr {
		m, ok := objectAt(e)
		if !ok {
			continue
		}
		out = append(out, domain.CriticalOperation{
			Operation:   stringField(m, "operation", ""),
			Impact:      stringField(m, "impact", ""),
			LineNumbers: intSlice(m["lineNumbers"]),
		})
	}
	return out
}

func improvements(v any) []domain.Improvement {
	arr, ok := v.([]any)
	if !ok {
		return []domain.Improvement{}
	}
	out := make([]domain.Improvement, 0, len(arr))
	for _, e := range arr {
		m, ok := objectAt(e)
		if !ok {
			continue
		}
		out = append(out, domain.Improvement{
			Description:       stringField(m, "description", ""),
			ComplexityBefore:  stringField(m, "complexityBefore", ""),
			ComplexityAfter:   stringField(m, "complexityAfter", ""),
			AlgorithmicChange: stringField(m, "algorithmicChange", ""),
		})
	}
	return out
}

func testCases(v any) []domain.TestCase {
	arr, ok := v.([]any)
	if !ok {
		return []domain.TestCase{}
	}
	out := make([]domain.TestCase, 0, len(arr))
	for _, e := range arr {
		m, ok := objectAt(e)
		if !ok {
			continue
		}
		perf, _ := m["performanceTest"].(bool)
		out = append(out, domain.TestCase{
			Input:           stringField(m, "input", ""),
			ExpectedOutput:  stringField(m, "expectedOutput", ""),
			Purpose:         stringField(m, "purpose", ""),
			Difficulty:      stringField(m, "difficulty", ""),
			PerformanceTest: perf,
		})
	}
	return out
}
