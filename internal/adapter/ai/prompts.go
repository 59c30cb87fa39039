package ai

import (
	"fmt"
	"strings"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// PromptInput carries the task payload fields embedded into the user prompt.
type PromptInput = domain.TaskPayload

const (
	analyzeSystemPrompt = `You are an expert algorithm reviewer. Analyze the submitted solution and respond with ONLY a JSON object, no markdown fences, matching exactly:
{"approachIdentified": string, "optimizationTips": [string], "edgeCasesFeedback": [string], "alternativeApproaches": [{"description": string, "complexity": string, "suitability": string}], "detailedAnalysis": string}
Every array element must be a literal value.`

	complexitySystemPrompt = `You are an expert in algorithmic complexity analysis. Respond with ONLY a JSON object, no markdown fences, matching exactly:
{"timeComplexity": {"bestCase": string, "averageCase": string, "worstCase": string}, "spaceComplexity": string, "criticalOperations": [{"operation": string, "impact": string, "lineNumbers": [number]}], "comparisonToOptimal": string, "detailedAnalysis": string}
Use big-O notation for all complexity values.`

	optimizeSystemPrompt = `You are an expert at optimizing algorithms. Rewrite the submitted code to improve its %s complexity and respond with ONLY a JSON object, no markdown fences, matching exactly:
{"optimizedCode": string, "improvements": [{"description": string, "complexityBefore": string, "complexityAfter": string, "algorithmicChange": string}], "explanationText": string}`

	generateTestsSystemPrompt = `You are an expert at designing test suites for algorithmic problems. Respond with ONLY a JSON object, no markdown fences, matching exactly:
{"testCases": [{"input": string, "expectedOutput": string, "purpose": string, "difficulty": "easy"|"medium"|"hard"|"edge", "performanceTest": boolean}], "explanationText": string}
Every array element must be a literal object, never a generator or comprehension.`
)

// BuildPrompt returns the fixed system instruction and the user message for a
// task. The user message embeds only the payload fields the task uses.
func BuildPrompt(task domain.TaskKind, in PromptInput) (system, user string) {
	var b strings.Builder
	switch task {
	case domain.TaskAnalyze:
		system = analyzeSystemPrompt
	case domain.TaskComplexity:
		system = complexitySystemPrompt
	case domain.TaskOptimize:
		focus := in.OptimizationFocus
		if focus == "" {
			focus = domain.FocusTime
		}
		system = fmt.Sprintf(optimizeSystemPrompt, focus)
	case domain.TaskGenerateTests:
		system = generateTestsSystemPrompt
		if in.ProblemStatement != "" {
			fmt.Fprintf(&b, "Problem statement:\n%s\n\n", in.ProblemStatement)
		}
		if in.Constraints != "" {
			fmt.Fprintf(&b, "Constraints:\n%s\n", in.Constraints)
		}
		return system, b.String()
	}

	if in.ProblemStatement != "" {
		fmt.Fprintf(&b, "Problem statement:\n%s\n\n", in.ProblemStatement)
	}
	lang := in.Language
	if lang == "" {
		lang = "plaintext"
	}
	fmt.Fprintf(&b, "Submitted solution (%s):\n%s\n", lang, in.Code)
	return system, b.String()
}
