package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// AnalysisRepo persists analysis records keyed on (owner, scope, code hash).
type AnalysisRepo struct{ Pool PgxPool }

// NewAnalysisRepo constructs an AnalysisRepo with the given pool.
func NewAnalysisRepo(p PgxPool) *AnalysisRepo { return &AnalysisRepo{Pool: p} }

const analysisColumns = `id, owner_id, scope_kind, interview_id, question_id, problem_id,
code, code_hash, language,
algorithm_analysis, complexity_analysis, optimization_suggestions, test_cases,
algorithm_explanation, complexity_explanation, optimization_explanation, test_cases_explanation,
created_at, updated_at`

// Find loads the record matching the fingerprint. Code-independent
// fingerprints (empty CodeHash) match any record for the owner+scope, newest
// first, mirroring a document-store findOne on the partial key.
func (r *AnalysisRepo) Find(ctx domain.Context, fp domain.Fingerprint) (domain.AnalysisRecord, error) {
	tracer := otel.Tracer("repo.analysis")
	ctx, span := tracer.Start(ctx, "analysis.Find")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.sql.table", "analysis_records"),
		attribute.String("analysis.scope_key", fp.Scope.Key()),
	)

	var row pgx.Row
	if fp.CodeHash != "" {
		q := `SELECT ` + analysisColumns + ` FROM analysis_records
		WHERE owner_id=$1 AND scope_key=$2 AND code_hash=$3`
		row = r.Pool.QueryRow(ctx, q, fp.OwnerID, fp.Scope.Key(), fp.CodeHash)
	} else {
		q := `SELECT ` + analysisColumns + ` FROM analysis_records
		WHERE owner_id=$1 AND scope_key=$2 ORDER BY updated_at DESC LIMIT 1`
		row = r.Pool.QueryRow(ctx, q, fp.OwnerID, fp.Scope.Key())
	}
	rec, err := scanAnalysisRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AnalysisRecord{}, fmt.Errorf("op=analysis.find: %w", domain.ErrNotFound)
		}
		return domain.AnalysisRecord{}, fmt.Errorf("op=analysis.find: %w", err)
	}
	return rec, nil
}

// UpsertSlot writes one task's result slot. For code-keyed tasks the write is
// a single atomic INSERT .. ON CONFLICT on the compound identity, so two
// concurrent same-key writers cannot produce duplicate records. For
// code-independent tasks an existing record for the scope is updated in place
// when present; otherwise a codeless record is inserted under the same
// conflict target.
func (r *AnalysisRepo) UpsertSlot(ctx domain.Context, fp domain.Fingerprint, upd domain.SlotUpdate) (domain.AnalysisRecord, error) {
	tracer := otel.Tracer("repo.analysis")
	ctx, span := tracer.Start(ctx, "analysis.UpsertSlot")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.sql.table", "analysis_records"),
		attribute.String("analysis.task", string(upd.Task)),
	)

	slotCol, explCol, slotJSON, err := slotAssignment(upd)
	if err != nil {
		return domain.AnalysisRecord{}, fmt.Errorf("op=analysis.upsert: %w", err)
	}

	if fp.CodeHash == "" {
		// Attach to the newest record for the scope when one exists.
		q := fmt.Sprintf(`UPDATE analysis_records
		SET %s=$3, %s=$4, updated_at=$5
		WHERE id = (SELECT id FROM analysis_records WHERE owner_id=$1 AND scope_key=$2 ORDER BY updated_at DESC LIMIT 1)
		RETURNING `+analysisColumns, slotCol, explCol)
		row := r.Pool.QueryRow(ctx, q, fp.OwnerID, fp.Scope.Key(), slotJSON, upd.Explanation, time.Now().UTC())
		rec, err := scanAnalysisRecord(row)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.AnalysisRecord{}, fmt.Errorf("op=analysis.upsert: %w", err)
		}
	}

	now := time.Now().UTC()
	q := fmt.Sprintf(`INSERT INTO analysis_records
	(id, owner_id, scope_kind, scope_key, interview_id, question_id, problem_id, code, code_hash, language, %s, %s, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)
	ON CONFLICT (owner_id, scope_key, code_hash)
	DO UPDATE SET %s=EXCLUDED.%s, %s=EXCLUDED.%s, language=EXCLUDED.language, updated_at=EXCLUDED.updated_at
	RETURNING `+analysisColumns, slotCol, explCol, slotCol, slotCol, explCol, explCol)
	row := r.Pool.QueryRow(ctx, q,
		uuid.New().String(), fp.OwnerID, string(fp.Scope.Kind), fp.Scope.Key(),
		fp.Scope.InterviewID, fp.Scope.QuestionID, fp.Scope.ProblemID,
		upd.Code, fp.CodeHash, upd.Language, slotJSON, upd.Explanation, now)
	rec, err := scanAnalysisRecord(row)
	if err != nil {
		return domain.AnalysisRecord{}, fmt.Errorf("op=analysis.upsert: %w", err)
	}
	return rec, nil
}

// slotAssignment maps a SlotUpdate onto its column pair and JSON payload.
func slotAssignment(upd domain.SlotUpdate) (slotCol, explCol string, slotJSON []byte, err error) {
	var v any
	switch upd.Task {
	case domain.TaskAnalyze:
		slotCol, explCol, v = "algorithm_analysis", "algorithm_explanation", upd.Algorithm
	case domain.TaskComplexity:
		slotCol, explCol, v = "complexity_analysis", "complexity_explanation", upd.Complexity
	case domain.TaskOptimize:
		slotCol, explCol, v = "optimization_suggestions", "optimization_explanation", upd.Optimization
	case domain.TaskGenerateTests:
		slotCol, explCol, v = "test_cases", "test_cases_explanation", upd.TestCases
	default:
		return "", "", nil, fmt.Errorf("%w: unknown task %q", domain.ErrInvalidArgument, upd.Task)
	}
	slotJSON, err = json.Marshal(v)
	if err != nil {
		return "", "", nil, err
	}
	return slotCol, explCol, slotJSON, nil
}

func scanAnalysisRecord(row pgx.Row) (domain.AnalysisRecord, error) {
	var (
		rec                               domain.AnalysisRecord
		scopeKind                         string
		interviewID, questionID, problem  string
		algoB, cxB, optB, testsB          []byte
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &scopeKind, &interviewID, &questionID, &problem,
		&rec.Code, &rec.CodeHash, &rec.Language,
		&algoB, &cxB, &optB, &testsB,
		&rec.AlgorithmExplanation, &rec.ComplexityExplanation, &rec.OptimizationExplanation, &rec.TestCasesExplanation,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	if domain.ScopeKind(scopeKind) == domain.ScopeInterview {
		rec.Scope = domain.InterviewScope(interviewID, questionID)
	} else {
		rec.Scope = domain.ProblemScope(problem)
	}
	if len(algoB) > 0 {
		rec.AlgorithmAnalysis = &domain.AlgorithmAnalysis{}
		if err := json.Unmarshal(algoB, rec.AlgorithmAnalysis); err != nil {
			return domain.AnalysisRecord{}, err
		}
	}
	if len(cxB) > 0 {
		rec.ComplexityAnalysis = &domain.ComplexityAnalysis{}
		if err := json.Unmarshal(cxB, rec.ComplexityAnalysis); err != nil {
			return domain.AnalysisRecord{}, err
		}
	}
	if len(optB) > 0 {
		rec.OptimizationSuggestions = &domain.OptimizationSuggestions{}
		if err := json.Unmarshal(optB, rec.OptimizationSuggestions); err != nil {
			return domain.AnalysisRecord{}, err
		}
	}
	if len(testsB) > 0 {
		if err := json.Unmarshal(testsB, &rec.TestCases); err != nil {
			return domain.AnalysisRecord{}, err
		}
	}
	return rec, nil
}
