package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/algoprep/algoprep-api/internal/adapter/jobsearch"
	"github.com/algoprep/algoprep-api/internal/adapter/sandbox"
	"github.com/algoprep/algoprep-api/internal/domain"
	"github.com/algoprep/algoprep-api/internal/usecase"
)

// JobSearcher is the outbound job-listing proxy used by the handler.
type JobSearcher interface {
	Search(ctx domain.Context, q jobsearch.Query) ([]byte, error)
}

// CodeExecutor is the outbound code-sandbox proxy used by the handler.
type CodeExecutor interface {
	Execute(ctx domain.Context, sub sandbox.Submission) ([]byte, error)
}

// Server bundles the services behind the HTTP handlers.
type Server struct {
	Auth       usecase.AuthService
	Analysis   usecase.AnalysisService
	Interviews usecase.InterviewService
	Tokens     TokenIssuer
	Jobs       JobSearcher
	Sandbox    CodeExecutor
}

// NewServer constructs a Server.
func NewServer(auth usecase.AuthService, analysis usecase.AnalysisService, interviews usecase.InterviewService, tokens TokenIssuer, jobs JobSearcher, sb CodeExecutor) *Server {
	return &Server{Auth: auth, Analysis: analysis, Interviews: interviews, Tokens: tokens, Jobs: jobs, Sandbox: sb}
}

// --- auth ---

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"displayName" validate:"max=120"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

func toUserDTO(u domain.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// RegisterHandler creates an account and returns a token for it.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if fields, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err, fields)
			return
		}
		u, err := s.Auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		token, err := s.Tokens.Issue(u)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusCreated, "account created", map[string]any{
			"token": token,
			"user":  toUserDTO(u),
		})
	}
}

// LoginHandler checks credentials and returns a token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if fields, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err, fields)
			return
		}
		u, err := s.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		token, err := s.Tokens.Issue(u)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "logged in", map[string]any{
			"token": token,
			"user":  toUserDTO(u),
		})
	}
}

// --- analysis ---

type analysisRequest struct {
	InterviewID       string `json:"interviewId"`
	QuestionID        string `json:"questionId"`
	ProblemID         string `json:"problemId"`
	Code              string `json:"code"`
	Language          string `json:"language" validate:"max=40"`
	ProblemStatement  string `json:"problemStatement"`
	Constraints       string `json:"constraints"`
	OptimizationFocus string `json:"optimizationFocus" validate:"omitempty,oneof=time space"`
}

func (req analysisRequest) scope() domain.Scope {
	if req.ProblemID != "" {
		return domain.ProblemScope(req.ProblemID)
	}
	return domain.InterviewScope(req.InterviewID, req.QuestionID)
}

func (req analysisRequest) input(ownerID string) usecase.TaskInput {
	return usecase.TaskInput{
		OwnerID: ownerID,
		Scope:   req.scope(),
		Payload: domain.TaskPayload{
			Code:              req.Code,
			Language:          req.Language,
			ProblemStatement:  req.ProblemStatement,
			Constraints:       req.Constraints,
			OptimizationFocus: req.OptimizationFocus,
		},
	}
}

// AnalysisHandler serves one analysis task endpoint. Soft failures (model
// unreachable or unparseable) answer 200 with success:false and the defaulted
// shape; only auth, validation and persistence problems are hard errors.
func (s *Server) AnalysisHandler(task domain.TaskKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analysisRequest
		if fields, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err, fields)
			return
		}

		in := req.input(OwnerIDFrom(r.Context()))
		var (
			out usecase.TaskOutput
			err error
		)
		switch task {
		case domain.TaskAnalyze:
			out, err = s.Analysis.Analyze(r.Context(), in)
		case domain.TaskComplexity:
			out, err = s.Analysis.Complexity(r.Context(), in)
		case domain.TaskOptimize:
			out, err = s.Analysis.Optimize(r.Context(), in)
		case domain.TaskGenerateTests:
			out, err = s.Analysis.GenerateTests(r.Context(), in)
		}
		if err != nil {
			writeError(w, err, nil)
			return
		}
		if out.Failed {
			writeSoftFailure(w, "analysis failed", taskData(out))
			return
		}
		writeSuccess(w, http.StatusOK, "analysis complete", taskData(out))
	}
}

// taskData flattens the task's result slot into the response data object and
// attaches the explanation under the task's wire name plus the fromCache tag.
func taskData(out usecase.TaskOutput) map[string]any {
	m := map[string]any{}
	switch out.Task {
	case domain.TaskAnalyze:
		m = structToMap(out.Algorithm)
		m["detailedAnalysis"] = out.Explanation
	case domain.TaskComplexity:
		m = structToMap(out.Complexity)
		m["detailedAnalysis"] = out.Explanation
	case domain.TaskOptimize:
		m = structToMap(out.Optimization)
		m["explanationText"] = out.Explanation
	case domain.TaskGenerateTests:
		tc := out.TestCases
		if tc == nil {
			tc = []domain.TestCase{}
		}
		m["testCases"] = tc
		m["explanationText"] = out.Explanation
	}
	m["fromCache"] = out.FromCache
	return m
}

func structToMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	_ = json.Unmarshal(b, &m)
	return m
}

// --- interviews ---

type interviewRequest struct {
	Title       string                     `json:"title" validate:"required,max=200"`
	Status      string                     `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	ScheduledAt time.Time                  `json:"scheduledAt"`
	Questions   []domain.InterviewQuestion `json:"questions"`
}

type interviewDTO struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Status      string                     `json:"status"`
	ScheduledAt time.Time                  `json:"scheduledAt"`
	Questions   []domain.InterviewQuestion `json:"questions"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

func toInterviewDTO(iv domain.Interview) interviewDTO {
	qs := iv.Questions
	if qs == nil {
		qs = []domain.InterviewQuestion{}
	}
	return interviewDTO{
		ID:          iv.ID,
		Title:       iv.Title,
		Status:      iv.Status,
		ScheduledAt: iv.ScheduledAt,
		Questions:   qs,
		CreatedAt:   iv.CreatedAt,
		UpdatedAt:   iv.UpdatedAt,
	}
}

// CreateInterviewHandler schedules an interview for the caller.
func (s *Server) CreateInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req interviewRequest
		if fields, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err, fields)
			return
		}
		iv, err := s.Interviews.Create(r.Context(), OwnerIDFrom(r.Context()), domain.Interview{
			Title:       req.Title,
			Status:      req.Status,
			ScheduledAt: req.ScheduledAt,
			Questions:   req.Questions,
		})
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusCreated, "interview created", toInterviewDTO(iv))
	}
}

// ListInterviewsHandler returns the caller's interviews.
func (s *Server) ListInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ivs, err := s.Interviews.List(r.Context(), OwnerIDFrom(r.Context()))
		if err != nil {
			writeError(w, err, nil)
			return
		}
		dtos := make([]interviewDTO, 0, len(ivs))
		for _, iv := range ivs {
			dtos = append(dtos, toInterviewDTO(iv))
		}
		writeSuccess(w, http.StatusOK, "ok", map[string]any{"interviews": dtos})
	}
}

// GetInterviewHandler returns one of the caller's interviews.
func (s *Server) GetInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, err := s.Interviews.Get(r.Context(), OwnerIDFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "ok", toInterviewDTO(iv))
	}
}

// DeleteInterviewHandler removes one of the caller's interviews.
func (s *Server) DeleteInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Interviews.Delete(r.Context(), OwnerIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "interview deleted", nil)
	}
}

// --- proxies ---

// JobSearchHandler forwards a listing query to the job API.
func (s *Server) JobSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		q := jobsearch.Query{
			Keywords: r.URL.Query().Get("q"),
			Location: r.URL.Query().Get("location"),
			Remote:   r.URL.Query().Get("remote") == "true",
			Page:     page,
		}
		body, err := s.Jobs.Search(r.Context(), q)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "ok", json.RawMessage(body))
	}
}

type executeRequest struct {
	Code       string `json:"code" validate:"required"`
	LanguageID int    `json:"languageId" validate:"required,gt=0"`
	Stdin      string `json:"stdin"`
}

// ExecuteHandler relays one code submission to the sandbox.
func (s *Server) ExecuteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeRequest
		if fields, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err, fields)
			return
		}
		body, err := s.Sandbox.Execute(r.Context(), sandbox.Submission{
			SourceCode: req.Code,
			LanguageID: req.LanguageID,
			Stdin:      req.Stdin,
		})
		if err != nil {
			writeError(w, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "ok", json.RawMessage(body))
	}
}
