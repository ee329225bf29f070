package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/auth"
)

// POST /attempts  { "assignment_id": "..." }
// Starting is idempotent from the client's view: a second start returns
// attempt_already_active with the in-progress attempt's ID to resume.
func StartAttemptHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AssignmentID string `json:"assignment_id"`
		}
		if err := decode(r, &req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.AssignmentID == "" {
			http.Error(w, "assignment_id required", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		a, err := svc.StartAttempt(ctx, auth.OrgFromContext(ctx), auth.SubjectFromContext(ctx), req.AssignmentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /attempts/{attemptID}/questions — the question set without answer keys.
func AttemptQuestionsHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		a, err := svc.GetAttempt(ctx, auth.OrgFromContext(ctx), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !canViewAttempt(ctx, a) {
			writeErr(w, assess.ErrForbidden)
			return
		}
		qs, err := svc.AttemptQuestions(ctx, auth.OrgFromContext(ctx), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// PUT /attempts/{attemptID}/answers/{questionID}
// { "selected": ["opt-a"], "text": "", "saved_at": 1735689600 }
// saved_at orders saves of the same question only; it never extends the
// deadline, which is checked against the server clock.
func SaveAnswerHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		questionID := strings.TrimSpace(chi.URLParam(r, "questionID"))
		var req struct {
			Selected []string `json:"selected"`
			Text     string   `json:"text"`
			SavedAt  int64    `json:"saved_at"`
		}
		if err := decode(r, &req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		savedAt := time.Now()
		if req.SavedAt > 0 {
			savedAt = time.Unix(req.SavedAt, 0)
		}
		ctx := r.Context()
		a, err := svc.SaveAnswer(ctx, auth.OrgFromContext(ctx), auth.SubjectFromContext(ctx),
			attemptID, questionID, req.Selected, req.Text, savedAt)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		a, err := svc.SubmitAttempt(ctx, auth.OrgFromContext(ctx), auth.SubjectFromContext(ctx), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		a, err := svc.GetAttempt(ctx, auth.OrgFromContext(ctx), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !canViewAttempt(ctx, a) {
			writeErr(w, assess.ErrForbidden)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}/result
func GetResultHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		a, err := svc.GetAttempt(ctx, auth.OrgFromContext(ctx), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !canViewAttempt(ctx, a) {
			writeErr(w, assess.ErrForbidden)
			return
		}
		if a.Result == nil {
			writeErr(w, assess.ErrAttemptNotGraded)
			return
		}
		writeJSON(w, http.StatusOK, a.Result)
	}
}

// canViewAttempt: owners always; otherwise instructor/admin only.
func canViewAttempt(ctx context.Context, a assess.Attempt) bool {
	if auth.SubjectFromContext(ctx) == a.LearnerID {
		return true
	}
	role := auth.RoleFromContext(ctx)
	return role == auth.RoleInstructor || role == auth.RoleAdmin
}
