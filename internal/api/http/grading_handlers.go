package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/auth"
)

// GET /attempts?assignment_id=...&learner_id=...&status=...&limit=50&offset=0
// Callers without attempt:view-all see only their own attempts.
func ListAttemptsHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		role := auth.RoleFromContext(ctx)
		learnerID := strings.TrimSpace(r.URL.Query().Get("learner_id"))
		if role != auth.RoleInstructor && role != auth.RoleAdmin {
			learnerID = auth.SubjectFromContext(ctx)
		}
		opts := assess.AttemptListOpts{
			AssignmentID: strings.TrimSpace(r.URL.Query().Get("assignment_id")),
			LearnerID:    learnerID,
			Status:       strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:        parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:       parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		list, err := svc.ListAttempts(ctx, auth.OrgFromContext(ctx), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /attempts/{attemptID}/force-end
func ForceEndAttemptHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		a, err := svc.ForceEnd(ctx, auth.OrgFromContext(ctx), auth.SubjectFromContext(ctx), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/grades
// { "question_id": "...", "marks": 3, "feedback": "..." }
func ApplyManualGradeHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req struct {
			QuestionID string  `json:"question_id"`
			Marks      float64 `json:"marks"`
			Feedback   string  `json:"feedback"`
		}
		if err := decode(r, &req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		a, err := svc.ApplyManualGrade(ctx, auth.OrgFromContext(ctx), auth.SubjectFromContext(ctx),
			id, req.QuestionID, req.Marks, req.Feedback)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
