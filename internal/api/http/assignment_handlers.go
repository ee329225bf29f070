package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/auth"
)

// POST /assignments
func CreateAssignmentHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in assess.AssignmentInput
		if err := decode(r, &in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.CreateAssignment(r.Context(), auth.OrgFromContext(r.Context()), auth.SubjectFromContext(r.Context()), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// POST /assignments/{assignmentID}/cancel
func CancelAssignmentHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		a, err := svc.CancelAssignment(r.Context(), auth.OrgFromContext(r.Context()), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /assignments?quiz_id=...&active=1&limit=50&offset=0
func ListAssignmentsHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := assess.AssignmentListOpts{
			QuizID:     strings.TrimSpace(r.URL.Query().Get("quiz_id")),
			ActiveOnly: r.URL.Query().Get("active") == "1",
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		as, err := svc.ListAssignments(r.Context(), auth.OrgFromContext(r.Context()), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, as)
	}
}

// GET /assignments/due — the learner's open assignments, membership resolved
// at call time.
func ListAssignmentsDueHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		as, err := svc.ListAssignmentsDue(ctx, auth.OrgFromContext(ctx), auth.SubjectFromContext(ctx))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, as)
	}
}
