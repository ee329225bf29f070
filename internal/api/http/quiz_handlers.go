package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/auth"
)

// POST /quizzes
func CreateQuizHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in assess.QuizInput
		if err := decode(r, &in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		z, err := svc.CreateQuiz(r.Context(), auth.OrgFromContext(r.Context()), auth.SubjectFromContext(r.Context()), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, z)
	}
}

// POST /quizzes/{quizID}/questions  { "question_id": "..." }
func AddQuizQuestionHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		var req struct {
			QuestionID string `json:"question_id"`
		}
		if err := decode(r, &req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		z, err := svc.AddQuestion(r.Context(), auth.OrgFromContext(r.Context()), quizID, req.QuestionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// DELETE /quizzes/{quizID}/questions/{questionID}
func RemoveQuizQuestionHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		questionID := strings.TrimSpace(chi.URLParam(r, "questionID"))
		z, err := svc.RemoveQuestion(r.Context(), auth.OrgFromContext(r.Context()), quizID, questionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// PUT /quizzes/{quizID}/questions  { "order": ["q1","q2",...] }
func ReorderQuizQuestionsHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		var req struct {
			Order []string `json:"order"`
		}
		if err := decode(r, &req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		z, err := svc.ReorderQuestions(r.Context(), auth.OrgFromContext(r.Context()), quizID, req.Order)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// POST /quizzes/{quizID}/publish
func PublishQuizHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		z, err := svc.PublishQuiz(r.Context(), auth.OrgFromContext(r.Context()), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// POST /quizzes/{quizID}/archive
func ArchiveQuizHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		z, err := svc.ArchiveQuiz(r.Context(), auth.OrgFromContext(r.Context()), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// GET /quizzes/{quizID}
func GetQuizHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		z, err := svc.GetQuiz(r.Context(), auth.OrgFromContext(r.Context()), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// GET /quizzes?limit=50&offset=0
func ListQuizzesHandler(svc *assess.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		zs, err := svc.ListQuizzes(r.Context(), auth.OrgFromContext(r.Context()), limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, zs)
	}
}
