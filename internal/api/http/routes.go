package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/rbac"
)

// Mount wires the engine's surfaces onto an authenticated router: callers
// already carry subject, role and org in the request context.
func Mount(r chi.Router, svc *assess.Service) {
	// question bank (author surface)
	r.With(rbac.Require("question:create")).Post("/questions", CreateQuestionHandler(svc))
	r.With(rbac.Require("question:update")).Put("/questions/{questionID}", UpdateQuestionHandler(svc))
	r.With(rbac.Require("question:delete")).Delete("/questions/{questionID}", DeleteQuestionHandler(svc))
	r.With(rbac.Require("question:view")).Get("/questions", ListQuestionsHandler(svc))

	// quiz catalog
	r.With(rbac.Require("quiz:create")).Post("/quizzes", CreateQuizHandler(svc))
	r.With(rbac.Require("quiz:view")).Get("/quizzes", ListQuizzesHandler(svc))
	r.With(rbac.Require("quiz:view")).Get("/quizzes/{quizID}", GetQuizHandler(svc))
	r.With(rbac.Require("quiz:edit")).Post("/quizzes/{quizID}/questions", AddQuizQuestionHandler(svc))
	r.With(rbac.Require("quiz:edit")).Delete("/quizzes/{quizID}/questions/{questionID}", RemoveQuizQuestionHandler(svc))
	r.With(rbac.Require("quiz:edit")).Put("/quizzes/{quizID}/questions", ReorderQuizQuestionsHandler(svc))
	r.With(rbac.Require("quiz:publish")).Post("/quizzes/{quizID}/publish", PublishQuizHandler(svc))
	r.With(rbac.Require("quiz:archive")).Post("/quizzes/{quizID}/archive", ArchiveQuizHandler(svc))

	// assignments
	r.With(rbac.Require("assignment:create")).Post("/assignments", CreateAssignmentHandler(svc))
	r.With(rbac.Require("assignment:cancel")).Post("/assignments/{assignmentID}/cancel", CancelAssignmentHandler(svc))
	r.With(rbac.Require("assignment:view-all")).Get("/assignments", ListAssignmentsHandler(svc))
	r.With(rbac.Require("assignment:view-own")).Get("/assignments/due", ListAssignmentsDueHandler(svc))

	// attempts (learner surface; owner checks inside handlers)
	r.With(rbac.Require("attempt:create")).Post("/attempts", StartAttemptHandler(svc))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/attempts", ListAttemptsHandler(svc))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/attempts/{attemptID}", GetAttemptHandler(svc))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/attempts/{attemptID}/questions", AttemptQuestionsHandler(svc))
	r.With(rbac.Require("attempt:save")).Put("/attempts/{attemptID}/answers/{questionID}", SaveAnswerHandler(svc))
	r.With(rbac.Require("attempt:submit")).Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(svc))
	r.With(rbac.RequireAny("result:view-own", "attempt:view-all")).Get("/attempts/{attemptID}/result", GetResultHandler(svc))

	// grading / admin
	r.With(rbac.Require("attempt:force-end")).Post("/attempts/{attemptID}/force-end", ForceEndAttemptHandler(svc))
	r.With(rbac.Require("attempt:grade")).Post("/attempts/{attemptID}/grades", ApplyManualGradeHandler(svc))
}
