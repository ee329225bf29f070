package assess

import "fmt"

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1 // malformed input, rejected with no side effect
	KindConflict                        // legitimate business-rule refusal
	KindAuthorization                   // wrong role or not in recipient set
	KindNotFound
	KindInfra // persistence failure, safe to retry
)

// Error is the engine's error type. Code identifies the rule for clients;
// errors.Is matches on Code so parameterized errors compare against their
// sentinel.
type Error struct {
	Kind      ErrorKind
	Code      string
	Message   string
	AttemptID string // set on attempt_already_active so clients can resume
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrQuizNotEditable     = &Error{Kind: KindConflict, Code: "quiz_not_editable", Message: "quiz question list may only change while draft"}
	ErrEmptyQuiz           = &Error{Kind: KindValidation, Code: "empty_quiz", Message: "quiz has no questions"}
	ErrInvalidThreshold    = &Error{Kind: KindValidation, Code: "invalid_threshold", Message: "pass threshold exceeds total marks"}
	ErrQuizNotActive       = &Error{Kind: KindConflict, Code: "quiz_not_active", Message: "referenced quiz is not active"}
	ErrPastDueDate         = &Error{Kind: KindValidation, Code: "past_due_date", Message: "due date must be in the future"}
	ErrImmutableReference  = &Error{Kind: KindConflict, Code: "immutable_reference", Message: "question is referenced by a quiz with attempt history; create a new question and re-link"}
	ErrQuestionReferenced  = &Error{Kind: KindConflict, Code: "question_referenced", Message: "question is referenced by a quiz"}
	ErrAssignmentCancelled = &Error{Kind: KindConflict, Code: "assignment_cancelled", Message: "assignment has been cancelled"}
	ErrAssignmentClosed    = &Error{Kind: KindConflict, Code: "assignment_closed", Message: "assignment is past its due date"}
	ErrAttemptLimitExceeded = &Error{Kind: KindConflict, Code: "attempt_limit_exceeded", Message: "maximum attempts reached for this assignment"}
	ErrAttemptAlreadyActive = &Error{Kind: KindConflict, Code: "attempt_already_active", Message: "an in-progress attempt already exists"}
	ErrAttemptNotActive     = &Error{Kind: KindConflict, Code: "attempt_not_active", Message: "attempt is not in progress"}
	ErrAttemptExpired       = &Error{Kind: KindConflict, Code: "attempt_expired", Message: "attempt deadline has passed"}
	ErrAttemptNotGraded     = &Error{Kind: KindConflict, Code: "attempt_not_graded", Message: "attempt has no result yet"}
	ErrMarksExceedQuestionValue = &Error{Kind: KindValidation, Code: "marks_exceed_question_value", Message: "awarded marks exceed the question's marks"}
	ErrNotPendingManual = &Error{Kind: KindConflict, Code: "not_pending_manual", Message: "question is not pending manual grading"}
	ErrInvalidQuestion  = &Error{Kind: KindValidation, Code: "invalid_question", Message: "invalid question"}
	ErrInvalidQuiz      = &Error{Kind: KindValidation, Code: "invalid_quiz", Message: "invalid quiz"}
	ErrInvalidAssignment = &Error{Kind: KindValidation, Code: "invalid_assignment", Message: "invalid assignment"}
	ErrNotRecipient     = &Error{Kind: KindAuthorization, Code: "not_recipient", Message: "learner is not in the assignment's recipient set"}
	ErrForbidden        = &Error{Kind: KindAuthorization, Code: "forbidden", Message: "not allowed"}
	ErrNotFound         = &Error{Kind: KindNotFound, Code: "not_found", Message: "not found"}
)

// invalidQuestion wraps ErrInvalidQuestion with the specific violated invariant.
func invalidQuestion(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidQuestion.Code,
		Message: "invalid question: " + fmt.Sprintf(format, args...)}
}

func invalidQuiz(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidQuiz.Code,
		Message: "invalid quiz: " + fmt.Sprintf(format, args...)}
}

func invalidAssignment(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidAssignment.Code,
		Message: "invalid assignment: " + fmt.Sprintf(format, args...)}
}

// attemptActive reports the start-attempt race loser, carrying the winner's
// ID so the client resumes instead of duplicating.
func attemptActive(existingID string) *Error {
	return &Error{Kind: KindConflict, Code: ErrAttemptAlreadyActive.Code,
		Message: ErrAttemptAlreadyActive.Message, AttemptID: existingID}
}

func notFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func infra(op string, err error) *Error {
	return &Error{Kind: KindInfra, Code: "storage", Message: op + ": " + err.Error()}
}
