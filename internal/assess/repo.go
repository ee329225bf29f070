package assess

import "context"

type AttemptListOpts struct {
	AssignmentID string
	LearnerID    string
	Status       string // in_progress|submitted|expired|force_ended|graded
	Limit        int
	Offset       int
}

type AssignmentListOpts struct {
	QuizID     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Store persists the engine's entities. The state machine itself lives in
// Service; stores only read and write, with one concurrency duty:
// CreateAttempt must refuse a second in-progress attempt for the same
// (assignment, learner) pair, returning attempt_already_active with the
// existing attempt's ID.
type Store interface {
	PutQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, orgID, id string) (Question, error)
	GetQuestions(ctx context.Context, orgID string, ids []string) ([]Question, error)
	DeleteQuestion(ctx context.Context, orgID, id string) error
	ListQuestions(ctx context.Context, orgID string, limit, offset int) ([]Question, error)

	PutQuiz(ctx context.Context, z Quiz) error
	GetQuiz(ctx context.Context, orgID, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, orgID string, limit, offset int) ([]Quiz, error)
	// QuizzesReferencing returns IDs of quizzes whose question list contains
	// the question.
	QuizzesReferencing(ctx context.Context, orgID, questionID string) ([]string, error)

	PutAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, orgID, id string) (Assignment, error)
	ListAssignments(ctx context.Context, orgID string, opts AssignmentListOpts) ([]Assignment, error)

	CreateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, orgID, id string) (Attempt, error)
	UpdateAttempt(ctx context.Context, a Attempt) error
	// CountAttempts counts attempts in any state for the pair; terminal and
	// in-progress alike count toward max_attempts.
	CountAttempts(ctx context.Context, assignmentID, learnerID string) (int, error)
	ActiveAttempt(ctx context.Context, assignmentID, learnerID string) (Attempt, bool, error)
	ListAttempts(ctx context.Context, orgID string, opts AttemptListOpts) ([]Attempt, error)
	// ExpiredInProgress returns in-progress attempts whose deadline is
	// strictly before now, for the sweep.
	ExpiredInProgress(ctx context.Context, now int64, limit int) ([]Attempt, error)
	// AnyAttemptForQuiz reports whether any attempt exists against the quiz,
	// which freezes its questions (immutable-reference rule).
	AnyAttemptForQuiz(ctx context.Context, quizID string) (bool, error)

	AppendEvent(ctx context.Context, e Event) error
}
