package assess

// Question types. Choice types reference options by ID in the answer key;
// numeric and short-answer keys hold accepted values; free-text has no key
// and is always graded manually.
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionNumeric        = "numeric"
	QuestionShortAnswer    = "short_answer"
	QuestionFreeText       = "free_text"
)

// Quiz lifecycle states. Transitions are monotonic: draft -> active -> archived.
const (
	QuizDraft    = "draft"
	QuizActive   = "active"
	QuizArchived = "archived"
)

// Attempt states. "graded" is reached from any of the three terminal states
// once a Result exists; the prior terminal state is kept in EndedState.
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptExpired    = "expired"
	AttemptForceEnded = "force_ended"
	AttemptGraded     = "graded"
)

// Result grading states.
const (
	GradingAuto    = "auto_graded"
	GradingPending = "pending_manual"
	GradingManual  = "manually_graded"
)

// Recipient kinds for an assignment.
const (
	RecipientLearner = "learner"
	RecipientBatch   = "batch"
)

type Option struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

type Question struct {
	ID        string   `json:"id"`
	OrgID     string   `json:"org_id"`
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	Marks     float64  `json:"marks"`
	Options   []Option `json:"options,omitempty"`
	AnswerKey []string `json:"answer_key,omitempty"` // option IDs or accepted values; never sent to learners
	Tolerance float64  `json:"tolerance,omitempty"`  // numeric only; 0 means exact
	CreatedBy string   `json:"created_by,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
	UpdatedAt int64    `json:"updated_at,omitempty"`
}

type Quiz struct {
	ID           string   `json:"id"`
	OrgID        string   `json:"org_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Status       string   `json:"status"`
	QuestionIDs  []string `json:"question_ids"`
	DurationMin  int      `json:"duration_min"`
	TotalMarks   float64  `json:"total_marks"`
	PassMarks    float64  `json:"pass_marks"`
	CreatedBy    string   `json:"created_by,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"`
	UpdatedAt    int64    `json:"updated_at,omitempty"`
}

type Recipient struct {
	Type string `json:"type"` // learner|batch
	ID   string `json:"id"`   // learner identity or batch identity
}

type Assignment struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	QuizID      string    `json:"quiz_id"`
	DueAt       int64     `json:"due_at"`
	MaxAttempts int       `json:"max_attempts"`
	Recipient   Recipient `json:"recipient"`
	Active      bool      `json:"active"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   int64     `json:"created_at,omitempty"`
}

// Answer holds one learner response, upserted by question ID. SavedAt is the
// caller-supplied timestamp used only for last-write-wins ordering between
// saves of the same question; deadlines are always checked against the
// server clock.
type Answer struct {
	QuestionID string   `json:"question_id"`
	Selected   []string `json:"selected,omitempty"` // option IDs for choice types
	Text       string   `json:"text,omitempty"`     // numeric / short-answer / free-text value
	SavedAt    int64    `json:"saved_at"`
}

type Attempt struct {
	ID           string            `json:"id"`
	OrgID        string            `json:"org_id"`
	AssignmentID string            `json:"assignment_id"`
	QuizID       string            `json:"quiz_id"`
	LearnerID    string            `json:"learner_id"`
	Status       string            `json:"status"`
	EndedState   string            `json:"ended_state,omitempty"` // submitted|expired|force_ended once terminal
	EndedBy      string            `json:"ended_by,omitempty"`    // actor for force_ended
	StartedAt    int64             `json:"started_at"`
	Deadline     int64             `json:"deadline"` // started_at + duration, capped by assignment due_at
	EndedAt      int64             `json:"ended_at,omitempty"`
	Answers      map[string]Answer `json:"answers,omitempty"`
	Result       *Result           `json:"result,omitempty"`
}

type QuestionResult struct {
	QuestionID string  `json:"question_id"`
	Awarded    float64 `json:"awarded"`
	Max        float64 `json:"max"`
	Correct    *bool   `json:"correct,omitempty"` // nil while pending manual grading
	Pending    bool    `json:"pending,omitempty"`
	Feedback   string  `json:"feedback,omitempty"`
	GradedBy   string  `json:"graded_by,omitempty"`
}

// Result is produced once when an attempt finalizes. Passed stays nil while
// any question is pending manual grading.
type Result struct {
	Score         float64          `json:"score"`
	MaxScore      float64          `json:"max_score"`
	Percent       float64          `json:"percent"`
	Passed        *bool            `json:"passed,omitempty"`
	GradingStatus string           `json:"grading_status"`
	Questions     []QuestionResult `json:"questions"`
	GradedAt      int64            `json:"graded_at"`
}

// Event is an append-only audit record (manual grades, force-ends,
// attempt finalization).
type Event struct {
	Offset    int64  `json:"offset,omitempty"`
	OrgID     string `json:"org_id"`
	Type      string `json:"type"`
	Key       string `json:"key"` // natural key: attempt ID, quiz ID, ...
	Actor     string `json:"actor,omitempty"`
	DataJSON  string `json:"data,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
