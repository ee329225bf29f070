package assess

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/edulane/assessd/internal/grading"
	"github.com/edulane/assessd/internal/roster"
)

// Service implements the engine's operations over a Store. All deadline
// comparisons use the service clock; caller-supplied timestamps are accepted
// only for answer last-write-wins ordering.
type Service struct {
	store  Store
	grader *grading.Engine
	roster roster.Resolver
	now    func() time.Time
	locks  keyedLocks
}

type ServiceOption func(*Service)

// WithClock replaces the server clock, for tests.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) { s.now = fn }
}

func NewService(store Store, grader *grading.Engine, resolver roster.Resolver, opts ...ServiceOption) *Service {
	s := &Service{store: store, grader: grader, roster: resolver, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

/* ---------- Question bank ---------- */

func (s *Service) CreateQuestion(ctx context.Context, orgID, authorID string, in QuestionInput) (Question, error) {
	if err := validateQuestionInput(in); err != nil {
		return Question{}, err
	}
	now := s.now().Unix()
	q := Question{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		Text:      in.Text,
		Type:      in.Type,
		Marks:     in.Marks,
		Options:   buildOptions(in.Options),
		AnswerKey: in.AnswerKey,
		Tolerance: in.Tolerance,
		CreatedBy: authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutQuestion(ctx, q); err != nil {
		return Question{}, infra("put question", err)
	}
	return q, nil
}

// UpdateQuestion mutates a question in place. Once the question is referenced
// by a quiz that has attempt history the edit is refused: a scored attempt
// must never retroactively change, so the caller creates a new question and
// re-links instead.
func (s *Service) UpdateQuestion(ctx context.Context, orgID, authorID, id string, in QuestionInput) (Question, error) {
	if err := validateQuestionInput(in); err != nil {
		return Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, orgID, id)
	if err != nil {
		return Question{}, err
	}
	frozen, err := s.referencedWithAttempts(ctx, orgID, id)
	if err != nil {
		return Question{}, err
	}
	if frozen {
		return Question{}, ErrImmutableReference
	}
	q.Text = in.Text
	q.Type = in.Type
	q.Marks = in.Marks
	q.Options = buildOptions(in.Options)
	q.AnswerKey = in.AnswerKey
	q.Tolerance = in.Tolerance
	q.UpdatedAt = s.now().Unix()
	if err := s.store.PutQuestion(ctx, q); err != nil {
		return Question{}, infra("put question", err)
	}
	// marks may have changed: keep draft quiz totals in sync
	if err := s.recomputeReferencingTotals(ctx, orgID, id); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, orgID, id string) error {
	refs, err := s.store.QuizzesReferencing(ctx, orgID, id)
	if err != nil {
		return infra("quizzes referencing", err)
	}
	if len(refs) > 0 {
		return ErrQuestionReferenced
	}
	return s.store.DeleteQuestion(ctx, orgID, id)
}

func (s *Service) GetQuestion(ctx context.Context, orgID, id string) (Question, error) {
	return s.store.GetQuestion(ctx, orgID, id)
}

func (s *Service) ListQuestions(ctx context.Context, orgID string, limit, offset int) ([]Question, error) {
	return s.store.ListQuestions(ctx, orgID, limit, offset)
}

func (s *Service) referencedWithAttempts(ctx context.Context, orgID, questionID string) (bool, error) {
	refs, err := s.store.QuizzesReferencing(ctx, orgID, questionID)
	if err != nil {
		return false, infra("quizzes referencing", err)
	}
	for _, quizID := range refs {
		has, err := s.store.AnyAttemptForQuiz(ctx, quizID)
		if err != nil {
			return false, infra("attempts for quiz", err)
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// recomputeReferencingTotals keeps total_marks equal to the sum of question
// marks after a question edit. Only draft quizzes can reference an editable
// question's marks change.
func (s *Service) recomputeReferencingTotals(ctx context.Context, orgID, questionID string) error {
	refs, err := s.store.QuizzesReferencing(ctx, orgID, questionID)
	if err != nil {
		return infra("quizzes referencing", err)
	}
	for _, quizID := range refs {
		z, err := s.store.GetQuiz(ctx, orgID, quizID)
		if err != nil {
			return err
		}
		total, err := s.sumMarks(ctx, orgID, z.QuestionIDs)
		if err != nil {
			return err
		}
		if z.TotalMarks != total {
			z.TotalMarks = total
			z.UpdatedAt = s.now().Unix()
			if err := s.store.PutQuiz(ctx, z); err != nil {
				return infra("put quiz", err)
			}
		}
	}
	return nil
}

func buildOptions(in []OptionInput) []Option {
	if len(in) == 0 {
		return nil
	}
	out := make([]Option, len(in))
	for i, o := range in {
		out[i] = Option{ID: o.ID, Text: o.Text, Position: i}
	}
	return out
}

/* ---------- Quiz catalog ---------- */

func (s *Service) CreateQuiz(ctx context.Context, orgID, authorID string, in QuizInput) (Quiz, error) {
	if err := validateQuizInput(in); err != nil {
		return Quiz{}, err
	}
	now := s.now().Unix()
	z := Quiz{
		ID:           uuid.NewString(),
		OrgID:        orgID,
		Title:        in.Title,
		Description:  in.Description,
		Instructions: in.Instructions,
		Status:       QuizDraft,
		DurationMin:  in.DurationMin,
		PassMarks:    in.PassMarks,
		CreatedBy:    authorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.PutQuiz(ctx, z); err != nil {
		return Quiz{}, infra("put quiz", err)
	}
	return z, nil
}

func (s *Service) AddQuestion(ctx context.Context, orgID, quizID, questionID string) (Quiz, error) {
	return s.mutateDraft(ctx, orgID, quizID, func(z *Quiz) error {
		for _, id := range z.QuestionIDs {
			if id == questionID {
				return invalidQuiz("question %q already in quiz", questionID)
			}
		}
		if _, err := s.store.GetQuestion(ctx, orgID, questionID); err != nil {
			return err
		}
		z.QuestionIDs = append(z.QuestionIDs, questionID)
		return nil
	})
}

func (s *Service) RemoveQuestion(ctx context.Context, orgID, quizID, questionID string) (Quiz, error) {
	return s.mutateDraft(ctx, orgID, quizID, func(z *Quiz) error {
		for i, id := range z.QuestionIDs {
			if id == questionID {
				z.QuestionIDs = append(z.QuestionIDs[:i], z.QuestionIDs[i+1:]...)
				return nil
			}
		}
		return notFound("quiz question", questionID)
	})
}

func (s *Service) ReorderQuestions(ctx context.Context, orgID, quizID string, order []string) (Quiz, error) {
	return s.mutateDraft(ctx, orgID, quizID, func(z *Quiz) error {
		if len(order) != len(z.QuestionIDs) {
			return invalidQuiz("reorder must list all %d questions", len(z.QuestionIDs))
		}
		have := map[string]bool{}
		for _, id := range z.QuestionIDs {
			have[id] = true
		}
		for _, id := range order {
			if !have[id] {
				return invalidQuiz("reorder references unknown question %q", id)
			}
			delete(have, id)
		}
		z.QuestionIDs = append([]string(nil), order...)
		return nil
	})
}

// mutateDraft applies fn to a draft quiz and recomputes total marks, the
// invariant every question-list mutation must restore.
func (s *Service) mutateDraft(ctx context.Context, orgID, quizID string, fn func(*Quiz) error) (Quiz, error) {
	z, err := s.store.GetQuiz(ctx, orgID, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if z.Status != QuizDraft {
		return Quiz{}, ErrQuizNotEditable
	}
	if err := fn(&z); err != nil {
		return Quiz{}, err
	}
	total, err := s.sumMarks(ctx, orgID, z.QuestionIDs)
	if err != nil {
		return Quiz{}, err
	}
	z.TotalMarks = total
	z.UpdatedAt = s.now().Unix()
	if err := s.store.PutQuiz(ctx, z); err != nil {
		return Quiz{}, infra("put quiz", err)
	}
	return z, nil
}

func (s *Service) sumMarks(ctx context.Context, orgID string, ids []string) (float64, error) {
	qs, err := s.store.GetQuestions(ctx, orgID, ids)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, q := range qs {
		total += q.Marks
	}
	return total, nil
}

func (s *Service) PublishQuiz(ctx context.Context, orgID, quizID string) (Quiz, error) {
	z, err := s.store.GetQuiz(ctx, orgID, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if z.Status != QuizDraft {
		return Quiz{}, ErrQuizNotEditable
	}
	if len(z.QuestionIDs) == 0 {
		return Quiz{}, ErrEmptyQuiz
	}
	if z.PassMarks > z.TotalMarks {
		return Quiz{}, ErrInvalidThreshold
	}
	z.Status = QuizActive
	z.UpdatedAt = s.now().Unix()
	if err := s.store.PutQuiz(ctx, z); err != nil {
		return Quiz{}, infra("put quiz", err)
	}
	return z, nil
}

// ArchiveQuiz retires an active quiz. In-flight attempts are untouched and
// run to completion against the question set they started with.
func (s *Service) ArchiveQuiz(ctx context.Context, orgID, quizID string) (Quiz, error) {
	z, err := s.store.GetQuiz(ctx, orgID, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if z.Status != QuizActive {
		return Quiz{}, ErrQuizNotActive
	}
	z.Status = QuizArchived
	z.UpdatedAt = s.now().Unix()
	if err := s.store.PutQuiz(ctx, z); err != nil {
		return Quiz{}, infra("put quiz", err)
	}
	return z, nil
}

func (s *Service) GetQuiz(ctx context.Context, orgID, id string) (Quiz, error) {
	return s.store.GetQuiz(ctx, orgID, id)
}

func (s *Service) ListQuizzes(ctx context.Context, orgID string, limit, offset int) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx, orgID, limit, offset)
}

/* ---------- Assignment manager ---------- */

func (s *Service) CreateAssignment(ctx context.Context, orgID, actorID string, in AssignmentInput) (Assignment, error) {
	if err := validateAssignmentInput(in); err != nil {
		return Assignment{}, err
	}
	z, err := s.store.GetQuiz(ctx, orgID, in.QuizID)
	if err != nil {
		return Assignment{}, err
	}
	if z.Status != QuizActive {
		return Assignment{}, ErrQuizNotActive
	}
	now := s.now()
	if in.DueAt <= now.Unix() {
		return Assignment{}, ErrPastDueDate
	}
	a := Assignment{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		QuizID:      in.QuizID,
		DueAt:       in.DueAt,
		MaxAttempts: in.MaxAttempts,
		Recipient:   in.Recipient,
		Active:      true,
		CreatedBy:   actorID,
		CreatedAt:   now.Unix(),
	}
	if err := s.store.PutAssignment(ctx, a); err != nil {
		return Assignment{}, infra("put assignment", err)
	}
	return a, nil
}

// CancelAssignment blocks new attempts. Attempts already in progress run to
// their natural end (submit or expiry); completed attempts stay as history.
func (s *Service) CancelAssignment(ctx context.Context, orgID, id string) (Assignment, error) {
	a, err := s.store.GetAssignment(ctx, orgID, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.Active {
		a.Active = false
		if err := s.store.PutAssignment(ctx, a); err != nil {
			return Assignment{}, infra("put assignment", err)
		}
	}
	return a, nil
}

func (s *Service) GetAssignment(ctx context.Context, orgID, id string) (Assignment, error) {
	return s.store.GetAssignment(ctx, orgID, id)
}

func (s *Service) ListAssignments(ctx context.Context, orgID string, opts AssignmentListOpts) ([]Assignment, error) {
	return s.store.ListAssignments(ctx, orgID, opts)
}

// ListAssignmentsDue returns the learner's open assignments: active, not past
// due, with the learner in the recipient set resolved at call time.
func (s *Service) ListAssignmentsDue(ctx context.Context, orgID, learnerID string) ([]Assignment, error) {
	all, err := s.store.ListAssignments(ctx, orgID, AssignmentListOpts{ActiveOnly: true})
	if err != nil {
		return nil, infra("list assignments", err)
	}
	now := s.now().Unix()
	var out []Assignment
	for _, a := range all {
		if a.DueAt <= now {
			continue
		}
		in, err := s.isRecipient(ctx, a, learnerID)
		if err != nil {
			return nil, err
		}
		if in {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) isRecipient(ctx context.Context, a Assignment, learnerID string) (bool, error) {
	switch a.Recipient.Type {
	case RecipientLearner:
		return a.Recipient.ID == learnerID, nil
	case RecipientBatch:
		members, err := s.roster.Members(ctx, a.OrgID, a.Recipient.ID)
		if err != nil {
			return false, infra("resolve batch", err)
		}
		for _, m := range members {
			if m == learnerID {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

/* ---------- Attempt state machine ---------- */

// StartAttempt checks eligibility and creates the attempt atomically per
// (learner, assignment): the keyed lock serializes in-process racers and the
// store's active-attempt constraint catches cross-process ones, converting
// the loser into attempt_already_active carrying the winner's ID.
func (s *Service) StartAttempt(ctx context.Context, orgID, learnerID, assignmentID string) (Attempt, error) {
	unlock := s.locks.lock("start|" + assignmentID + "|" + learnerID)
	defer unlock()

	asg, err := s.store.GetAssignment(ctx, orgID, assignmentID)
	if err != nil {
		return Attempt{}, err
	}
	if !asg.Active {
		return Attempt{}, ErrAssignmentCancelled
	}
	now := s.now()
	if now.Unix() >= asg.DueAt {
		return Attempt{}, ErrAssignmentClosed
	}
	in, err := s.isRecipient(ctx, asg, learnerID)
	if err != nil {
		return Attempt{}, err
	}
	if !in {
		return Attempt{}, ErrNotRecipient
	}
	if ex, ok, err := s.store.ActiveAttempt(ctx, assignmentID, learnerID); err != nil {
		return Attempt{}, infra("active attempt", err)
	} else if ok {
		return Attempt{}, attemptActive(ex.ID)
	}
	n, err := s.store.CountAttempts(ctx, assignmentID, learnerID)
	if err != nil {
		return Attempt{}, infra("count attempts", err)
	}
	if n >= asg.MaxAttempts {
		return Attempt{}, ErrAttemptLimitExceeded
	}

	z, err := s.store.GetQuiz(ctx, orgID, asg.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	deadline := now.Unix() + int64(z.DurationMin)*60
	if asg.DueAt < deadline {
		deadline = asg.DueAt
	}
	a := Attempt{
		ID:           uuid.NewString(),
		OrgID:        orgID,
		AssignmentID: assignmentID,
		QuizID:       asg.QuizID,
		LearnerID:    learnerID,
		Status:       AttemptInProgress,
		StartedAt:    now.Unix(),
		Deadline:     deadline,
		Answers:      map[string]Answer{},
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		var de *Error
		if errors.As(err, &de) {
			return Attempt{}, err
		}
		return Attempt{}, infra("create attempt", err)
	}
	return a, nil
}

// SaveAnswer upserts one answer while the attempt is live. It is a pure write
// path: no scoring happens here. Saves for the same question apply
// last-write-wins by the caller-supplied savedAt so out-of-order delivery
// cannot clobber a later edit.
func (s *Service) SaveAnswer(ctx context.Context, orgID, learnerID, attemptID, questionID string, selected []string, text string, savedAt time.Time) (Attempt, error) {
	unlock := s.locks.lock("attempt|" + attemptID)
	defer unlock()

	a, err := s.store.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.LearnerID != learnerID {
		return Attempt{}, ErrForbidden
	}
	now := s.now().Unix()
	if a.Status == AttemptInProgress && now > a.Deadline {
		// the deadline passed with no learner action: expire before honoring
		// anything else, then tell the caller they were too late
		if _, err := s.finalizeLocked(ctx, a, AttemptExpired, "", now); err != nil {
			return Attempt{}, err
		}
		return Attempt{}, ErrAttemptExpired
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptNotActive
	}
	z, err := s.store.GetQuiz(ctx, orgID, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	if !contains(z.QuestionIDs, questionID) {
		return Attempt{}, invalidQuiz("question %q is not part of this quiz", questionID)
	}
	if ex, ok := a.Answers[questionID]; ok && ex.SavedAt > savedAt.Unix() {
		// stale write: a later edit already landed
		return a, nil
	}
	a.Answers[questionID] = Answer{
		QuestionID: questionID,
		Selected:   selected,
		Text:       text,
		SavedAt:    savedAt.Unix(),
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, infra("update attempt", err)
	}
	return a, nil
}

// SubmitAttempt finalizes the attempt. Submitting past the deadline records
// expired instead of submitted; both hand off to scoring identically. A
// second submit is a no-op returning the settled attempt: the learner's
// intent was honored either way.
func (s *Service) SubmitAttempt(ctx context.Context, orgID, learnerID, attemptID string) (Attempt, error) {
	unlock := s.locks.lock("attempt|" + attemptID)
	defer unlock()

	a, err := s.store.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.LearnerID != learnerID {
		return Attempt{}, ErrForbidden
	}
	if a.Status != AttemptInProgress {
		return a, nil
	}
	now := s.now().Unix()
	end := AttemptSubmitted
	if now > a.Deadline {
		end = AttemptExpired
	}
	return s.finalizeLocked(ctx, a, end, "", now)
}

// ForceEnd terminates an in-progress attempt immediately, recording the
// acting admin for audit.
func (s *Service) ForceEnd(ctx context.Context, orgID, actorID, attemptID string) (Attempt, error) {
	unlock := s.locks.lock("attempt|" + attemptID)
	defer unlock()

	a, err := s.store.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	now := s.now().Unix()
	if a.Status == AttemptInProgress && now > a.Deadline {
		if _, err := s.finalizeLocked(ctx, a, AttemptExpired, "", now); err != nil {
			return Attempt{}, err
		}
		return Attempt{}, ErrAttemptNotActive
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptNotActive
	}
	return s.finalizeLocked(ctx, a, AttemptForceEnded, actorID, now)
}

// GetAttempt reads an attempt, first applying the lazy deadline check so a
// stale in-progress attempt is never observed past its deadline.
func (s *Service) GetAttempt(ctx context.Context, orgID, attemptID string) (Attempt, error) {
	unlock := s.locks.lock("attempt|" + attemptID)
	defer unlock()

	a, err := s.store.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	now := s.now().Unix()
	if a.Status == AttemptInProgress && now > a.Deadline {
		return s.finalizeLocked(ctx, a, AttemptExpired, "", now)
	}
	return a, nil
}

// AttemptQuestions returns the question set for an attempt in quiz order,
// with answer keys and tolerances stripped. Learner-safe.
func (s *Service) AttemptQuestions(ctx context.Context, orgID, attemptID string) ([]Question, error) {
	a, err := s.store.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return nil, err
	}
	z, err := s.store.GetQuiz(ctx, orgID, a.QuizID)
	if err != nil {
		return nil, err
	}
	qs, err := s.store.GetQuestions(ctx, orgID, z.QuestionIDs)
	if err != nil {
		return nil, err
	}
	for i := range qs {
		qs[i].AnswerKey = nil
		qs[i].Tolerance = 0
	}
	return qs, nil
}

// GetResult returns the attempt's result once graded.
func (s *Service) GetResult(ctx context.Context, orgID, attemptID string) (*Result, error) {
	a, err := s.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Result == nil {
		return nil, ErrAttemptNotGraded
	}
	return a.Result, nil
}

func (s *Service) ListAttempts(ctx context.Context, orgID string, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, orgID, opts)
}

// SweepExpired transitions in-progress attempts past their deadline to
// expired. It is idempotent: an attempt settled by a racing submit is left
// alone. Returns the number of attempts swept.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().Unix()
	stale, err := s.store.ExpiredInProgress(ctx, now, 500)
	if err != nil {
		return 0, infra("expired attempts", err)
	}
	swept := 0
	for _, a := range stale {
		unlock := s.locks.lock("attempt|" + a.ID)
		cur, err := s.store.GetAttempt(ctx, a.OrgID, a.ID)
		if err == nil && cur.Status == AttemptInProgress && cur.Deadline < now {
			if _, err := s.finalizeLocked(ctx, cur, AttemptExpired, "", now); err == nil {
				swept++
			}
		}
		unlock()
	}
	return swept, nil
}

// finalizeLocked scores the attempt and moves it to graded, retaining the
// terminal state it passed through. Callers hold the attempt lock.
func (s *Service) finalizeLocked(ctx context.Context, a Attempt, endedState, actorID string, now int64) (Attempt, error) {
	z, err := s.store.GetQuiz(ctx, a.OrgID, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	qs, err := s.store.GetQuestions(ctx, a.OrgID, z.QuestionIDs)
	if err != nil {
		return Attempt{}, err
	}
	a.Result = s.score(qs, a.Answers, z.PassMarks, now)
	a.Status = AttemptGraded
	a.EndedState = endedState
	a.EndedBy = actorID
	a.EndedAt = now
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, infra("update attempt", err)
	}
	s.audit(ctx, Event{
		OrgID: a.OrgID, Type: "attempt_" + endedState, Key: a.ID, Actor: actorID,
		DataJSON: mustJSON(map[string]any{"learner_id": a.LearnerID, "score": a.Result.Score}),
	})
	return a, nil
}

// score compares each quiz question against the saved answer. Missing answers
// score zero; free-text answers leave the result pending manual grading, in
// which case pass/fail stays indeterminate.
func (s *Service) score(questions []Question, answers map[string]Answer, passMarks float64, now int64) *Result {
	res := &Result{GradingStatus: GradingAuto, GradedAt: now}
	pending := false
	for _, q := range questions {
		var resp *grading.Response
		if ans, ok := answers[q.ID]; ok {
			resp = &grading.Response{Selected: ans.Selected, Text: ans.Text}
		}
		out := s.grader.Grade(grading.Question{
			ID: q.ID, Type: q.Type, Marks: q.Marks, AnswerKey: q.AnswerKey, Tolerance: q.Tolerance,
		}, resp)
		res.Questions = append(res.Questions, QuestionResult{
			QuestionID: q.ID,
			Awarded:    out.Awarded,
			Max:        q.Marks,
			Correct:    out.Correct,
			Pending:    out.Pending,
			Feedback:   out.Feedback,
		})
		res.Score += out.Awarded
		res.MaxScore += q.Marks
		pending = pending || out.Pending
	}
	res.Percent = percent(res.Score, res.MaxScore)
	if pending {
		res.GradingStatus = GradingPending
	} else {
		passed := res.Score >= passMarks
		res.Passed = &passed
	}
	return res
}

// ApplyManualGrade records a human grade for one pending question, recomputes
// the total, and once nothing remains pending finalizes pass/fail and flips
// the result to manually-graded. Audit-logged with the grading actor.
func (s *Service) ApplyManualGrade(ctx context.Context, orgID, actorID, attemptID, questionID string, marks float64, feedback string) (Attempt, error) {
	unlock := s.locks.lock("attempt|" + attemptID)
	defer unlock()

	a, err := s.store.GetAttempt(ctx, orgID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Result == nil {
		return Attempt{}, ErrAttemptNotGraded
	}
	idx := -1
	for i, qr := range a.Result.Questions {
		if qr.QuestionID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Attempt{}, notFound("result question", questionID)
	}
	qr := &a.Result.Questions[idx]
	if !qr.Pending {
		return Attempt{}, ErrNotPendingManual
	}
	if marks < 0 {
		return Attempt{}, invalidQuestion("awarded marks must not be negative")
	}
	if marks > qr.Max {
		return Attempt{}, ErrMarksExceedQuestionValue
	}
	qr.Awarded = marks
	qr.Pending = false
	correct := marks >= qr.Max
	qr.Correct = &correct
	qr.GradedBy = actorID
	if feedback != "" {
		qr.Feedback = feedback
	}

	total := 0.0
	stillPending := false
	for _, q := range a.Result.Questions {
		total += q.Awarded
		stillPending = stillPending || q.Pending
	}
	a.Result.Score = total
	a.Result.Percent = percent(total, a.Result.MaxScore)
	now := s.now().Unix()
	if !stillPending {
		z, err := s.store.GetQuiz(ctx, orgID, a.QuizID)
		if err != nil {
			return Attempt{}, err
		}
		passed := total >= z.PassMarks
		a.Result.Passed = &passed
		a.Result.GradingStatus = GradingManual
		a.Result.GradedAt = now
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, infra("update attempt", err)
	}
	s.audit(ctx, Event{
		OrgID: orgID, Type: "manual_grade_applied", Key: attemptID, Actor: actorID,
		DataJSON: mustJSON(map[string]any{"question_id": questionID, "marks": marks}),
	})
	return a, nil
}

// audit appends best-effort: a failed audit write never fails the operation.
func (s *Service) audit(ctx context.Context, e Event) {
	e.CreatedAt = s.now().Unix()
	_ = s.store.AppendEvent(ctx, e)
}

func percent(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(score/max*10000) / 100
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
