package assess_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/grading"
	"github.com/edulane/assessd/internal/roster"
)

const (
	org        = "org1"
	instructor = "teach1"
	learner    = "stu1"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	svc   *assess.Service
	clock *fakeClock
	batch roster.Static
	ctx   context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := newFakeClock()
	batch := roster.Static{}
	svc := assess.NewService(assess.NewMemoryStore(), grading.NewEngine(), batch,
		assess.WithClock(clock.now))
	return &env{svc: svc, clock: clock, batch: batch, ctx: context.Background()}
}

func (e *env) singleChoice(t *testing.T, marks float64, correct string) assess.Question {
	t.Helper()
	q, err := e.svc.CreateQuestion(e.ctx, org, instructor, assess.QuestionInput{
		Text:  "pick one",
		Type:  assess.QuestionSingleChoice,
		Marks: marks,
		Options: []assess.OptionInput{
			{ID: "a", Text: "first"},
			{ID: "b", Text: "second"},
			{ID: "c", Text: "third"},
		},
		AnswerKey: []string{correct},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func (e *env) freeText(t *testing.T, marks float64) assess.Question {
	t.Helper()
	q, err := e.svc.CreateQuestion(e.ctx, org, instructor, assess.QuestionInput{
		Text: "explain", Type: assess.QuestionFreeText, Marks: marks,
	})
	if err != nil {
		t.Fatalf("create free-text question: %v", err)
	}
	return q
}

func (e *env) publishedQuiz(t *testing.T, passMarks float64, durationMin int, questions ...assess.Question) assess.Quiz {
	t.Helper()
	z, err := e.svc.CreateQuiz(e.ctx, org, instructor, assess.QuizInput{
		Title: "unit quiz", DurationMin: durationMin, PassMarks: passMarks,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, q := range questions {
		if z, err = e.svc.AddQuestion(e.ctx, org, z.ID, q.ID); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	z, err = e.svc.PublishQuiz(e.ctx, org, z.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return z
}

func (e *env) assignment(t *testing.T, quizID string, maxAttempts int, dueIn time.Duration) assess.Assignment {
	t.Helper()
	a, err := e.svc.CreateAssignment(e.ctx, org, instructor, assess.AssignmentInput{
		QuizID:      quizID,
		DueAt:       e.clock.now().Add(dueIn).Unix(),
		MaxAttempts: maxAttempts,
		Recipient:   assess.Recipient{Type: assess.RecipientLearner, ID: learner},
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a
}

func TestTotalMarksTracksQuestionList(t *testing.T) {
	e := newEnv(t)
	q1 := e.singleChoice(t, 5, "a")
	q2 := e.singleChoice(t, 3, "b")

	z, err := e.svc.CreateQuiz(e.ctx, org, instructor, assess.QuizInput{Title: "t", DurationMin: 10})
	if err != nil {
		t.Fatal(err)
	}
	if z, err = e.svc.AddQuestion(e.ctx, org, z.ID, q1.ID); err != nil || z.TotalMarks != 5 {
		t.Fatalf("after add q1 total=%v err=%v, want 5", z.TotalMarks, err)
	}
	if z, err = e.svc.AddQuestion(e.ctx, org, z.ID, q2.ID); err != nil || z.TotalMarks != 8 {
		t.Fatalf("after add q2 total=%v err=%v, want 8", z.TotalMarks, err)
	}
	if z, err = e.svc.ReorderQuestions(e.ctx, org, z.ID, []string{q2.ID, q1.ID}); err != nil || z.TotalMarks != 8 {
		t.Fatalf("after reorder total=%v err=%v, want 8", z.TotalMarks, err)
	}
	if z.QuestionIDs[0] != q2.ID {
		t.Fatalf("reorder not applied: %v", z.QuestionIDs)
	}
	if z, err = e.svc.RemoveQuestion(e.ctx, org, z.ID, q1.ID); err != nil || z.TotalMarks != 3 {
		t.Fatalf("after remove total=%v err=%v, want 3", z.TotalMarks, err)
	}
}

func TestPublishValidation(t *testing.T) {
	e := newEnv(t)

	empty, _ := e.svc.CreateQuiz(e.ctx, org, instructor, assess.QuizInput{Title: "empty", DurationMin: 10})
	if _, err := e.svc.PublishQuiz(e.ctx, org, empty.ID); !errors.Is(err, assess.ErrEmptyQuiz) {
		t.Fatalf("publish empty quiz: %v, want ErrEmptyQuiz", err)
	}

	q := e.singleChoice(t, 5, "a")
	over, _ := e.svc.CreateQuiz(e.ctx, org, instructor, assess.QuizInput{Title: "over", DurationMin: 10, PassMarks: 6})
	if _, err := e.svc.AddQuestion(e.ctx, org, over.ID, q.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.PublishQuiz(e.ctx, org, over.ID); !errors.Is(err, assess.ErrInvalidThreshold) {
		t.Fatalf("publish with threshold > total: %v, want ErrInvalidThreshold", err)
	}
}

func TestQuizNotEditableAfterPublish(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)

	q2 := e.singleChoice(t, 2, "b")
	if _, err := e.svc.AddQuestion(e.ctx, org, z.ID, q2.ID); !errors.Is(err, assess.ErrQuizNotEditable) {
		t.Fatalf("add to active quiz: %v, want ErrQuizNotEditable", err)
	}
	if _, err := e.svc.PublishQuiz(e.ctx, org, z.ID); !errors.Is(err, assess.ErrQuizNotEditable) {
		t.Fatalf("re-publish: %v, want ErrQuizNotEditable", err)
	}
}

func TestQuestionImmutableOnceAttempted(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)

	// referenced but unattempted: edits allowed, deletes refused
	in := assess.QuestionInput{
		Text: "edited", Type: q.Type, Marks: q.Marks,
		Options:   []assess.OptionInput{{ID: "a", Text: "x"}, {ID: "b", Text: "y"}},
		AnswerKey: []string{"a"},
	}
	if _, err := e.svc.UpdateQuestion(e.ctx, org, instructor, q.ID, in); err != nil {
		t.Fatalf("edit before attempts: %v", err)
	}
	if err := e.svc.DeleteQuestion(e.ctx, org, q.ID); !errors.Is(err, assess.ErrQuestionReferenced) {
		t.Fatalf("delete referenced question: %v, want ErrQuestionReferenced", err)
	}

	a := e.assignment(t, z.ID, 1, time.Hour)
	if _, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.UpdateQuestion(e.ctx, org, instructor, q.ID, in); !errors.Is(err, assess.ErrImmutableReference) {
		t.Fatalf("edit after attempt history: %v, want ErrImmutableReference", err)
	}
}

func TestStartAttemptEligibility(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)

	t.Run("cancelled assignment", func(t *testing.T) {
		a := e.assignment(t, z.ID, 1, time.Hour)
		if _, err := e.svc.CancelAssignment(e.ctx, org, a.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID); !errors.Is(err, assess.ErrAssignmentCancelled) {
			t.Fatalf("start on cancelled: %v, want ErrAssignmentCancelled", err)
		}
	})

	t.Run("not a recipient", func(t *testing.T) {
		a := e.assignment(t, z.ID, 1, time.Hour)
		if _, err := e.svc.StartAttempt(e.ctx, org, "intruder", a.ID); !errors.Is(err, assess.ErrNotRecipient) {
			t.Fatalf("start as non-recipient: %v, want ErrNotRecipient", err)
		}
	})

	t.Run("past due date", func(t *testing.T) {
		a := e.assignment(t, z.ID, 1, time.Minute)
		e.clock.advance(2 * time.Minute)
		if _, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID); !errors.Is(err, assess.ErrAssignmentClosed) {
			t.Fatalf("start past due: %v, want ErrAssignmentClosed", err)
		}
	})

	t.Run("second start returns existing attempt id", func(t *testing.T) {
		a := e.assignment(t, z.ID, 3, time.Hour)
		first, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		_, err = e.svc.StartAttempt(e.ctx, org, learner, a.ID)
		var de *assess.Error
		if !errors.As(err, &de) || !errors.Is(err, assess.ErrAttemptAlreadyActive) {
			t.Fatalf("second start: %v, want ErrAttemptAlreadyActive", err)
		}
		if de.AttemptID != first.ID {
			t.Fatalf("returned attempt id %q, want %q", de.AttemptID, first.ID)
		}
	})

	t.Run("past due date on creation", func(t *testing.T) {
		_, err := e.svc.CreateAssignment(e.ctx, org, instructor, assess.AssignmentInput{
			QuizID:      z.ID,
			DueAt:       e.clock.now().Add(-time.Minute).Unix(),
			MaxAttempts: 1,
			Recipient:   assess.Recipient{Type: assess.RecipientLearner, ID: learner},
		})
		if !errors.Is(err, assess.ErrPastDueDate) {
			t.Fatalf("create with past due: %v, want ErrPastDueDate", err)
		}
	})
}

func TestStartAttemptRace(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)
	a := e.assignment(t, z.ID, 10, time.Hour)

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID)
			results[i] = err
			ids[i] = at.ID
		}(i)
	}
	wg.Wait()

	winners := 0
	winnerID := ""
	for i, err := range results {
		if err == nil {
			winners++
			winnerID = ids[i]
		}
	}
	if winners != 1 {
		t.Fatalf("got %d in-progress attempts, want exactly 1", winners)
	}
	for _, err := range results {
		if err == nil {
			continue
		}
		var de *assess.Error
		if !errors.As(err, &de) || de.Code != assess.ErrAttemptAlreadyActive.Code {
			t.Fatalf("loser got %v, want attempt_already_active", err)
		}
		if de.AttemptID != winnerID {
			t.Fatalf("loser directed to %q, want winner %q", de.AttemptID, winnerID)
		}
	}
}

func TestScoreScenarioTwoQuestions(t *testing.T) {
	e := newEnv(t)
	q1 := e.singleChoice(t, 5, "a")
	q2 := e.singleChoice(t, 5, "b")
	z := e.publishedQuiz(t, 6, 30, q1, q2)
	asg := e.assignment(t, z.ID, 1, time.Hour)

	at, err := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q1.ID, []string{"a"}, "", e.clock.now()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q2.ID, []string{"c"}, "", e.clock.now()); err != nil {
		t.Fatal(err)
	}
	done, err := e.svc.SubmitAttempt(e.ctx, org, learner, at.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != assess.AttemptGraded || done.EndedState != assess.AttemptSubmitted {
		t.Fatalf("status=%s ended=%s, want graded/submitted", done.Status, done.EndedState)
	}
	r := done.Result
	if r == nil || r.Score != 5 || r.MaxScore != 10 {
		t.Fatalf("result = %+v, want 5/10", r)
	}
	if r.Passed == nil || *r.Passed {
		t.Fatalf("passed = %v, want false (threshold 6)", r.Passed)
	}
	if r.GradingStatus != assess.GradingAuto {
		t.Fatalf("grading status = %s, want auto_graded", r.GradingStatus)
	}
}

func TestAttemptLimit(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)
	asg := e.assignment(t, z.ID, 2, 24*time.Hour)

	for i := 0; i < 2; i++ {
		at, err := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if _, err := e.svc.SubmitAttempt(e.ctx, org, learner, at.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.svc.StartAttempt(e.ctx, org, learner, asg.ID); !errors.Is(err, assess.ErrAttemptLimitExceeded) {
		t.Fatalf("third start: %v, want ErrAttemptLimitExceeded", err)
	}
}

func TestDeadlineExpiry(t *testing.T) {
	e := newEnv(t)
	q1 := e.singleChoice(t, 5, "a")
	q2 := e.singleChoice(t, 5, "b")
	z := e.publishedQuiz(t, 6, 60, q1, q2) // deadline at 10:00
	asg := e.assignment(t, z.ID, 1, 24*time.Hour)

	at, err := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	if err != nil {
		t.Fatal(err)
	}

	e.clock.advance(59 * time.Minute) // 09:59
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q1.ID, []string{"a"}, "", e.clock.now()); err != nil {
		t.Fatalf("save at 09:59: %v", err)
	}

	e.clock.advance(2 * time.Minute) // 10:01, no submit ever happened
	got, err := e.svc.GetAttempt(e.ctx, org, at.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != assess.AttemptGraded || got.EndedState != assess.AttemptExpired {
		t.Fatalf("status=%s ended=%s, want graded/expired", got.Status, got.EndedState)
	}
	if got.Result == nil || got.Result.Score != 5 {
		t.Fatalf("result should reflect only the 09:59 answer, got %+v", got.Result)
	}

	// a late save fails and does not mutate the answer set
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q2.ID, []string{"b"}, "", e.clock.now()); !errors.Is(err, assess.ErrAttemptNotActive) {
		t.Fatalf("save after expiry: %v, want ErrAttemptNotActive", err)
	}
	got, _ = e.svc.GetAttempt(e.ctx, org, at.ID)
	if _, ok := got.Answers[q2.ID]; ok {
		t.Fatal("late save must not mutate answers")
	}
}

func TestSaveAnswerPastDeadlineExpires(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)
	asg := e.assignment(t, z.ID, 1, time.Hour)

	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	e.clock.advance(11 * time.Minute)
	// first touch after the deadline: the lazy sweep expires, then reports
	// "too late" rather than "already closed"
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q.ID, []string{"a"}, "", e.clock.now()); !errors.Is(err, assess.ErrAttemptExpired) {
		t.Fatalf("first late save: %v, want ErrAttemptExpired", err)
	}
	got, _ := e.svc.GetAttempt(e.ctx, org, at.ID)
	if got.EndedState != assess.AttemptExpired {
		t.Fatalf("ended state = %s, want expired", got.EndedState)
	}
}

func TestSubmitIdempotent(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)
	asg := e.assignment(t, z.ID, 1, time.Hour)

	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q.ID, []string{"a"}, "", e.clock.now()); err != nil {
		t.Fatal(err)
	}
	first, err := e.svc.SubmitAttempt(e.ctx, org, learner, at.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.svc.SubmitAttempt(e.ctx, org, learner, at.ID)
	if err != nil {
		t.Fatalf("second submit must be a no-op success: %v", err)
	}
	if second.EndedState != first.EndedState || second.Result.Score != first.Result.Score {
		t.Fatalf("second submit diverged: %+v vs %+v", second, first)
	}
}

func TestSaveAnswerLastWriteWins(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 30, q)
	asg := e.assignment(t, z.ID, 1, time.Hour)
	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)

	later := e.clock.now().Add(2 * time.Minute)
	earlier := e.clock.now().Add(time.Minute)
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q.ID, []string{"b"}, "", later); err != nil {
		t.Fatal(err)
	}
	// delayed delivery of an older edit must not clobber the newer one
	got, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q.ID, []string{"a"}, "", earlier)
	if err != nil {
		t.Fatal(err)
	}
	if ans := got.Answers[q.ID]; len(ans.Selected) != 1 || ans.Selected[0] != "b" {
		t.Fatalf("stale write overwrote newer answer: %+v", ans)
	}
}

func TestSweepExpiresAbandonedAttempts(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)
	asg := e.assignment(t, z.ID, 1, time.Hour)
	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)

	e.clock.advance(15 * time.Minute)
	n, err := e.svc.SweepExpired(e.ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v; want 1, nil", n, err)
	}
	// idempotent: nothing left to sweep
	n, err = e.svc.SweepExpired(e.ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v; want 0, nil", n, err)
	}
	got, _ := e.svc.GetAttempt(e.ctx, org, at.ID)
	if got.EndedState != assess.AttemptExpired {
		t.Fatalf("ended state = %s, want expired", got.EndedState)
	}
}

func TestForceEnd(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 30, q)
	asg := e.assignment(t, z.ID, 1, time.Hour)
	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)

	got, err := e.svc.ForceEnd(e.ctx, org, "admin1", at.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.EndedState != assess.AttemptForceEnded || got.EndedBy != "admin1" {
		t.Fatalf("ended=%s by=%s, want force_ended by admin1", got.EndedState, got.EndedBy)
	}
	if _, err := e.svc.ForceEnd(e.ctx, org, "admin1", at.ID); !errors.Is(err, assess.ErrAttemptNotActive) {
		t.Fatalf("second force-end: %v, want ErrAttemptNotActive", err)
	}
}

func TestManualGradingFlow(t *testing.T) {
	e := newEnv(t)
	mc := e.singleChoice(t, 5, "a")
	ft := e.freeText(t, 5)
	z := e.publishedQuiz(t, 8, 30, mc, ft)
	asg := e.assignment(t, z.ID, 1, time.Hour)

	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, mc.ID, []string{"a"}, "", e.clock.now()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, ft.ID, nil, "my essay", e.clock.now()); err != nil {
		t.Fatal(err)
	}
	done, err := e.svc.SubmitAttempt(e.ctx, org, learner, at.ID)
	if err != nil {
		t.Fatal(err)
	}
	r := done.Result
	if r.GradingStatus != assess.GradingPending {
		t.Fatalf("grading status = %s, want pending_manual", r.GradingStatus)
	}
	if r.Passed != nil {
		t.Fatalf("pass/fail must be indeterminate while pending, got %v", *r.Passed)
	}
	if r.Score != 5 {
		t.Fatalf("auto-graded portion = %v, want 5", r.Score)
	}

	if _, err := e.svc.ApplyManualGrade(e.ctx, org, instructor, at.ID, ft.ID, 6, ""); !errors.Is(err, assess.ErrMarksExceedQuestionValue) {
		t.Fatalf("overgrade: %v, want ErrMarksExceedQuestionValue", err)
	}
	graded, err := e.svc.ApplyManualGrade(e.ctx, org, instructor, at.ID, ft.ID, 5, "well argued")
	if err != nil {
		t.Fatal(err)
	}
	r = graded.Result
	if r.GradingStatus != assess.GradingManual {
		t.Fatalf("grading status = %s, want manually_graded", r.GradingStatus)
	}
	if r.Score != 10 || r.Passed == nil || !*r.Passed {
		t.Fatalf("final result = %+v, want 10 passed", r)
	}
	// a settled question cannot be regraded
	if _, err := e.svc.ApplyManualGrade(e.ctx, org, instructor, at.ID, mc.ID, 1, ""); !errors.Is(err, assess.ErrNotPendingManual) {
		t.Fatalf("regrade auto question: %v, want ErrNotPendingManual", err)
	}
}

func TestBatchMembershipResolvedAtStart(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 10, q)
	a, err := e.svc.CreateAssignment(e.ctx, org, instructor, assess.AssignmentInput{
		QuizID:      z.ID,
		DueAt:       e.clock.now().Add(time.Hour).Unix(),
		MaxAttempts: 1,
		Recipient:   assess.Recipient{Type: assess.RecipientBatch, ID: "batch-7"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID); !errors.Is(err, assess.ErrNotRecipient) {
		t.Fatalf("start before enrollment: %v, want ErrNotRecipient", err)
	}
	// enroll after assignment creation: honored, since membership resolves
	// at start time
	e.batch["batch-7"] = []string{learner}
	if _, err := e.svc.StartAttempt(e.ctx, org, learner, a.ID); err != nil {
		t.Fatalf("start after enrollment: %v", err)
	}
}

func TestDeadlineCappedByDueDate(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 60, q)
	asg := e.assignment(t, z.ID, 1, 30*time.Minute)

	at, err := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if at.Deadline != asg.DueAt {
		t.Fatalf("deadline = %d, want capped at due_at %d", at.Deadline, asg.DueAt)
	}
}

func TestCancelledAssignmentLetsInFlightAttemptFinish(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 30, q)
	asg := e.assignment(t, z.ID, 2, time.Hour)

	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)
	if _, err := e.svc.CancelAssignment(e.ctx, org, asg.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.SaveAnswer(e.ctx, org, learner, at.ID, q.ID, []string{"a"}, "", e.clock.now()); err != nil {
		t.Fatalf("save on in-flight attempt after cancel: %v", err)
	}
	done, err := e.svc.SubmitAttempt(e.ctx, org, learner, at.ID)
	if err != nil || done.Result.Score != 5 {
		t.Fatalf("submit after cancel: %v, result %+v", err, done.Result)
	}
}

func TestAttemptQuestionsHideAnswerKeys(t *testing.T) {
	e := newEnv(t)
	q := e.singleChoice(t, 5, "a")
	z := e.publishedQuiz(t, 5, 30, q)
	asg := e.assignment(t, z.ID, 1, time.Hour)
	at, _ := e.svc.StartAttempt(e.ctx, org, learner, asg.ID)

	qs, err := e.svc.AttemptQuestions(e.ctx, org, at.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 {
		t.Fatalf("got %d questions, want 1", len(qs))
	}
	if qs[0].AnswerKey != nil {
		t.Fatal("answer key leaked into learner payload")
	}
	if len(qs[0].Options) != 3 {
		t.Fatalf("options missing: %+v", qs[0])
	}
}

func TestInvalidQuestionInputs(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		in   assess.QuestionInput
	}{
		{"zero marks", assess.QuestionInput{Text: "t", Type: assess.QuestionFreeText, Marks: 0}},
		{"one option", assess.QuestionInput{Text: "t", Type: assess.QuestionSingleChoice, Marks: 1,
			Options: []assess.OptionInput{{ID: "a", Text: "x"}}, AnswerKey: []string{"a"}}},
		{"key references unknown option", assess.QuestionInput{Text: "t", Type: assess.QuestionSingleChoice, Marks: 1,
			Options: []assess.OptionInput{{ID: "a", Text: "x"}, {ID: "b", Text: "y"}}, AnswerKey: []string{"z"}}},
		{"multi without key", assess.QuestionInput{Text: "t", Type: assess.QuestionMultipleChoice, Marks: 1,
			Options: []assess.OptionInput{{ID: "a", Text: "x"}, {ID: "b", Text: "y"}}}},
		{"free text with key", assess.QuestionInput{Text: "t", Type: assess.QuestionFreeText, Marks: 1,
			AnswerKey: []string{"a"}}},
		{"unknown type", assess.QuestionInput{Text: "t", Type: "matching", Marks: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.svc.CreateQuestion(e.ctx, org, instructor, tc.in); !errors.Is(err, assess.ErrInvalidQuestion) {
				t.Fatalf("create: %v, want ErrInvalidQuestion", err)
			}
		})
	}
}
