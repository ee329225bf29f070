package assess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SQLStore runs on postgres (pgx stdlib) or sqlite (modernc). Option sets,
// answer maps and results are stored as JSON columns; the partial unique
// index on in-progress attempts is the cross-process half of the
// start-attempt race guarantee.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

/* ---------- questions ---------- */

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	kj, err := json.Marshal(q.AnswerKey)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions
		(id,org_id,text,type,marks,options_json,answer_key_json,tolerance,created_by,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
		  text=EXCLUDED.text, type=EXCLUDED.type, marks=EXCLUDED.marks,
		  options_json=EXCLUDED.options_json, answer_key_json=EXCLUDED.answer_key_json,
		  tolerance=EXCLUDED.tolerance, updated_at=EXCLUDED.updated_at`,
		q.ID, q.OrgID, q.Text, q.Type, q.Marks, string(oj), string(kj), q.Tolerance,
		q.CreatedBy, q.CreatedAt, q.UpdatedAt)
	return err
}

func (s *SQLStore) scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	var oj, kj string
	if err := row.Scan(&q.ID, &q.OrgID, &q.Text, &q.Type, &q.Marks, &oj, &kj, &q.Tolerance,
		&q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return Question{}, err
	}
	if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
		return Question{}, err
	}
	if err := json.Unmarshal([]byte(kj), &q.AnswerKey); err != nil {
		return Question{}, err
	}
	return q, nil
}

const questionCols = `id,org_id,text,type,marks,options_json,answer_key_json,tolerance,created_by,created_at,updated_at`

func (s *SQLStore) GetQuestion(ctx context.Context, orgID, id string) (Question, error) {
	q, err := s.scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE org_id=$1 AND id=$2`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, notFound("question", id)
	}
	return q, err
}

func (s *SQLStore) GetQuestions(ctx context.Context, orgID string, ids []string) ([]Question, error) {
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, err := s.GetQuestion(ctx, orgID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE org_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("question", id)
	}
	return nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, orgID string, limit, offset int) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE org_id=$1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		orgID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		q, err := s.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

/* ---------- quizzes ---------- */

const quizCols = `id,org_id,title,description,instructions,status,question_ids_json,duration_min,total_marks,pass_marks,created_by,created_at,updated_at`

func (s *SQLStore) PutQuiz(ctx context.Context, z Quiz) error {
	qj, err := json.Marshal(z.QuestionIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes
		(id,org_id,title,description,instructions,status,question_ids_json,duration_min,total_marks,pass_marks,created_by,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
		  title=EXCLUDED.title, description=EXCLUDED.description, instructions=EXCLUDED.instructions,
		  status=EXCLUDED.status, question_ids_json=EXCLUDED.question_ids_json,
		  duration_min=EXCLUDED.duration_min, total_marks=EXCLUDED.total_marks,
		  pass_marks=EXCLUDED.pass_marks, updated_at=EXCLUDED.updated_at`,
		z.ID, z.OrgID, z.Title, z.Description, z.Instructions, z.Status, string(qj),
		z.DurationMin, z.TotalMarks, z.PassMarks, z.CreatedBy, z.CreatedAt, z.UpdatedAt)
	return err
}

func (s *SQLStore) scanQuiz(row interface{ Scan(...any) error }) (Quiz, error) {
	var z Quiz
	var qj string
	if err := row.Scan(&z.ID, &z.OrgID, &z.Title, &z.Description, &z.Instructions, &z.Status,
		&qj, &z.DurationMin, &z.TotalMarks, &z.PassMarks, &z.CreatedBy, &z.CreatedAt, &z.UpdatedAt); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qj), &z.QuestionIDs); err != nil {
		return Quiz{}, err
	}
	return z, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, orgID, id string) (Quiz, error) {
	z, err := s.scanQuiz(s.db.QueryRowContext(ctx,
		`SELECT `+quizCols+` FROM quizzes WHERE org_id=$1 AND id=$2`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, notFound("quiz", id)
	}
	return z, err
}

func (s *SQLStore) ListQuizzes(ctx context.Context, orgID string, limit, offset int) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quizCols+` FROM quizzes WHERE org_id=$1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		orgID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		z, err := s.scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// QuizzesReferencing scans question ID lists in Go rather than relying on a
// JSON containment operator, which sqlite lacks.
func (s *SQLStore) QuizzesReferencing(ctx context.Context, orgID, questionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_ids_json FROM quizzes WHERE org_id=$1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id, qj string
		if err := rows.Scan(&id, &qj); err != nil {
			return nil, err
		}
		var ids []string
		if err := json.Unmarshal([]byte(qj), &ids); err != nil {
			return nil, err
		}
		if contains(ids, questionID) {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}

/* ---------- assignments ---------- */

const assignmentCols = `id,org_id,quiz_id,due_at,max_attempts,recipient_type,recipient_id,active,created_by,created_at`

func (s *SQLStore) PutAssignment(ctx context.Context, a Assignment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO assignments
		(id,org_id,quiz_id,due_at,max_attempts,recipient_type,recipient_id,active,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
		  due_at=EXCLUDED.due_at, max_attempts=EXCLUDED.max_attempts, active=EXCLUDED.active`,
		a.ID, a.OrgID, a.QuizID, a.DueAt, a.MaxAttempts, a.Recipient.Type, a.Recipient.ID,
		a.Active, a.CreatedBy, a.CreatedAt)
	return err
}

func (s *SQLStore) scanAssignment(row interface{ Scan(...any) error }) (Assignment, error) {
	var a Assignment
	if err := row.Scan(&a.ID, &a.OrgID, &a.QuizID, &a.DueAt, &a.MaxAttempts,
		&a.Recipient.Type, &a.Recipient.ID, &a.Active, &a.CreatedBy, &a.CreatedAt); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAssignment(ctx context.Context, orgID, id string) (Assignment, error) {
	a, err := s.scanAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM assignments WHERE org_id=$1 AND id=$2`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, notFound("assignment", id)
	}
	return a, err
}

func (s *SQLStore) ListAssignments(ctx context.Context, orgID string, opts AssignmentListOpts) ([]Assignment, error) {
	where := []string{"org_id=$1"}
	args := []any{orgID}
	if opts.QuizID != "" {
		args = append(args, opts.QuizID)
		where = append(where, fmt.Sprintf("quiz_id=$%d", len(args)))
	}
	if opts.ActiveOnly {
		where = append(where, "active")
	}
	args = append(args, clampLimit(opts.Limit), opts.Offset)
	q := fmt.Sprintf(`SELECT %s FROM assignments WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		assignmentCols, strings.Join(where, " AND "), len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		a, err := s.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

/* ---------- attempts ---------- */

const attemptCols = `id,org_id,assignment_id,quiz_id,learner_id,status,ended_state,ended_by,started_at,deadline,ended_at,answers_json,result_json`

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,org_id,assignment_id,quiz_id,learner_id,status,ended_state,ended_by,started_at,deadline,ended_at,answers_json,result_json)
		VALUES ($1,$2,$3,$4,$5,$6,'','',$7,$8,0,$9,'')`,
		a.ID, a.OrgID, a.AssignmentID, a.QuizID, a.LearnerID, a.Status,
		a.StartedAt, a.Deadline, string(aj))
	if err != nil {
		// the partial unique index refuses a second in-progress attempt for
		// the pair; report the winner so the loser can resume
		if ex, ok, aerr := s.ActiveAttempt(ctx, a.AssignmentID, a.LearnerID); aerr == nil && ok && ex.ID != a.ID {
			return attemptActive(ex.ID)
		}
		return err
	}
	return nil
}

func (s *SQLStore) scanAttempt(row interface{ Scan(...any) error }) (Attempt, error) {
	var a Attempt
	var aj, rj string
	if err := row.Scan(&a.ID, &a.OrgID, &a.AssignmentID, &a.QuizID, &a.LearnerID, &a.Status,
		&a.EndedState, &a.EndedBy, &a.StartedAt, &a.Deadline, &a.EndedAt, &aj, &rj); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(aj), &a.Answers); err != nil {
		a.Answers = map[string]Answer{}
	}
	if rj != "" {
		var r Result
		if err := json.Unmarshal([]byte(rj), &r); err == nil {
			a.Result = &r
		}
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, orgID, id string) (Attempt, error) {
	a, err := s.scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE org_id=$1 AND id=$2`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, notFound("attempt", id)
	}
	return a, err
}

func (s *SQLStore) UpdateAttempt(ctx context.Context, a Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	rj := ""
	if a.Result != nil {
		b, err := json.Marshal(a.Result)
		if err != nil {
			return err
		}
		rj = string(b)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET
		status=$1, ended_state=$2, ended_by=$3, ended_at=$4, answers_json=$5, result_json=$6
		WHERE id=$7`,
		a.Status, a.EndedState, a.EndedBy, a.EndedAt, string(aj), rj, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("attempt", a.ID)
	}
	return nil
}

func (s *SQLStore) CountAttempts(ctx context.Context, assignmentID, learnerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE assignment_id=$1 AND learner_id=$2`,
		assignmentID, learnerID).Scan(&n)
	return n, err
}

func (s *SQLStore) ActiveAttempt(ctx context.Context, assignmentID, learnerID string) (Attempt, bool, error) {
	a, err := s.scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE assignment_id=$1 AND learner_id=$2 AND status=$3`,
		assignmentID, learnerID, AttemptInProgress))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, false, nil
	}
	if err != nil {
		return Attempt{}, false, err
	}
	return a, true, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, orgID string, opts AttemptListOpts) ([]Attempt, error) {
	where := []string{"org_id=$1"}
	args := []any{orgID}
	if opts.AssignmentID != "" {
		args = append(args, opts.AssignmentID)
		where = append(where, fmt.Sprintf("assignment_id=$%d", len(args)))
	}
	if opts.LearnerID != "" {
		args = append(args, opts.LearnerID)
		where = append(where, fmt.Sprintf("learner_id=$%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		// a graded attempt still matches the terminal state it passed through
		where = append(where, fmt.Sprintf("(status=$%d OR ended_state=$%d)", len(args), len(args)))
	}
	args = append(args, clampLimit(opts.Limit), opts.Offset)
	q := fmt.Sprintf(`SELECT %s FROM attempts WHERE %s ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d`,
		attemptCols, strings.Join(where, " AND "), len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := s.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ExpiredInProgress(ctx context.Context, now int64, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE status=$1 AND deadline<$2 ORDER BY deadline LIMIT $3`,
		AttemptInProgress, now, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := s.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) AnyAttemptForQuiz(ctx context.Context, quizID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM attempts WHERE quiz_id=$1 LIMIT 1`, quizID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) AppendEvent(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_log (org_id, typ, key, actor, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.OrgID, e.Type, e.Key, e.Actor, e.DataJSON, e.CreatedAt)
	return err
}

func clampLimit(n int) int {
	if n <= 0 || n > 500 {
		return 500
	}
	return n
}
