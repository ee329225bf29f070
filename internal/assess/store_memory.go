package assess

import (
	"context"
	"sort"
	"sync"
)

// memoryStore backs tests and offline single-process runs. The mutex makes
// CreateAttempt's check-then-insert atomic, which is the store-level half of
// the start-attempt race guarantee.
type memoryStore struct {
	mu          sync.RWMutex
	questions   map[string]Question
	quizzes     map[string]Quiz
	assignments map[string]Assignment
	attempts    map[string]Attempt
	events      []Event
}

func NewMemoryStore() Store {
	return &memoryStore{
		questions:   map[string]Question{},
		quizzes:     map[string]Quiz{},
		assignments: map[string]Assignment{},
		attempts:    map[string]Attempt{},
	}
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, orgID, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok || q.OrgID != orgID {
		return Question{}, notFound("question", id)
	}
	return q, nil
}

func (m *memoryStore) GetQuestions(_ context.Context, orgID string, ids []string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, ok := m.questions[id]
		if !ok || q.OrgID != orgID {
			return nil, notFound("question", id)
		}
		out = append(out, q)
	}
	return out, nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.OrgID != orgID {
		return notFound("question", id)
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) ListQuestions(_ context.Context, orgID string, limit, offset int) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.questions {
		if q.OrgID == orgID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return page(out, limit, offset), nil
}

func (m *memoryStore) PutQuiz(_ context.Context, z Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[z.ID] = z
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, orgID, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.quizzes[id]
	if !ok || z.OrgID != orgID {
		return Quiz{}, notFound("quiz", id)
	}
	return z, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, orgID string, limit, offset int) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Quiz
	for _, z := range m.quizzes {
		if z.OrgID == orgID {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return page(out, limit, offset), nil
}

func (m *memoryStore) QuizzesReferencing(_ context.Context, orgID, questionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, z := range m.quizzes {
		if z.OrgID != orgID {
			continue
		}
		for _, qid := range z.QuestionIDs {
			if qid == questionID {
				out = append(out, z.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) PutAssignment(_ context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
	return nil
}

func (m *memoryStore) GetAssignment(_ context.Context, orgID, id string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok || a.OrgID != orgID {
		return Assignment{}, notFound("assignment", id)
	}
	return a, nil
}

func (m *memoryStore) ListAssignments(_ context.Context, orgID string, opts AssignmentListOpts) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Assignment
	for _, a := range m.assignments {
		if a.OrgID != orgID {
			continue
		}
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.ActiveOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.attempts {
		if ex.AssignmentID == a.AssignmentID && ex.LearnerID == a.LearnerID && ex.Status == AttemptInProgress {
			return attemptActive(ex.ID)
		}
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, orgID, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok || a.OrgID != orgID {
		return Attempt{}, notFound("attempt", id)
	}
	return cloneAttempt(a), nil
}

func (m *memoryStore) UpdateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; !ok {
		return notFound("attempt", a.ID)
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return nil
}

func (m *memoryStore) CountAttempts(_ context.Context, assignmentID, learnerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.attempts {
		if a.AssignmentID == assignmentID && a.LearnerID == learnerID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) ActiveAttempt(_ context.Context, assignmentID, learnerID string) (Attempt, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.AssignmentID == assignmentID && a.LearnerID == learnerID && a.Status == AttemptInProgress {
			return cloneAttempt(a), true, nil
		}
	}
	return Attempt{}, false, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, orgID string, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.OrgID != orgID {
			continue
		}
		if opts.AssignmentID != "" && a.AssignmentID != opts.AssignmentID {
			continue
		}
		if opts.LearnerID != "" && a.LearnerID != opts.LearnerID {
			continue
		}
		// terminal attempts collapse to graded, so a status filter also
		// matches the state they ended through
		if opts.Status != "" && a.Status != opts.Status && a.EndedState != opts.Status {
			continue
		}
		out = append(out, cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) ExpiredInProgress(_ context.Context, now int64, limit int) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.Status == AttemptInProgress && a.Deadline < now {
			out = append(out, cloneAttempt(a))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryStore) AnyAttemptForQuiz(_ context.Context, quizID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) AppendEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Offset = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return nil
}

// cloneAttempt copies the answers map so callers never alias store state.
func cloneAttempt(a Attempt) Attempt {
	if a.Answers != nil {
		ans := make(map[string]Answer, len(a.Answers))
		for k, v := range a.Answers {
			ans[k] = v
		}
		a.Answers = ans
	}
	if a.Result != nil {
		r := *a.Result
		r.Questions = append([]QuestionResult(nil), a.Result.Questions...)
		a.Result = &r
	}
	return a
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}
