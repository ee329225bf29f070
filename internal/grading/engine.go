package grading

// Question is the minimal view of a question needed for grading.
type Question struct {
	ID        string
	Type      string
	Marks     float64
	AnswerKey []string
	Tolerance float64 // numeric only
}

// Response is one learner answer. Selected carries option IDs for choice
// types; Text carries numeric, short-answer and free-text values.
type Response struct {
	Selected []string
	Text     string
}

// Outcome grades a single question. Correct is nil while the question is
// pending manual review.
type Outcome struct {
	Awarded  float64
	Correct  *bool
	Pending  bool
	Feedback string
}

// Strategy grades a single question type. Grading must be deterministic:
// the same question and response always yield the same outcome.
type Strategy interface {
	Grade(q Question, r Response) Outcome
}

type Engine struct {
	strategies map[string]Strategy
}

type Option func(*Engine)

// WithStrategy overrides or adds a per-type strategy, e.g. a partial-credit
// variant for multiple choice.
func WithStrategy(qtype string, s Strategy) Option {
	return func(e *Engine) { e.strategies[qtype] = s }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{strategies: map[string]Strategy{
		"single_choice":   singleChoiceStrategy{},
		"multiple_choice": multiChoiceStrategy{},
		"numeric":         numericStrategy{},
		"short_answer":    shortAnswerStrategy{},
		"free_text":       freeTextStrategy{},
	}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Grade routes by question type. A nil response means the question was never
// answered: it scores zero, is never an error, and needs no manual review
// since there is nothing to review.
func (e *Engine) Grade(q Question, r *Response) Outcome {
	if r == nil {
		return Outcome{Correct: boolPtr(false), Feedback: "not answered"}
	}
	s, ok := e.strategies[q.Type]
	if !ok {
		return Outcome{Pending: true, Feedback: "no strategy for type " + q.Type}
	}
	return s.Grade(q, *r)
}

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q Question, r Response) Outcome {
	if len(r.Selected) == 1 && len(q.AnswerKey) == 1 && r.Selected[0] == q.AnswerKey[0] {
		return Outcome{Awarded: q.Marks, Correct: boolPtr(true)}
	}
	return Outcome{Correct: boolPtr(false), Feedback: "incorrect"}
}

// multiChoiceStrategy awards full marks on exact set equality and zero on
// any mismatch, including partial selections.
type multiChoiceStrategy struct{}

func (multiChoiceStrategy) Grade(q Question, r Response) Outcome {
	if len(r.Selected) > 0 && setEqual(toSet(r.Selected), toSet(q.AnswerKey)) {
		return Outcome{Awarded: q.Marks, Correct: boolPtr(true)}
	}
	return Outcome{Correct: boolPtr(false), Feedback: "incorrect selection"}
}

// freeTextStrategy always defers to a human grader.
type freeTextStrategy struct{}

func (freeTextStrategy) Grade(q Question, r Response) Outcome {
	return Outcome{Pending: true, Feedback: "manual grading required"}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func boolPtr(b bool) *bool { return &b }
