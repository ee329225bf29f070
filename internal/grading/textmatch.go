package grading

import "unicode"

// shortAnswerStrategy awards full marks when the normalized response equals
// any accepted answer, zero otherwise. A question authored without accepted
// answers falls back to manual grading.
type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Grade(q Question, r Response) Outcome {
	if len(q.AnswerKey) == 0 {
		return Outcome{Pending: true, Feedback: "no accepted answers; manual grading required"}
	}
	got := normalize(r.Text)
	for _, k := range q.AnswerKey {
		if normalize(k) == got {
			return Outcome{Awarded: q.Marks, Correct: boolPtr(true)}
		}
	}
	return Outcome{Correct: boolPtr(false), Feedback: "no accepted answer matched"}
}

// normalize casefolds and strips punctuation and extra spaces.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}
