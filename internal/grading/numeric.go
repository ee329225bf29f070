package grading

import (
	"math"
	"strconv"
	"strings"
)

// numericStrategy compares the response against the expected value within an
// absolute tolerance. An unparseable response is simply wrong, not an error.
type numericStrategy struct{}

func (numericStrategy) Grade(q Question, r Response) Outcome {
	if len(q.AnswerKey) == 0 {
		return Outcome{Correct: boolPtr(false), Feedback: "no expected value"}
	}
	got, gOK := parseFloatLoose(r.Text)
	want, wOK := parseFloatLoose(q.AnswerKey[0])
	if !gOK || !wOK {
		return Outcome{Correct: boolPtr(false), Feedback: "invalid numeric answer"}
	}
	if math.Abs(got-want) <= q.Tolerance {
		return Outcome{Awarded: q.Marks, Correct: boolPtr(true)}
	}
	return Outcome{Correct: boolPtr(false), Feedback: "incorrect value"}
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
