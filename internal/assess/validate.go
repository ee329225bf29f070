package assess

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type OptionInput struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type QuestionInput struct {
	Text      string        `json:"text" validate:"required"`
	Type      string        `json:"type" validate:"required,oneof=single_choice multiple_choice numeric short_answer free_text"`
	Marks     float64       `json:"marks" validate:"gt=0"`
	Options   []OptionInput `json:"options" validate:"dive"`
	AnswerKey []string      `json:"answer_key"`
	Tolerance float64       `json:"tolerance" validate:"gte=0"`
}

type QuizInput struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	Instructions string  `json:"instructions"`
	DurationMin  int     `json:"duration_min" validate:"gt=0"`
	PassMarks    float64 `json:"pass_marks" validate:"gte=0"`
}

type AssignmentInput struct {
	QuizID      string    `json:"quiz_id" validate:"required"`
	DueAt       int64     `json:"due_at" validate:"gt=0"`
	MaxAttempts int       `json:"max_attempts" validate:"gte=1"`
	Recipient   Recipient `json:"recipient"`
}

func validateQuestionInput(in QuestionInput) error {
	if err := validate.Struct(in); err != nil {
		return invalidQuestion("%v", err)
	}
	isChoice := in.Type == QuestionSingleChoice || in.Type == QuestionMultipleChoice
	if isChoice {
		if len(in.Options) < 2 {
			return invalidQuestion("choice question needs at least 2 options, got %d", len(in.Options))
		}
	} else if len(in.Options) > 0 {
		return invalidQuestion("%s question must not have options", in.Type)
	}
	ids := map[string]bool{}
	for _, o := range in.Options {
		if ids[o.ID] {
			return invalidQuestion("duplicate option id %q", o.ID)
		}
		ids[o.ID] = true
	}
	switch in.Type {
	case QuestionSingleChoice:
		if len(in.AnswerKey) != 1 {
			return invalidQuestion("single-choice needs exactly one correct option, got %d", len(in.AnswerKey))
		}
	case QuestionMultipleChoice:
		if len(in.AnswerKey) == 0 {
			return invalidQuestion("multiple-choice needs at least one correct option")
		}
	case QuestionNumeric:
		if len(in.AnswerKey) != 1 {
			return invalidQuestion("numeric needs exactly one expected value")
		}
		if _, err := strconv.ParseFloat(in.AnswerKey[0], 64); err != nil {
			return invalidQuestion("numeric answer key %q is not a number", in.AnswerKey[0])
		}
	case QuestionFreeText:
		if len(in.AnswerKey) != 0 {
			return invalidQuestion("free-text must not have an answer key")
		}
	}
	if isChoice {
		seen := map[string]bool{}
		for _, k := range in.AnswerKey {
			if !ids[k] {
				return invalidQuestion("answer key references unknown option %q", k)
			}
			if seen[k] {
				return invalidQuestion("answer key repeats option %q", k)
			}
			seen[k] = true
		}
	}
	return nil
}

func validateQuizInput(in QuizInput) error {
	if err := validate.Struct(in); err != nil {
		return invalidQuiz("%v", err)
	}
	return nil
}

func validateAssignmentInput(in AssignmentInput) error {
	if err := validate.Struct(in); err != nil {
		return invalidAssignment("%v", err)
	}
	switch in.Recipient.Type {
	case RecipientLearner, RecipientBatch:
	default:
		return invalidAssignment("recipient type must be learner or batch")
	}
	if in.Recipient.ID == "" {
		return invalidAssignment("recipient id required")
	}
	return nil
}
