package domain

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	errOptionsMsg = "at least 2 options are required"
	errTextMsg    = "at least one option must have text"
	errCorrectMsg = "correct option index is out of range"
	errPointsMsg  = "points must be at least 1"
)

var errNoOptionText = errors.New(errTextMsg)

// Validate checks a single question against the publish rules.
func (q Question) Validate() error {
	maxIndex := len(q.Options) - 1
	if maxIndex < 0 {
		maxIndex = 0
	}
	return validation.ValidateStruct(&q,
		validation.Field(&q.Options,
			validation.Required.Error(errOptionsMsg),
			validation.Length(2, 0).Error(errOptionsMsg),
			validation.By(hasOptionText),
		),
		validation.Field(&q.CorrectOptionIndex,
			validation.Min(0).Error(errCorrectMsg),
			validation.Max(maxIndex).Error(errCorrectMsg),
		),
		validation.Field(&q.Points,
			validation.Required.Error(errPointsMsg),
			validation.Min(1).Error(errPointsMsg),
		),
	)
}

// ValidateQuestions returns a *ValidationError for the first invalid question.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return &ValidationError{QuestionIndex: -1, Reason: "test has no questions"}
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return &ValidationError{QuestionIndex: i, Reason: err.Error()}
		}
	}
	return nil
}

func hasOptionText(value interface{}) error {
	options, _ := value.([]Option)
	for _, o := range options {
		if strings.TrimSpace(o.Text) != "" {
			return nil
		}
	}
	return errNoOptionText
}
