package quiz

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
)

// Result is the outcome of scoring one set of answers against a quiz.
type Result struct {
	Percent        float64 // exact, unrounded
	CorrectCount   int
	TotalQuestions int
	PointsAwarded  int
}

// RoundedPercent is the value persisted on the Attempt: the exact
// percentage rounded to the nearest integer.
func (r Result) RoundedPercent() int {
	return int(math.Round(r.Percent))
}

// Score computes the score and point award for a set of submitted answers.
// Pure; it does not touch attempts or the ledger.
//
// An answer index outside the question's options range counts as incorrect
// rather than erroring, so a malformed single answer cannot fail the whole
// submission. A mismatched answer count is a validation error.
func Score(q Quiz, answers []int) (Result, error) {
	if len(answers) != len(q.Questions) {
		return Result{}, core.NewValidationError(
			errors.New("number of answers must match number of questions"),
			core.FieldError{Field: "answers", Error: "number of answers must match number of questions"},
		)
	}
	total := len(q.Questions)
	if total == 0 {
		return Result{}, nil
	}

	var correct int
	for i, question := range q.Questions {
		if answers[i] == question.CorrectAnswer {
			correct++
		}
	}

	pct := float64(correct) / float64(total) * 100
	return Result{
		Percent:        pct,
		CorrectCount:   correct,
		TotalQuestions: total,
		PointsAwarded:  int(math.Floor(pct / 100 * float64(q.Points))),
	}, nil
}
