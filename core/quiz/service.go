package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/policy"
	"github.com/nexora/backend/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("quiz not found")
	ErrAlreadyAttempted = core.NewConflictError("you have already attempted this quiz")
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// GetQuizByID loads the quiz with its questions and attempts.
		GetQuizByID(ctx context.Context, id string) (Quiz, error)
		FilterQuizzes(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Quiz, error)
		UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// CreateAttempt appends an attempt. The storage layer enforces the
		// one-attempt-per-(quiz,student) rule with a uniqueness constraint
		// and reports a violation as ErrAlreadyAttempted.
		CreateAttempt(ctx context.Context, quizID string, att Attempt) (Attempt, error)
	}

	// Ledger credits point/xp rewards; satisfied by *user.Service.
	Ledger interface {
		Credit(ctx context.Context, userID string, amount int, kind user.CreditKind) (user.User, error)
	}

	Service struct {
		repo   Repository
		ledger Ledger
	}
)

func NewService(repo Repository, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error) {
	if err := policy.CanCreateContent(actor); err != nil {
		return Quiz{}, err
	}

	timeLimit := nq.TimeLimit
	if timeLimit == 0 {
		timeLimit = 10
	}
	questions := make([]Question, 0, len(nq.Questions))
	for _, q := range nq.Questions {
		questions = append(questions, Question{
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}

	now := time.Now().UTC()
	q := Quiz{
		Title:       nq.Title,
		Description: nq.Description,
		Category:    nq.Category,
		Questions:   questions,
		Points:      nq.Points,
		TimeLimit:   timeLimit,
		CreatedBy:   actor.ID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateQuiz(ctx, q)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

// Query returns active quizzes matching the filter.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Quiz, error) {
	if filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}
	return svc.repo.FilterQuizzes(ctx, filter, core.DBOrdering{Field: "created_at"})
}

// Mine returns the quizzes created by the actor.
func (svc *Service) Mine(ctx context.Context, actor user.User) ([]Quiz, error) {
	active := true
	return svc.repo.FilterQuizzes(
		ctx,
		QueryFilter{CreatedBy: actor.ID, IsActive: &active},
		core.DBOrdering{Field: "created_at"},
	)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uq UpdateQuiz) (Quiz, error) {
	q, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if err = policy.CanModify(actor, q); err != nil {
		return Quiz{}, err
	}

	if uq.Title != "" {
		q.Title = uq.Title
	}
	if uq.Description != "" {
		q.Description = uq.Description
	}
	if uq.Category != "" {
		q.Category = uq.Category
	}
	if uq.Points != 0 {
		q.Points = uq.Points
	}
	if uq.TimeLimit != 0 {
		q.TimeLimit = uq.TimeLimit
	}
	if uq.Questions != nil {
		questions := make([]Question, 0, len(uq.Questions))
		for _, nq := range uq.Questions {
			questions = append(questions, Question{
				Text:          nq.Text,
				Options:       nq.Options,
				CorrectAnswer: nq.CorrectAnswer,
				Explanation:   nq.Explanation,
			})
		}
		q.Questions = questions
	}
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuiz(ctx, q)
}

// Delete deactivates a quiz. Attempts carry awarded points history, so
// quizzes are never hard-deleted.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	q, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return err
	}
	if err = policy.CanModify(actor, q); err != nil {
		return err
	}
	q.IsActive = false
	q.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateQuiz(ctx, q)
	return err
}

// AttemptResult is returned to the student after a scored attempt.
type AttemptResult struct {
	Score          int `json:"score"` // percentage, rounded
	PointsAwarded  int `json:"pointsAwarded"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
}

// Attempt scores the student's answers, records the attempt and credits the
// reward. At most one attempt per (quiz, student) holds even under a
// double-click: the storage layer rejects the duplicate, not a check here.
func (svc *Service) Attempt(ctx context.Context, actor user.User, quizID string, answers []int) (AttemptResult, error) {
	if err := policy.CanAttemptQuiz(actor); err != nil {
		return AttemptResult{}, err
	}

	q, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return AttemptResult{}, err
	}
	if !q.IsActive {
		return AttemptResult{}, ErrNotFound
	}

	res, err := Score(q, answers)
	if err != nil {
		return AttemptResult{}, err
	}

	att := Attempt{
		StudentID:     actor.ID,
		Answers:       answers,
		Score:         res.RoundedPercent(),
		PointsAwarded: res.PointsAwarded,
		CompletedAt:   time.Now().UTC(),
	}
	if _, err = svc.repo.CreateAttempt(ctx, q.ID, att); err != nil {
		return AttemptResult{}, err
	}

	if res.PointsAwarded > 0 {
		if _, err = svc.ledger.Credit(ctx, actor.ID, res.PointsAwarded, user.CreditPoints); err != nil {
			return AttemptResult{}, errors.Wrap(err, "crediting points")
		}
		if _, err = svc.ledger.Credit(ctx, actor.ID, res.PointsAwarded, user.CreditXP); err != nil {
			return AttemptResult{}, errors.Wrap(err, "crediting xp")
		}
	}

	return AttemptResult{
		Score:          att.Score,
		PointsAwarded:  res.PointsAwarded,
		CorrectAnswers: res.CorrectCount,
		TotalQuestions: res.TotalQuestions,
	}, nil
}

// Results holds a quiz's attempts for its creator.
type Results struct {
	Quiz          ResultsQuiz `json:"quiz"`
	Attempts      []Attempt   `json:"attempts"`
	TotalAttempts int         `json:"totalAttempts"`
}

type ResultsQuiz struct {
	Title          string `json:"title"`
	TotalQuestions int    `json:"totalQuestions"`
	Points         int    `json:"points"`
}

func (svc *Service) Results(ctx context.Context, actor user.User, quizID string) (Results, error) {
	q, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Results{}, err
	}
	if err = policy.CanViewResults(actor, q); err != nil {
		return Results{}, err
	}

	attempts := q.Attempts
	if attempts == nil {
		attempts = []Attempt{}
	}
	return Results{
		Quiz: ResultsQuiz{
			Title:          q.Title,
			TotalQuestions: len(q.Questions),
			Points:         q.Points,
		},
		Attempts:      attempts,
		TotalAttempts: len(attempts),
	}, nil
}
