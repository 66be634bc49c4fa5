package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
)

type quizRepository struct {
	db *quizTable
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db.quiz}
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = uuid.New().String()
	if q.Attempts == nil {
		q.Attempts = []quiz.Attempt{}
	}
	repo.db.table[q.ID] = &q
	return copyQuiz(q), nil
}

func (repo *quizRepository) GetQuizByID(_ context.Context, id string) (quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return copyQuiz(*q), nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) FilterQuizzes(_ context.Context, filter quiz.QueryFilter, ordering ...core.DBOrdering) ([]quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matched := make([]quiz.Quiz, 0, len(repo.db.table))
	for _, q := range repo.db.table {
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.CreatedBy != "" && q.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.IsActive != nil && q.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, copyQuiz(*q))
	}

	if len(ordering) > 0 {
		asc := ordering[0].Ascending
		sort.SliceStable(matched, func(i, j int) bool {
			if asc {
				return matched[i].CreatedAt.Before(matched[j].CreatedAt)
			}
			return matched[j].CreatedAt.Before(matched[i].CreatedAt)
		})
	}
	return matched, nil
}

func (repo *quizRepository) UpdateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[q.ID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	q.Attempts = orig.Attempts // attempts only change via CreateAttempt
	repo.db.table[q.ID] = &q
	return copyQuiz(q), nil
}

func (repo *quizRepository) CreateAttempt(_ context.Context, quizID string, att quiz.Attempt) (quiz.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q, ok := repo.db.table[quizID]
	if !ok {
		return quiz.Attempt{}, quiz.ErrNotFound
	}
	// conditional insert under the write lock: the (quiz, student)
	// uniqueness rule holds under concurrent submissions
	for _, a := range q.Attempts {
		if a.StudentID == att.StudentID {
			return quiz.Attempt{}, quiz.ErrAlreadyAttempted
		}
	}
	att.ID = uuid.New().String()
	q.Attempts = append(q.Attempts, att)
	return att, nil
}

func copyQuiz(q quiz.Quiz) quiz.Quiz {
	questions := make([]quiz.Question, len(q.Questions))
	copy(questions, q.Questions)
	attempts := make([]quiz.Attempt, len(q.Attempts))
	copy(attempts, q.Attempts)
	q.Questions = questions
	q.Attempts = attempts
	return q
}
