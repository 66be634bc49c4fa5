package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
)

type quizRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	Points      int       `db:"points"`
	TimeLimit   int       `db:"time_limit"`
	CreatedBy   string    `db:"created_by"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r quizRow) quiz() quiz.Quiz {
	return quiz.Quiz{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Points:      r.Points,
		TimeLimit:   r.TimeLimit,
		CreatedBy:   r.CreatedBy,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type questionRow struct {
	QuizID        string          `db:"quiz_id"`
	Position      int             `db:"position"`
	Question      string          `db:"question"`
	Options       json.RawMessage `db:"options"`
	CorrectAnswer int             `db:"correct_answer"`
	Explanation   string          `db:"explanation"`
}

type attemptRow struct {
	ID            string          `db:"id"`
	QuizID        string          `db:"quiz_id"`
	StudentID     string          `db:"student_id"`
	Answers       json.RawMessage `db:"answers"`
	Score         int             `db:"score"`
	PointsAwarded int             `db:"points_awarded"`
	CompletedAt   time.Time       `db:"completed_at"`
}

func (r attemptRow) attempt() (quiz.Attempt, error) {
	att := quiz.Attempt{
		ID:            r.ID,
		StudentID:     r.StudentID,
		Score:         r.Score,
		PointsAwarded: r.PointsAwarded,
		CompletedAt:   r.CompletedAt,
	}
	if err := json.Unmarshal(r.Answers, &att.Answers); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "decoding attempt answers")
	}
	return att, nil
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *sql.DB) *quizRepository {
	return &quizRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "creating quiz")
	}
	defer func() { _ = tx.Rollback() }()

	var row quizRow
	err = tx.GetContext(ctx, &row, `
		INSERT INTO quizzes (title, description, category, points, time_limit, created_by, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		q.Title, q.Description, q.Category, q.Points, q.TimeLimit, q.CreatedBy, q.IsActive,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "creating quiz")
	}
	if err = insertQuestions(ctx, tx, row.ID, q.Questions); err != nil {
		return quiz.Quiz{}, err
	}
	if err = tx.Commit(); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "creating quiz")
	}

	created := row.quiz()
	created.Questions = q.Questions
	created.Attempts = []quiz.Attempt{}
	return created, nil
}

func insertQuestions(ctx context.Context, tx *sqlx.Tx, quizID string, questions []quiz.Question) error {
	for i, qn := range questions {
		opts, err := json.Marshal(qn.Options)
		if err != nil {
			return errors.Wrap(err, "encoding question options")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (quiz_id, position, question, options, correct_answer, explanation)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			quizID, i, qn.Text, opts, qn.CorrectAnswer, qn.Explanation,
		)
		if err != nil {
			return errors.Wrap(err, "creating question")
		}
	}
	return nil
}

func (repo *quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	var row quizRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM quizzes WHERE id = $1`, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	q := row.quiz()
	if err := repo.loadQuestions(ctx, &q); err != nil {
		return quiz.Quiz{}, err
	}
	if err := repo.loadAttempts(ctx, &q); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (repo *quizRepository) loadQuestions(ctx context.Context, q *quiz.Quiz) error {
	var rows []questionRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT quiz_id, position, question, options, correct_answer, explanation
		FROM questions WHERE quiz_id = $1 ORDER BY position`, q.ID,
	)
	if err != nil {
		return errors.Wrap(err, "loading questions")
	}
	q.Questions = make([]quiz.Question, len(rows))
	for i, r := range rows {
		qn := quiz.Question{Text: r.Question, CorrectAnswer: r.CorrectAnswer, Explanation: r.Explanation}
		if err = json.Unmarshal(r.Options, &qn.Options); err != nil {
			return errors.Wrap(err, "decoding question options")
		}
		q.Questions[i] = qn
	}
	return nil
}

func (repo *quizRepository) loadAttempts(ctx context.Context, q *quiz.Quiz) error {
	var rows []attemptRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM quiz_attempts WHERE quiz_id = $1 ORDER BY completed_at`, q.ID,
	)
	if err != nil {
		return errors.Wrap(err, "loading attempts")
	}
	q.Attempts = make([]quiz.Attempt, len(rows))
	for i, r := range rows {
		att, err := r.attempt()
		if err != nil {
			return err
		}
		q.Attempts[i] = att
	}
	return nil
}

func (repo *quizRepository) FilterQuizzes(ctx context.Context, filter quiz.QueryFilter, ordering ...core.DBOrdering) ([]quiz.Quiz, error) {
	query := `SELECT * FROM quizzes`
	var where []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = "+arg(filter.CreatedBy))
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = "+arg(*filter.IsActive))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if len(ordering) > 0 {
		orders := make([]string, len(ordering))
		for i, ord := range ordering {
			orders[i] = ord.String()
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}

	var rows []quizRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering quizzes")
	}
	quizzes := make([]quiz.Quiz, len(rows))
	for i, r := range rows {
		q := r.quiz()
		if err := repo.loadQuestions(ctx, &q); err != nil {
			return nil, err
		}
		if err := repo.loadAttempts(ctx, &q); err != nil {
			return nil, err
		}
		quizzes[i] = q
	}
	return quizzes, nil
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	defer func() { _ = tx.Rollback() }()

	var row quizRow
	err = tx.GetContext(ctx, &row, `
		UPDATE quizzes
		SET title = $1, description = $2, category = $3, points = $4, time_limit = $5,
		    is_active = $6, updated_at = now()
		WHERE id = $7
		RETURNING *`,
		q.Title, q.Description, q.Category, q.Points, q.TimeLimit, q.IsActive, q.ID,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}

	// questions are replaced wholesale when provided
	if q.Questions != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = $1`, q.ID); err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "updating questions")
		}
		if err = insertQuestions(ctx, tx, q.ID, q.Questions); err != nil {
			return quiz.Quiz{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	return repo.GetQuizByID(ctx, q.ID)
}

func (repo *quizRepository) CreateAttempt(ctx context.Context, quizID string, att quiz.Attempt) (quiz.Attempt, error) {
	answers, err := json.Marshal(att.Answers)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "encoding attempt answers")
	}

	var row attemptRow
	err = repo.db.GetContext(ctx, &row, `
		INSERT INTO quiz_attempts (quiz_id, student_id, answers, score, points_awarded, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		quizID, att.StudentID, answers, att.Score, att.PointsAwarded, att.CompletedAt,
	)
	if err != nil {
		// the (quiz, student) unique constraint is the attempt-once rule
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return quiz.Attempt{}, quiz.ErrAlreadyAttempted
		}
		return quiz.Attempt{}, errors.Wrap(err, "creating attempt")
	}
	return row.attempt()
}
