package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/task"
)

type taskRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	Points      int       `db:"points"`
	Difficulty  string    `db:"difficulty"`
	DueDate     time.Time `db:"due_date"`
	CreatedBy   string    `db:"created_by"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Points:      r.Points,
		Difficulty:  r.Difficulty,
		DueDate:     r.DueDate,
		CreatedBy:   r.CreatedBy,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type submissionRow struct {
	ID            string         `db:"id"`
	TaskID        string         `db:"task_id"`
	StudentID     string         `db:"student_id"`
	Description   string         `db:"description"`
	Status        string         `db:"status"`
	ReviewedBy    sql.NullString `db:"reviewed_by"`
	ReviewedAt    sql.NullTime   `db:"reviewed_at"`
	Feedback      string         `db:"feedback"`
	PointsAwarded int            `db:"points_awarded"`
	SubmittedAt   time.Time      `db:"submitted_at"`
}

func (r submissionRow) submission() task.Submission {
	sub := task.Submission{
		ID:            r.ID,
		StudentID:     r.StudentID,
		Description:   r.Description,
		Status:        r.Status,
		ReviewedBy:    r.ReviewedBy.String,
		Feedback:      r.Feedback,
		PointsAwarded: r.PointsAwarded,
		SubmittedAt:   r.SubmittedAt,
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time
		sub.ReviewedAt = &t
	}
	return sub
}

type fileRow struct {
	SubmissionID string    `db:"submission_id"`
	Filename     string    `db:"filename"`
	Path         string    `db:"path"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *sql.DB) *taskRepository {
	return &taskRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "creating task")
	}
	defer func() { _ = tx.Rollback() }()

	var row taskRow
	err = tx.GetContext(ctx, &row, `
		INSERT INTO tasks (title, description, category, points, difficulty, due_date, created_by, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`,
		t.Title, t.Description, t.Category, t.Points, t.Difficulty, t.DueDate, t.CreatedBy, t.IsActive,
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "creating task")
	}
	for _, studentID := range t.AssignedTo {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_assignments (task_id, student_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, row.ID, studentID,
		)
		if err != nil {
			return task.Task{}, errors.Wrap(err, "assigning task")
		}
	}
	if err = tx.Commit(); err != nil {
		return task.Task{}, errors.Wrap(err, "creating task")
	}

	created := row.task()
	created.AssignedTo = t.AssignedTo
	created.Submissions = []task.Submission{}
	return created, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	var row taskRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM tasks WHERE id = $1`, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, errors.Wrap(err, "getting task")
	}
	t := row.task()
	if err := repo.loadAssignments(ctx, &t); err != nil {
		return task.Task{}, err
	}
	if err := repo.loadSubmissions(ctx, &t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (repo *taskRepository) loadAssignments(ctx context.Context, t *task.Task) error {
	t.AssignedTo = []string{}
	err := repo.db.SelectContext(ctx, &t.AssignedTo, `
		SELECT student_id FROM task_assignments WHERE task_id = $1`, t.ID,
	)
	return errors.Wrap(err, "loading assignments")
}

func (repo *taskRepository) loadSubmissions(ctx context.Context, t *task.Task) error {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM task_submissions WHERE task_id = $1 ORDER BY submitted_at`, t.ID,
	)
	if err != nil {
		return errors.Wrap(err, "loading submissions")
	}
	t.Submissions = make([]task.Submission, len(rows))
	for i, r := range rows {
		sub := r.submission()
		if err = repo.loadFiles(ctx, &sub); err != nil {
			return err
		}
		t.Submissions[i] = sub
	}
	return nil
}

func (repo *taskRepository) loadFiles(ctx context.Context, sub *task.Submission) error {
	var rows []fileRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT submission_id, filename, path, uploaded_at FROM submission_files
		WHERE submission_id = $1 ORDER BY uploaded_at`, sub.ID,
	)
	if err != nil {
		return errors.Wrap(err, "loading submission files")
	}
	sub.Files = make([]task.File, len(rows))
	for i, r := range rows {
		sub.Files[i] = task.File{Filename: r.Filename, Path: r.Path, UploadedAt: r.UploadedAt}
	}
	return nil
}

func (repo *taskRepository) FilterTasks(ctx context.Context, filter task.QueryFilter, ordering ...core.DBOrdering) ([]task.Task, error) {
	query := `SELECT * FROM tasks`
	var where []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Difficulty != "" {
		where = append(where, "difficulty = "+arg(filter.Difficulty))
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = "+arg(filter.CreatedBy))
	}
	if filter.AssignedTo != "" {
		where = append(where, "id IN (SELECT task_id FROM task_assignments WHERE student_id = "+arg(filter.AssignedTo)+")")
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

	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering tasks")
	}
	tasks := make([]task.Task, len(rows))
	for i, r := range rows {
		t := r.task()
		if err := repo.loadAssignments(ctx, &t); err != nil {
			return nil, err
		}
		if err := repo.loadSubmissions(ctx, &t); err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	defer func() { _ = tx.Rollback() }()

	var row taskRow
	err = tx.GetContext(ctx, &row, `
		UPDATE tasks
		SET title = $1, description = $2, category = $3, points = $4, difficulty = $5,
		    due_date = $6, is_active = $7, updated_at = now()
		WHERE id = $8
		RETURNING *`,
		t.Title, t.Description, t.Category, t.Points, t.Difficulty, t.DueDate, t.IsActive, t.ID,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, errors.Wrap(err, "updating task")
	}

	// assignments are replaced wholesale when provided
	if t.AssignedTo != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM task_assignments WHERE task_id = $1`, t.ID); err != nil {
			return task.Task{}, errors.Wrap(err, "updating assignments")
		}
		for _, studentID := range t.AssignedTo {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO task_assignments (task_id, student_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, t.ID, studentID,
			)
			if err != nil {
				return task.Task{}, errors.Wrap(err, "updating assignments")
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	return repo.GetTaskByID(ctx, t.ID)
}

func (repo *taskRepository) CreateSubmission(ctx context.Context, taskID string, sub task.Submission) (task.Submission, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return task.Submission{}, errors.Wrap(err, "creating submission")
	}
	defer func() { _ = tx.Rollback() }()

	var row submissionRow
	err = tx.GetContext(ctx, &row, `
		INSERT INTO task_submissions (task_id, student_id, description, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`,
		taskID, sub.StudentID, sub.Description, sub.Status, sub.SubmittedAt,
	)
	if err != nil {
		// the (task, student) unique constraint is the submit-once rule
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return task.Submission{}, task.ErrAlreadySubmitted
		}
		return task.Submission{}, errors.Wrap(err, "creating submission")
	}
	for _, f := range sub.Files {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO submission_files (submission_id, filename, path, uploaded_at)
			VALUES ($1, $2, $3, $4)`, row.ID, f.Filename, f.Path, f.UploadedAt,
		)
		if err != nil {
			return task.Submission{}, errors.Wrap(err, "creating submission files")
		}
	}
	if err = tx.Commit(); err != nil {
		return task.Submission{}, errors.Wrap(err, "creating submission")
	}

	created := row.submission()
	created.Files = sub.Files
	return created, nil
}

func (repo *taskRepository) UpdateSubmission(ctx context.Context, taskID string, sub task.Submission) (task.Submission, error) {
	var reviewedBy sql.NullString
	if sub.ReviewedBy != "" {
		reviewedBy = sql.NullString{String: sub.ReviewedBy, Valid: true}
	}
	var reviewedAt sql.NullTime
	if sub.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *sub.ReviewedAt, Valid: true}
	}

	// the status predicate is the review-once rule: of two concurrent
	// reviews only one matches the pending row, the other updates nothing
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE task_submissions
		SET status = $1, reviewed_by = $2, reviewed_at = $3, feedback = $4, points_awarded = $5
		WHERE id = $6 AND task_id = $7 AND status = 'pending'
		RETURNING *`,
		sub.Status, reviewedBy, reviewedAt, sub.Feedback, sub.PointsAwarded, sub.ID, taskID,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			var status string
			err = repo.db.GetContext(ctx, &status, `
				SELECT status FROM task_submissions WHERE id = $1 AND task_id = $2`, sub.ID, taskID,
			)
			switch {
			case err == nil:
				return task.Submission{}, task.ErrAlreadyReviewed
			case errors.Cause(err) == sql.ErrNoRows:
				return task.Submission{}, task.ErrSubmissionNotFound
			}
			return task.Submission{}, errors.Wrap(err, "updating submission")
		}
		return task.Submission{}, errors.Wrap(err, "updating submission")
	}

	updated := row.submission()
	if err = repo.loadFiles(ctx, &updated); err != nil {
		return task.Submission{}, err
	}
	return updated, nil
}
