package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/task"
)

type taskRepository struct {
	db *taskTable
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	if t.Submissions == nil {
		t.Submissions = []task.Submission{}
	}
	repo.db.table[t.ID] = &t
	return copyTask(t), nil
}

func (repo *taskRepository) GetTaskByID(_ context.Context, id string) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return copyTask(*t), nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) FilterTasks(_ context.Context, filter task.QueryFilter, ordering ...core.DBOrdering) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matched := make([]task.Task, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && t.Difficulty != filter.Difficulty {
			continue
		}
		if filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != "" && !t.IsAssignedTo(filter.AssignedTo) {
			continue
		}
		if filter.IsActive != nil && t.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, copyTask(*t))
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

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	t.Submissions = orig.Submissions // submissions change via their own ops
	repo.db.table[t.ID] = &t
	return copyTask(t), nil
}

func (repo *taskRepository) CreateSubmission(_ context.Context, taskID string, sub task.Submission) (task.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.table[taskID]
	if !ok {
		return task.Submission{}, task.ErrNotFound
	}
	// conditional insert under the write lock: the (task, student)
	// uniqueness rule holds under concurrent submissions
	for _, s := range t.Submissions {
		if s.StudentID == sub.StudentID {
			return task.Submission{}, task.ErrAlreadySubmitted
		}
	}
	sub.ID = uuid.New().String()
	t.Submissions = append(t.Submissions, sub)
	return sub, nil
}

func (repo *taskRepository) UpdateSubmission(_ context.Context, taskID string, sub task.Submission) (task.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.table[taskID]
	if !ok {
		return task.Submission{}, task.ErrNotFound
	}
	for i := range t.Submissions {
		if t.Submissions[i].ID == sub.ID {
			// re-checked under the write lock: of two concurrent reviews
			// only one finds the submission still pending
			if t.Submissions[i].Status != task.StatusPending {
				return task.Submission{}, task.ErrAlreadyReviewed
			}
			t.Submissions[i] = sub
			return sub, nil
		}
	}
	return task.Submission{}, task.ErrSubmissionNotFound
}

func copyTask(t task.Task) task.Task {
	assigned := make([]string, len(t.AssignedTo))
	copy(assigned, t.AssignedTo)
	subs := make([]task.Submission, len(t.Submissions))
	copy(subs, t.Submissions)
	t.AssignedTo = assigned
	t.Submissions = subs
	return t
}
