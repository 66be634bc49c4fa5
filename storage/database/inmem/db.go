// Package inmemdb provides in-memory repositories with the same atomic
// increment and uniqueness guarantees as the postgres repositories. It backs
// the demo profile and the test suite; state is owned by the DB instance,
// never package-global.
package inmemdb

import (
	"sync"

	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
)

type (
	DB struct {
		user *userTable
		quiz *quizTable
		task *taskTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	quizTable struct {
		sync.RWMutex
		table map[string]*quiz.Quiz
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*task.Task
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		quiz: &quizTable{table: make(map[string]*quiz.Quiz)},
		task: &taskTable{table: make(map[string]*task.Task)},
	}
	return db, nil
}
