package quiz_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/user"
	emailsvc "github.com/nexora/backend/services/email"
	inmemdb "github.com/nexora/backend/storage/database/inmem"
)

type testEnv struct {
	usrSvc  *user.Service
	quizSvc *quiz.Service
}

func setup(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := &core.Config{AppName: "Nexora", TestMode: true}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
	return &testEnv{
		usrSvc:  usrSvc,
		quizSvc: quiz.NewService(inmemdb.NewQuizRepository(db), usrSvc),
	}
}

func (env *testEnv) createUser(t *testing.T, name, email, role string) user.User {
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        "s3cr3t pwd",
		PasswordConfirm: "s3cr3t pwd",
		Role:            role,
	})
	require.NoError(t, err)
	return usr
}

func newClimateQuiz() quiz.NewQuiz {
	return quiz.NewQuiz{
		Title:       "Climate Change Basics",
		Description: "Test your knowledge about climate change.",
		Category:    "climate",
		Points:      25,
		TimeLimit:   15,
		Questions: []quiz.NewQuestion{
			{Text: "What is the primary cause of global warming?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
			{Text: "Which gas contributes most to the greenhouse effect?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
			{Text: "What is the main source of carbon dioxide emissions?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
		},
	}
}

func Test_Service_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	student := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)

	q, err := env.quizSvc.Create(ctx, teacher, newClimateQuiz())
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, teacher.ID, q.CreatedBy)
	assert.True(t, q.IsActive)
	assert.Len(t, q.Questions, 3)

	// time limit defaults when omitted
	nq := newClimateQuiz()
	nq.TimeLimit = 0
	q, err = env.quizSvc.Create(ctx, teacher, nq)
	require.NoError(t, err)
	assert.Equal(t, 10, q.TimeLimit)

	// students cannot create content
	_, err = env.quizSvc.Create(ctx, student, newClimateQuiz())
	assert.IsType(t, &core.AuthorizationError{}, err)
}

func Test_Service_Attempt(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	s1 := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)
	s2 := env.createUser(t, "Student Two", "s2@test.com", user.RoleStudent)

	q, err := env.quizSvc.Create(ctx, teacher, newClimateQuiz())
	require.NoError(t, err)

	t.Run("perfect score", func(t *testing.T) {
		res, err := env.quizSvc.Attempt(ctx, s1, q.ID, []int{1, 2, 1})
		require.NoError(t, err)
		assert.Equal(t, quiz.AttemptResult{
			Score:          100,
			PointsAwarded:  25,
			CorrectAnswers: 3,
			TotalQuestions: 3,
		}, res)

		// the reward lands on both counters
		got, err := env.usrSvc.GetByID(ctx, s1.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, got.Points)
		assert.Equal(t, 25, got.XP)
	})

	t.Run("partial score floors the award", func(t *testing.T) {
		res, err := env.quizSvc.Attempt(ctx, s2, q.ID, []int{1, 2, 0})
		require.NoError(t, err)
		assert.Equal(t, quiz.AttemptResult{
			Score:          67,
			PointsAwarded:  16,
			CorrectAnswers: 2,
			TotalQuestions: 3,
		}, res)
	})

	t.Run("second attempt conflicts", func(t *testing.T) {
		_, err := env.quizSvc.Attempt(ctx, s1, q.ID, []int{1, 2, 1})
		assert.Equal(t, quiz.ErrAlreadyAttempted, err)

		// no double credit
		got, err := env.usrSvc.GetByID(ctx, s1.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, got.Points)
	})

	t.Run("teachers cannot attempt", func(t *testing.T) {
		_, err := env.quizSvc.Attempt(ctx, teacher, q.ID, []int{1, 2, 1})
		assert.IsType(t, &core.AuthorizationError{}, err)
	})

	t.Run("answer count mismatch", func(t *testing.T) {
		s3 := env.createUser(t, "Student Three", "s3@test.com", user.RoleStudent)
		_, err := env.quizSvc.Attempt(ctx, s3, q.ID, []int{1})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("deleted quiz reads as not found", func(t *testing.T) {
		require.NoError(t, env.quizSvc.Delete(ctx, teacher, q.ID))
		s4 := env.createUser(t, "Student Four", "s4@test.com", user.RoleStudent)
		_, err := env.quizSvc.Attempt(ctx, s4, q.ID, []int{1, 2, 1})
		assert.Equal(t, quiz.ErrNotFound, err)
	})
}

// only one of the racing attempts may be recorded and credited
func Test_Service_Attempt_concurrent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	s1 := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)

	q, err := env.quizSvc.Create(ctx, teacher, newClimateQuiz())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.quizSvc.Attempt(ctx, s1, q.ID, []int{1, 2, 1})
		}(i)
	}
	wg.Wait()

	var conflicts int
	for _, err := range errs {
		if err == quiz.ErrAlreadyAttempted {
			conflicts++
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 1, conflicts)

	got, err := env.usrSvc.GetByID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Points)
}

func Test_Service_Results(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	other := env.createUser(t, "Teacher Two", "t2@test.com", user.RoleTeacher)
	admin := env.createUser(t, "Admin", "admin@test.com", user.RoleAdmin)
	s1 := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)

	q, err := env.quizSvc.Create(ctx, teacher, newClimateQuiz())
	require.NoError(t, err)
	_, err = env.quizSvc.Attempt(ctx, s1, q.ID, []int{1, 2, 0})
	require.NoError(t, err)

	res, err := env.quizSvc.Results(ctx, teacher, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Climate Change Basics", res.Quiz.Title)
	assert.Equal(t, 3, res.Quiz.TotalQuestions)
	assert.Equal(t, 1, res.TotalAttempts)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, s1.ID, res.Attempts[0].StudentID)
	assert.Equal(t, 67, res.Attempts[0].Score)

	// admins may view any quiz's results
	_, err = env.quizSvc.Results(ctx, admin, q.ID)
	assert.NoError(t, err)

	// another teacher may not
	_, err = env.quizSvc.Results(ctx, other, q.ID)
	assert.IsType(t, &core.AuthorizationError{}, err)
}

func Test_Service_Update(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	other := env.createUser(t, "Teacher Two", "t2@test.com", user.RoleTeacher)

	q, err := env.quizSvc.Create(ctx, teacher, newClimateQuiz())
	require.NoError(t, err)

	got, err := env.quizSvc.Update(ctx, teacher, q.ID, quiz.UpdateQuiz{Title: "Climate Change 101"})
	require.NoError(t, err)
	assert.Equal(t, "Climate Change 101", got.Title)
	assert.Equal(t, q.Description, got.Description) // untouched
	assert.Len(t, got.Questions, 3)

	// only the creator or an admin may modify
	_, err = env.quizSvc.Update(ctx, other, q.ID, quiz.UpdateQuiz{Title: "Hijacked title"})
	assert.IsType(t, &core.AuthorizationError{}, err)
}

func Test_Service_Query(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)

	q1, err := env.quizSvc.Create(ctx, teacher, newClimateQuiz())
	require.NoError(t, err)
	nq := newClimateQuiz()
	nq.Title = "Recycling Knowledge"
	nq.Category = "recycling"
	_, err = env.quizSvc.Create(ctx, teacher, nq)
	require.NoError(t, err)

	all, err := env.quizSvc.Query(ctx, quiz.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	climate, err := env.quizSvc.Query(ctx, quiz.QueryFilter{Category: "climate"})
	require.NoError(t, err)
	require.Len(t, climate, 1)
	assert.Equal(t, q1.ID, climate[0].ID)

	// deleted quizzes drop out of the default listing
	require.NoError(t, env.quizSvc.Delete(ctx, teacher, q1.ID))
	all, err = env.quizSvc.Query(ctx, quiz.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
