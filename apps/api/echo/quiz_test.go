package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/user"
)

func newQuizPayload() quiz.NewQuiz {
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

func (env *testEnv) createQuiz(t *testing.T, creator user.User) quiz.Quiz {
	q, err := env.quizSvc.Create(context.Background(), creator, newQuizPayload())
	require.NoError(t, err)
	return q
}

func Test_quizApi_create(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	student := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)

	body := marchallObj(t, newQuizPayload())

	t.Run("teacher creates a quiz", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", getToken(t, teacher), body)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var q quiz.Quiz
		decodeResponse(t, rec, &q)
		assert.NotEmpty(t, q.ID)
		assert.Equal(t, teacher.ID, q.CreatedBy)
		assert.Len(t, q.Questions, 3)
	})

	t.Run("forbidden for students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", getToken(t, student), body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: failureMessage(t, "permission denied"),
		}, rec)
	})

	t.Run("invalid payload", func(t *testing.T) {
		body := marchallObj(t, quiz.NewQuiz{Title: "x"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", getToken(t, teacher), body)
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_quizApi_query(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	student := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)
	q := env.createQuiz(t, teacher)

	tests := []httpTest{
		{
			name: "all active quizzes", path: "/v1/quizzes", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: successList(t, []quiz.Quiz{q}, 1),
		},
		{
			name: "category filter (match)", path: "/v1/quizzes?category=climate", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: successList(t, []quiz.Quiz{q}, 1),
		},
		{
			name: "category filter (no match)", path: "/v1/quizzes?category=recycling", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: successList(t, []quiz.Quiz{}, 0),
		},
		{name: "no token", path: "/v1/quizzes", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_retrieve(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	student := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)
	q := env.createQuiz(t, teacher)

	tests := []httpTest{
		{
			name: "found", path: "/v1/quizzes/" + q.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: successData(t, q),
		},
		{
			name: "unknown id", path: "/v1/quizzes/b1f8", token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: failureMessage(t, "quiz not found"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_attempt(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	s1 := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)
	q := env.createQuiz(t, teacher)

	body := marchallObj(t, AttemptRequest{Answers: []int{1, 2, 1}})
	path := "/v1/quizzes/" + q.ID + "/attempt"

	t.Run("student attempts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, s1), body)
		env.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: successData(t, quiz.AttemptResult{
				Score:          100,
				PointsAwarded:  25,
				CorrectAnswers: 3,
				TotalQuestions: 3,
			}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("second attempt conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, s1), body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: failureMessage(t, "you have already attempted this quiz"),
		}, rec)
	})

	t.Run("forbidden for teachers", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, teacher), body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: failureMessage(t, "permission denied"),
		}, rec)
	})
}

func Test_quizApi_results(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	other := env.createUser(t, "Teacher Two", "t2@test.com", user.RoleTeacher)
	s1 := env.createUser(t, "Student One", "s1@test.com", user.RoleStudent)
	q := env.createQuiz(t, teacher)

	_, err := env.quizSvc.Attempt(context.Background(), s1, q.ID, []int{1, 2, 0})
	require.NoError(t, err)

	t.Run("creator views results", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/results", getToken(t, teacher))
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var res quiz.Results
		decodeResponse(t, rec, &res)
		assert.Equal(t, "Climate Change Basics", res.Quiz.Title)
		assert.Equal(t, 1, res.TotalAttempts)
		require.Len(t, res.Attempts, 1)
		assert.Equal(t, 67, res.Attempts[0].Score)
	})

	t.Run("forbidden for another teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/results", getToken(t, other))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: failureMessage(t, "not authorized to view these results"),
		}, rec)
	})
}

func Test_quizApi_updateAndDestroy(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Teacher One", "t1@test.com", user.RoleTeacher)
	q := env.createQuiz(t, teacher)

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, quiz.UpdateQuiz{Title: "Climate Change 101"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/quizzes/"+q.ID, getToken(t, teacher), body)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got quiz.Quiz
		resp := decodeResponse(t, rec, &got)
		assert.Equal(t, "quiz updated", resp.Message)
		assert.Equal(t, "Climate Change 101", got.Title)
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/quizzes/"+q.ID, getToken(t, teacher))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: successMessage(t, "quiz deleted", nil),
		}, rec)

		// gone from the listing
		req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes", getToken(t, teacher))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: successList(t, []quiz.Quiz{}, 0),
		}, rec)
	})
}
