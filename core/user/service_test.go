package user_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/user"
	emailsvc "github.com/nexora/backend/services/email"
	inmemdb "github.com/nexora/backend/storage/database/inmem"
)

func setup(t *testing.T) *user.Service {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := &core.Config{AppName: "Nexora", TestMode: true}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
}

func createUser(t *testing.T, svc *user.Service, name, email, role string) user.User {
	usr, err := svc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        "s3cr3t pwd",
		PasswordConfirm: "s3cr3t pwd",
		Role:            role,
	})
	require.NoError(t, err)
	return usr
}

func Test_Service_Register(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.NewUser{
		Name:            "Awa Ndiaye",
		Email:           "awa@test.com",
		Password:        "s3cr3t pwd",
		PasswordConfirm: "s3cr3t pwd",
		Role:            user.RoleAdmin, // must be ignored
	})
	require.NoError(t, err)

	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.True(t, usr.IsActive)
	assert.Equal(t, 0, usr.Points)
	assert.Equal(t, 1, usr.Level)
	assert.NotEmpty(t, usr.ID)
	assert.NoError(t, usr.CheckPassword("s3cr3t pwd"))

	// duplicate email is rejected
	_, err = svc.Register(ctx, user.NewUser{
		Name:            "Awa Again",
		Email:           "awa@test.com",
		Password:        "s3cr3t pwd",
		PasswordConfirm: "s3cr3t pwd",
	})
	assert.Equal(t, user.ErrEmailExists, err)
}

func Test_Service_Credit(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)

	t.Run("points credit", func(t *testing.T) {
		got, err := svc.Credit(ctx, usr.ID, 20, user.CreditPoints)
		require.NoError(t, err)
		assert.Equal(t, 20, got.Points)
		assert.Equal(t, 0, got.XP)
	})

	t.Run("xp credit refreshes level", func(t *testing.T) {
		got, err := svc.Credit(ctx, usr.ID, 60, user.CreditXP)
		require.NoError(t, err)
		assert.Equal(t, 60, got.XP)
		assert.Equal(t, 2, got.Level)
	})

	t.Run("zero credit is a no-op", func(t *testing.T) {
		got, err := svc.Credit(ctx, usr.ID, 0, user.CreditPoints)
		require.NoError(t, err)
		assert.Equal(t, 20, got.Points)
	})

	t.Run("negative credit is rejected", func(t *testing.T) {
		_, err := svc.Credit(ctx, usr.ID, -5, user.CreditPoints)
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := svc.Credit(ctx, usr.ID, 5, user.CreditKind("karma"))
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Credit(ctx, "nope", 5, user.CreditPoints)
		assert.Equal(t, user.ErrNotFound, err)
	})
}

// two concurrent credits must both land
func Test_Service_Credit_concurrent(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)

	var wg sync.WaitGroup
	for _, amount := range []int{10, 15} {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			_, err := svc.Credit(ctx, usr.ID, amount, user.CreditPoints)
			assert.NoError(t, err)
		}(amount)
	}
	wg.Wait()

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Points)
}

// concurrent xp credits must both land and the persisted level must
// match the final xp, never a stale intermediate
func Test_Service_Credit_concurrentXP(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, usr.ID, 20, user.CreditXP)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.XP)
	assert.Equal(t, user.LevelForXP(got.XP), got.Level)
	assert.Equal(t, 3, got.Level)
}

func Test_Service_SetPoints(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)

	got, err := svc.SetPoints(ctx, usr.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Points)

	_, err = svc.SetPoints(ctx, usr.ID, -1)
	assert.IsType(t, &core.ValidationError{}, err)
}

func Test_Service_Leaderboard(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	createUser(t, svc, "Teacher One", "t1@test.com", user.RoleTeacher)
	s1 := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)
	s2 := createUser(t, svc, "Student Two", "s2@test.com", user.RoleStudent)
	s3 := createUser(t, svc, "Student Three", "s3@test.com", user.RoleStudent)

	for usr, points := range map[string]int{s1.ID: 150, s2.ID: 85, s3.ID: 200} {
		_, err := svc.SetPoints(ctx, usr, points)
		require.NoError(t, err)
	}
	// deactivated students fall off the board
	_, err := svc.Deactivate(ctx, s2.ID)
	require.NoError(t, err)

	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, s3.ID, board[0].ID)
	assert.Equal(t, s1.ID, board[1].ID)

	board, err = svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, s3.ID, board[0].ID)
}

func Test_Service_Leaderboard_tiedPoints(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	s1 := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)
	s2 := createUser(t, svc, "Student Two", "s2@test.com", user.RoleStudent)
	s3 := createUser(t, svc, "Student Three", "s3@test.com", user.RoleStudent)

	for usr, points := range map[string]int{s1.ID: 100, s2.ID: 100, s3.ID: 200} {
		_, err := svc.SetPoints(ctx, usr, points)
		require.NoError(t, err)
	}

	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, s3.ID, board[0].ID)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Points, board[i].Points)
	}
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, []string{board[1].ID, board[2].ID})
}

func Test_Service_ChangeRole(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "Student One", "s1@test.com", user.RoleStudent)

	got, err := svc.ChangeRole(ctx, usr.ID, user.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, got.Role)

	_, err = svc.ChangeRole(ctx, usr.ID, "superuser")
	assert.IsType(t, &core.ValidationError{}, err)
}
