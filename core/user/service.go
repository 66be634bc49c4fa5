package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

// CreditKind selects which counter a ledger credit targets.
type CreditKind string

const (
	CreditPoints CreditKind = "points"
	CreditXP     CreditKind = "xp"
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on User.Name or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		// UpdateUser only saves set fields; isActive is applied when non-nil.
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		// IncrementUserCounter atomically adds amount to the points or xp
		// counter. An xp write recomputes and persists User.Level in the
		// same transaction.
		IncrementUserCounter(ctx context.Context, id string, amount int, kind CreditKind) (User, error)
		SetUserPoints(ctx context.Context, id string, points int) (User, error)
		SetUserLastLogin(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new account. Self-registered accounts are always
// students; privileged roles are set via Create (admin CLI / seed).
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Role = RoleStudent
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      role,
		Level:     LevelForXP(0),
		Badges:    []Badge{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter, ordering...)
}

// Students returns all active students, highest points first.
func (svc *Service) Students(ctx context.Context) ([]User, error) {
	active := true
	return svc.repo.FilterUsers(
		ctx,
		QueryFilter{Role: RoleStudent, IsActive: &active},
		core.DBOrdering{Field: "points"},
	)
}

// Leaderboard returns the top active students by points.
func (svc *Service) Leaderboard(ctx context.Context, limit int) ([]User, error) {
	active := true
	return svc.repo.FilterUsers(
		ctx,
		QueryFilter{Role: RoleStudent, IsActive: &active, Limit: limit},
		core.DBOrdering{Field: "points"},
	)
}

func (svc *Service) ChangeRole(ctx context.Context, id, role string) (User, error) {
	valid := false
	for _, r := range AllRoles {
		if role == r {
			valid = true
			break
		}
	}
	if !valid {
		return User{}, core.NewValidationError(
			errors.New("invalid role"),
			core.FieldError{Field: "role", Error: "role must be admin, teacher or student"},
		)
	}
	return svc.repo.UpdateUser(ctx, User{ID: id, Role: role, UpdatedAt: time.Now().UTC()}, nil)
}

func (svc *Service) Deactivate(ctx context.Context, id string) (User, error) {
	inactive := false
	return svc.repo.UpdateUser(ctx, User{ID: id, UpdatedAt: time.Now().UTC()}, &inactive)
}

// SetPoints overwrites a user's points counter (teacher/admin correction).
func (svc *Service) SetPoints(ctx context.Context, id string, points int) (User, error) {
	if points < 0 {
		return User{}, core.NewValidationError(
			errors.New("invalid points"),
			core.FieldError{Field: "points", Error: "points must be a non-negative integer"},
		)
	}
	return svc.repo.SetUserPoints(ctx, id, points)
}

// Credit atomically adds amount to the user's points or xp counter.
// All quiz and task rewards flow through here; an xp credit refreshes
// the cached level within the same storage transaction.
func (svc *Service) Credit(ctx context.Context, userID string, amount int, kind CreditKind) (User, error) {
	if amount < 0 {
		return User{}, core.NewValidationError(
			errors.New("invalid credit amount"),
			core.FieldError{Field: string(kind), Error: "credit amount must be non-negative"},
		)
	}
	if kind != CreditPoints && kind != CreditXP {
		return User{}, core.NewValidationError(errors.New("unknown credit kind: " + string(kind)))
	}
	if amount == 0 {
		return svc.repo.GetUserByID(ctx, userID)
	}
	return svc.repo.IncrementUserCounter(ctx, userID, amount, kind)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.SetUserLastLogin(ctx, usr)
}

func (svc *Service) sendWelcomeEmail(usr User) {
	if svc.mailSvc == nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to %s! Complete tasks and quizzes to earn points, "+
			"level up and climb the leaderboard.\n\nHappy planet-saving!",
		usr.Name, svc.conf.AppName,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome aboard",
		Body:    body,
	})
}
