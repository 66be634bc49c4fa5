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
	"github.com/nexora/backend/core/user"
)

const pqUniqueViolation = "23505"

type userRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	Email        string       `db:"email"`
	Role         string       `db:"role"`
	Points       int          `db:"points"`
	XP           int          `db:"xp"`
	Level        int          `db:"level"`
	IsActive     bool         `db:"is_active"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		Points:       r.Points,
		XP:           r.XP,
		Level:        r.Level,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

type badgeRow struct {
	UserID      string    `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	EarnedAt    time.Time `db:"earned_at"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM users WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, len(excludedUsers))
		for i, usr := range excludedUsers {
			ids[i] = usr.ID
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO users (name, email, role, is_active, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`,
		usr.Name, usr.Email, usr.Role, usr.IsActive, usr.PasswordHash,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	created := row.user()
	created.Badges = []user.Badge{}
	return created, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (repo *userRepository) getUser(ctx context.Context, query string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	usr := row.user()
	if err := repo.loadBadges(ctx, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) loadBadges(ctx context.Context, usr *user.User) error {
	var rows []badgeRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT user_id, name, description, earned_at FROM badges
		WHERE user_id = $1 ORDER BY earned_at`, usr.ID,
	)
	if err != nil {
		return errors.Wrap(err, "loading badges")
	}
	usr.Badges = make([]user.Badge, len(rows))
	for i, r := range rows {
		usr.Badges[i] = user.Badge{Name: r.Name, Description: r.Description, EarnedAt: r.EarnedAt}
	}
	return nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM users`
	var where []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, "(name ILIKE "+p+" OR email ILIKE "+p+")")
	}
	if filter.Role != "" {
		where = append(where, "role = "+arg(filter.Role))
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
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.user()
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	var set []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if usr.Name != "" {
		set = append(set, "name = "+arg(usr.Name))
	}
	if usr.Email != "" {
		set = append(set, "email = "+arg(usr.Email))
	}
	if usr.Role != "" {
		set = append(set, "role = "+arg(usr.Role))
	}
	if len(usr.PasswordHash) > 0 {
		set = append(set, "password_hash = "+arg(usr.PasswordHash))
	}
	if isActive != nil {
		set = append(set, "is_active = "+arg(*isActive))
	}
	if len(set) == 0 {
		return repo.GetUserByID(ctx, usr.ID)
	}
	set = append(set, "updated_at = now()")
	query := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = ` + arg(usr.ID) + ` RETURNING *`

	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	updated := row.user()
	if err := repo.loadBadges(ctx, &updated); err != nil {
		return user.User{}, err
	}
	return updated, nil
}

// IncrementUserCounter applies the delta atomically in the database so
// concurrent awards cannot lose updates. An XP increment also refreshes
// the denormalized level column in the same transaction: the increment's
// row lock serializes concurrent credits, so the level written always
// matches the xp it was computed from.
func (repo *userRepository) IncrementUserCounter(ctx context.Context, id string, amount int, kind user.CreditKind) (user.User, error) {
	if kind != user.CreditXP {
		var row userRow
		err := repo.db.GetContext(ctx, &row, `
			UPDATE users SET points = points + $1, updated_at = now() WHERE id = $2
			RETURNING *`, amount, id,
		)
		if err != nil {
			if errors.Cause(err) == sql.ErrNoRows {
				return user.User{}, user.ErrNotFound
			}
			return user.User{}, errors.Wrap(err, "incrementing user counter")
		}
		return row.user(), nil
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "incrementing user counter")
	}
	defer func() { _ = tx.Rollback() }()

	var row userRow
	err = tx.GetContext(ctx, &row, `
		UPDATE users SET xp = xp + $1, updated_at = now() WHERE id = $2
		RETURNING *`, amount, id,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "incrementing user counter")
	}
	if level := user.LevelForXP(row.XP); level != row.Level {
		if err = tx.GetContext(ctx, &row, `
			UPDATE users SET level = $1 WHERE id = $2 RETURNING *`, level, id,
		); err != nil {
			return user.User{}, errors.Wrap(err, "updating user level")
		}
	}
	if err = tx.Commit(); err != nil {
		return user.User{}, errors.Wrap(err, "incrementing user counter")
	}
	return row.user(), nil
}

func (repo *userRepository) SetUserPoints(ctx context.Context, id string, points int) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE users SET points = $1, updated_at = now() WHERE id = $2
		RETURNING *`, points, id,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "setting user points")
	}
	return row.user(), nil
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE users SET last_login = $1 WHERE id = $2
		RETURNING *`, usr.LastLogin, usr.ID,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return row.user(), nil
}
