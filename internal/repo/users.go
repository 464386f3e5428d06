package repo

import (
	"context"
	"fmt"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/db"
	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"
)

const usersTable = "users"

var userColumns = []any{"id", "name", "email", "password_hash", "avatar", "created_at", "updated_at"}

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Avatar       string `db:"avatar"`
	CreatedAt    Date   `db:"created_at"`
	UpdatedAt    Date   `db:"updated_at"`
}

// UsersRepo is the UserStore for SQL backends.
type UsersRepo struct {
	db *goqu.Database
}

func NewUsersRepo(sqlDB *db.SQL) *UsersRepo {
	return &UsersRepo{db: sqlDB.Goqu()}
}

func (r *UsersRepo) Create(ctx context.Context, user *internal.User) error {
	query := r.db.Insert(usersTable).Rows(goqu.Record{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"avatar":        user.Avatar,
		"created_at":    NewDate(user.CreatedAt),
		"updated_at":    NewDate(user.UpdatedAt),
	})

	if _, err := query.Executor().ExecContext(ctx); err != nil {
		if isUniqueViolation(err) {
			return internal.ErrEmailExists
		}
		log.Error().Err(err).Str("email", user.Email).Msg("failed to create user")
		return fmt.Errorf("failed to insert user: %w", err)
	}

	log.Info().Str("id", user.ID).Msg("user created")
	return nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (*internal.User, error) {
	return r.getBy(ctx, goqu.Ex{"id": id})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (*internal.User, error) {
	return r.getBy(ctx, goqu.Ex{"email": email})
}

func (r *UsersRepo) getBy(ctx context.Context, where goqu.Ex) (*internal.User, error) {
	var row userRow
	found, err := r.db.From(usersTable).
		Select(userColumns...).
		Where(where).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if !found {
		return nil, internal.ErrUserNotFound
	}
	return row.toDomain(), nil
}

func (r *userRow) toDomain() *internal.User {
	return &internal.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Avatar:       r.Avatar,
		CreatedAt:    r.CreatedAt.Time(),
		UpdatedAt:    r.UpdatedAt.Time(),
	}
}
