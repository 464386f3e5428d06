package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/abdusco/snip/internal"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// LinkStore persists short links. Create fails with internal.ErrSlugExists
// when the code is taken; lookups fail with internal.ErrLinkNotFound.
type LinkStore interface {
	Create(ctx context.Context, link *internal.ShortLink) error
	GetByCode(ctx context.Context, code string) (*internal.ShortLink, error)
	// Increment adds one to the click counter of the link and returns the
	// updated link, as a single atomic operation.
	Increment(ctx context.Context, code string) (*internal.ShortLink, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*internal.ShortLink, error)
}

// UserStore persists accounts. Create fails with internal.ErrEmailExists when
// the email is taken; lookups fail with internal.ErrUserNotFound.
type UserStore interface {
	Create(ctx context.Context, user *internal.User) error
	GetByID(ctx context.Context, id string) (*internal.User, error)
	GetByEmail(ctx context.Context, email string) (*internal.User, error)
}

// isUniqueViolation recognises uniqueness errors from every supported driver.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	if mongo.IsDuplicateKeyError(err) {
		return true
	}

	// libsql reports constraint failures as plain text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
