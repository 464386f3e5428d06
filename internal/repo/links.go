package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/db"
	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"
)

const linksTable = "short_links"

var linkColumns = []any{"id", "code", "url", "owner_id", "clicks", "created_at", "updated_at"}

type linkRow struct {
	ID        string  `db:"id"`
	Code      string  `db:"code"`
	URL       string  `db:"url"`
	OwnerID   *string `db:"owner_id"`
	Clicks    int64   `db:"clicks"`
	CreatedAt Date    `db:"created_at"`
	UpdatedAt Date    `db:"updated_at"`
}

// LinksRepo is the LinkStore for SQL backends.
type LinksRepo struct {
	db *goqu.Database
}

func NewLinksRepo(sqlDB *db.SQL) *LinksRepo {
	return &LinksRepo{db: sqlDB.Goqu()}
}

func (r *LinksRepo) Create(ctx context.Context, link *internal.ShortLink) error {
	log.Debug().Str("code", link.Code).Str("url", link.URL).Msg("creating link")

	var owner any
	if link.IsOwned() {
		owner = link.OwnerID
	}

	query := r.db.Insert(linksTable).Rows(goqu.Record{
		"id":         link.ID,
		"code":       link.Code,
		"url":        link.URL,
		"owner_id":   owner,
		"clicks":     link.Clicks,
		"created_at": NewDate(link.CreatedAt),
		"updated_at": NewDate(link.UpdatedAt),
	})

	if _, err := query.Executor().ExecContext(ctx); err != nil {
		if isUniqueViolation(err) {
			return internal.ErrSlugExists
		}
		log.Error().Err(err).Str("code", link.Code).Msg("failed to create link")
		return fmt.Errorf("failed to insert link: %w", err)
	}

	log.Info().Str("id", link.ID).Str("code", link.Code).Msg("link created successfully")
	return nil
}

func (r *LinksRepo) GetByCode(ctx context.Context, code string) (*internal.ShortLink, error) {
	log.Debug().Str("code", code).Msg("fetching link by code")

	var row linkRow
	found, err := r.db.From(linksTable).
		Select(linkColumns...).
		Where(goqu.Ex{"code": code}).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch link: %w", err)
	}
	if !found {
		return nil, internal.ErrLinkNotFound
	}

	return row.toDomain(), nil
}

// Increment bumps the counter with a single UPDATE, so concurrent redirects
// never lose a click. The read-back runs in the same transaction.
func (r *LinksRepo) Increment(ctx context.Context, code string) (*internal.ShortLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Update(linksTable).
		Set(goqu.Record{
			"clicks":     goqu.L("clicks + 1"),
			"updated_at": NewDate(time.Now()),
		}).
		Where(goqu.Ex{"code": code}).
		Executor().ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to increment clicks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return nil, internal.ErrLinkNotFound
	}

	var row linkRow
	found, err := tx.From(linksTable).
		Select(linkColumns...).
		Where(goqu.Ex{"code": code}).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch link: %w", err)
	}
	if !found {
		return nil, errors.New("link vanished during increment")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit increment: %w", err)
	}

	return row.toDomain(), nil
}

func (r *LinksRepo) ListByOwner(ctx context.Context, ownerID string) ([]*internal.ShortLink, error) {
	var rows []linkRow
	err := r.db.From(linksTable).
		Select(linkColumns...).
		Where(goqu.Ex{"owner_id": ownerID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	links := make([]*internal.ShortLink, len(rows))
	for i := range rows {
		links[i] = rows[i].toDomain()
	}
	return links, nil
}

func (r *linkRow) toDomain() *internal.ShortLink {
	link := &internal.ShortLink{
		ID:        r.ID,
		Code:      r.Code,
		URL:       r.URL,
		Clicks:    r.Clicks,
		CreatedAt: r.CreatedAt.Time(),
		UpdatedAt: r.UpdatedAt.Time(),
	}
	if r.OwnerID != nil {
		link.OwnerID = *r.OwnerID
	}
	return link
}
