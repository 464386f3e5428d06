// Package shortener allocates short links and resolves them back to their
// destinations.
package shortener

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/repo"
	"github.com/abdusco/snip/internal/shortid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CodeGenerator produces candidate short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// reservedSlugs would shadow routes served at the top level.
var reservedSlugs = map[string]bool{
	"api":    true,
	"health": true,
}

type Service struct {
	links   repo.LinkStore
	gen     CodeGenerator
	baseURL string
}

func NewService(links repo.LinkStore, gen CodeGenerator, baseURL string) *Service {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Service{links: links, gen: gen, baseURL: baseURL}
}

// Shorten creates an anonymous link under a generated code and returns its
// public URL. A code collision is reported as internal.ErrSlugExists; it is
// not retried.
func (s *Service) Shorten(ctx context.Context, destination string) (string, error) {
	return s.create(ctx, destination, "", "")
}

// ShortenFor creates a link owned by ownerID. A non-empty slug is used
// verbatim as the code; otherwise one is generated.
func (s *Service) ShortenFor(ctx context.Context, destination, ownerID, slug string) (string, error) {
	if slug != "" {
		if err := ValidateSlug(slug); err != nil {
			return "", err
		}
	}
	return s.create(ctx, destination, ownerID, slug)
}

func (s *Service) create(ctx context.Context, destination, ownerID, code string) (string, error) {
	destination = strings.TrimSpace(destination)
	if err := ValidateURL(destination); err != nil {
		return "", err
	}

	if code == "" {
		generated, err := s.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code = generated
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}

	now := time.Now().UTC()
	link := &internal.ShortLink{
		ID:        id.String(),
		Code:      code,
		URL:       destination,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// the unique index on code is the only arbiter of collisions
	if err := s.links.Create(ctx, link); err != nil {
		return "", fmt.Errorf("failed to save link: %w", err)
	}

	return s.ShortURL(code), nil
}

// Resolve returns the link for code after counting the visit.
func (s *Service) Resolve(ctx context.Context, code string) (*internal.ShortLink, error) {
	link, err := s.links.Increment(ctx, code)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("code", code).Int64("clicks", link.Clicks).Msg("link resolved")
	return link, nil
}

// ListFor returns the links owned by ownerID, newest first.
func (s *Service) ListFor(ctx context.Context, ownerID string) ([]*internal.ShortLink, error) {
	return s.links.ListByOwner(ctx, ownerID)
}

func (s *Service) ShortURL(code string) string {
	return s.baseURL + code
}

func ValidateURL(raw string) error {
	if raw == "" {
		return internal.ErrMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return internal.ErrInvalidURL
	}
	return nil
}

func ValidateSlug(slug string) error {
	if !shortid.Valid(slug) {
		return internal.Validationf("slug must be 1-%d characters of letters, digits, '-' or '_'", shortid.MaxSlugLength)
	}
	if reservedSlugs[strings.ToLower(slug)] {
		return internal.Validationf("slug %q is reserved", slug)
	}
	return nil
}
