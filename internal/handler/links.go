package handler

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/auth"
	"github.com/abdusco/snip/internal/shortener"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type LinkHandler struct {
	links *shortener.Service
}

func NewLinkHandler(links *shortener.Service) *LinkHandler {
	return &LinkHandler{links: links}
}

type CreateLinkRequest struct {
	URL  string `json:"url"`
	Slug string `json:"slug"`
}

type CreateLinkResponse struct {
	ShortURL string `json:"shortUrl"`
}

// LinkResponse uses the field names the web client reads.
type LinkResponse struct {
	ID        string    `json:"_id"`
	Code      string    `json:"short_url"`
	URL       string    `json:"full_url"`
	Owner     string    `json:"user,omitempty"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListLinksResponse struct {
	Message string         `json:"message"`
	URLs    []LinkResponse `json:"urls"`
}

func (h *LinkHandler) CreateLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	var (
		shortURL string
		err      error
	)
	if user, ok := auth.UserFrom(c); ok {
		shortURL, err = h.links.ShortenFor(ctx, req.URL, user.ID, req.Slug)
	} else {
		// custom slugs are for registered users; anonymous ones are ignored
		if req.Slug != "" {
			log.Debug().Str("slug", req.Slug).Msg("ignoring slug from anonymous caller")
		}
		shortURL, err = h.links.Shorten(ctx, req.URL)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, CreateLinkResponse{ShortURL: shortURL})
}

func (h *LinkHandler) ListLinks(c echo.Context) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return internal.ErrNoIdentity
	}

	links, err := h.links.ListFor(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListLinksResponse{
		Message: "all urls fetched successfully",
		URLs:    lo.Map(links, func(link *internal.ShortLink, _ int) LinkResponse { return toLinkResponse(link) }),
	})
}

func (h *LinkHandler) Redirect(c echo.Context) error {
	code := c.Param("code")

	log.Debug().Str("code", code).Msg("redirect request")

	link, err := h.links.Resolve(c.Request().Context(), code)
	if err != nil {
		return err
	}

	log.Info().
		Str("code", code).
		Str("ip", getClientIP(c.Request())).
		Int64("clicks", link.Clicks).
		Msg("redirecting link")

	return c.Redirect(http.StatusFound, link.URL)
}

func toLinkResponse(link *internal.ShortLink) LinkResponse {
	return LinkResponse{
		ID:        link.ID,
		Code:      link.Code,
		URL:       link.URL,
		Owner:     link.OwnerID,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For is "client, proxy1, proxy2"; the first hop is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if ip := net.ParseIP(first); ip != nil {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
