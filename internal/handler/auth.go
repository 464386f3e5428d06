package handler

import (
	"net/http"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/auth"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	auther *auth.Authenticator
}

func NewAuthHandler(auther *auth.Authenticator) *AuthHandler {
	return &AuthHandler{auther: auther}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SessionResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

type MeResponse struct {
	User *UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Signup handles POST /api/user/signup
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	user, token, err := h.auther.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(h.auther.Cookie(token))
	return c.JSON(http.StatusCreated, SessionResponse{
		Message: "user created successfully",
		User:    toUserResponse(user),
		Token:   token,
	})
}

// Login handles POST /api/user/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	user, token, err := h.auther.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(h.auther.Cookie(token))
	return c.JSON(http.StatusOK, SessionResponse{
		Message: "user logged in successfully",
		User:    toUserResponse(user),
		Token:   token,
	})
}

// Logout handles POST /api/user/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.auther.ExpiredCookie())
	return c.JSON(http.StatusOK, MessageResponse{Message: "user logged out successfully"})
}

// Me handles GET /api/user/me. Anonymous callers get a null user.
func (h *AuthHandler) Me(c echo.Context) error {
	var resp MeResponse
	if user, ok := auth.UserFrom(c); ok {
		u := toUserResponse(user)
		resp.User = &u
	}
	return c.JSON(http.StatusOK, resp)
}

func toUserResponse(user *internal.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
