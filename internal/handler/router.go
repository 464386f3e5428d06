package handler

import (
	"net/http"

	"github.com/abdusco/snip/internal/auth"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServerConfig struct {
	Links          *LinkHandler
	Auth           *AuthHandler
	Health         *HealthHandler
	Authenticator  *auth.Authenticator
	AllowedOrigins []string
}

func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zerolog.InfoLevel
			if v.Status >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}
			log.WithLevel(level).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(auth.NewIdentityMiddleware(cfg.Authenticator))

	api := e.Group("/api")
	api.POST("/create", cfg.Links.CreateLink)

	users := api.Group("/user")
	users.POST("/signup", cfg.Auth.Signup)
	users.POST("/login", cfg.Auth.Login)
	users.POST("/logout", cfg.Auth.Logout)
	users.GET("/me", cfg.Auth.Me)

	api.POST("/user-url/urls", cfg.Links.ListLinks, auth.RequireUser)

	e.GET("/health", cfg.Health.Check)

	// Parameterized route (must be last)
	e.GET("/:code", cfg.Links.Redirect)

	return e
}
