package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdusco/snip/internal/auth"
	"github.com/abdusco/snip/internal/handler"
	"github.com/abdusco/snip/internal/logger"
	"github.com/abdusco/snip/internal/repo"
	"github.com/abdusco/snip/internal/shortener"
	"github.com/abdusco/snip/internal/shortid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type Config struct {
	Host           string
	Port           string
	DatabaseURL    string `json:"-"`
	MongoDatabase  string
	JWTSecret      string `json:"-"`
	AllowedOrigins []string
	AppURL         string
	Env            string
	LogLevel       string
	Debug          bool

	// EphemeralSecret is set when JWTSecret was generated at startup.
	EphemeralSecret bool
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func newConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Host:          cmp.Or(getenv("HOST"), "localhost"),
		Port:          cmp.Or(getenv("PORT"), "3000"),
		DatabaseURL:   cmp.Or(getenv("DATABASE_URL"), "snip.db"),
		MongoDatabase: cmp.Or(getenv("MONGO_DATABASE"), "snip"),
		JWTSecret:     getenv("JWT_SECRET"),
		AppURL:        cmp.Or(getenv("APP_URL"), "http://localhost:3000/"),
		Env:           cmp.Or(getenv("ENV"), "development"),
		LogLevel:      cmp.Or(getenv("LOG_LEVEL"), "info"),
		Debug:         getenv("DEBUG") == "1",
	}

	origins := strings.Split(cmp.Or(getenv("ALLOWED_ORIGINS"), "http://localhost:5173"), ",")
	cfg.AllowedOrigins = lo.Uniq(lo.Compact(lo.Map(origins, func(o string, _ int) string {
		return strings.TrimRight(strings.TrimSpace(o), "/")
	})))

	u, err := url.Parse(cfg.AppURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, fmt.Errorf("APP_URL must be an absolute http(s) url, got %q", cfg.AppURL)
	}
	if !strings.HasSuffix(cfg.AppURL, "/") {
		cfg.AppURL += "/"
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return cfg, errors.New("JWT_SECRET is required in production")
		}
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return cfg, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(secret)
		cfg.EphemeralSecret = true
	}

	return cfg, nil
}

func main() {
	cfg, err := newConfigFromEnv(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration from environment")
	}

	logger.Setup(cfg.LogLevel, cfg.Debug || !cfg.Production())

	if cfg.EphemeralSecret {
		log.Warn().Msg("using an ephemeral JWT_SECRET - sessions will not survive a restart")
	}

	log.Info().
		Interface("config", cfg).
		Msg("current configuration")

	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, cfg Config) error {
	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting application")

	stores, err := repo.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()
	log.Info().Str("backend", string(stores.Kind)).Msg("store ready")

	authenticator := auth.NewAuthenticator(stores.Users, auth.NewTokens(cfg.JWTSecret), cfg.Production())
	links := shortener.NewService(stores.Links, shortid.NewGenerator(shortid.DefaultLength), cfg.AppURL)

	e := handler.NewServer(handler.ServerConfig{
		Links:          handler.NewLinkHandler(links),
		Auth:           handler.NewAuthHandler(authenticator),
		Health:         handler.NewHealthHandler(stores),
		Authenticator:  authenticator,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	defer e.Close()

	return runServer(ctx, e, net.JoinHostPort(cfg.Host, cfg.Port))
}

func runServer(ctx context.Context, e *echo.Echo, addr string) error {
	srvLog := logger.With("address", addr)

	serverErr := make(chan error, 1)
	go func() {
		srvLog.Info().Msg("server starting")
		serverErr <- e.Start(addr)
	}()

	// Wait for context cancellation (Ctrl+C or SIGTERM) or a failed listener
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}

	srvLog.Info().Msg("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		srvLog.Error().Err(err).Msg("error during graceful shutdown")
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		srvLog.Error().Err(err).Msg("server error")
	}

	srvLog.Info().Msg("server stopped")
	return nil
}
