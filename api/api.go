package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/authorid/authorid/pkg/eventstream/nop"
	"github.com/authorid/authorid/pkg/storage"
	"github.com/authorid/authorid/pkg/upload"
)

const (
	sessionCookie = "authorid_session"

	// rememberFor is how long a session lives when the user asked to be
	// remembered; otherwise sessions end after sessionFor.
	rememberFor = 30 * 24 * time.Hour
	sessionFor  = 24 * time.Hour

	// multipart framing on top of the largest accepted image
	bodyOverhead = 1 << 20
)

// Server is the API server for managing samples and identifying authors
type Server struct {
	config   Config
	driver   storage.Driver
	logger   *slog.Logger
	app      *fiber.App
	sessions *session.Store
}

// NewServer creates a new API server.
// The driver is injected so the caller owns its lifecycle.
func NewServer(config Config, driver storage.Driver, logger *slog.Logger) (*Server, error) {
	if driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if config.Fingerprinter == nil {
		return nil, errors.New("fingerprinter is required")
	}
	if config.Images == nil {
		return nil, errors.New("image store is required")
	}
	if err := validateSecretKey(config.SecretKey); err != nil {
		return nil, err
	}
	if config.Publisher == nil {
		config.Publisher = nop.NewPublisher()
	}

	s := &Server{
		config: config,
		driver: driver,
		logger: logger,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             upload.MaxBytes + bodyOverhead,
		ErrorHandler:          s.handleFiberError,
	})

	s.sessions = session.New(session.Config{
		Expiration:     rememberFor,
		KeyLookup:      "cookie:" + sessionCookie,
		CookieHTTPOnly: true,
		CookieSecure:   config.SecureCookies,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})

	s.app.Use(encryptcookie.New(encryptcookie.Config{
		Key: config.SecretKey,
	}))

	s.app.Get("/ping", s.handlePing)

	users := s.app.Group("/users")
	users.Post("/new", s.handleCreateUser)
	users.Post("/login", s.handleLogin)
	users.Post("/logout", s.requireUser, s.handleLogout)
	users.Get("/logout", s.requireUser, s.handleLogout)
	users.Get("/me", s.requireUser, s.handleMe)

	eval := s.app.Group("/eval", s.requireUser)
	eval.Post("/new", s.handleCreateSample)
	eval.Get("/samples", s.handleListSamples)
	eval.Get("/samples/:id", s.handleGetSample)
	eval.Get("/samples/:id/image", s.handleGetSampleImage)
	eval.Delete("/samples/:id", s.handleDeleteSample)
	eval.Post("/query", s.handleQuery)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func validateSecretKey(key string) error {
	if key == "" {
		return errors.New("secret key is required")
	}

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return fmt.Errorf("secret key is not valid base64: %w", err)
	}

	switch len(raw) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("secret key must decode to 16, 24 or 32 bytes, got %d", len(raw))
	}
}
