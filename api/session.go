package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
)

const (
	sessionUserKey = "user_id"
	localsUserKey  = "user"
)

// startSession logs user in on a fresh session id.
func (s *Server) startSession(c *fiber.Ctx, user *sample.User, remember bool) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}

	if err := sess.Regenerate(); err != nil {
		return err
	}

	sess.Set(sessionUserKey, user.ID)
	if !remember {
		sess.SetExpiry(sessionFor)
	}

	return sess.Save()
}

// requireUser resolves the session's user into the request locals and
// rejects anonymous requests with 401.
func (s *Server) requireUser(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return s.writeError(c, err)
	}

	id, ok := sess.Get(sessionUserKey).(string)
	if !ok || id == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: msgLoginRequired})
	}

	user, err := s.driver.GetUser(c.Context(), id)
	if storage.IsNotFound(err) {
		if err := sess.Destroy(); err != nil {
			s.logger.Warn("failed to destroy stale session", "error", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: msgLoginRequired})
	}
	if err != nil {
		return s.writeError(c, err)
	}

	c.Locals(localsUserKey, user)
	return c.Next()
}

// currentUser returns the user set by requireUser.
func currentUser(c *fiber.Ctx) *sample.User {
	user, _ := c.Locals(localsUserKey).(*sample.User)
	return user
}
