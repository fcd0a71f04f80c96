package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/imagestore"
	"github.com/authorid/authorid/pkg/rank"
	"github.com/authorid/authorid/pkg/storage"
	"github.com/authorid/authorid/pkg/upload"
)

// Messages returned to clients.
const (
	msgRequiredField     = "Required field"
	msgInvalidEmail      = "Invalid email"
	msgPasswordsMismatch = "Passwords don't match!"
	msgEmailRegistered   = "Email already registered!"
	msgEmailUnknown      = "Email not registered!"
	msgIncorrectPassword = "Incorrect password!"

	msgInvalidForm       = "invalid form"
	msgLoginRequired     = "login required"
	msgModelUnavailable  = "The ID model returned an invalid response! Could not process image."
	msgDimensionMismatch = "stored samples do not match the model's fingerprint size"
	msgImageRequired     = "an image attachment is required"
	msgImageTooLarge     = "image is too large"
	msgImageUnsupported  = "unsupported image format"
	msgNotFound          = "not found"
	msgInternal          = "internal server error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`

	// Fields maps form field names to their validation message.
	Fields map[string]string `json:"fields,omitempty"`
}

// fieldErrors collects per-field validation messages, first message wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func invalidForm(c *fiber.Ctx, fields fieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:  msgInvalidForm,
		Fields: fields,
	})
}

// writeError translates err into a status code and message. Faults are
// scoped to the request; only unexpected errors are logged.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status, msg := fiber.StatusInternalServerError, msgInternal

	switch {
	case errors.Is(err, fingerprint.ErrUnavailable):
		status, msg = fiber.StatusBadGateway, msgModelUnavailable
		s.logger.Warn("fingerprint unavailable",
			"path", c.Path(),
			"error", err,
		)
	case errors.Is(err, rank.ErrDimensionMismatch):
		status, msg = fiber.StatusConflict, msgDimensionMismatch
		s.logger.Warn("fingerprint dimension mismatch",
			"path", c.Path(),
			"error", err,
		)
	case errors.Is(err, upload.ErrEmpty):
		status, msg = fiber.StatusBadRequest, msgImageRequired
	case errors.Is(err, upload.ErrTooLarge):
		status, msg = fiber.StatusRequestEntityTooLarge, msgImageTooLarge
	case errors.Is(err, upload.ErrUnsupportedFormat):
		status, msg = fiber.StatusUnsupportedMediaType, msgImageUnsupported
	case storage.IsNotFound(err), errors.Is(err, imagestore.ErrNotFound):
		status, msg = fiber.StatusNotFound, msgNotFound
	default:
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// handleFiberError renders errors raised by fiber itself (unknown routes,
// oversized bodies) in the same shape as handler errors.
func (s *Server) handleFiberError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
	}
	return s.writeError(c, err)
}
