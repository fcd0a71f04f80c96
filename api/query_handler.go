package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/authorid/authorid/api/identify"
	"github.com/authorid/authorid/pkg/upload"
)

// handleQuery ranks the user's samples by closeness to the uploaded image.
// Query params: distances (bool) includes the raw distances, top_k (int > 0)
// keeps only the closest matches.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	withDistances := false
	if raw := c.Query("distances"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "distances must be a boolean"})
		}
		withDistances = v
	}

	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "top_k must be a positive integer"})
		}
		topK = v
	}

	fh, err := c.FormFile(attachmentField)
	if err != nil {
		return invalidForm(c, fieldErrors{attachmentField: msgRequiredField})
	}

	img, err := upload.FromFileHeader(fh)
	if err != nil {
		return s.writeError(c, err)
	}

	out, err := identify.Identify(
		c.Context(),
		identify.Input{
			UserID:        currentUser(c).ID,
			Image:         img.Data,
			Filename:      img.Filename,
			WithDistances: withDistances,
			TopK:          topK,
		},
		s.config.Fingerprinter,
		s.driver,
		s.logger,
	)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(out)
}
