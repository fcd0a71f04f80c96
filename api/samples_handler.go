package api

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/authorid/authorid/pkg/eventstream"
	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/rank"
	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/upload"
)

const attachmentField = "attachment"

// SamplesResponse lists a user's samples in insertion order.
type SamplesResponse struct {
	Samples []*sample.LabelledSample `json:"samples"`
	Count   int                      `json:"count"`
}

// handleCreateSample registers a labelled handwriting sample: the image is
// validated, fingerprinted and stored alongside its label.
func (s *Server) handleCreateSample(c *fiber.Ctx) error {
	user := currentUser(c)
	ctx := c.Context()

	label := strings.TrimSpace(c.FormValue("name"))
	fh, err := c.FormFile(attachmentField)

	errs := fieldErrors{}
	if label == "" {
		errs.add("name", msgRequiredField)
	}
	if err != nil {
		errs.add(attachmentField, msgRequiredField)
	}
	if len(errs) > 0 {
		return invalidForm(c, errs)
	}

	img, err := upload.FromFileHeader(fh)
	if err != nil {
		return s.writeError(c, err)
	}

	fp, err := fingerprint.Of(ctx, s.config.Fingerprinter, img.Filename, img.Data)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.checkDimensions(ctx, user.ID, fp.Dimensions()); err != nil {
		return s.writeError(c, err)
	}

	smp := sample.NewLabelledSample(user.ID, label, fp, img.Filename, img.ContentType)

	if err := s.config.Images.Put(ctx, smp.ImageKey, img.Data, img.ContentType); err != nil {
		return s.writeError(c, fmt.Errorf("storing image for sample %s: %w", smp.ID, err))
	}

	if err := s.driver.PutSample(ctx, smp); err != nil {
		if delErr := s.config.Images.Delete(ctx, smp.ImageKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned image",
				"key", smp.ImageKey,
				"error", delErr,
			)
		}
		return s.writeError(c, err)
	}

	s.logger.Info("sample created",
		"user_id", user.ID,
		"sample_id", smp.ID,
		"dimensions", fp.Dimensions(),
	)
	s.publish(ctx, eventstream.EventTypeSampleCreated, smp)

	return c.Status(fiber.StatusCreated).JSON(smp)
}

// checkDimensions rejects a new fingerprint whose size differs from the
// user's stored samples, so every later query ranks a consistent set.
func (s *Server) checkDimensions(ctx context.Context, userID string, dims int) error {
	stored, err := s.driver.ListSamples(ctx, userID)
	if err != nil {
		return err
	}

	for _, existing := range stored {
		if got := existing.Fingerprint.Dimensions(); got != dims {
			return &rank.DimensionMismatchError{
				ID:   existing.ID,
				Want: dims,
				Got:  got,
			}
		}
	}

	return nil
}

// handleListSamples returns the user's samples in insertion order.
func (s *Server) handleListSamples(c *fiber.Ctx) error {
	samples, err := s.driver.ListSamples(c.Context(), currentUser(c).ID)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(SamplesResponse{
		Samples: samples,
		Count:   len(samples),
	})
}

// handleGetSample returns one of the user's samples.
func (s *Server) handleGetSample(c *fiber.Ctx) error {
	smp, err := s.driver.GetSample(c.Context(), currentUser(c).ID, c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(smp)
}

// handleGetSampleImage sends the stored image of one of the user's samples.
func (s *Server) handleGetSampleImage(c *fiber.Ctx) error {
	ctx := c.Context()

	smp, err := s.driver.GetSample(ctx, currentUser(c).ID, c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	rc, err := s.config.Images.Get(ctx, smp.ImageKey)
	if err != nil {
		return s.writeError(c, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return s.writeError(c, fmt.Errorf("reading image for sample %s: %w", smp.ID, err))
	}

	if smp.ContentType != "" {
		c.Set(fiber.HeaderContentType, smp.ContentType)
	}
	if smp.Filename != "" {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", smp.Filename))
	}

	return c.Send(data)
}

// handleDeleteSample removes one of the user's samples and its image.
func (s *Server) handleDeleteSample(c *fiber.Ctx) error {
	user := currentUser(c)
	ctx := c.Context()

	smp, err := s.driver.GetSample(ctx, user.ID, c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.driver.DeleteSample(ctx, user.ID, smp.ID); err != nil {
		return s.writeError(c, err)
	}

	if err := s.config.Images.Delete(ctx, smp.ImageKey); err != nil {
		s.logger.Warn("failed to delete sample image",
			"sample_id", smp.ID,
			"key", smp.ImageKey,
			"error", err,
		)
	}

	s.publish(ctx, eventstream.EventTypeSampleDeleted, smp)

	return c.SendStatus(fiber.StatusNoContent)
}

// publish emits a sample event. Failures are logged and never fail the request.
func (s *Server) publish(ctx context.Context, eventType string, smp *sample.LabelledSample) {
	event := eventstream.NewSampleEvent(eventType, smp)
	if err := s.config.Publisher.PublishSample(ctx, event); err != nil {
		s.logger.Warn("failed to publish sample event",
			"event_type", eventType,
			"sample_id", smp.ID,
			"error", err,
		)
	}
}
