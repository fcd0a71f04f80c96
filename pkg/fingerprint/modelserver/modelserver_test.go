package modelserver_test

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/fingerprint/modelserver"
)

// fakeModelServer is a stand-in for the model server. It records the last
// uploaded image and answers with a configurable status and body.
type fakeModelServer struct {
	mu       sync.Mutex
	status   int
	body     string
	delay    time.Duration
	field    string
	received []byte
	filename string
	path     string
}

func (f *fakeModelServer) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/*", func(c *fiber.Ctx) error {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.path = c.Path()

		fh, err := c.FormFile(f.field)
		if err == nil {
			file, err := fh.Open()
			if err == nil {
				f.received, _ = io.ReadAll(file)
				file.Close()
			}
			f.filename = fh.Filename
		} else {
			f.received = nil
			f.filename = ""
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(f.status).SendString(f.body)
	})
	return app
}

var _ = Describe("Client", func() {
	var (
		fake   *fakeModelServer
		server *httptest.Server
		client *modelserver.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeModelServer{
			status: fiber.StatusOK,
			body:   "[0.5, 1.25, -3]",
			field:  modelserver.DefaultField,
		}
		server = httptest.NewServer(adaptor.FiberApp(fake.app()))

		var err error
		client, err = modelserver.NewClient(modelserver.Config{
			BaseURL: server.URL,
			Timeout: 2 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(client.Close()).To(Succeed())
		server.Close()
	})

	Describe("NewClient", func() {
		It("applies defaults to an empty config", func() {
			c, err := modelserver.NewClient(modelserver.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Endpoint()).To(Equal(modelserver.DefaultBaseURL + "/"))
		})

		It("joins a custom path onto the base url", func() {
			c, err := modelserver.NewClient(modelserver.Config{BaseURL: "http://model:9000", Path: "/fingerprint"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Endpoint()).To(Equal("http://model:9000/fingerprint"))
		})
	})

	Describe("Fingerprint", func() {
		It("returns the vector the model server answers with", func() {
			fp, err := client.Fingerprint(ctx, []byte("\x89PNG fake image"))
			Expect(err).NotTo(HaveOccurred())
			Expect([]float64(fp)).To(Equal([]float64{0.5, 1.25, -3}))
		})

		It("uploads the image as the rq_image file field", func() {
			image := []byte("handwriting scan bytes")
			_, err := client.Fingerprint(ctx, image)
			Expect(err).NotTo(HaveOccurred())

			fake.mu.Lock()
			defer fake.mu.Unlock()
			Expect(fake.received).To(Equal(image))
			Expect(fake.path).To(Equal("/"))
		})

		It("sends a placeholder filename when none is known", func() {
			_, err := client.Fingerprint(ctx, []byte("img"))
			Expect(err).NotTo(HaveOccurred())

			fake.mu.Lock()
			defer fake.mu.Unlock()
			Expect(fake.filename).To(Equal(modelserver.DefaultFilename))
		})

		DescribeTable("forwards the upload filename",
			func(filename, want string) {
				fp, err := fingerprint.Of(ctx, client, filename, []byte("img"))
				Expect(err).NotTo(HaveOccurred())
				Expect(fp).To(HaveLen(3))

				fake.mu.Lock()
				defer fake.mu.Unlock()
				Expect(fake.filename).To(Equal(want))
				Expect(fake.received).To(Equal([]byte("img")))
			},
			Entry("plain name", "author1.png", "author1.png"),
			Entry("unix path", "/home/amir/scans/author1.png", "author1.png"),
			Entry("windows path", `C:\scans\author1.png`, "author1.png"),
			Entry("quotes", `my "best" scan.png`, `my "best" scan.png`),
			Entry("empty", "", modelserver.DefaultFilename),
		)

		It("posts to the configured path", func() {
			c, err := modelserver.NewClient(modelserver.Config{BaseURL: server.URL, Path: "/v2/fingerprint"})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Fingerprint(ctx, []byte("img"))
			Expect(err).NotTo(HaveOccurred())

			fake.mu.Lock()
			defer fake.mu.Unlock()
			Expect(fake.path).To(Equal("/v2/fingerprint"))
		})

		It("fails with ErrUnavailable on HTTP 500", func() {
			fake.status = fiber.StatusInternalServerError
			fake.body = `{"error":"model crashed"}`

			fp, err := client.Fingerprint(ctx, []byte("img"))
			Expect(err).To(MatchError(fingerprint.ErrUnavailable))
			Expect(err.Error()).To(ContainSubstring("500"))
			Expect(fp).To(BeNil())
		})

		It("fails with ErrUnavailable on any non-200 status", func() {
			fake.status = fiber.StatusAccepted
			_, err := client.Fingerprint(ctx, []byte("img"))
			Expect(err).To(MatchError(fingerprint.ErrUnavailable))
		})

		DescribeTable("rejects bodies that are not a flat numeric array",
			func(body string) {
				fake.body = body
				fp, err := client.Fingerprint(ctx, []byte("img"))
				Expect(err).To(MatchError(fingerprint.ErrUnavailable))
				Expect(fp).To(BeNil())
			},
			Entry("object", `{"fingerprint":[1,2]}`),
			Entry("string", `"1,2,3"`),
			Entry("null", `null`),
			Entry("empty array", `[]`),
			Entry("null element", `[1, null, 3]`),
			Entry("string element", `[1, "2"]`),
			Entry("nested array", `[[1, 2], [3, 4]]`),
			Entry("trailing data", `[1, 2] [3]`),
			Entry("truncated", `[1, 2`),
			Entry("html error page", `<html>oops</html>`),
		)

		It("fails with ErrUnavailable when the server is unreachable", func() {
			server.Close()
			_, err := client.Fingerprint(ctx, []byte("img"))
			Expect(err).To(MatchError(fingerprint.ErrUnavailable))
		})

		It("fails with ErrUnavailable when the call times out", func() {
			fake.delay = 300 * time.Millisecond
			c, err := modelserver.NewClient(modelserver.Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Fingerprint(ctx, []byte("img"))
			Expect(err).To(MatchError(fingerprint.ErrUnavailable))
		})

		It("fails with ErrUnavailable when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := client.Fingerprint(cancelled, []byte("img"))
			Expect(err).To(MatchError(fingerprint.ErrUnavailable))
		})
	})
})
