package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/pkg/eventstream"
	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/vec"
)

// createSample uploads a labelled image and returns the response.
func createSample(env *testEnv, cookies []*http.Cookie, label string, image []byte) *http.Response {
	return env.do(multipartRequest("/eval/new", map[string]string{"name": label}, "author.png", image), cookies)
}

func mustCreateSample(env *testEnv, cookies []*http.Cookie, label string, image []byte) *sample.LabelledSample {
	resp := createSample(env, cookies, label, image)
	Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
	s := decodeBody[sample.LabelledSample](resp)
	return &s
}

func request(env *testEnv, method, path string, cookies []*http.Cookie) *http.Response {
	req, err := http.NewRequest(method, path, nil)
	Expect(err).NotTo(HaveOccurred())
	return env.do(req, cookies)
}

var _ = Describe("handleCreateSample", func() {
	var (
		env     *testEnv
		cookies []*http.Cookie
	)

	BeforeEach(func() {
		env = newTestEnv()
		cookies = env.register("samples@example.com")
	})

	It("fingerprints and stores a labelled sample", func() {
		img := pngBytes(10)
		env.model.Fingerprints[string(img)] = vec.Vector{1, 2, 3, 4}

		created := mustCreateSample(env, cookies, "Doobs", img)
		Expect(created.Label).To(Equal("Doobs"))
		Expect(created.Filename).To(Equal("author.png"))
		Expect(created.ContentType).To(Equal("image/png"))

		me := decodeBody[sample.User](getMe(env, cookies))
		stored, err := env.driver.GetSample(context.Background(), me.ID, created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Fingerprint).To(Equal(vec.Vector{1, 2, 3, 4}))
		Expect(env.images.Len()).To(Equal(1))
		Expect(env.model.Filenames).To(Equal([]string{"author.png"}))

		events := env.events.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].EventType).To(Equal(eventstream.EventTypeSampleCreated))
		Expect(events[0].SampleID).To(Equal(created.ID))
		Expect(events[0].Dimensions).To(Equal(4))
	})

	It("requires a label and an attachment", func() {
		resp := env.do(multipartRequest("/eval/new", nil, "", nil), cookies)
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

		fields := decodeBody[ErrorResponse](resp).Fields
		Expect(fields).To(HaveKeyWithValue("name", "Required field"))
		Expect(fields).To(HaveKeyWithValue("attachment", "Required field"))
		Expect(env.model.Calls).To(BeZero())
	})

	It("rejects files that are not images", func() {
		resp := createSample(env, cookies, "Doobs", []byte("plain text"))
		Expect(resp.StatusCode).To(Equal(fiber.StatusUnsupportedMediaType))
		Expect(env.model.Calls).To(BeZero())
	})

	It("stores nothing when the model is unavailable", func() {
		img := pngBytes(20)
		env.model.FailOn = img

		resp := createSample(env, cookies, "Doobs", img)
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
		Expect(decodeBody[ErrorResponse](resp).Error).To(Equal(
			"The ID model returned an invalid response! Could not process image.",
		))
		Expect(env.images.Len()).To(BeZero())
		Expect(env.events.Events()).To(BeEmpty())
	})

	It("rejects a fingerprint whose size differs from stored samples", func() {
		first, second := pngBytes(30), pngBytes(31)
		env.model.Fingerprints[string(first)] = vec.Vector{1, 2, 3}
		env.model.Fingerprints[string(second)] = vec.Vector{1, 2}

		mustCreateSample(env, cookies, "A", first)

		resp := createSample(env, cookies, "B", second)
		Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
		Expect(env.images.Len()).To(Equal(1))
	})

	It("succeeds even when publishing fails", func() {
		env.events.err = errors.New("broker down")

		resp := createSample(env, cookies, "Doobs", pngBytes(40))
		Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
	})

	It("requires a session", func() {
		resp := createSample(env, nil, "Doobs", pngBytes(50))
		Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		Expect(env.model.Calls).To(BeZero())
	})
})

var _ = Describe("sample listing and retrieval", func() {
	var (
		env     *testEnv
		cookies []*http.Cookie
		a, b    *sample.LabelledSample
	)

	BeforeEach(func() {
		env = newTestEnv()
		cookies = env.register("list@example.com")
		a = mustCreateSample(env, cookies, "Amir", pngBytes(1))
		b = mustCreateSample(env, cookies, "Rodrigo", pngBytes(2))
	})

	It("lists samples in insertion order", func() {
		resp := request(env, http.MethodGet, "/eval/samples", cookies)
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body := decodeBody[SamplesResponse](resp)
		Expect(body.Count).To(Equal(2))
		Expect(body.Samples[0].ID).To(Equal(a.ID))
		Expect(body.Samples[1].ID).To(Equal(b.ID))
	})

	It("returns a single sample", func() {
		resp := request(env, http.MethodGet, "/eval/samples/"+b.ID, cookies)
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(decodeBody[sample.LabelledSample](resp).Label).To(Equal("Rodrigo"))
	})

	It("serves the stored image", func() {
		resp := request(env, http.MethodGet, "/eval/samples/"+a.ID+"/image", cookies)
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
		Expect(readBody(resp)).To(Equal(pngBytes(1)))
	})

	It("hides samples from other users", func() {
		other := env.register("other@example.com")

		Expect(request(env, http.MethodGet, "/eval/samples/"+a.ID, other).StatusCode).To(Equal(fiber.StatusNotFound))
		Expect(request(env, http.MethodGet, "/eval/samples/"+a.ID+"/image", other).StatusCode).To(Equal(fiber.StatusNotFound))
		Expect(request(env, http.MethodDelete, "/eval/samples/"+a.ID, other).StatusCode).To(Equal(fiber.StatusNotFound))

		list := decodeBody[SamplesResponse](request(env, http.MethodGet, "/eval/samples", other))
		Expect(list.Samples).To(BeEmpty())
	})

	It("deletes a sample with its image", func() {
		resp := request(env, http.MethodDelete, "/eval/samples/"+a.ID, cookies)
		Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

		Expect(env.images.Len()).To(Equal(1))
		Expect(request(env, http.MethodGet, "/eval/samples/"+a.ID, cookies).StatusCode).To(Equal(fiber.StatusNotFound))
		Expect(request(env, http.MethodDelete, "/eval/samples/"+a.ID, cookies).StatusCode).To(Equal(fiber.StatusNotFound))

		events := env.events.Events()
		Expect(events).To(HaveLen(3))
		Expect(events[2].EventType).To(Equal(eventstream.EventTypeSampleDeleted))
		Expect(events[2].SampleID).To(Equal(a.ID))

		list := decodeBody[SamplesResponse](request(env, http.MethodGet, "/eval/samples", cookies))
		Expect(list.Count).To(Equal(1))
		Expect(list.Samples[0].ID).To(Equal(b.ID))
	})
})
