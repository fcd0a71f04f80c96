package identify_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/api/identify"
	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/logger"
	"github.com/authorid/authorid/pkg/rank"
	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
	"github.com/authorid/authorid/pkg/storage/inmemory"
	testutils "github.com/authorid/authorid/pkg/utils/test"
	"github.com/authorid/authorid/pkg/vec"
)

// failingSamples fails every read so tests can assert storage was not consulted.
type failingSamples struct {
	storage.SampleStore
	reads int
}

func (f *failingSamples) ListSamples(context.Context, string) ([]*sample.LabelledSample, error) {
	f.reads++
	return nil, errors.New("storage offline")
}

var _ = Describe("Identify", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		fp     *testutils.MockFingerprinter
		user   *sample.User
		a, b   *sample.LabelledSample
		c      *sample.LabelledSample
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		fp = testutils.NewMockFingerprinter()
		fp.Fingerprints["query"] = vec.Vector{0, 0}

		user = sample.NewUser("user@example.com", "User", "hash")
		Expect(driver.CreateUser(ctx, user)).To(Succeed())

		a = sample.NewLabelledSample(user.ID, "Alice", vec.Vector{3, 4}, "a.png", "image/png")
		b = sample.NewLabelledSample(user.ID, "Bob", vec.Vector{1, 0}, "b.png", "image/png")
		c = sample.NewLabelledSample(user.ID, "Carol", vec.Vector{0, 2}, "c.png", "image/png")
		for _, s := range []*sample.LabelledSample{a, b, c} {
			Expect(driver.PutSample(ctx, s)).To(Succeed())
		}
	})

	It("ranks the user's samples closest first without distances by default", func() {
		out, err := identify.Identify(ctx, identify.Input{UserID: user.ID, Image: []byte("query")}, fp, driver, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		Expect(out.Count).To(Equal(3))
		Expect(out.Results[0].SampleID).To(Equal(b.ID))
		Expect(out.Results[1].SampleID).To(Equal(c.ID))
		Expect(out.Results[2].SampleID).To(Equal(a.ID))
		Expect(out.Results[0].Label).To(Equal("Bob"))
		for _, m := range out.Results {
			Expect(m.Distance).To(BeNil())
		}
	})

	It("includes distances when asked", func() {
		out, err := identify.Identify(ctx, identify.Input{UserID: user.ID, Image: []byte("query"), WithDistances: true}, fp, driver, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		Expect(*out.Results[0].Distance).To(BeNumerically("~", 1.0, 1e-12))
		Expect(*out.Results[1].Distance).To(BeNumerically("~", 2.0, 1e-12))
		Expect(*out.Results[2].Distance).To(BeNumerically("~", 5.0, 1e-12))
	})

	It("truncates to top_k after ranking", func() {
		out, err := identify.Identify(ctx, identify.Input{UserID: user.ID, Image: []byte("query"), TopK: 1}, fp, driver, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].SampleID).To(Equal(b.ID))
	})

	It("returns an empty result for a user without samples", func() {
		other := sample.NewUser("other@example.com", "Other", "hash")
		Expect(driver.CreateUser(ctx, other)).To(Succeed())

		out, err := identify.Identify(ctx, identify.Input{UserID: other.ID, Image: []byte("query")}, fp, driver, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Count).To(Equal(0))
		Expect(out.Results).NotTo(BeNil())
	})

	It("stops before reading storage when the model is unavailable", func() {
		fp.FailOn = []byte("query")
		samples := &failingSamples{}

		_, err := identify.Identify(ctx, identify.Input{UserID: user.ID, Image: []byte("query")}, fp, samples, logger.Nop())
		Expect(err).To(MatchError(fingerprint.ErrUnavailable))
		Expect(samples.reads).To(BeZero())
	})

	It("reports dimension mismatches", func() {
		fp.Fingerprints["query"] = vec.Vector{0, 0, 0}

		_, err := identify.Identify(ctx, identify.Input{UserID: user.ID, Image: []byte("query")}, fp, driver, logger.Nop())
		Expect(err).To(MatchError(rank.ErrDimensionMismatch))
	})

	It("rejects an empty image without calling the model", func() {
		_, err := identify.Identify(ctx, identify.Input{UserID: user.ID}, fp, driver, logger.Nop())
		Expect(err).To(HaveOccurred())
		Expect(fp.Calls).To(BeZero())
	})
})
