package vec_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/pkg/vec"
)

var _ = Describe("Distance", func() {
	It("computes the euclidean distance of a 3-4-5 triangle", func() {
		d, err := vec.Distance(vec.Vector{0, 0}, vec.Vector{3, 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(5.0))
	})

	It("is zero for identical vectors", func() {
		v := vec.Vector{0.25, -1.5, 8}
		d, err := vec.Distance(v, v)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())
	})

	It("is symmetric", func() {
		a := vec.Vector{1, 2, 3}
		b := vec.Vector{-4, 0.5, 9}
		ab, err := vec.Distance(a, b)
		Expect(err).NotTo(HaveOccurred())
		ba, err := vec.Distance(b, a)
		Expect(err).NotTo(HaveOccurred())
		Expect(ab).To(Equal(ba))
	})

	It("accepts float32 slices", func() {
		d, err := vec.Distance([]float32{1, 0}, []float32{0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(1.0))
	})

	It("treats two empty vectors as identical", func() {
		d, err := vec.Distance(vec.Vector{}, vec.Vector{})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())
	})

	It("rejects vectors of different lengths", func() {
		_, err := vec.Distance(vec.Vector{1, 2}, vec.Vector{1, 2, 3})
		Expect(err).To(MatchError(vec.ErrDimensionMismatch))
	})
})

var _ = Describe("Magnitude", func() {
	It("returns the L2 norm", func() {
		Expect(vec.Magnitude(vec.Vector{3, 4})).To(Equal(5.0))
	})
})

var _ = Describe("Vector", func() {
	It("reports its dimensions", func() {
		Expect(vec.Vector{1, 2, 3}.Dimensions()).To(Equal(3))
	})

	It("clones without sharing storage", func() {
		v := vec.Vector{1, 2}
		c := v.Clone()
		c[0] = 42
		Expect(v[0]).To(Equal(1.0))
	})

	It("clones nil as nil", func() {
		var v vec.Vector
		Expect(v.Clone()).To(BeNil())
	})
})
