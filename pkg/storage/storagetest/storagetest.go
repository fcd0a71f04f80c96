// Package storagetest provides a conformance suite every storage.Driver
// implementation runs from its own test package.
package storagetest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
	"github.com/authorid/authorid/pkg/vec"
)

// NewUser creates a user with a unique email so suites can share a database.
func NewUser(name string) *sample.User {
	return sample.NewUser(fmt.Sprintf("%s-%s@example.com", strings.ToLower(name), uuid.NewString()), name, "hash-"+name)
}

// DescribeDriver registers the conformance specs for the driver returned by
// newDriver. newDriver is called before every test; the driver is closed after.
func DescribeDriver(name string, newDriver func(ctx context.Context) storage.Driver) bool {
	return Describe(name+" storage conformance", func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver(ctx)
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		Describe("users", func() {
			It("creates and retrieves a user by id and email", func() {
				u := NewUser("Amir")
				Expect(driver.CreateUser(ctx, u)).To(Succeed())

				byID, err := driver.GetUser(ctx, u.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(byID.Email).To(Equal(u.Email))
				Expect(byID.Name).To(Equal("Amir"))
				Expect(byID.PasswordHash).To(Equal("hash-Amir"))

				byEmail, err := driver.GetUserByEmail(ctx, strings.ToUpper(u.Email))
				Expect(err).NotTo(HaveOccurred())
				Expect(byEmail.ID).To(Equal(u.ID))
			})

			It("rejects a second account for the same email", func() {
				u := NewUser("Rodrigo")
				Expect(driver.CreateUser(ctx, u)).To(Succeed())

				dup := sample.NewUser(strings.ToUpper(u.Email), "Other", "x")
				Expect(driver.CreateUser(ctx, dup)).To(MatchError(storage.ErrEmailTaken))
			})

			It("reports unknown users as not found", func() {
				_, err := driver.GetUser(ctx, uuid.NewString())
				Expect(storage.IsNotFound(err)).To(BeTrue())

				_, err = driver.GetUserByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("samples", func() {
			var owner, other *sample.User

			BeforeEach(func() {
				owner = NewUser("Owner")
				other = NewUser("Other")
				Expect(driver.CreateUser(ctx, owner)).To(Succeed())
				Expect(driver.CreateUser(ctx, other)).To(Succeed())
			})

			It("stores and retrieves a sample with its exact fingerprint", func() {
				fp := vec.Vector{0.1, -2.5, 1e-9, 123456.789}
				s := sample.NewLabelledSample(owner.ID, "Doobs", fp, "author1.png", "image/png")
				Expect(driver.PutSample(ctx, s)).To(Succeed())

				got, err := driver.GetSample(ctx, owner.ID, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Label).To(Equal("Doobs"))
				Expect(got.UserID).To(Equal(owner.ID))
				Expect(got.Fingerprint).To(Equal(fp))
				Expect(got.ImageKey).To(Equal(s.ImageKey))
				Expect(got.Filename).To(Equal("author1.png"))
				Expect(got.ContentType).To(Equal("image/png"))
				Expect(got.CreatedAt).To(BeTemporally("~", s.CreatedAt, time.Second))
			})

			It("refuses samples for unknown users", func() {
				s := sample.NewLabelledSample(uuid.NewString(), "x", vec.Vector{1}, "", "")
				Expect(storage.IsNotFound(driver.PutSample(ctx, s))).To(BeTrue())
			})

			It("lists samples in insertion order", func() {
				var ids []string
				for i := 0; i < 5; i++ {
					s := sample.NewLabelledSample(owner.ID, fmt.Sprintf("author-%d", i), vec.Vector{float64(i)}, "", "")
					Expect(driver.PutSample(ctx, s)).To(Succeed())
					ids = append(ids, s.ID)
				}

				samples, err := driver.ListSamples(ctx, owner.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(samples).To(HaveLen(5))
				for i, s := range samples {
					Expect(s.ID).To(Equal(ids[i]))
					Expect(s.Fingerprint).To(Equal(vec.Vector{float64(i)}))
				}
			})

			It("returns an empty list for a user without samples", func() {
				samples, err := driver.ListSamples(ctx, other.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(samples).NotTo(BeNil())
				Expect(samples).To(BeEmpty())
			})

			It("scopes samples to their owner", func() {
				s := sample.NewLabelledSample(owner.ID, "mine", vec.Vector{1, 2}, "", "")
				Expect(driver.PutSample(ctx, s)).To(Succeed())

				_, err := driver.GetSample(ctx, other.ID, s.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())

				samples, err := driver.ListSamples(ctx, other.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(samples).To(BeEmpty())
			})

			It("hands out snapshots that do not alias stored data", func() {
				s := sample.NewLabelledSample(owner.ID, "snap", vec.Vector{1, 2}, "", "")
				Expect(driver.PutSample(ctx, s)).To(Succeed())

				first, err := driver.ListSamples(ctx, owner.ID)
				Expect(err).NotTo(HaveOccurred())
				first[0].Fingerprint[0] = 99

				second, err := driver.ListSamples(ctx, owner.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(second[0].Fingerprint).To(Equal(vec.Vector{1, 2}))
			})

			It("deletes a sample exactly once", func() {
				s := sample.NewLabelledSample(owner.ID, "gone", vec.Vector{1}, "", "")
				Expect(driver.PutSample(ctx, s)).To(Succeed())

				Expect(driver.DeleteSample(ctx, owner.ID, s.ID)).To(Succeed())

				_, err := driver.GetSample(ctx, owner.ID, s.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())
				Expect(storage.IsNotFound(driver.DeleteSample(ctx, owner.ID, s.ID))).To(BeTrue())
			})

			It("does not delete another user's sample", func() {
				s := sample.NewLabelledSample(owner.ID, "keep", vec.Vector{1}, "", "")
				Expect(driver.PutSample(ctx, s)).To(Succeed())

				Expect(storage.IsNotFound(driver.DeleteSample(ctx, other.ID, s.ID))).To(BeTrue())

				_, err := driver.GetSample(ctx, owner.ID, s.ID)
				Expect(err).NotTo(HaveOccurred())
			})

			It("keeps the remaining order after a delete", func() {
				a := sample.NewLabelledSample(owner.ID, "a", vec.Vector{1}, "", "")
				b := sample.NewLabelledSample(owner.ID, "b", vec.Vector{2}, "", "")
				c := sample.NewLabelledSample(owner.ID, "c", vec.Vector{3}, "", "")
				for _, s := range []*sample.LabelledSample{a, b, c} {
					Expect(driver.PutSample(ctx, s)).To(Succeed())
				}

				Expect(driver.DeleteSample(ctx, owner.ID, b.ID)).To(Succeed())

				samples, err := driver.ListSamples(ctx, owner.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(samples).To(HaveLen(2))
				Expect(samples[0].ID).To(Equal(a.ID))
				Expect(samples[1].ID).To(Equal(c.ID))
			})
		})
	})
}
