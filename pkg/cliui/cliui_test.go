package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("returns the wrapped error and prints a fail mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "fingerprinting", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("fingerprinting"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("prints a success mark for nil errors", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "ok", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds with one decimal otherwise", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("KeyValue", func() {
	It("prints the key and value", func() {
		var buf bytes.Buffer
		cliui.KeyValue(&buf, 12, "api.listen", ":5001")
		Expect(buf.String()).To(ContainSubstring("api.listen"))
		Expect(buf.String()).To(ContainSubstring(":5001"))
	})

	It("marks unset values", func() {
		var buf bytes.Buffer
		cliui.KeyValue(&buf, 12, "log.file", "")
		Expect(buf.String()).To(ContainSubstring("(unset)"))
	})
})
