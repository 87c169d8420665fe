package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds above a second", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("returns the fail mark for errors", func() {
			Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		})
	})

	Describe("Step", func() {
		It("prints the message and returns the step error", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "loading", func() error { return errors.New("boom") })
			Expect(err).To(MatchError("boom"))
			Expect(buf.String()).To(ContainSubstring("loading"))
		})
	})

	Describe("Truncate", func() {
		It("leaves short strings alone", func() {
			Expect(cliui.Truncate("short", 10)).To(Equal("short"))
		})

		It("cuts long strings with an ellipsis", func() {
			Expect(cliui.Truncate("a very long line", 6)).To(Equal("a ver…"))
		})
	})

	Describe("RenderMarkdown", func() {
		It("renders markdown text", func() {
			out, err := cliui.RenderMarkdown("**cats** purr")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("cats"))
			Expect(out).To(ContainSubstring("purr"))
		})
	})
})
