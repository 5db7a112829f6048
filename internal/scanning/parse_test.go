package scanning

import (
	"errors"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-snap/internal/retry"
)

var _ = Describe("parseBlocksJSON", func() {
	var (
		input string
		units []RawText
		err   error
	)

	JustBeforeEach(func() {
		units, err = parseBlocksJSON(input)
	})

	When("parsing valid JSON", func() {
		BeforeEach(func() {
			input = `{"blocks": [{"text": "CVS Pharmacy", "confidence": 0.93, "box": {"x": 10, "y": 20, "width": 100, "height": 12}}]}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the text and confidence", func() {
			Expect(units).To(HaveLen(1))
			Expect(units[0].Text).To(Equal("CVS Pharmacy"))
			Expect(units[0].Confidence).To(Equal(0.93))
		})

		It("should convert the box to a rectangle", func() {
			Expect(units[0].Box).To(Equal(image.Rect(10, 20, 110, 32)))
		})
	})

	When("parsing JSON with markdown code blocks", func() {
		BeforeEach(func() {
			input = "```json\n{\"blocks\": [{\"text\": \"¥25.80\", \"confidence\": 0.9}]}\n```"
		})

		It("should parse the blocks", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(units).To(HaveLen(1))
			Expect(units[0].Text).To(Equal("¥25.80"))
		})
	})

	When("confidence is out of range and text is blank", func() {
		BeforeEach(func() {
			input = `{"blocks": [{"text": "a", "confidence": 1.7}, {"text": "  ", "confidence": 0.9}]}`
		})

		It("clamps confidence and skips blank entries", func() {
			Expect(units).To(HaveLen(1))
			Expect(units[0].Confidence).To(Equal(1.0))
		})
	})

	When("parsing an empty block list", func() {
		BeforeEach(func() {
			input = `{"blocks": []}`
		})

		It("returns no units", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(units).To(BeEmpty())
		})
	})

	When("parsing invalid JSON", func() {
		BeforeEach(func() {
			input = `invalid json`
		})

		It("returns a malformed data error", func() {
			Expect(errors.Is(err, retry.ErrMalformedData)).To(BeTrue())
		})
	})

	When("parsing truncated JSON", func() {
		BeforeEach(func() {
			input = `{"blocks": [{"text": "x"} }`
		})

		It("returns a malformed data error", func() {
			Expect(errors.Is(err, retry.ErrMalformedData)).To(BeTrue())
		})
	})
})
