package scanning

import (
	"context"
	"errors"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockEngine is a mock implementation of Engine
type mockEngine struct {
	units []RawText
	err   error
	seen  image.Image
	calls int
}

func (m *mockEngine) RecognizeText(ctx context.Context, img image.Image) ([]RawText, error) {
	m.calls++
	m.seen = img
	if m.err != nil {
		return nil, m.err
	}
	return m.units, nil
}

func (m *mockEngine) Close() error {
	return nil
}

var _ = Describe("Recognizer", func() {
	var (
		engine     *mockEngine
		recognizer *Recognizer
		img        image.Image
		result     *OCRResult
		err        error
	)

	BeforeEach(func() {
		engine = &mockEngine{}
		recognizer = NewRecognizer(engine, DefaultOptions())
		img = image.NewRGBA(image.Rect(0, 0, 800, 1200))
	})

	JustBeforeEach(func() {
		result, err = recognizer.Recognize(context.Background(), img)
	})

	When("the engine finds confident text", func() {
		BeforeEach(func() {
			engine.units = []RawText{
				{Text: "星巴克", Confidence: 0.95},
				{Text: "¥25.80", Confidence: 0.9},
				{Text: "微信支付", Confidence: 0.85},
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("classifies every block", func() {
			Expect(result.Blocks).To(HaveLen(3))
			Expect(result.Blocks[0].Type).To(Equal(BlockMerchant))
			Expect(result.Blocks[1].Type).To(Equal(BlockAmount))
			Expect(result.Blocks[2].Type).To(Equal(BlockHeader))
		})

		It("averages the block confidences", func() {
			Expect(result.OverallConfidence).To(BeNumerically("~", 0.9, 1e-9))
		})

		It("reports the processed image size", func() {
			Expect(result.ImageSize).To(Equal(image.Pt(800, 1200)))
		})

		It("joins the text for downstream use", func() {
			Expect(result.RawText()).To(Equal("星巴克\n¥25.80\n微信支付"))
		})
	})

	When("some units are below the per-block threshold", func() {
		BeforeEach(func() {
			engine.units = []RawText{
				{Text: "¥25.80", Confidence: 0.9},
				{Text: "smudge", Confidence: 0.1},
			}
		})

		It("drops them and excludes them from the mean", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Blocks).To(HaveLen(1))
			Expect(result.OverallConfidence).To(BeNumerically("~", 0.9, 1e-9))
		})
	})

	When("every unit is below the per-block threshold", func() {
		BeforeEach(func() {
			engine.units = []RawText{{Text: "blur", Confidence: 0.05}}
		})

		It("fails with ErrNoTextFound", func() {
			Expect(err).To(MatchError(ErrNoTextFound))
		})
	})

	When("the engine finds nothing", func() {
		It("fails with ErrNoTextFound", func() {
			Expect(err).To(MatchError(ErrNoTextFound))
		})
	})

	When("the surviving units are weak on average", func() {
		BeforeEach(func() {
			engine.units = []RawText{
				{Text: "¥25.80", Confidence: 0.4},
				{Text: "星巴克", Confidence: 0.35},
			}
		})

		It("fails with ErrLowConfidence", func() {
			Expect(errors.Is(err, ErrLowConfidence)).To(BeTrue())
		})
	})

	When("the engine fails", func() {
		BeforeEach(func() {
			engine.err = ErrEngineOffline
		})

		It("wraps the engine error", func() {
			Expect(errors.Is(err, ErrEngineOffline)).To(BeTrue())
		})
	})

	When("preprocessing cannot handle the image", func() {
		BeforeEach(func() {
			img = image.NewRGBA(image.Rect(0, 0, 0, 0))
			engine.units = []RawText{{Text: "¥1.00", Confidence: 0.9}}
		})

		It("falls back to the original image", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.seen).To(BeIdenticalTo(img))
		})
	})
})
