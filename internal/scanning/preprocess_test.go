package scanning

import (
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("targetSize", func() {
	DescribeTable("fits the image into the dimension band",
		func(w, h, ew, eh int) {
			gw, gh := targetSize(w, h, 640, 2048)
			Expect(gw).To(Equal(ew))
			Expect(gh).To(Equal(eh))
		},
		Entry("already within the band", 1080, 1920, 1080, 1920),
		Entry("longest side above the cap", 4096, 2048, 2048, 1024),
		Entry("shortest side below the floor", 320, 480, 640, 960),
		Entry("floor would break the cap", 300, 2000, 307, 2048),
	)
})

var _ = Describe("preprocess", func() {
	It("rejects an empty image", func() {
		_, err := preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0)), 640, 2048)
		Expect(err).To(MatchError(errEmptyImage))
	})

	It("rejects a nil image", func() {
		_, err := preprocess(nil, 640, 2048)
		Expect(err).To(HaveOccurred())
	})

	It("resizes small images up to the floor", func() {
		out, err := preprocess(image.NewRGBA(image.Rect(0, 0, 100, 200)), 640, 2048)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Bounds().Dx()).To(Equal(640))
		Expect(out.Bounds().Dy()).To(Equal(1280))
	})
})
