package receipt

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage *LocalStorage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "images"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates the base directory", func() {
		Expect(filepath.Join(tmpDir, "images")).To(BeADirectory())
	})

	Describe("Save", func() {
		It("writes the file and returns its name", func() {
			name, err := storage.Save("r-1.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("r-1.png"))
			Expect(filepath.Join(tmpDir, "images", "r-1.png")).To(BeAnExistingFile())
		})

		DescribeTable("rejects names outside the base directory",
			func(name string) {
				_, err := storage.Save(name, []byte("x"))
				Expect(err).To(MatchError(ErrInvalidPath))
			},
			Entry("parent", "../escape.png"),
			Entry("nested", "a/b.png"),
			Entry("empty", ""),
			Entry("dot dot", ".."),
		)
	})

	Describe("Get", func() {
		It("reads a saved file", func() {
			_, err := storage.Save("r-1.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("r-1.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png")))
		})

		It("fails for a missing file", func() {
			_, err := storage.Get("missing.png")
			Expect(err).To(MatchError(ContainSubstring("reading file")))
		})
	})

	Describe("Delete", func() {
		It("removes the file", func() {
			_, err := storage.Save("r-1.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("r-1.png")).To(Succeed())
			_, statErr := os.Stat(filepath.Join(tmpDir, "images", "r-1.png"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("ignores a missing file", func() {
			Expect(storage.Delete("missing.png")).To(Succeed())
		})
	})
})
