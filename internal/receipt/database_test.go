package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-snap/internal/category"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
	})

	day := func(d int) time.Time {
		return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	}

	Describe("SaveReceipt and GetReceipt", func() {
		It("round-trips a receipt", func() {
			receipt := &Receipt{
				ID:       "r-1",
				Title:    "Coffee",
				Merchant: "星巴克",
				Date:     day(15),
				Amount:   3500,
				Category: category.Food,
			}
			Expect(db.SaveReceipt(receipt)).To(Succeed())

			got, err := db.GetReceipt("r-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Coffee"))
			Expect(got.Merchant).To(Equal("星巴克"))
			Expect(got.Amount).To(Equal(3500))
			Expect(got.Category).To(Equal(category.Food))
			Expect(got.Date.Equal(day(15))).To(BeTrue())
		})

		It("overwrites a receipt with the same ID", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "r-1", Amount: 100})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "r-1", Amount: 200})).To(Succeed())

			got, err := db.GetReceipt("r-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Amount).To(Equal(200))
		})

		It("rejects a receipt without an ID", func() {
			Expect(db.SaveReceipt(&Receipt{})).To(HaveOccurred())
		})

		It("reports a missing receipt", func() {
			_, err := db.GetReceipt("missing")
			Expect(err).To(MatchError(ErrReceiptNotFound))
		})
	})

	Describe("ListReceipts", func() {
		It("returns an empty list for an empty database", func() {
			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(BeEmpty())
		})

		It("returns receipts newest first", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "a", Date: day(10)})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "b", Date: day(20)})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "c", Date: day(15)})).To(Succeed())

			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, 0, len(receipts))
			for _, r := range receipts {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(Equal([]string{"b", "c", "a"}))
		})

		It("breaks date ties by creation time", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "a", Date: day(10), CreatedAt: day(11)})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "b", Date: day(10), CreatedAt: day(12)})).To(Succeed())

			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts[0].ID).To(Equal("b"))
		})
	})

	Describe("DeleteReceipt", func() {
		It("removes the receipt", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "r-1"})).To(Succeed())
			Expect(db.DeleteReceipt("r-1")).To(Succeed())

			_, err := db.GetReceipt("r-1")
			Expect(err).To(MatchError(ErrReceiptNotFound))
		})

		It("reports a missing receipt", func() {
			Expect(db.DeleteReceipt("missing")).To(MatchError(ErrReceiptNotFound))
		})
	})

	It("keeps data across reopen", func() {
		path := filepath.Join(GinkgoT().TempDir(), "reopen.db")
		first, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.SaveReceipt(&Receipt{ID: "r-1", Amount: 42})).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()
		got, err := second.GetReceipt("r-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Amount).To(Equal(42))
	})
})
