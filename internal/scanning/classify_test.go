package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("classifier", func() {
	var c *classifier

	BeforeEach(func() {
		c = newClassifier(DefaultMerchantNames)
	})

	DescribeTable("assigns block types in rule order",
		func(text string, expected BlockType) {
			Expect(c.classify(RawText{Text: text, Confidence: 0.9}).Type).To(Equal(expected))
		},
		Entry("currency-prefixed amount", "¥25.80", BlockAmount),
		Entry("dollar amount", "$1,234.50", BlockAmount),
		Entry("currency-word amount", "36.5元", BlockAmount),
		Entry("currency code amount", "12.00 USD", BlockAmount),
		Entry("bare currency symbol", "¥", BlockCurrency),
		Entry("bare currency word", "RMB", BlockCurrency),
		Entry("iso date", "2024-01-15", BlockDate),
		Entry("chinese date", "2024年3月8日", BlockDate),
		Entry("us date", "03/08/2024", BlockDate),
		Entry("time", "14:32", BlockTime),
		Entry("time with seconds", "交易时间 09:05:33", BlockTime),
		Entry("known brand", "星巴克", BlockMerchant),
		Entry("business suffix", "全家便利店", BlockMerchant),
		Entry("english business suffix", "Corner Coffee Shop", BlockMerchant),
		Entry("short suffix word is not a merchant", "商店", BlockHeader),
		Entry("short single token", "微信支付", BlockHeader),
		Entry("anything else", "thank you for visiting", BlockGeneral),
	)

	It("keeps the engine's confidence and box", func() {
		block := c.classify(RawText{Text: " ¥3.50 ", Confidence: 0.8})
		Expect(block.Text).To(Equal("¥3.50"))
		Expect(block.Confidence).To(Equal(0.8))
	})

	It("flags amount blocks as potential amounts", func() {
		Expect(c.classify(RawText{Text: "¥25.80"}).IsPotentialAmount).To(BeTrue())
	})

	It("flags keyword-anchored totals as potential amounts", func() {
		block := c.classify(RawText{Text: "合计 25.80"})
		Expect(block.Type).NotTo(Equal(BlockAmount))
		Expect(block.IsPotentialAmount).To(BeTrue())
	})

	It("does not flag keywords without digits", func() {
		Expect(c.classify(RawText{Text: "Total"}).IsPotentialAmount).To(BeFalse())
	})

	It("flags merchant blocks as potential merchants", func() {
		Expect(c.classify(RawText{Text: "星巴克"}).IsPotentialMerchant).To(BeTrue())
		Expect(c.classify(RawText{Text: "微信支付"}).IsPotentialMerchant).To(BeFalse())
	})
})
