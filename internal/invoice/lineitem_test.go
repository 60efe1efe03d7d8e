package invoice

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LineItem", func() {
	Describe("UnmarshalJSON", func() {
		var (
			input string
			item  LineItem
			err   error
		)

		JustBeforeEach(func() {
			item = LineItem{}
			err = json.Unmarshal([]byte(input), &item)
		})

		When("parsing an object with string fields", func() {
			BeforeEach(func() {
				input = `{"Rate": "450.00", "Total": "955.80"}`
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should preserve key order", func() {
				Expect(item.Names()).To(Equal([]string{"Rate", "Total"}))
			})

			It("should expose the values", func() {
				rate, ok := item.Get("Rate")
				Expect(ok).To(BeTrue())
				Expect(rate).To(Equal("450.00"))
			})
		})

		When("parsing an object with keys in a non-alphabetical order", func() {
			BeforeEach(func() {
				input = `{"Total": "1", "Batch No": "2", "Rate": "3"}`
			})

			It("should keep the document order", func() {
				Expect(item.Names()).To(Equal([]string{"Total", "Batch No", "Rate"}))
			})
		})

		When("parsing numeric and null values", func() {
			BeforeEach(func() {
				input = `{"Rate": 450.5, "QTY": 2, "MRP": null, "Verified": true}`
			})

			It("should coerce numbers to strings without losing precision", func() {
				rate, _ := item.Get("Rate")
				Expect(rate).To(Equal("450.5"))
				qty, _ := item.Get("QTY")
				Expect(qty).To(Equal("2"))
			})

			It("should turn null into an empty string", func() {
				mrp, ok := item.Get("MRP")
				Expect(ok).To(BeTrue())
				Expect(mrp).To(Equal(""))
			})

			It("should format booleans", func() {
				verified, _ := item.Get("Verified")
				Expect(verified).To(Equal("true"))
			})
		})

		When("parsing something that is not an object", func() {
			BeforeEach(func() {
				input = `["Rate"]`
			})

			It("should return an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("MarshalJSON", func() {
		It("should emit fields in insertion order", func() {
			item := NewLineItem()
			item.Set("Total", "955.80")
			item.Set("Rate", "450.00")

			data, err := json.Marshal(item)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(`{"Total":"955.80","Rate":"450.00"}`))
		})

		It("should round-trip through Unmarshal preserving order", func() {
			input := `{"Description of Goods":"Widget","Rate":"10.00","Total":"11.80"}`
			var item LineItem
			Expect(json.Unmarshal([]byte(input), &item)).To(Succeed())

			data, err := json.Marshal(item)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(input))
		})
	})

	Describe("InsertAfter", func() {
		var item LineItem

		BeforeEach(func() {
			item = NewLineItem()
			item.Set("Rate", "100.00")
			item.Set("Discount%", "5")
			item.Set("Total", "95.00")
		})

		It("should insert immediately after the anchor", func() {
			item.InsertAfter("Rate", "P Rate", "106.00")
			Expect(item.Names()).To(Equal([]string{"Rate", "P Rate", "Discount%", "Total"}))
		})

		It("should append when the anchor is absent", func() {
			item.InsertAfter("Missing", "P Rate", "106.00")
			Expect(item.Names()).To(Equal([]string{"Rate", "Discount%", "Total", "P Rate"}))
		})

		It("should overwrite in place when the field already exists", func() {
			item.InsertAfter("Rate", "Total", "99.00")
			Expect(item.Names()).To(Equal([]string{"Rate", "Discount%", "Total"}))
			total, _ := item.Get("Total")
			Expect(total).To(Equal("99.00"))
		})
	})

	Describe("Clone", func() {
		It("should return an independent copy", func() {
			item := NewLineItem()
			item.Set("Rate", "100.00")

			clone := item.Clone()
			clone.Set("Rate", "200.00")
			clone.Set("Extra", "x")

			rate, _ := item.Get("Rate")
			Expect(rate).To(Equal("100.00"))
			Expect(item.Len()).To(Equal(1))
			Expect(clone.Len()).To(Equal(2))
		})
	})
})
