package invoice

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	// fixtureRun builds a run with one normalized line item
	fixtureRun := func(id string) *Run {
		item := NewLineItem()
		item.Set("Rate", "450.00")
		items := Normalize([]LineItem{item})
		result := &Result{
			Items: items,
			Pages: []PageResult{{Page: 0, Items: items}},
		}
		return NewRun(id, "invoice.pdf", result, items, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	}

	Describe("SaveRun", func() {
		It("should persist the run", func() {
			Expect(db.SaveRun(fixtureRun("run-1"))).To(Succeed())

			saved, err := db.GetRun("run-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Source).To(Equal("invoice.pdf"))
			Expect(saved.Pages).To(Equal(1))
			Expect(saved.Items).To(HaveLen(1))
		})

		It("should round-trip line item field order", func() {
			Expect(db.SaveRun(fixtureRun("run-1"))).To(Succeed())

			saved, err := db.GetRun("run-1")
			Expect(err).NotTo(HaveOccurred())

			names := saved.Items[0].Names()
			Expect(names[0]).To(Equal("Rate"))
			Expect(names[1]).To(Equal("P Rate"))
		})
	})

	Describe("GetRun", func() {
		When("the run does not exist", func() {
			It("should return an error", func() {
				_, err := db.GetRun("missing")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not found"))
			})
		})
	})

	Describe("ListRuns", func() {
		It("should return an empty slice when nothing is stored", func() {
			runs, err := db.ListRuns()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(BeEmpty())
		})

		It("should return every stored run", func() {
			Expect(db.SaveRun(fixtureRun("run-1"))).To(Succeed())
			Expect(db.SaveRun(fixtureRun("run-2"))).To(Succeed())

			runs, err := db.ListRuns()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(2))
		})
	})
})
