package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RequiredFields is the canonical, ordered field schema every exported line
// item must expose. Fields the model omits are materialized as empty strings.
var RequiredFields = []string{
	"Description of Goods",
	"HSN/SAC",
	"Batch No",
	"Mfg Date",
	"Expiry Date",
	"MRP",
	"QTY",
	"UOM",
	"Rate",
	"Discount%",
	"Discount Value",
	"Taxable Value",
	"IGST Rate",
	"IGST Amount",
	"Total",
}

// Derived rate field names
const (
	FieldRate  = "Rate"
	FieldTotal = "Total"
	FieldPRate = "P Rate"
	FieldBRate = "B Rate"
)

var (
	pRateMultiplier = decimal.RequireFromString("1.06")
	bRateMultiplier = decimal.RequireFromString("1.11")
)

// CompleteSchema returns a copy of the line item with every required field
// present, missing fields added with empty values in the canonical order.
// Fields outside the required set pass through unchanged.
func CompleteSchema(item LineItem) LineItem {
	out := item.Clone()
	for _, field := range RequiredFields {
		if _, ok := out.Get(field); !ok {
			out.Set(field, "")
		}
	}
	return out
}

// AddDerivedRates returns a copy of the line item with "P Rate" inserted
// immediately after "Rate" and "B Rate" immediately after "Total". When the
// rate does not parse as a decimal number both derived fields are empty.
func AddDerivedRates(item LineItem) LineItem {
	rate, _ := item.Get(FieldRate)
	pRate, bRate := deriveRates(rate)

	out := item.Clone()
	out.InsertAfter(FieldRate, FieldPRate, pRate)
	out.InsertAfter(FieldTotal, FieldBRate, bRate)
	return out
}

// deriveRates computes the two derived pricing columns from the base rate.
// B Rate is computed from the realized (rounded) P Rate, not the raw product.
func deriveRates(rate string) (string, string) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(rate), ",", "")
	if cleaned == "" {
		return "", ""
	}
	base, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "", ""
	}
	pRate := base.Mul(pRateMultiplier).Round(2)
	bRate := pRate.Mul(bRateMultiplier).Round(2)
	return pRate.StringFixed(2), bRate.StringFixed(2)
}

// Normalize applies schema completion followed by derived-rate computation
// to every line item, returning a new slice in the same order.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, AddDerivedRates(CompleteSchema(item)))
	}
	return out
}
