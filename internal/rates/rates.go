// Package rates answers tax and shipping quotes from a rate table
// loaded at startup. The table is pure configuration: quoting has no
// side effects and depends only on the shipping country and subtotal.
package rates

import (
	"context"
	"strings"

	"shopfront/internal/model"
)

// ShippingOption is one way to ship an order.
type ShippingOption struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	EstimatedDays int     `json:"estimatedDays"`
}

// CountryRates holds the rates for one country.
type CountryRates struct {
	TaxRate         float64          `json:"taxRate"`
	ShippingOptions []ShippingOption `json:"shippingOptions"`
}

// Table maps countries to their rates. Unknown countries fall back to
// Default.
type Table struct {
	Default   CountryRates            `json:"default"`
	Countries map[string]CountryRates `json:"countries"`
}

// Quote is the tax/shipping answer for one checkout.
type Quote struct {
	TaxRate         float64          `json:"taxRate"`
	ShippingOptions []ShippingOption `json:"shippingOptions"`
}

// Loader loads a rate table from some source (local file or S3).
type Loader interface {
	Load(ctx context.Context, source string) (*Table, error)
}

// Quoter answers tax/shipping quotes.
type Quoter interface {
	Quote(address model.Address, items []model.OrderItem, subtotal float64) Quote
}

type tableQuoter struct {
	table *Table
}

// NewQuoter wraps a loaded table as a Quoter.
func NewQuoter(table *Table) Quoter {
	return &tableQuoter{table: table}
}

// Quote looks up the rates for the address's country.
func (q *tableQuoter) Quote(address model.Address, _ []model.OrderItem, _ float64) Quote {
	country := strings.ToUpper(strings.TrimSpace(address.Country))
	rates, ok := q.table.Countries[country]
	if !ok {
		rates = q.table.Default
	}
	return Quote{
		TaxRate:         rates.TaxRate,
		ShippingOptions: rates.ShippingOptions,
	}
}

// DefaultTable returns the built-in fallback used when no rate file
// is configured.
func DefaultTable() *Table {
	return &Table{
		Default: CountryRates{
			TaxRate: 0.16,
			ShippingOptions: []ShippingOption{
				{Name: "standard", Price: 250, EstimatedDays: 5},
				{Name: "express", Price: 600, EstimatedDays: 2},
			},
		},
		Countries: map[string]CountryRates{},
	}
}
