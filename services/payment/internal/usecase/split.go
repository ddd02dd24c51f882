package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of decimal places money is rounded to
const moneyPlaces = 2

// SplitRates are the tax and commission rates applied to a sale
type SplitRates struct {
	GSTRate        decimal.Decimal
	CommissionRate decimal.Decimal
}

// Validate checks that both rates are fractions and leave the author a share
func (r SplitRates) Validate() error {
	one := decimal.NewFromInt(1)
	if r.GSTRate.IsNegative() || r.GSTRate.GreaterThan(one) {
		return fmt.Errorf("gst rate must be within [0, 1], got %s", r.GSTRate)
	}
	if r.CommissionRate.IsNegative() || r.CommissionRate.GreaterThan(one) {
		return fmt.Errorf("commission rate must be within [0, 1], got %s", r.CommissionRate)
	}
	if r.GSTRate.Add(r.CommissionRate).GreaterThan(one) {
		return fmt.Errorf("gst rate %s plus commission rate %s exceeds 1", r.GSTRate, r.CommissionRate)
	}
	return nil
}

// Split is the breakdown of a gross sale amount
type Split struct {
	GSTAmount          decimal.Decimal
	PlatformCommission decimal.Decimal
	AuthorEarnings     decimal.Decimal
}

// Total returns the sum of all parts, which always equals the gross amount
func (s Split) Total() decimal.Decimal {
	return s.GSTAmount.Add(s.PlatformCommission).Add(s.AuthorEarnings)
}

// ComputeSplit breaks gross into GST, platform commission and author earnings.
// GST and commission are rounded independently; author earnings are the
// remainder so the parts always add up to gross exactly.
func ComputeSplit(gross decimal.Decimal, rates SplitRates) (Split, error) {
	if gross.IsNegative() {
		return Split{}, fmt.Errorf("gross amount must not be negative, got %s", gross)
	}
	if err := rates.Validate(); err != nil {
		return Split{}, err
	}

	gross = gross.Round(moneyPlaces)
	gst := gross.Mul(rates.GSTRate).Round(moneyPlaces)
	commission := gross.Mul(rates.CommissionRate).Round(moneyPlaces)

	return Split{
		GSTAmount:          gst,
		PlatformCommission: commission,
		AuthorEarnings:     gross.Sub(gst).Sub(commission),
	}, nil
}

// ComputeSubscriptionSplit attributes the whole gross to the platform;
// subscription plans have no author.
func ComputeSubscriptionSplit(gross decimal.Decimal) Split {
	return Split{
		GSTAmount:          decimal.Zero,
		PlatformCommission: gross.Round(moneyPlaces),
		AuthorEarnings:     decimal.Zero,
	}
}
