package pricing

import (
	"math"

	"github.com/richxcame/carwash-pricing/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ComputeFinalPrice runs the fee stack in its fixed order:
// discount, coupon, loyalty, tax, then the card provider fee.
// Every step rounds half up to whole cents.
func ComputeFinalPrice(in Input) Breakdown {
	path := in.Path
	if path != models.PaymentTypeCash {
		path = models.PaymentTypeCard
	}

	b := Breakdown{
		Path:               path,
		BasePriceCents:     nonNegative(in.BasePriceCents),
		DiscountPercentage: normalizePercentage(in.DiscountPercentage),
		TaxPercentage:      normalizePercentage(in.Adjustments.TaxPercentage),
	}

	// 1. percentage discount
	b.DiscountedCents = roundCents(decimal.NewFromInt(b.BasePriceCents).Mul(one.Sub(b.DiscountPercentage.Div(hundred))))

	// 2. coupon
	b.AfterCouponCents = nonNegative(b.DiscountedCents - nonNegative(in.CouponDiscountCents))
	b.CouponAppliedCents = b.DiscountedCents - b.AfterCouponCents

	// 3. loyalty credit
	b.AfterLoyaltyCents = nonNegative(b.AfterCouponCents - nonNegative(in.LoyaltyCreditCents))
	b.LoyaltyAppliedCents = b.AfterCouponCents - b.AfterLoyaltyCents

	// 4. tax
	b.TaxCents = percentOf(b.AfterLoyaltyCents, b.TaxPercentage)
	b.WithTaxCents = b.AfterLoyaltyCents + b.TaxCents

	// 5. provider fee, card only
	switch path {
	case models.PaymentTypeCard:
		b.FeePercentage = normalizePercentage(in.Adjustments.StripeFeePercentage)
		b.FeeBaseCents = nonNegative(b.WithTaxCents - nonNegative(in.Adjustments.ExtraFeeAmountCents))
		b.FeeCents = percentOf(b.FeeBaseCents, b.FeePercentage)
		b.PayableCents = b.WithTaxCents + b.FeeCents
		b.NetCents = b.AfterLoyaltyCents
	case models.PaymentTypeCash:
		b.FeePercentage = decimal.Zero
		b.PayableCents = b.WithTaxCents
		b.NetCents = RecoverCashNet(b.PayableCents, in.Adjustments.TaxPercentage)
	}

	b.Free = b.PayableCents == 0
	return b
}

// RecoverCashNet treats a cash amount as tax inclusive and returns its pre-tax base
func RecoverCashNet(grossCents int64, taxPercentage *float64) int64 {
	t := normalizePercentage(taxPercentage)
	return roundCents(decimal.NewFromInt(nonNegative(grossCents)).Div(one.Add(t.Div(hundred))))
}

// BackOut inverts the tax and fee steps for a gross amount on the given path.
// Net is the pre-tax base the forward pipeline would have started step 4 from.
func BackOut(grossCents int64, adj PricingAdjustmentConfig, path models.PaymentType) Reversal {
	gross := nonNegative(grossCents)
	r := Reversal{GrossCents: gross, WithTaxCents: gross}

	if path != models.PaymentTypeCash {
		r.WithTaxCents = invertFee(gross, adj)
		r.FeeCents = gross - r.WithTaxCents
	}

	r.NetCents = invertTax(r.WithTaxCents, adj.TaxPercentage)
	r.TaxCents = r.WithTaxCents - r.NetCents
	return r
}

// invertFee solves withTax + round((withTax - extra) × f) = gross for withTax
func invertFee(gross int64, adj PricingAdjustmentConfig) int64 {
	f := normalizePercentage(adj.StripeFeePercentage)
	extra := nonNegative(adj.ExtraFeeAmountCents)
	if f.IsZero() || gross <= extra {
		return gross
	}

	rate := f.Div(hundred)
	estimate := roundCents(decimal.NewFromInt(gross).Add(decimal.NewFromInt(extra).Mul(rate)).Div(one.Add(rate)))
	forward := func(w int64) int64 {
		return w + percentOf(nonNegative(w-extra), f)
	}
	return refine(estimate, gross, forward)
}

// invertTax solves net + round(net × t) = withTax for net
func invertTax(withTax int64, taxPercentage *float64) int64 {
	t := normalizePercentage(taxPercentage)
	if t.IsZero() {
		return withTax
	}
	estimate := RecoverCashNet(withTax, taxPercentage)
	forward := func(n int64) int64 {
		return n + percentOf(n, t)
	}
	return refine(estimate, withTax, forward)
}

// refine prefers a neighbour of estimate that reproduces target exactly
func refine(estimate, target int64, forward func(int64) int64) int64 {
	if forward(estimate) == target {
		return estimate
	}
	for _, c := range []int64{estimate - 1, estimate + 1} {
		if c >= 0 && forward(c) == target {
			return c
		}
	}
	return estimate
}

func percentOf(cents int64, pct decimal.Decimal) int64 {
	return roundCents(decimal.NewFromInt(cents).Mul(pct).Div(hundred))
}

// roundCents rounds half up; amounts here are never negative
func roundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// normalizePercentage maps nil, NaN, infinities and negatives to 0 and caps at 100
func normalizePercentage(p *float64) decimal.Decimal {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) || *p <= 0 {
		return decimal.Zero
	}
	if *p >= 100 {
		return hundred
	}
	return decimal.NewFromFloat(*p)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
