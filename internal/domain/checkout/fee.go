package checkout

import "github.com/shopspring/decimal"

// CalculateFee splits a gross amount into the platform's fee and the
// seller's remainder. Both sides are rounded to 2 decimal places
// independently, so fee + sellerAmount equals the rounded gross within one
// minor unit. Pure function, no I/O.
func CalculateFee(gross, rate decimal.Decimal) (fee, sellerAmount decimal.Decimal) {
	fee = gross.Mul(rate).Round(2)
	sellerAmount = gross.Sub(fee).Round(2)
	return fee, sellerAmount
}

// MinorUnits converts a 2dp monetary amount into the provider's smallest
// currency unit (cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}
