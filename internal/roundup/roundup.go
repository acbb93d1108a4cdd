// Package roundup computes the spare change an investment layer sweeps when
// a transaction is rounded up to the next whole dollar.
package roundup

import "github.com/shopspring/decimal"

// SpareChange returns the round-up amount for a transaction: the difference
// between the amount and the next whole dollar. Whole-dollar amounts and
// non-positive amounts (refunds, credits) round up to zero.
func SpareChange(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	ceiling := amount.Ceil()
	if ceiling.Equal(amount) {
		return decimal.Zero
	}
	return ceiling.Sub(amount)
}

// SpareChangeCents returns the round-up amount in whole cents, the unit the
// mapping record stores.
func SpareChangeCents(amount decimal.Decimal) int64 {
	return SpareChange(amount).Mul(decimal.NewFromInt(100)).IntPart()
}
