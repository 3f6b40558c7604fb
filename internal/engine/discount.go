package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mesa-system/internal/database/models"
)

var oneHundred = decimal.NewFromInt(100)

// CalculateDiscount computes the discount amount for a subtotal. The result
// is clamped to [0, subtotal]: an over-large fixed discount is silently
// capped rather than driving the total negative.
func CalculateDiscount(subtotal decimal.Decimal, discountType string, discountValue decimal.Decimal) (decimal.Decimal, error) {
	if discountValue.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: discount value %s is negative", ErrInvalidDiscount, discountValue)
	}

	var amount decimal.Decimal
	switch discountType {
	case models.DiscountTypeNone:
		return decimal.Zero, nil
	case models.DiscountTypePercentage:
		if discountValue.GreaterThan(oneHundred) {
			return decimal.Zero, fmt.Errorf("%w: percentage %s exceeds 100", ErrInvalidDiscount, discountValue)
		}
		amount = subtotal.Mul(discountValue).Div(oneHundred)
	case models.DiscountTypeFixed:
		amount = discountValue
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %q", ErrInvalidDiscount, discountType)
	}

	amount = amount.Round(2)
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount, nil
}
