package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-system/internal/database/models"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCalculateDiscount_None(t *testing.T) {
	amount, err := CalculateDiscount(dec("500.00"), models.DiscountTypeNone, dec("99.99"))
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestCalculateDiscount_Percentage(t *testing.T) {
	amount, err := CalculateDiscount(dec("480.00"), models.DiscountTypePercentage, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, "48.00", amount.StringFixed(2))
}

func TestCalculateDiscount_PercentageRoundsHalfUp(t *testing.T) {
	// 12.5% of 100.20 = 12.525, half up -> 12.53
	amount, err := CalculateDiscount(dec("100.20"), models.DiscountTypePercentage, dec("12.5"))
	require.NoError(t, err)
	assert.Equal(t, "12.53", amount.StringFixed(2))
}

func TestCalculateDiscount_FixedClampedToSubtotal(t *testing.T) {
	amount, err := CalculateDiscount(dec("50.00"), models.DiscountTypeFixed, dec("75.00"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", amount.StringFixed(2))
}

func TestCalculateDiscount_NegativeValueRejected(t *testing.T) {
	for _, discountType := range []string{models.DiscountTypePercentage, models.DiscountTypeFixed} {
		_, err := CalculateDiscount(dec("100.00"), discountType, dec("-1"))
		assert.ErrorIs(t, err, ErrInvalidDiscount)
	}
}

func TestCalculateDiscount_PercentageAboveHundredRejected(t *testing.T) {
	_, err := CalculateDiscount(dec("100.00"), models.DiscountTypePercentage, dec("101"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestCalculateDiscount_UnknownTypeRejected(t *testing.T) {
	_, err := CalculateDiscount(dec("100.00"), "bogo", dec("1"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}
