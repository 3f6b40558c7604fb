package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mesa-system/internal/database/models"
)

// ResolveUnitPrice computes the unit price for one line. Rule order: an
// item-size override wins outright; dual-priced items sell at the solo
// price (the whole portion is its own selectable size entry, never
// auto-picked); otherwise the base price applies.
func ResolveUnitPrice(item models.Item, override *models.ItemSize) (decimal.Decimal, error) {
	if override != nil {
		if override.ItemID != item.ID {
			return decimal.Zero, fmt.Errorf("%w: size %d has no price override for item %d",
				ErrInvalidPricing, override.SizeID, item.ID)
		}
		price, err := decimal.NewFromString(override.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: malformed size price %q", ErrInvalidPricing, override.Price)
		}
		return price, nil
	}

	if item.PricingMode == models.PricingModeDual {
		if item.PriceSolo == nil || item.PriceWhole == nil {
			return decimal.Zero, fmt.Errorf("%w: dual-priced item %d is missing solo/whole prices",
				ErrInvalidPricing, item.ID)
		}
		price, err := decimal.NewFromString(*item.PriceSolo)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: malformed solo price %q", ErrInvalidPricing, *item.PriceSolo)
		}
		return price, nil
	}

	price, err := decimal.NewFromString(item.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed item price %q", ErrInvalidPricing, item.Price)
	}
	return price, nil
}
