package orders

import (
	"fmt"
	"math"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/money"
)

// MaxQuantity bounds a single order line; order_items.quantity is INT.
const MaxQuantity = math.MaxInt32

// PriceItems turns requested lines into order items priced from meals, the
// current catalog rows keyed by id. Line order follows the request. Any id
// missing from meals fails the whole request.
func PriceItems(items []ItemInput, meals map[string]catalog.Meal) ([]OrderItem, money.Money, error) {
	if len(items) == 0 {
		return nil, 0, ErrEmptyOrder
	}
	out := make([]OrderItem, 0, len(items))
	var total money.Money
	for _, it := range items {
		qty, err := quantity(it)
		if err != nil {
			return nil, 0, err
		}
		m, ok := meals[it.MealID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownMeal, it.MealID)
		}
		meal := m
		line := OrderItem{
			MealID:    it.MealID,
			Quantity:  qty,
			UnitPrice: m.PriceOrZero(),
			Meal:      &meal,
		}
		sub, ok := line.UnitPrice.MulChecked(qty)
		if ok {
			total, ok = total.AddChecked(sub)
		}
		if !ok {
			return nil, 0, fmt.Errorf("%w: order total out of range", ErrInvalid)
		}
		out = append(out, line)
	}
	return out, total, nil
}

func quantity(it ItemInput) (int, error) {
	if it.Quantity == nil {
		return 1, nil
	}
	if *it.Quantity < 1 {
		return 0, fmt.Errorf("%w: quantity for meal %s must be at least 1", ErrInvalid, it.MealID)
	}
	if *it.Quantity > MaxQuantity {
		return 0, fmt.Errorf("%w: quantity for meal %s is too large", ErrInvalid, it.MealID)
	}
	return *it.Quantity, nil
}

// MealIDs returns the distinct meal ids referenced by items, in first-seen order.
func MealIDs(items []ItemInput) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it.MealID] {
			seen[it.MealID] = true
			ids = append(ids, it.MealID)
		}
	}
	return ids
}
