package catalog

import (
	"time"

	"github.com/ariefcatur/fitmeal/internal/money"
)

type Meal struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       *money.Money `json:"price"`    // null when never priced
	Calories    *int         `json:"calories"` // null when unknown
	IsVegan     bool         `json:"isVegan"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// PriceOrZero is the price an order line snapshots.
func (m Meal) PriceOrZero() money.Money {
	if m.Price == nil {
		return 0
	}
	return *m.Price
}

// CaloriesOrZero treats unknown calories as zero.
func (m Meal) CaloriesOrZero() int {
	if m.Calories == nil {
		return 0
	}
	return *m.Calories
}

// NewMeal is the admin input for creating a meal.
type NewMeal struct {
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Price       *money.Money `json:"price"`
	Calories    *int         `json:"calories,omitempty"`
	IsVegan     bool         `json:"isVegan"`
}
