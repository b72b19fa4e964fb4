package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/fitmeal/internal/money"
)

var (
	ErrNotFound = errors.New("meal not found")
	ErrInUse    = errors.New("meal is referenced by an order")
	ErrInvalid  = errors.New("invalid meal")
)

type Store interface {
	// ListMeals returns newest first.
	ListMeals(ctx context.Context) ([]Meal, error)
	// ListMealsByPrice returns cheapest first; unpriced meals last, ties by creation.
	ListMealsByPrice(ctx context.Context) ([]Meal, error)
	GetMeal(ctx context.Context, id string) (Meal, error)
	InsertMeal(ctx context.Context, m Meal) error
	// UpdateMealPrice reprices a meal. Existing order lines keep their snapshot.
	UpdateMealPrice(ctx context.Context, id string, price *money.Money) (Meal, error)
	// DeleteMeal fails with ErrInUse while any order line references the meal.
	DeleteMeal(ctx context.Context, id string) error
}
