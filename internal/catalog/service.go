package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Store Store
	Log   *zap.Logger
}

func (s *Service) List(ctx context.Context) ([]Meal, error) {
	return s.Store.ListMeals(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Meal, error) {
	return s.Store.GetMeal(ctx, id)
}

// Create validates the input and stores a new meal. Name and price are required.
func (s *Service) Create(ctx context.Context, in NewMeal) (Meal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Meal{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if in.Price == nil {
		return Meal{}, fmt.Errorf("%w: price is required", ErrInvalid)
	}
	if *in.Price < 0 {
		return Meal{}, fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	if in.Calories != nil && *in.Calories < 0 {
		return Meal{}, fmt.Errorf("%w: calories must not be negative", ErrInvalid)
	}

	m := Meal{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     in.Price,
		Calories:  in.Calories,
		IsVegan:   in.IsVegan,
		CreatedAt: time.Now().UTC(),
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if err := s.Store.InsertMeal(ctx, m); err != nil {
		return Meal{}, err
	}
	s.Log.Info("meal created", zap.String("meal_id", m.ID), zap.String("name", m.Name))
	return m, nil
}

// Reprice sets a new price; nil clears it.
func (s *Service) Reprice(ctx context.Context, id string, price *money.Money) (Meal, error) {
	if price != nil && *price < 0 {
		return Meal{}, fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	m, err := s.Store.UpdateMealPrice(ctx, id, price)
	if err != nil {
		return Meal{}, err
	}
	s.Log.Info("meal repriced", zap.String("meal_id", id), zap.Any("price", m.Price))
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteMeal(ctx, id); err != nil {
		return err
	}
	s.Log.Info("meal deleted", zap.String("meal_id", id))
	return nil
}
