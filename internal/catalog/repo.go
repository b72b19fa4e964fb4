package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/ariefcatur/fitmeal/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MealRepo struct{ DB *pgxpool.Pool }

const mealColumns = `id, name, description, price_cents, calories, is_vegan, created_at`

func (r *MealRepo) ListMeals(ctx context.Context) ([]Meal, error) {
	return r.query(ctx, `SELECT `+mealColumns+` FROM meals ORDER BY created_at DESC, id`)
}

func (r *MealRepo) ListMealsByPrice(ctx context.Context) ([]Meal, error) {
	return r.query(ctx, `SELECT `+mealColumns+` FROM meals ORDER BY price_cents ASC NULLS LAST, created_at, id`)
}

func (r *MealRepo) query(ctx context.Context, sql string, args ...any) ([]Meal, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MealRepo) GetMeal(ctx context.Context, id string) (Meal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Meal{}, ErrNotFound
	}
	m, err := scanMeal(r.DB.QueryRow(ctx, `SELECT `+mealColumns+` FROM meals WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Meal{}, ErrNotFound
	}
	return m, err
}

func (r *MealRepo) InsertMeal(ctx context.Context, m Meal) error {
	var price *int64
	if m.Price != nil {
		c := m.Price.Cents()
		price = &c
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO meals(id, name, description, price_cents, calories, is_vegan, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Name, m.Description, price, m.Calories, m.IsVegan, m.CreatedAt,
	)
	return err
}

func (r *MealRepo) UpdateMealPrice(ctx context.Context, id string, price *money.Money) (Meal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Meal{}, ErrNotFound
	}
	var cents *int64
	if price != nil {
		c := price.Cents()
		cents = &c
	}
	m, err := scanMeal(r.DB.QueryRow(ctx, `UPDATE meals SET price_cents=$2 WHERE id=$1 RETURNING `+mealColumns, id, cents))
	if errors.Is(err, pgx.ErrNoRows) {
		return Meal{}, ErrNotFound
	}
	return m, err
}

func (r *MealRepo) DeleteMeal(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM meals WHERE id=$1`, id)
	if err != nil {
		if postgres.HasCode(err, postgres.CodeForeignKeyViolation) {
			return fmt.Errorf("%w: %s", ErrInUse, id)
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMeal(row pgx.Row) (Meal, error) {
	var (
		m     Meal
		price *int64
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &price, &m.Calories, &m.IsVegan, &m.CreatedAt); err != nil {
		return Meal{}, err
	}
	if price != nil {
		p := money.FromCents(*price)
		m.Price = &p
	}
	return m, nil
}
