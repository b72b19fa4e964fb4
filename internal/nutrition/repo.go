package nutrition

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct{ DB *pgxpool.Pool }

const profileCols = `user_id, goal, calories_per_day, is_vegetarian, no_pork, lactose_free, allergies, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Goal, &p.CaloriesPerDay, &p.IsVegetarian, &p.NoPork, &p.LactoseFree,
		&p.Allergies, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p, err := scanProfile(r.DB.QueryRow(ctx, `SELECT `+profileCols+` FROM nutrition_profiles WHERE user_id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *ProfileRepo) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (Profile, error) {
	p := in.Apply(Profile{})
	return scanProfile(r.DB.QueryRow(ctx, `
		INSERT INTO nutrition_profiles(user_id, goal, calories_per_day, is_vegetarian, no_pork, lactose_free, allergies)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			goal             = COALESCE(EXCLUDED.goal, nutrition_profiles.goal),
			calories_per_day = COALESCE(EXCLUDED.calories_per_day, nutrition_profiles.calories_per_day),
			allergies        = COALESCE(EXCLUDED.allergies, nutrition_profiles.allergies),
			is_vegetarian    = EXCLUDED.is_vegetarian,
			no_pork          = EXCLUDED.no_pork,
			lactose_free     = EXCLUDED.lactose_free,
			updated_at       = now()
		RETURNING `+profileCols,
		userID, p.Goal, p.CaloriesPerDay, p.IsVegetarian, p.NoPork, p.LactoseFree, p.Allergies,
	))
}

func (r *ProfileRepo) DeleteProfile(ctx context.Context, userID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM nutrition_profiles WHERE user_id=$1`, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
