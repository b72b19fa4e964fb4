package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/fitmeal/internal/catalog"
)

type Service struct {
	Profiles Store
	Meals    catalog.Store
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrInvalid
	}
	return s.Profiles.GetProfile(ctx, userID)
}

func (s *Service) Upsert(ctx context.Context, userID string, in ProfileInput) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrInvalid
	}
	if in.CaloriesPerDay != nil && *in.CaloriesPerDay <= 0 {
		return Profile{}, fmt.Errorf("%w: caloriesPerDay must be positive", ErrInvalid)
	}
	return s.Profiles.UpsertProfile(ctx, userID, in)
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalid
	}
	return s.Profiles.DeleteProfile(ctx, userID)
}

// Recommend loads the profile (if any) and the catalog and ranks it.
func (s *Service) Recommend(ctx context.Context, userID string) (Recommendation, error) {
	if userID == "" {
		return Recommendation{}, ErrInvalid
	}
	var profile *Profile
	p, err := s.Profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		profile = &p
	case !errors.Is(err, ErrNotFound):
		return Recommendation{}, err
	}
	meals, err := s.Meals.ListMealsByPrice(ctx)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommend(profile, meals), nil
}
