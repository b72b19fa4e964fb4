package nutrition

import "time"

// Profile is keyed by the external user id, one per user.
type Profile struct {
	UserID         string    `json:"userId"`
	Goal           *string   `json:"goal"`
	CaloriesPerDay *int      `json:"caloriesPerDay"`
	IsVegetarian   bool      `json:"isVegetarian"`
	NoPork         bool      `json:"noPork"`
	LactoseFree    bool      `json:"lactoseFree"`
	Allergies      *string   `json:"allergies"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfileInput is an upsert request. Flags default to false; nil goal,
// calories and allergies keep the stored value.
type ProfileInput struct {
	Goal           *string `json:"goal"`
	CaloriesPerDay *int    `json:"caloriesPerDay"`
	IsVegetarian   *bool   `json:"isVegetarian"`
	NoPork         *bool   `json:"noPork"`
	LactoseFree    *bool   `json:"lactoseFree"`
	Allergies      *string `json:"allergies"`
}

// Apply merges in into p using upsert semantics.
func (in ProfileInput) Apply(p Profile) Profile {
	if in.Goal != nil {
		p.Goal = in.Goal
	}
	if in.CaloriesPerDay != nil {
		p.CaloriesPerDay = in.CaloriesPerDay
	}
	if in.Allergies != nil {
		p.Allergies = in.Allergies
	}
	p.IsVegetarian = in.IsVegetarian != nil && *in.IsVegetarian
	p.NoPork = in.NoPork != nil && *in.NoPork
	p.LactoseFree = in.LactoseFree != nil && *in.LactoseFree
	return p
}
