// Package memstore keeps catalog, order and nutrition state in process
// memory behind one mutex. It honours the same invariants as the postgres
// repositories and backs STORAGE=memory and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/google/uuid"
)

type mealRow struct {
	meal catalog.Meal
	seq  int
}

type orderRow struct {
	order orders.Order // Items without Meal, User nil
	seq   int
}

type Store struct {
	mu       sync.RWMutex
	seq      int
	now      func() time.Time
	meals    map[string]*mealRow
	users    map[string]orders.User // by external id
	orders   map[string]*orderRow
	profiles map[string]nutrition.Profile
	events   map[string]orders.HistoryEntry
}

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		meals:    map[string]*mealRow{},
		users:    map[string]orders.User{},
		orders:   map[string]*orderRow{},
		profiles: map[string]nutrition.Profile{},
		events:   map[string]orders.HistoryEntry{},
	}
}

func (s *Store) next() int {
	s.seq++
	return s.seq
}

// ---- catalog.Store ----

func (s *Store) ListMeals(ctx context.Context) ([]catalog.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.mealRows()
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.meal.CreatedAt.Equal(b.meal.CreatedAt) {
			return a.meal.CreatedAt.After(b.meal.CreatedAt)
		}
		return a.seq > b.seq
	})
	return mealsOf(rows), nil
}

func (s *Store) ListMealsByPrice(ctx context.Context) ([]catalog.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.mealRows()
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].meal, rows[j].meal
		switch {
		case a.Price == nil && b.Price != nil:
			return false
		case a.Price != nil && b.Price == nil:
			return true
		case a.Price != nil && *a.Price != *b.Price:
			return *a.Price < *b.Price
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	return mealsOf(rows), nil
}

func (s *Store) mealRows() []*mealRow {
	rows := make([]*mealRow, 0, len(s.meals))
	for _, r := range s.meals {
		rows = append(rows, r)
	}
	return rows
}

func mealsOf(rows []*mealRow) []catalog.Meal {
	out := make([]catalog.Meal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.meal)
	}
	return out
}

func (s *Store) GetMeal(ctx context.Context, id string) (catalog.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.meals[id]
	if !ok {
		return catalog.Meal{}, catalog.ErrNotFound
	}
	return r.meal, nil
}

func (s *Store) InsertMeal(ctx context.Context, m catalog.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[m.ID]; ok {
		return fmt.Errorf("meal %s already exists", m.ID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.meals[m.ID] = &mealRow{meal: m, seq: s.next()}
	return nil
}

func (s *Store) UpdateMealPrice(ctx context.Context, id string, price *money.Money) (catalog.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.meals[id]
	if !ok {
		return catalog.Meal{}, catalog.ErrNotFound
	}
	r.meal.Price = price
	return r.meal, nil
}

func (s *Store) DeleteMeal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[id]; !ok {
		return catalog.ErrNotFound
	}
	for _, o := range s.orders {
		for _, it := range o.order.Items {
			if it.MealID == id {
				return fmt.Errorf("%w: %s", catalog.ErrInUse, id)
			}
		}
	}
	delete(s.meals, id)
	return nil
}

// ---- orders.Store ----

func (s *Store) CreateOrder(ctx context.Context, ref orders.UserRef, items []orders.ItemInput) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meals := make(map[string]catalog.Meal, len(items))
	for _, id := range orders.MealIDs(items) {
		if r, ok := s.meals[id]; ok {
			meals[id] = r.meal
		}
	}
	lines, total, err := orders.PriceItems(items, meals)
	if err != nil {
		return orders.Order{}, err
	}

	// nothing is written before pricing succeeded
	u, ok := s.users[ref.ExternalID]
	if !ok {
		u = orders.User{ID: uuid.NewString(), ExternalID: ref.ExternalID, Email: ref.Email, Name: ref.Name}
		s.users[ref.ExternalID] = u
	}

	now := s.now()
	o := orders.Order{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Status:    orders.StatusPending,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range lines {
		lines[i].ID = uuid.NewString()
		lines[i].OrderID = o.ID
	}
	o.Items = stripMeals(lines)
	s.orders[o.ID] = &orderRow{order: o, seq: s.next()}
	return s.hydrate(o), nil
}

func stripMeals(items []orders.OrderItem) []orders.OrderItem {
	out := make([]orders.OrderItem, len(items))
	for i, it := range items {
		it.Meal = nil
		out[i] = it
	}
	return out
}

// hydrate returns a copy with user and meals attached. Caller holds the lock.
func (s *Store) hydrate(o orders.Order) orders.Order {
	items := make([]orders.OrderItem, len(o.Items))
	for i, it := range o.Items {
		if r, ok := s.meals[it.MealID]; ok {
			m := r.meal
			it.Meal = &m
		}
		items[i] = it
	}
	o.Items = items
	for _, u := range s.users {
		if u.ID == o.UserID {
			uu := u
			o.User = &uu
			break
		}
	}
	return o
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return s.hydrate(r.order), nil
}

func (s *Store) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var userID string
	if f.ExternalUserID != "" {
		u, ok := s.users[f.ExternalUserID]
		if !ok {
			return []orders.Order{}, nil
		}
		userID = u.ID
	}
	rows := make([]*orderRow, 0, len(s.orders))
	for _, r := range s.orders {
		if userID == "" || r.order.UserID == userID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]orders.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.hydrate(r.order))
	}
	return out, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id string, to orders.Status) (orders.Order, orders.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.orders[id]
	if !ok {
		return orders.Order{}, "", orders.ErrNotFound
	}
	from := r.order.Status
	if !orders.CanTransition(from, to) {
		return orders.Order{}, from, fmt.Errorf("%w: %s -> %s", orders.ErrInvalidTransition, from, to)
	}
	if from != to {
		r.order.Status = to
		r.order.UpdatedAt = s.now()
	}
	return s.hydrate(r.order), from, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) (orders.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.orders[id]
	if !ok {
		return "", orders.ErrNotFound
	}
	delete(s.orders, id)
	return r.order.Status, nil
}

func (s *Store) RecordEvent(ctx context.Context, h orders.HistoryEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[h.EventID]; ok {
		return false, nil
	}
	s.events[h.EventID] = h
	return true, nil
}

func (s *Store) ListHistory(ctx context.Context, orderID string) ([]orders.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []orders.HistoryEntry{}
	for _, h := range s.events {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

// ---- nutrition.Store ----

func (s *Store) GetProfile(ctx context.Context, userID string) (nutrition.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nutrition.Profile{}, nutrition.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, userID string, in nutrition.ProfileInput) (nutrition.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p, ok := s.profiles[userID]
	if !ok {
		p = nutrition.Profile{UserID: userID, CreatedAt: now}
	}
	p = in.Apply(p)
	p.UpdatedAt = now
	s.profiles[userID] = p
	return p, nil
}

func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return nutrition.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}

// Counts reports stored rows, for tests and diagnostics.
func (s *Store) Counts() (meals, orderCount, items, profiles int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		items += len(o.order.Items)
	}
	return len(s.meals), len(s.orders), items, len(s.profiles)
}

var (
	_ catalog.Store   = (*Store)(nil)
	_ orders.Store    = (*Store)(nil)
	_ nutrition.Store = (*Store)(nil)
)
