package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// inParams builds "$1,$2,..." for an IN clause.
func inParams(ids []string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "$%d", i+1)
		args = append(args, id)
	}
	return b.String(), args
}

func (r *Repo) CreateOrder(ctx context.Context, user UserRef, items []ItemInput) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyOrder
	}
	for _, it := range items {
		if _, err := uuid.Parse(it.MealID); err != nil {
			return Order{}, fmt.Errorf("%w: %s", ErrUnknownMeal, it.MealID)
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := resolveUser(ctx, tx, user)
	if err != nil {
		return Order{}, err
	}

	// harga diambil dari table meals, bukan dari client
	params, args := inParams(MealIDs(items))
	rows, err := tx.Query(ctx, `SELECT `+mealCols("")+` FROM meals WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return Order{}, err
	}
	meals := map[string]catalog.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			rows.Close()
			return Order{}, err
		}
		meals[m.ID] = m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Order{}, err
	}

	lines, total, err := PriceItems(items, meals)
	if err != nil {
		return Order{}, err
	}

	o := Order{ID: uuid.NewString(), UserID: u.ID, Status: StatusPending, Total: total, User: &u}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.Status, o.Total.Cents(),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	for i := range lines {
		lines[i].ID = uuid.NewString()
		lines[i].OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, meal_id, position, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			lines[i].ID, o.ID, lines[i].MealID, i, lines[i].Quantity, lines[i].UnitPrice.Cents(),
		)
		if err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	o.Items = lines
	return o, nil
}

func resolveUser(ctx context.Context, tx pgx.Tx, ref UserRef) (User, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO users(id, external_id, email, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO NOTHING`,
		uuid.NewString(), ref.ExternalID, ref.Email, ref.Name,
	); err != nil {
		return User{}, err
	}
	var u User
	err := tx.QueryRow(ctx, `SELECT id, external_id, email, name FROM users WHERE external_id=$1`, ref.ExternalID).
		Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name)
	return u, err
}

const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.total_cents, o.created_at, o.updated_at,
	       u.external_id, u.email, u.name
	FROM orders o JOIN users u ON u.id = o.user_id`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o     Order
		u     User
		total int64
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &total, &o.CreatedAt, &o.UpdatedAt,
		&u.ExternalID, &u.Email, &u.Name); err != nil {
		return Order{}, err
	}
	u.ID = o.UserID
	o.Total = money.FromCents(total)
	o.User = &u
	o.Items = []OrderItem{}
	return o, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	out := []Order{o}
	if err := r.loadItems(ctx, out); err != nil {
		return Order{}, err
	}
	return out[0], nil
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	sql, args := orderSelect, []any{}
	if f.ExternalUserID != "" {
		sql += ` WHERE u.external_id=$1`
		args = append(args, f.ExternalUserID)
	}
	rows, err := r.DB.Query(ctx, sql+` ORDER BY o.created_at DESC, o.id`, args...)
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems fills Items (with meals) for every order in place.
func (r *Repo) loadItems(ctx context.Context, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[string]int, len(list))
	ids := make([]string, 0, len(list))
	for i, o := range list {
		idx[o.ID] = i
		ids = append(ids, o.ID)
	}
	params, args := inParams(ids)
	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.meal_id, i.quantity, i.unit_price_cents, `+mealCols("m.")+`
		FROM order_items i JOIN meals m ON m.id = i.meal_id
		WHERE i.order_id IN (`+params+`)
		ORDER BY i.order_id, i.position`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    OrderItem
			unit  int64
			m     catalog.Meal
			price *int64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MealID, &it.Quantity, &unit,
			&m.ID, &m.Name, &m.Description, &price, &m.Calories, &m.IsVegan, &m.CreatedAt); err != nil {
			return err
		}
		it.UnitPrice = money.FromCents(unit)
		m.Price = centsPtr(price)
		it.Meal = &m
		o := &list[idx[it.OrderID]]
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *Repo) TransitionStatus(ctx context.Context, id string, to Status) (Order, Status, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, "", ErrNotFound
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock row supaya dua transisi bersamaan jalan berurutan
	var cur string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, "", ErrNotFound
	}
	if err != nil {
		return Order{}, "", err
	}
	from := Status(cur)
	if !CanTransition(from, to) {
		return Order{}, from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if from != to {
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, to); err != nil {
			return Order{}, from, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, from, err
	}

	o, err := r.GetOrder(ctx, id)
	return o, from, err
}

func (r *Repo) DeleteOrder(ctx context.Context, id string) (Status, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	var last string
	err := r.DB.QueryRow(ctx, `DELETE FROM orders WHERE id=$1 RETURNING status`, id).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return Status(last), err
}

func (r *Repo) RecordEvent(ctx context.Context, h HistoryEntry) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO order_events(event_id, order_id, event_type, from_status, to_status, producer, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		h.EventID, h.OrderID, h.EventType, h.FromStatus, h.ToStatus, h.Producer, h.OccurredAt,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ListHistory(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return []HistoryEntry{}, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT event_id, order_id, event_type, from_status, to_status, producer, occurred_at
		FROM order_events WHERE order_id=$1 ORDER BY occurred_at, event_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.EventID, &h.OrderID, &h.EventType, &h.FromStatus, &h.ToStatus, &h.Producer, &h.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func mealCols(prefix string) string {
	cols := []string{"id", "name", "description", "price_cents", "calories", "is_vegan", "created_at"}
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}

func scanMeal(row pgx.Row) (catalog.Meal, error) {
	var (
		m     catalog.Meal
		price *int64
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &price, &m.Calories, &m.IsVegan, &m.CreatedAt); err != nil {
		return catalog.Meal{}, err
	}
	m.Price = centsPtr(price)
	return m, nil
}

func centsPtr(c *int64) *money.Money {
	if c == nil {
		return nil
	}
	m := money.FromCents(*c)
	return &m
}
