// Package cart is the client-held cart: lines keyed by meal id, persisted to
// a local store after every change and never reconciled with the server.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/ariefcatur/fitmeal/internal/orders"
)

// StorageKey names the persisted cart document.
const StorageKey = "fitmeal-cart-v1"

type Item struct {
	MealID   string      `json:"mealId"`
	Name     string      `json:"name"`
	Price    money.Money `json:"price"` // display only, never sent to the server
	Quantity int         `json:"quantity"`
}

// Store persists the full item list.
type Store interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

type Cart struct {
	mu    sync.Mutex
	items []Item
	store Store
}

// Open rehydrates the cart from store.
func Open(store Store) (*Cart, error) {
	items, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c := &Cart{store: store}
	for _, it := range items {
		if it.MealID == "" || it.Quantity < 1 {
			continue
		}
		c.items = mergeInto(c.items, it)
	}
	return c, nil
}

func mergeInto(items []Item, it Item) []Item {
	for i := range items {
		if items[i].MealID == it.MealID {
			items[i].Quantity += it.Quantity
			return items
		}
	}
	return append(items, it)
}

// Add puts qty of a meal in the cart, merging with an existing line.
func (c *Cart) Add(it Item) error {
	if it.MealID == "" {
		return errors.New("cart: meal id required")
	}
	if it.Quantity < 1 {
		it.Quantity = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = mergeInto(c.items, it)
	return c.persist()
}

// UpdateQuantity sets a line's quantity; below 1 removes the line.
func (c *Cart) UpdateQuantity(mealID string, qty int) error {
	if qty < 1 {
		return c.Remove(mealID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].MealID == mealID {
			c.items[i].Quantity = qty
			return c.persist()
		}
	}
	return nil
}

func (c *Cart) Remove(mealID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items[:0]
	for _, it := range c.items {
		if it.MealID != mealID {
			out = append(out, it)
		}
	}
	c.items = out
	return c.persist()
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.persist()
}

// Items returns a copy in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is the display total from cached prices; the server reprices.
func (c *Cart) TotalPrice() money.Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	var t money.Money
	for _, it := range c.items {
		t += it.Price.Mul(it.Quantity)
	}
	return t
}

func (c *Cart) persist() error {
	if err := c.store.Save(append([]Item{}, c.items...)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// OrderCreator submits an order; the API client implements it.
type OrderCreator interface {
	CreateOrder(ctx context.Context, userID string, items []orders.ItemInput) (orders.Order, error)
}

var ErrEmpty = errors.New("cart is empty")

// Checkout submits the cart as order lines (meal id and quantity only) and
// clears the cart only after the order was created.
func Checkout(ctx context.Context, c *Cart, creator OrderCreator, userID string) (orders.Order, error) {
	items := c.Items()
	if len(items) == 0 {
		return orders.Order{}, ErrEmpty
	}
	in := make([]orders.ItemInput, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		in = append(in, orders.ItemInput{MealID: it.MealID, Quantity: &qty})
	}
	o, err := creator.CreateOrder(ctx, userID, in)
	if err != nil {
		return orders.Order{}, err
	}
	if err := c.Clear(); err != nil {
		return o, err
	}
	return o, nil
}
