// Package money holds exact currency amounts as integer cents.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. JSON uses a decimal number with two places (25.50).
type Money int64

func FromCents(c int64) Money { return Money(c) }

func (m Money) Cents() int64 { return int64(m) }

// Mul returns the amount times qty.
func (m Money) Mul(qty int) Money { return m * Money(qty) }

// MulChecked is Mul that reports false when the product does not fit in int64.
func (m Money) MulChecked(qty int) (Money, bool) {
	if m == 0 || qty == 0 {
		return 0, true
	}
	p := m * Money(qty)
	if p/Money(qty) != m || (m == -1 && int64(qty) == math.MinInt64) {
		return 0, false
	}
	return p, true
}

// AddChecked returns m+o, or false on int64 overflow.
func (m Money) AddChecked(o Money) (Money, bool) {
	s := m + o
	if (o > 0 && s < m) || (o < 0 && s > m) {
		return 0, false
	}
	return s, true
}

func (m Money) String() string {
	sign := ""
	c := int64(m)
	u := uint64(c)
	if c < 0 {
		sign = "-"
		u = uint64(-(c + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%02d", sign, u/100, u%100)
}

// Parse reads a decimal string such as "10", "5.5" or "12.345" and rounds to the nearest cent.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	return Money(math.Round(f * 100)), nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
