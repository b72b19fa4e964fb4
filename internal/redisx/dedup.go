package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids for TTLDedup, scoped per consumer.
type Deduper struct {
	RDB   redis.Cmdable
	Scope string // e.g. "webhook", "history"
}

func (d *Deduper) key(id string) string { return fmt.Sprintf(KeyDedup, d.Scope, id) }

// Seen reports whether id was already marked.
func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	return Exists(ctx, d.RDB, d.key(id))
}

// Mark records id as processed.
func (d *Deduper) Mark(ctx context.Context, id string) error {
	return d.RDB.Set(ctx, d.key(id), "1", TTLDedup).Err()
}
