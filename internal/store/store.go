// Package store holds the persistent key-value contract the services write
// through, plus its SQLite and in-memory implementations. Each logical
// collection lives whole under a single key; every mutation is one atomic
// replace-the-value write.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Logical keys for the three collections plus the visibility preference.
const (
	KeyTransactions = "dompet:transactions"
	KeyArchive      = "dompet:archive"
	KeySavings      = "dompet:savings"
	KeyHideNominal  = "dompet:hide-nominal"
)

// Store is a synchronous local key-value store. Get reports absence via the
// boolean, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Load decodes the JSON stored at key into out. A missing key leaves out at
// its zero default. Malformed stored data also decodes fail-closed to the
// default rather than propagating a broken shape.
func Load(ctx context.Context, s Store, key string, out any) error {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.WarnContext(ctx, "Discarding malformed stored value",
			"key", key, "error", err)
		return nil
	}
	return nil
}

// Save encodes v as JSON and replaces the value at key.
func Save(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
