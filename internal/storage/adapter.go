package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/pkordes/travel-journal/internal/metrics"
)

// Adapter wraps a Backend with JSON encoding and the mounted gate.
//
// Until Mount succeeds every Load returns its default and every Save is
// skipped, so state read before the backend is known to be usable is the
// default state everywhere.
type Adapter struct {
	backend Backend
	log     *slog.Logger
	metrics *metrics.Metrics
	mounted atomic.Bool
}

// NewAdapter constructs an Adapter. A nil backend is allowed and behaves like
// an environment without persistence: loads return defaults, saves are dropped.
func NewAdapter(backend Backend, log *slog.Logger, m *metrics.Metrics) *Adapter {
	return &Adapter{backend: backend, log: log, metrics: m}
}

// Mount pings the backend and opens the gate on success.
// Calling Mount again after success is a no-op.
func (a *Adapter) Mount(ctx context.Context) error {
	if a.mounted.Load() {
		return nil
	}
	if a.backend == nil {
		return errors.New("storage.Adapter.Mount: no backend configured")
	}
	if err := a.backend.Ping(ctx); err != nil {
		return err
	}
	a.mounted.Store(true)
	return nil
}

// Mounted reports whether the gate is open.
func (a *Adapter) Mounted() bool {
	return a.mounted.Load()
}

// Load reads key from the adapter's backend and decodes it into a T.
// def is returned when the adapter is unmounted, the key is absent, the
// backend fails, or the payload does not decode.
func Load[T any](ctx context.Context, a *Adapter, key string, def T) T {
	if a == nil || a.backend == nil || !a.mounted.Load() {
		return def
	}

	raw, err := a.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			a.log.WarnContext(ctx, "storage load failed", "key", key, "error", err)
			a.metrics.StorageFailure("load")
		}
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		a.log.WarnContext(ctx, "storage payload unparsable", "key", key, "error", err)
		a.metrics.StorageFailure("load")
		return def
	}
	return v
}

// Save encodes value as JSON and writes it under key.
// Failures are logged and counted, never returned.
func (a *Adapter) Save(ctx context.Context, key string, value any) {
	if a.backend == nil {
		return
	}
	if !a.mounted.Load() {
		a.log.DebugContext(ctx, "storage not mounted, save skipped", "key", key)
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		a.log.WarnContext(ctx, "storage encode failed", "key", key, "error", err)
		a.metrics.StorageFailure("save")
		return
	}
	if err := a.backend.Put(ctx, key, raw); err != nil {
		a.log.WarnContext(ctx, "storage save failed", "key", key, "error", err)
		a.metrics.StorageFailure("save")
	}
}

// Close releases the backend.
func (a *Adapter) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
