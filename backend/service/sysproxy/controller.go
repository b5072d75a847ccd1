// Package sysproxy reads and writes the OS-global proxy tuple.
//
// Each platform store is modelled as an ordered set of raw values. Capture
// keeps the raw snapshot in ProxyState.Native so that Restore writes back
// exactly what was read, including values that were absent.
package sysproxy

import (
	"context"
	"fmt"
	"log/slog"

	"maskbrowser/backend/domain"
)

// Controller is the OS proxy store for the current platform.
type Controller interface {
	Name() string
	Capture(ctx context.Context) (domain.ProxyState, error)
	Apply(ctx context.Context, desired domain.ProxyState) error
	Restore(ctx context.Context, original domain.ProxyState) error
}

// store is one platform proxy backend.
type store interface {
	name() string
	// keys lists the values the store owns, in write order.
	keys() []string
	read(ctx context.Context) (map[string]string, error)
	write(ctx context.Context, key, value string) error
	remove(ctx context.Context, key string) error
	decode(raw map[string]string) domain.ProxyState
	// encode derives raw values for a state that carries no Native snapshot.
	encode(state domain.ProxyState, current map[string]string) (map[string]string, error)
	// commit tells running applications to reload settings.
	commit(ctx context.Context) error
}

// New returns the controller for the running platform. Platforms without a
// supported proxy store get a controller whose operations are no-ops.
func New(logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	st := platformStore(logger)
	if st == nil {
		logger.Info("system proxy unsupported on this platform")
		return Unsupported{}
	}
	return newNativeController(st, logger)
}

// Unsupported is the controller for platforms without a proxy store.
type Unsupported struct{}

func (Unsupported) Name() string { return "unsupported" }

func (Unsupported) Capture(context.Context) (domain.ProxyState, error) {
	return domain.UnsupportedProxyState(), nil
}

func (Unsupported) Apply(context.Context, domain.ProxyState) error   { return nil }
func (Unsupported) Restore(context.Context, domain.ProxyState) error { return nil }

type nativeController struct {
	st     store
	logger *slog.Logger
}

func newNativeController(st store, logger *slog.Logger) *nativeController {
	return &nativeController{st: st, logger: logger.With("store", st.name())}
}

func (c *nativeController) Name() string { return c.st.name() }

func (c *nativeController) Capture(ctx context.Context) (domain.ProxyState, error) {
	raw, err := c.st.read(ctx)
	if err != nil {
		return domain.ProxyState{}, fmt.Errorf("capture %s proxy: %w", c.st.name(), err)
	}
	state := c.st.decode(raw)
	state.Native = copyValues(raw)
	c.logger.Debug("proxy captured", "address", state.Address, "enabled", state.Enabled)
	return state, nil
}

func (c *nativeController) Apply(ctx context.Context, desired domain.ProxyState) error {
	if desired.Unsupported {
		return nil
	}
	if err := c.replace(ctx, desired); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProxyApplyFailed, c.st.name(), err)
	}
	c.logger.Info("proxy applied", "address", desired.Address, "enabled", desired.Enabled)
	return nil
}

func (c *nativeController) Restore(ctx context.Context, original domain.ProxyState) error {
	if original.Unsupported {
		return nil
	}
	if err := c.replace(ctx, original); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProxyRestoreFailed, c.st.name(), err)
	}
	c.logger.Info("proxy restored", "address", original.Address, "enabled", original.Enabled)
	return nil
}

// replace swaps the whole tuple. A failed write rolls back what was already
// written so the store never keeps a half-applied tuple.
func (c *nativeController) replace(ctx context.Context, target domain.ProxyState) error {
	before, err := c.st.read(ctx)
	if err != nil {
		return fmt.Errorf("read current values: %w", err)
	}
	values := target.Native
	if values == nil {
		if values, err = c.st.encode(target, before); err != nil {
			return err
		}
	}

	if err := c.writeValues(ctx, before, values); err != nil {
		if rbErr := c.writeValues(ctx, values, before); rbErr != nil {
			c.logger.Error("proxy rollback failed", "error", rbErr)
			return fmt.Errorf("%v; rollback failed, store may be partially written: %v", err, rbErr)
		}
		return fmt.Errorf("%v (rolled back)", err)
	}
	if err := c.st.commit(ctx); err != nil {
		c.logger.Warn("proxy change notification failed", "error", err)
	}
	return nil
}

func (c *nativeController) writeValues(ctx context.Context, current, values map[string]string) error {
	for _, k := range c.st.keys() {
		v, want := values[k]
		cur, have := current[k]
		switch {
		case want && have && v == cur:
			continue
		case want:
			if err := c.st.write(ctx, k, v); err != nil {
				return fmt.Errorf("write %s: %w", k, err)
			}
		case have:
			if err := c.st.remove(ctx, k); err != nil {
				return fmt.Errorf("remove %s: %w", k, err)
			}
		}
	}
	return nil
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
