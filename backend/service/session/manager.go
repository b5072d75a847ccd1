// Package session drives one launch: resolve settings, pin the display
// identity, pass the version and authorization gates, hold the system proxy
// for the lifetime of the UI and give it back on every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maskbrowser/backend/config"
	"maskbrowser/backend/domain"
	"maskbrowser/backend/events"
	"maskbrowser/backend/service/sysproxy"
)

const defaultRestoreTimeout = 30 * time.Second

// Options wires a Manager. Config, Identity, Proxy, UI and Contingency are
// required; Gateways is required when the session may connect.
type Options struct {
	Config       *config.File
	Overrides    config.Overrides
	LocalVersion string
	Username     string
	AssetRoot    string

	Identity    IdentityApplier
	Gateways    GatewayFactory
	Proxy       sysproxy.Controller
	Journal     *sysproxy.Journal
	WarningPath string
	UI          UI
	Contingency ContingencyRunner

	Events *events.Bus
	Logger *slog.Logger

	// RestoreTimeout bounds the teardown restore, which runs on a context
	// detached from cancellation.
	RestoreTimeout time.Duration
}

// Manager owns the session state and the captured proxy state.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state domain.SessionState
	id    string
}

func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RestoreTimeout <= 0 {
		opts.RestoreTimeout = defaultRestoreTimeout
	}
	return &Manager{opts: opts, logger: opts.Logger, state: domain.StateInit}
}

// State returns the current lifecycle state.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run executes the session to a terminal state. The returned context is
// nil only when the session failed before one could be assembled.
func (m *Manager) Run(ctx context.Context) (sc *SessionContext, err error) {
	sc = &SessionContext{ID: domain.NewSessionID(), StartedAt: time.Now().UTC(), Username: m.opts.Username}
	m.mu.Lock()
	m.id = sc.ID
	m.mu.Unlock()
	logger := m.logger.With("session", sc.ID)

	settings, err := config.Resolve(m.opts.Config, m.opts.Overrides)
	if err != nil {
		return sc, m.fail(logger, err)
	}
	sc.Settings = settings
	m.transition(logger, domain.StateConfigResolved, nil)

	identity, err := m.opts.Identity.Apply(m.opts.Config.Masks, settings.Mask, settings.Title, m.opts.AssetRoot)
	if err != nil {
		return sc, m.fail(logger, err)
	}
	sc.Identity = identity
	m.transition(logger, domain.StateIdentityApplied, nil)

	var gw Gateway
	desired := domain.DisabledProxyState()
	if settings.Connect {
		if m.opts.Gateways == nil {
			return sc, m.fail(logger, fmt.Errorf("%w: no gateway client configured", domain.ErrConfigIncomplete))
		}
		if gw, err = m.opts.Gateways(settings.API, ""); err != nil {
			return sc, m.fail(logger, err)
		}
		address := settings.Proxy
		if address == "" {
			if address, err = gw.FetchProxy(ctx); err != nil {
				return sc, m.fail(logger, err)
			}
		}
		desired = domain.ProxyState{Address: address, Enabled: address != ""}
	}
	sc.DesiredProxy = desired
	m.transition(logger, domain.StateProxyTargetDetermined, nil)

	if settings.Connect {
		serverVersion, err := gw.FetchServerVersion(ctx)
		if err != nil {
			return sc, m.fail(logger, err)
		}
		if err := CheckVersion(serverVersion, m.opts.LocalVersion); err != nil {
			if errors.Is(err, domain.ErrIncompatible) {
				m.transition(logger, domain.StateIncompatible, err)
				return sc, err
			}
			return sc, m.fail(logger, err)
		}
		sc.Auth.ServerVersion = serverVersion
	}
	m.transition(logger, domain.StateVersionChecked, nil)

	if settings.Connect {
		st, err := gw.FetchUserStatus(ctx, m.opts.Username)
		if err != nil {
			return sc, m.fail(logger, err)
		}
		sc.Auth.Authorized = st.Authorized
		sc.Auth.AccountLabel = st.Label
		sc.Auth.AccountTier = st.Tier
	} else {
		sc.Auth = domain.OfflineAuthorization(m.opts.LocalVersion)
	}
	m.transition(logger, domain.StateAuthorizationChecked, nil)

	if !sc.Auth.Authorized {
		err := fmt.Errorf("%w: user %q", domain.ErrDenied, m.opts.Username)
		m.transition(logger, domain.StateDenied, err)
		if cErr := m.opts.Contingency.Run(ctx, *sc); cErr != nil {
			logger.Error("contingency procedure failed", "error", cErr)
		}
		return sc, err
	}
	logger.Info("authorized", "user", m.opts.Username, "label", sc.Auth.AccountLabel,
		"tier", sc.Auth.AccountTier, "offline", sc.Auth.Offline)

	lease, captureErr := sysproxy.Acquire(ctx, m.opts.Proxy, sysproxy.LeaseOptions{
		SessionID:   sc.ID,
		Journal:     m.opts.Journal,
		WarningPath: m.opts.WarningPath,
		Logger:      logger,
	})
	m.transition(logger, domain.StateProxyBackedUp, nil)
	if lease != nil {
		defer func() {
			if rErr := m.release(ctx, logger, sc, lease); rErr != nil {
				err = errors.Join(err, rErr)
			}
			m.transition(logger, domain.StateTerminated, err)
		}()
	} else {
		defer func() { m.transition(logger, domain.StateTerminated, err) }()
	}

	switch {
	case captureErr != nil:
		// Without a backup nothing may be written; run unproxied.
		m.applyFailed(logger, sc, fmt.Errorf("%w: original state not captured: %v", domain.ErrProxyApplyFailed, captureErr))
	case lease.Original().Unsupported:
		logger.Info("system proxy unsupported, running without it")
	default:
		if aErr := lease.Apply(ctx, desired); aErr != nil {
			m.applyFailed(logger, sc, aErr)
		} else {
			sc.ProxyApplied = true
		}
	}
	m.transition(logger, domain.StateProxyApplied, nil)

	if settings.Adblock && settings.Connect {
		m.loadAdblock(ctx, logger, sc, gw)
	}

	m.transition(logger, domain.StateRunning, nil)
	if uiErr := m.opts.UI.Run(ctx, sc); uiErr != nil {
		if ctx.Err() != nil && errors.Is(uiErr, ctx.Err()) {
			logger.Info("ui stopped by cancellation")
		} else {
			logger.Error("ui session failed", "error", uiErr)
			return sc, fmt.Errorf("ui session: %w", uiErr)
		}
	}
	return sc, nil
}

// release restores the original proxy on a context that survives
// cancellation of the session context.
func (m *Manager) release(ctx context.Context, logger *slog.Logger, sc *SessionContext, lease *sysproxy.Lease) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.RestoreTimeout)
	defer cancel()
	err := lease.Release(rctx)
	if err != nil {
		m.opts.Events.Publish(events.ProxyEvent{
			EventType: events.EventProxyRestoreFailed,
			SessionID: sc.ID,
			State:     lease.Original(),
			Err:       err,
		})
		return err
	}
	m.transition(logger, domain.StateProxyRestored, nil)
	return nil
}

func (m *Manager) applyFailed(logger *slog.Logger, sc *SessionContext, err error) {
	logger.Error("proxy apply failed, continuing without proxy",
		"kind", domain.Kind(err), "address", sc.DesiredProxy.Address, "error", err)
	m.opts.Events.Publish(events.ProxyEvent{
		EventType: events.EventProxyApplyFailed,
		SessionID: sc.ID,
		State:     sc.DesiredProxy,
		Err:       err,
	})
}

// loadAdblock fetches the rule list; failure disables ad-blocking only.
// The fetch goes through the session proxy once it is in place.
func (m *Manager) loadAdblock(ctx context.Context, logger *slog.Logger, sc *SessionContext, gw Gateway) {
	client := gw
	if sc.ProxyApplied && sc.DesiredProxy.Enabled {
		routed, err := m.opts.Gateways(sc.Settings.API, sc.DesiredProxy.Address)
		if err != nil {
			logger.Warn("ad-block fetch not routed through session proxy", "error", err)
		} else {
			client = routed
		}
	}
	rules, err := client.FetchAdblockRules(ctx)
	if err != nil {
		logger.Warn("ad-block disabled", "kind", domain.Kind(err), "error", err)
		return
	}
	sc.Adblock = true
	sc.AdblockRules = rules
	logger.Info("ad-block rules loaded", "count", len(rules))
}

func (m *Manager) fail(logger *slog.Logger, err error) error {
	m.transition(logger, domain.StateFailed, err)
	return err
}

// transition is the single place lifecycle changes are logged and published.
func (m *Manager) transition(logger *slog.Logger, to domain.SessionState, err error) {
	m.mu.Lock()
	from := m.state
	m.state = to
	id := m.id
	m.mu.Unlock()

	switch {
	case err == nil:
		logger.Info("session state", "from", from, "to", to)
	case to == domain.StateIncompatible || to == domain.StateDenied:
		logger.Warn("session state", "from", from, "to", to, "kind", domain.Kind(err), "error", err)
	default:
		logger.Error("session state", "from", from, "to", to, "kind", domain.Kind(err), "error", err)
	}
	m.opts.Events.Publish(events.TransitionEvent{SessionID: id, From: from, To: to, At: time.Now(), Err: err})
}
