package session

import (
	"context"

	"maskbrowser/backend/domain"
	"maskbrowser/backend/service/gateway"
)

// Gateway is the subset of the remote service the session consumes.
type Gateway interface {
	FetchProxy(ctx context.Context) (string, error)
	FetchServerVersion(ctx context.Context) (string, error)
	FetchUserStatus(ctx context.Context, username string) (gateway.UserStatus, error)
	FetchAdblockRules(ctx context.Context) ([]string, error)
}

// GatewayFactory builds a client for api. via is a proxy address to route
// through, or "" for a direct connection. It is only called when the
// session is connected.
type GatewayFactory func(api, via string) (Gateway, error)

// IdentityApplier pins the display identity for the process.
type IdentityApplier interface {
	Apply(catalog domain.MaskCatalog, name, titleOverride, assetRoot string) (domain.DisplayIdentity, error)
}

// UI runs the user-facing session and blocks until it ends.
type UI interface {
	Run(ctx context.Context, sc *SessionContext) error
}

// ContingencyRunner is invoked once when authorization is denied. The
// session terminates right after it returns.
type ContingencyRunner interface {
	Run(ctx context.Context, sc SessionContext) error
}

// ClientFactory adapts gateway.New/WithProxy to a GatewayFactory.
func ClientFactory(opts gateway.Options) GatewayFactory {
	return func(api, via string) (Gateway, error) {
		c, err := gateway.New(api, opts)
		if err != nil {
			return nil, err
		}
		if via == "" {
			return c, nil
		}
		return c.WithProxy(via)
	}
}
