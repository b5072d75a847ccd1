package domain

import "errors"

// Startup errors: fatal, raised before any external side effect.
var (
	// ErrConfigUnreadable config file absent or not valid structured data
	ErrConfigUnreadable = errors.New("config unreadable")

	// ErrConfigIncomplete a setting has neither an override nor a persisted default
	ErrConfigIncomplete = errors.New("config incomplete")

	// ErrInvalidVersion a version string outside the supported grammar
	ErrInvalidVersion = errors.New("invalid version")
)

// Identity errors: fatal, raised before proxy/network side effects.
var (
	ErrMaskNotFound = errors.New("mask not found")
	ErrAssetMissing = errors.New("mask asset missing")
)

// Gateway errors.
var (
	ErrGatewayUnreachable = errors.New("gateway unreachable")
	ErrGatewayBadResponse = errors.New("gateway bad response")
)

// Gate errors.
var (
	ErrIncompatible = errors.New("server version incompatible")
	ErrDenied       = errors.New("authorization denied")
)

// Proxy errors: never fatal.
var (
	ErrProxyApplyFailed   = errors.New("proxy apply failed")
	ErrProxyRestoreFailed = errors.New("proxy restore failed")
)

// Kind returns the name of the first error kind err matches, or "" if none.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range []struct {
		err  error
		name string
	}{
		{ErrConfigUnreadable, "ConfigUnreadable"},
		{ErrConfigIncomplete, "ConfigIncomplete"},
		{ErrInvalidVersion, "InvalidVersion"},
		{ErrMaskNotFound, "MaskNotFound"},
		{ErrAssetMissing, "AssetMissing"},
		{ErrGatewayUnreachable, "GatewayUnreachable"},
		{ErrGatewayBadResponse, "GatewayBadResponse"},
		{ErrIncompatible, "Incompatible"},
		{ErrDenied, "Denied"},
		{ErrProxyApplyFailed, "ProxyApplyFailed"},
		{ErrProxyRestoreFailed, "ProxyRestoreFailed"},
	} {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
