package domain

import (
	"time"
)

// ResolvedSettings is the launch configuration after layering
// overrides > persisted defaults. It is never mutated after Resolve.
type ResolvedSettings struct {
	Mask       string   `json:"mask"`
	Theme      string   `json:"theme"`
	API        string   `json:"api"`
	Connect    bool     `json:"connect"`
	Adblock    bool     `json:"adblock"`
	ExtraFlags []string `json:"extraFlags"`
	// Title replaces the mask title when non-empty.
	Title string `json:"title"`

	// Proxy is the explicit proxy override; empty means "ask the gateway".
	Proxy string `json:"proxy,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// MaskRecord is one entry of the mask catalog.
type MaskRecord struct {
	Title     string `json:"title"`
	OrgName   string `json:"orgName"`
	OrgDomain string `json:"orgDomain"`
	Icon64    string `json:"icon64"`
	Icon128   string `json:"icon128"`
}

// MaskCatalog maps lower-cased mask names to records.
type MaskCatalog map[string]MaskRecord

// DisplayIdentity is what the UI shows instead of the real application identity.
type DisplayIdentity struct {
	Mask      string `json:"mask"`
	Title     string `json:"title"`
	OrgName   string `json:"orgName"`
	OrgDomain string `json:"orgDomain"`
	AppID     string `json:"appId"`
	Icon64    string `json:"icon64"`
	Icon128   string `json:"icon128"`
}

// ProxyState is the OS-global proxy tuple.
//
// Native carries platform values that do not fit Address/Enabled (e.g. the
// GNOME proxy mode) so that a restore writes back exactly what was captured.
type ProxyState struct {
	Address     string            `json:"address"`
	Enabled     bool              `json:"enabled"`
	Unsupported bool              `json:"unsupported,omitempty"`
	Native      map[string]string `json:"native"`
}

// UnsupportedProxyState is returned by controllers on platforms without a proxy store.
func UnsupportedProxyState() ProxyState {
	return ProxyState{Unsupported: true}
}

// DisabledProxyState is the desired state when the session must not proxy.
func DisabledProxyState() ProxyState {
	return ProxyState{}
}

// Equal reports whether two states would leave the OS store bit-identical.
func (s ProxyState) Equal(other ProxyState) bool {
	if s.Address != other.Address || s.Enabled != other.Enabled || s.Unsupported != other.Unsupported {
		return false
	}
	if len(s.Native) != len(other.Native) {
		return false
	}
	for k, v := range s.Native {
		if ov, ok := other.Native[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// AuthorizationResult is the outcome of the version + user-status gate.
type AuthorizationResult struct {
	ServerVersion string `json:"serverVersion"`
	Authorized    bool   `json:"authorized"`
	AccountLabel  string `json:"accountLabel"`
	AccountTier   string `json:"accountTier"`
	Offline       bool   `json:"offline,omitempty"`
}

// OfflineAuthorization is substituted when connect is false.
func OfflineAuthorization(localVersion string) AuthorizationResult {
	return AuthorizationResult{
		ServerVersion: localVersion,
		Authorized:    true,
		AccountLabel:  "none",
		AccountTier:   "stable",
		Offline:       true,
	}
}

// SessionState enumerates the launcher lifecycle.
type SessionState string

const (
	StateInit                  SessionState = "init"
	StateConfigResolved        SessionState = "config-resolved"
	StateIdentityApplied       SessionState = "identity-applied"
	StateProxyTargetDetermined SessionState = "proxy-target-determined"
	StateVersionChecked        SessionState = "version-checked"
	StateAuthorizationChecked  SessionState = "authorization-checked"
	StateIncompatible          SessionState = "incompatible"
	StateDenied                SessionState = "denied"
	StateProxyBackedUp         SessionState = "proxy-backed-up"
	StateProxyApplied          SessionState = "proxy-applied"
	StateRunning               SessionState = "running"
	StateProxyRestored         SessionState = "proxy-restored"
	StateTerminated            SessionState = "terminated"
	StateFailed                SessionState = "failed"
)

// Terminal reports whether no transition leaves s.
func (s SessionState) Terminal() bool {
	switch s {
	case StateIncompatible, StateDenied, StateTerminated, StateFailed:
		return true
	}
	return false
}

// ProxyJournal is persisted between capture and restore so that a session
// killed without running its cleanup can still be undone on next launch.
type ProxyJournal struct {
	SessionID  string     `json:"sessionId"`
	PID        int        `json:"pid"`
	Original   ProxyState `json:"original"`
	Desired    ProxyState `json:"desired"`
	CapturedAt time.Time  `json:"capturedAt"`
}

// RestoreFailure is persisted when the original proxy state could not be reapplied.
type RestoreFailure struct {
	SessionID string     `json:"sessionId"`
	Original  ProxyState `json:"original"`
	Error     string     `json:"error"`
	FailedAt  time.Time  `json:"failedAt"`
}
