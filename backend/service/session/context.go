package session

import (
	"errors"
	"os"
	"os/user"
	"strings"
	"time"

	"maskbrowser/backend/domain"
)

// SessionContext is everything the UI needs for one launch. It replaces
// process-wide "current mask" state: the identity travels with the session.
type SessionContext struct {
	ID        string                     `json:"id"`
	StartedAt time.Time                  `json:"startedAt"`
	Username  string                     `json:"username"`
	Settings  domain.ResolvedSettings    `json:"settings"`
	Identity  domain.DisplayIdentity     `json:"identity"`
	Auth      domain.AuthorizationResult `json:"auth"`

	DesiredProxy domain.ProxyState `json:"desiredProxy"`
	// ProxyApplied is false when the desired state could not be written or
	// the platform has no proxy store.
	ProxyApplied bool `json:"proxyApplied"`

	// Adblock is true only when rules were fetched; AdblockRules are raw lines.
	Adblock      bool     `json:"adblock"`
	AdblockRules []string `json:"adblockRules,omitempty"`
}

// ExitCode maps a session error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrIncompatible):
		return 2
	case errors.Is(err, domain.ErrDenied):
		return 3
	default:
		return 1
	}
}

// LocalUsername returns the login name sent to the user-status check,
// preferring the login environment over the account database.
func LocalUsername() string {
	for _, key := range []string{"LOGNAME", "USER", "LNAME", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if u, err := user.Current(); err == nil {
		name := u.Username
		// Windows reports DOMAIN\user.
		if i := strings.LastIndex(name, `\`); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	return ""
}
