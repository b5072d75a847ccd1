package session

import (
	"fmt"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"maskbrowser/backend/domain"
)

// CheckVersion is the compatibility gate: a server strictly newer than the
// local build is Incompatible. Versions follow PEP 440 ordering, so
// 1.0.1.dev1 < 1.0.1a1 < 1.0.1a10 < 1.0.1 < 1.0.1.post1, and "1.0.0a" is
// 1.0.0a0. Either string failing to parse is ErrInvalidVersion.
func CheckVersion(server, local string) error {
	sv, err := pep440.Parse(server)
	if err != nil {
		return fmt.Errorf("%w: server version %q: %v", domain.ErrInvalidVersion, server, err)
	}
	lv, err := pep440.Parse(local)
	if err != nil {
		return fmt.Errorf("%w: local version %q: %v", domain.ErrInvalidVersion, local, err)
	}
	if sv.GreaterThan(lv) {
		return fmt.Errorf("%w: server version %s is newer than app version %s", domain.ErrIncompatible, server, local)
	}
	return nil
}
