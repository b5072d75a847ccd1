// Package mask resolves a mask name to the display identity the UI shows
// instead of the application's own, and pins that identity on the process.
package mask

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"maskbrowser/backend/domain"
	"maskbrowser/backend/service/shared"
)

// IconDir is the sub-directory of the asset root holding mask icons.
const IconDir = "icons"

var errIdentityLocked = errors.New("display identity already applied for this process")

// Lookup returns the record for name, case-insensitively.
func Lookup(catalog domain.MaskCatalog, name string) (domain.MaskRecord, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	rec, ok := catalog[key]
	if !ok || key == "" {
		return domain.MaskRecord{}, fmt.Errorf("%w: %q", domain.ErrMaskNotFound, name)
	}
	return rec, nil
}

// ValidateAssets checks both icons exist as regular files under assetRoot/icons
// and returns their resolved paths.
func ValidateAssets(rec domain.MaskRecord, assetRoot string) (icon64, icon128 string, err error) {
	resolve := func(name string) (string, error) {
		if strings.TrimSpace(name) == "" {
			return "", fmt.Errorf("%w: empty icon reference", domain.ErrAssetMissing)
		}
		p, err := shared.SafeJoin(assetRoot, IconDir+"/"+name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrAssetMissing, err)
		}
		st, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrAssetMissing, p)
		}
		if !st.Mode().IsRegular() {
			return "", fmt.Errorf("%w: %s is not a file", domain.ErrAssetMissing, p)
		}
		return p, nil
	}

	if icon64, err = resolve(rec.Icon64); err != nil {
		return "", "", err
	}
	if icon128, err = resolve(rec.Icon128); err != nil {
		return "", "", err
	}
	return icon64, icon128, nil
}

// Applier pins a display identity on the process. It is single-writer:
// the first successful Apply wins and later calls fail.
type Applier struct {
	appVersion string
	logger     *slog.Logger
	setAppID   func(string) error

	mu      sync.Mutex
	current *domain.DisplayIdentity
}

func NewApplier(appVersion string, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{appVersion: appVersion, logger: logger, setAppID: setProcessAppID}
}

// Apply looks up name, validates its icons and only then publishes the
// identity. titleOverride, when non-empty, replaces the mask title.
// On any error the process identity is left untouched.
func (a *Applier) Apply(catalog domain.MaskCatalog, name, titleOverride, assetRoot string) (domain.DisplayIdentity, error) {
	rec, err := Lookup(catalog, name)
	if err != nil {
		return domain.DisplayIdentity{}, err
	}
	icon64, icon128, err := ValidateAssets(rec, assetRoot)
	if err != nil {
		return domain.DisplayIdentity{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		return domain.DisplayIdentity{}, errIdentityLocked
	}

	title := rec.Title
	if strings.TrimSpace(titleOverride) != "" {
		title = titleOverride
	}
	id := domain.DisplayIdentity{
		Mask:      strings.ToLower(strings.TrimSpace(name)),
		Title:     title,
		OrgName:   rec.OrgName,
		OrgDomain: rec.OrgDomain,
		AppID:     domain.AppUserModelID(rec.OrgName, title, a.appVersion),
		Icon64:    icon64,
		Icon128:   icon128,
	}

	if err := a.setAppID(id.AppID); err != nil {
		a.logger.Info("process app id not set", "appId", id.AppID, "error", err)
	}
	a.current = &id
	return id, nil
}

// Current returns the applied identity, if any.
func (a *Applier) Current() (domain.DisplayIdentity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return domain.DisplayIdentity{}, false
	}
	return *a.current, true
}
