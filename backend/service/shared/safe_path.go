package shared

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SafeJoin resolves rel, an asset reference taken from the config file,
// under the asset root. References that are empty, absolute or that climb
// out of root are rejected.
func SafeJoin(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	switch {
	case rel == "":
		return "", errors.New("empty asset reference")
	case filepath.IsAbs(rel), filepath.VolumeName(rel) != "", strings.HasPrefix(rel, "/"), strings.HasPrefix(rel, `\`):
		return "", fmt.Errorf("asset reference %q must be relative to the asset root", rel)
	}

	root = filepath.Clean(root)
	p := filepath.Join(root, filepath.FromSlash(rel))
	back, err := filepath.Rel(root, p)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("asset reference %q leaves the asset root %s", rel, root)
	}
	return p, nil
}
