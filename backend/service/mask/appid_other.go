//go:build !windows

package mask

import (
	"errors"
	"runtime"
)

func setProcessAppID(string) error {
	return errors.New("app user model id is not available on " + runtime.GOOS)
}
