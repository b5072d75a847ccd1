//go:build !unix && !windows

package sysproxy

func processAlive(int) bool { return false }
