package sysproxy

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// splitAddress extracts host and port from the address formats the gateway
// and the Windows registry use: "host:port", "scheme://host:port" and
// "http=h:p;https=h:p;socks=h:p".
func splitAddress(address string) (host string, port int, err error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return "", 0, fmt.Errorf("empty proxy address")
	}
	if strings.Contains(addr, "=") && !strings.Contains(addr, "://") {
		var chosen string
		for _, part := range strings.Split(addr, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok || strings.TrimSpace(v) == "" {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(k)) {
			case "http":
				chosen = strings.TrimSpace(v)
			case "https":
				if chosen == "" {
					chosen = strings.TrimSpace(v)
				}
			}
		}
		if chosen == "" {
			return "", 0, fmt.Errorf("no http entry in proxy list %q", address)
		}
		addr = chosen
	}
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = addr[i+3:]
	}
	addr = strings.TrimRight(addr, "/")

	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("proxy address %q: %w", address, err)
	}
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 || n > 65535 {
		return "", 0, fmt.Errorf("proxy address %q: invalid port %q", address, p)
	}
	if h == "" {
		return "", 0, fmt.Errorf("proxy address %q has no host", address)
	}
	return h, n, nil
}

func joinAddress(host string, port int) string {
	if host == "" {
		return ""
	}
	if port <= 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
