package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// WithProxy returns a copy of c whose requests go through address.
//
// address uses the OS proxy store formats: "host:port", "scheme://host:port"
// or the per-protocol "http=h:p;https=h:p;socks=h:p" list. SOCKS5 goes
// through x/net/proxy, everything else through http.ProxyURL.
func (c *Client) WithProxy(address string) (*Client, error) {
	u, err := ParseProxyAddress(address)
	if err != nil {
		return nil, err
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("default transport is %T, not *http.Transport", http.DefaultTransport)
	}
	tr := base.Clone()

	switch u.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks proxy %s: %w", u.Redacted(), err)
		}
		tr.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		} else {
			tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		tr.Proxy = http.ProxyURL(u)
	}

	clone := *c
	clone.http = &http.Client{Timeout: c.opts.Timeout, Transport: tr}
	clone.logger = c.logger.With("via", u.Redacted())
	return &clone, nil
}

// ParseProxyAddress normalizes an OS proxy address into a URL.
func ParseProxyAddress(address string) (*url.URL, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return nil, fmt.Errorf("empty proxy address")
	}

	if strings.Contains(addr, "=") && !strings.Contains(addr, "://") {
		entries := map[string]string{}
		for _, part := range strings.Split(addr, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok || strings.TrimSpace(v) == "" {
				continue
			}
			entries[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
		switch {
		case entries["https"] != "":
			addr = "http://" + entries["https"]
		case entries["http"] != "":
			addr = "http://" + entries["http"]
		case entries["socks"] != "":
			addr = "socks5://" + entries["socks"]
		default:
			return nil, fmt.Errorf("no usable entry in proxy list %q", address)
		}
	} else if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy address %q: %w", address, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy address %q has no host", address)
	}
	return u, nil
}
