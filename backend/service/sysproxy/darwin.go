package sysproxy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"maskbrowser/backend/domain"
)

// Keys name the networksetup proxy kinds: -get<kind>proxy, -set<kind>proxystate.
var darwinKeys = []string{"web", "secureweb", "web.state", "secureweb.state"}

// darwinStore edits the web and secure-web proxy of one network service
// through networksetup.
type darwinStore struct {
	run     Runner
	service string
}

func newDarwinStore(ctx context.Context, run Runner) (*darwinStore, error) {
	services, err := listNetworkServices(ctx, run)
	if err != nil {
		return nil, err
	}
	return &darwinStore{run: run, service: services[0]}, nil
}

func (s *darwinStore) name() string   { return "networksetup" }
func (s *darwinStore) keys() []string { return darwinKeys }

func (s *darwinStore) read(ctx context.Context) (map[string]string, error) {
	raw := make(map[string]string, len(darwinKeys))
	for _, kind := range []string{"web", "secureweb"} {
		out, err := s.run.Run(ctx, "networksetup", "-get"+kind+"proxy", s.service)
		if err != nil {
			return nil, err
		}
		fields := parseNetworksetup(out)
		port, _ := strconv.Atoi(fields["Port"])
		raw[kind] = joinAddress(fields["Server"], port)
		raw[kind+".state"] = "off"
		if strings.EqualFold(fields["Enabled"], "yes") {
			raw[kind+".state"] = "on"
		}
	}
	return raw, nil
}

func (s *darwinStore) write(ctx context.Context, key, value string) error {
	kind, isState := strings.CutSuffix(key, ".state")
	if isState {
		_, err := s.run.Run(ctx, "networksetup", "-set"+kind+"proxystate", s.service, value)
		return err
	}
	// networksetup cannot clear a server; an empty value leaves it and relies on the state key.
	if value == "" {
		return nil
	}
	host, port, err := splitAddress(value)
	if err != nil {
		return err
	}
	_, err = s.run.Run(ctx, "networksetup", "-set"+kind+"proxy", s.service, host, strconv.Itoa(port))
	return err
}

func (s *darwinStore) remove(context.Context, string) error { return nil }

func (s *darwinStore) decode(raw map[string]string) domain.ProxyState {
	return domain.ProxyState{Address: raw["web"], Enabled: raw["web.state"] == "on"}
}

func (s *darwinStore) encode(state domain.ProxyState, current map[string]string) (map[string]string, error) {
	values := copyValues(current)
	if state.Address != "" {
		host, port, err := splitAddress(state.Address)
		if err != nil {
			return nil, err
		}
		values["web"] = joinAddress(host, port)
		values["secureweb"] = joinAddress(host, port)
	} else if state.Enabled {
		return nil, fmt.Errorf("enabled proxy without an address")
	}
	st := "off"
	if state.Enabled {
		st = "on"
	}
	values["web.state"] = st
	values["secureweb.state"] = st
	return values, nil
}

func (s *darwinStore) commit(context.Context) error { return nil }

// parseNetworksetup reads "Key: Value" lines.
func parseNetworksetup(out string) map[string]string {
	fields := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return fields
}

func listNetworkServices(ctx context.Context, run Runner) ([]string, error) {
	out, err := run.Run(ctx, "networksetup", "-listallnetworkservices")
	if err != nil {
		return nil, err
	}
	lines := strings.Split(out, "\n")
	services := make([]string, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "An asterisk") {
			continue
		}
		// Disabled services are prefixed with "*".
		if strings.HasPrefix(s, "*") {
			continue
		}
		services = append(services, s)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("no enabled network services found")
	}
	return services, nil
}
