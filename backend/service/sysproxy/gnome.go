package sysproxy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"maskbrowser/backend/domain"
)

const gnomeSchema = "org.gnome.system.proxy"

// gnomeKeys is "<section>.<key>" relative to gnomeSchema; "mode" lives on
// the schema itself and is written last so the addresses are in place first.
var gnomeKeys = []string{"http.host", "http.port", "https.host", "https.port", "mode"}

// gnomeStore edits GNOME's proxy settings through gsettings. Values are kept
// in GVariant text form ('manual', 'host', 8080) so a restore passes back
// exactly what gsettings printed.
type gnomeStore struct {
	run       Runner
	gsettings string
	logger    *slog.Logger
}

func (s *gnomeStore) name() string   { return "gnome" }
func (s *gnomeStore) keys() []string { return gnomeKeys }

func gnomeTarget(key string) (schema, name string) {
	section, k, ok := strings.Cut(key, ".")
	if !ok {
		return gnomeSchema, key
	}
	return gnomeSchema + "." + section, k
}

func (s *gnomeStore) read(ctx context.Context) (map[string]string, error) {
	raw := make(map[string]string, len(gnomeKeys))
	for _, key := range gnomeKeys {
		schema, k := gnomeTarget(key)
		out, err := s.run.Run(ctx, s.gsettings, "get", schema, k)
		if err != nil {
			return nil, err
		}
		raw[key] = strings.TrimSpace(out)
	}
	return raw, nil
}

func (s *gnomeStore) write(ctx context.Context, key, value string) error {
	schema, k := gnomeTarget(key)
	if _, err := s.run.Run(ctx, s.gsettings, "set", schema, k, value); err != nil {
		return err
	}
	// 读取回写结果，若未生效则直接写 dconf
	out, err := s.run.Run(ctx, s.gsettings, "get", schema, k)
	if err == nil && normalizeGSettingsValue(out) == normalizeGSettingsValue(value) {
		return nil
	}
	s.logger.Warn("gsettings value not applied, falling back to dconf", "key", key)
	path := "/" + strings.ReplaceAll(schema, ".", "/") + "/" + k
	if _, err := s.run.Run(ctx, "dconf", "write", path, value); err != nil {
		return fmt.Errorf("dconf write %s: %w", path, err)
	}
	return nil
}

func (s *gnomeStore) remove(ctx context.Context, key string) error {
	schema, k := gnomeTarget(key)
	_, err := s.run.Run(ctx, s.gsettings, "reset", schema, k)
	return err
}

func (s *gnomeStore) decode(raw map[string]string) domain.ProxyState {
	port, _ := strconv.Atoi(normalizeGSettingsValue(raw["http.port"]))
	return domain.ProxyState{
		Address: joinAddress(normalizeGSettingsValue(raw["http.host"]), port),
		Enabled: normalizeGSettingsValue(raw["mode"]) == "manual",
	}
}

func (s *gnomeStore) encode(state domain.ProxyState, current map[string]string) (map[string]string, error) {
	values := copyValues(current)
	if state.Address != "" {
		host, port, err := splitAddress(state.Address)
		if err != nil {
			return nil, err
		}
		for _, section := range []string{"http", "https"} {
			values[section+".host"] = "'" + escapeGVariantString(host) + "'"
			values[section+".port"] = strconv.Itoa(port)
		}
	} else if state.Enabled {
		return nil, fmt.Errorf("enabled proxy without an address")
	}
	if state.Enabled {
		values["mode"] = "'manual'"
	} else {
		values["mode"] = "'none'"
	}
	return values, nil
}

func (s *gnomeStore) commit(context.Context) error { return nil }

func normalizeGSettingsValue(val string) string {
	v := strings.TrimSpace(val)
	v = strings.TrimPrefix(v, "uint32 ")
	v = strings.Trim(v, "'\"")
	return v
}

func escapeGVariantString(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
