// Package config loads the persisted launcher configuration and layers
// caller overrides on top of it.
//
// The file is JSON; comments and trailing commas are tolerated so that
// hand-edited configs keep working. A missing or malformed file is fatal:
// the launcher never falls back to partial defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"maskbrowser/backend/domain"
)

const (
	DefaultConfigPath = "config.json"

	DefaultGatewayTimeout = 15 * time.Second
	DefaultMaxRuleBytes   = 8 * 1024 * 1024
)

// File is the decoded config file.
type File struct {
	Path    string
	Masks   domain.MaskCatalog
	Default Defaults
	Info    *Info
	Gateway GatewayOptions
}

// Info records how and when the file was generated. The session never reads it.
type Info struct {
	Version string `json:"version"`
	Creator string `json:"creator"`
}

// Defaults is the "default" record. Pointer fields distinguish absent/null from zero values.
type Defaults struct {
	Mask       *string   `json:"mask"`
	Title      *string   `json:"title"`
	Theme      *string   `json:"theme"`
	API        *string   `json:"api"`
	Connect    *bool     `json:"connect"`
	Adblock    *bool     `json:"adblock"`
	ExtraFlags *[]string `json:"qapp_flags"`

	// titlePresent is true when the key exists, even with a null value.
	titlePresent bool
}

func (d *Defaults) UnmarshalJSON(data []byte) error {
	type plain Defaults
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*d = Defaults(p)
	_, d.titlePresent = keys["title"]
	return nil
}

// GatewayOptions is the optional "gateway" record.
type GatewayOptions struct {
	Timeout      time.Duration
	MaxRuleBytes int64
}

type rawFile struct {
	Masks   map[string][]string `json:"masks"`
	Default *Defaults           `json:"default"`
	Info    *Info               `json:"info,omitempty"`
	Gateway *struct {
		Timeout      string `json:"timeout"`
		MaxRuleBytes int64  `json:"max_rule_bytes"`
	} `json:"gateway,omitempty"`
}

// Load reads and decodes path. Every failure wraps domain.ErrConfigUnreadable.
func Load(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigUnreadable, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse decodes config bytes.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigUnreadable, err)
	}
	if raw.Masks == nil {
		return nil, fmt.Errorf("%w: missing \"masks\" record", domain.ErrConfigUnreadable)
	}
	if raw.Default == nil {
		return nil, fmt.Errorf("%w: missing \"default\" record", domain.ErrConfigUnreadable)
	}

	masks := make(domain.MaskCatalog, len(raw.Masks))
	for name, fields := range raw.Masks {
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: mask %q has %d fields, want 5 (title, org, domain, icon64, icon128)",
				domain.ErrConfigUnreadable, name, len(fields))
		}
		masks[strings.ToLower(name)] = domain.MaskRecord{
			Title:     fields[0],
			OrgName:   fields[1],
			OrgDomain: fields[2],
			Icon64:    fields[3],
			Icon128:   fields[4],
		}
	}

	f := &File{
		Masks:   masks,
		Default: *raw.Default,
		Info:    raw.Info,
		Gateway: GatewayOptions{Timeout: DefaultGatewayTimeout, MaxRuleBytes: DefaultMaxRuleBytes},
	}
	if raw.Gateway != nil {
		if s := strings.TrimSpace(raw.Gateway.Timeout); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("%w: gateway.timeout %q", domain.ErrConfigUnreadable, s)
			}
			f.Gateway.Timeout = d
		}
		if raw.Gateway.MaxRuleBytes > 0 {
			f.Gateway.MaxRuleBytes = raw.Gateway.MaxRuleBytes
		}
	}
	return f, nil
}

// Overrides are caller-supplied values; a nil field is absent.
type Overrides struct {
	Mask       *string
	Title      *string
	Theme      *string
	API        *string
	Connect    *bool
	Adblock    *bool
	ExtraFlags []string
	Proxy      *string
	Debug      *bool
}

// Resolve layers ov over f.Default. Any field left without a value fails
// with domain.ErrConfigIncomplete naming every missing field.
func Resolve(f *File, ov Overrides) (domain.ResolvedSettings, error) {
	if f == nil {
		return domain.ResolvedSettings{}, fmt.Errorf("%w: no config loaded", domain.ErrConfigIncomplete)
	}
	var missing []string
	def := f.Default

	str := func(name string, override, persisted *string) string {
		if override != nil {
			return *override
		}
		if persisted != nil {
			return *persisted
		}
		missing = append(missing, name)
		return ""
	}
	flag := func(name string, override, persisted *bool) bool {
		if override != nil {
			return *override
		}
		if persisted != nil {
			return *persisted
		}
		missing = append(missing, name)
		return false
	}

	out := domain.ResolvedSettings{
		Mask:    str("mask", ov.Mask, def.Mask),
		Theme:   str("theme", ov.Theme, def.Theme),
		API:     str("api", ov.API, def.API),
		Connect: flag("connect", ov.Connect, def.Connect),
		Adblock: flag("adblock", ov.Adblock, def.Adblock),
	}

	switch {
	case ov.Title != nil:
		out.Title = *ov.Title
	case def.Title != nil:
		out.Title = *def.Title
	case def.titlePresent:
		// null: use the mask title
	default:
		missing = append(missing, "title")
	}

	switch {
	case ov.ExtraFlags != nil:
		out.ExtraFlags = append([]string{}, ov.ExtraFlags...)
	case def.ExtraFlags != nil:
		out.ExtraFlags = append([]string{}, (*def.ExtraFlags)...)
	default:
		missing = append(missing, "qapp_flags")
	}

	if ov.Proxy != nil {
		out.Proxy = strings.TrimSpace(*ov.Proxy)
	}
	if ov.Debug != nil {
		out.Debug = *ov.Debug
	}

	if len(missing) > 0 {
		return domain.ResolvedSettings{}, fmt.Errorf("%w: no value for %s", domain.ErrConfigIncomplete, strings.Join(missing, ", "))
	}
	if out.Connect && strings.TrimSpace(out.API) == "" {
		return domain.ResolvedSettings{}, fmt.Errorf("%w: api base URL is empty while connect is enabled", domain.ErrConfigIncomplete)
	}
	return out, nil
}

