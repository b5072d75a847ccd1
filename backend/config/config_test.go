package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"maskbrowser/backend/domain"
)

const sampleConfig = `{
	// hand edited
	"masks": {
		"MSWord": ["Microsoft Word", "Microsoft Office", "https://microsoft.com", "a.png", "b.png"],
	},
	"default": {
		"mask": "msword",
		"title": null,
		"theme": "dark",
		"api": "https://gw.example/pyb",
		"connect": true,
		"adblock": true,
		"qapp_flags": ["--no-sandbox"]
	},
	"info": {"version": "1.0.0a", "creator": "tester"}
}`

func ptr[T any](v T) *T { return &v }

func mustParse(t *testing.T, data string) *File {
	t.Helper()
	f, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return f
}

func TestParseLowercasesMaskNames(t *testing.T) {
	f := mustParse(t, sampleConfig)
	rec, ok := f.Masks["msword"]
	if !ok {
		t.Fatalf("mask catalog keys = %v, want msword", f.Masks)
	}
	if rec.Title != "Microsoft Word" || rec.Icon128 != "b.png" {
		t.Errorf("msword = %+v", rec)
	}
	if f.Gateway.Timeout != DefaultGatewayTimeout {
		t.Errorf("Gateway.Timeout = %v, want default", f.Gateway.Timeout)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "masks = 1"},
		{"missing masks", `{"default": {}}`},
		{"missing default", `{"masks": {}}`},
		{"short mask tuple", `{"masks": {"x": ["a", "b"]}, "default": {}}`},
		{"wrong field type", `{"masks": {}, "default": {"connect": "yes"}}`},
		{"bad timeout", `{"masks": {}, "default": {}, "gateway": {"timeout": "soon"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, domain.ErrConfigUnreadable) {
				t.Errorf("Parse() error = %v, want ErrConfigUnreadable", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if !errors.Is(err, domain.ErrConfigUnreadable) {
		t.Fatalf("Load() error = %v, want ErrConfigUnreadable", err)
	}
}

func TestLoadGatewayOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"masks": {}, "default": {}, "gateway": {"timeout": "3s", "max_rule_bytes": 1024}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Path != path || f.Gateway.Timeout != 3*time.Second || f.Gateway.MaxRuleBytes != 1024 {
		t.Errorf("Load() = %+v", f)
	}
}

func TestResolveUsesDefaults(t *testing.T) {
	f := mustParse(t, sampleConfig)
	got, err := Resolve(f, Overrides{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := domain.ResolvedSettings{
		Mask:       "msword",
		Theme:      "dark",
		API:        "https://gw.example/pyb",
		Connect:    true,
		Adblock:    true,
		ExtraFlags: []string{"--no-sandbox"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolveOverridePrecedence(t *testing.T) {
	f := mustParse(t, sampleConfig)
	full := Overrides{
		Mask:       ptr("chrome"),
		Title:      ptr("Notes"),
		Theme:      ptr("light"),
		API:        ptr("http://localhost:1/"),
		Connect:    ptr(false),
		Adblock:    ptr(false),
		ExtraFlags: []string{},
		Proxy:      ptr("127.0.0.1:8080"),
		Debug:      ptr(true),
	}

	// Every subset of overrides: overridden fields equal the override, the rest equal the default.
	fields := 9
	for mask := 0; mask < 1<<fields; mask++ {
		var ov Overrides
		set := func(bit int) bool { return mask&(1<<bit) != 0 }
		if set(0) {
			ov.Mask = full.Mask
		}
		if set(1) {
			ov.Title = full.Title
		}
		if set(2) {
			ov.Theme = full.Theme
		}
		if set(3) {
			ov.API = full.API
		}
		if set(4) {
			ov.Connect = full.Connect
		}
		if set(5) {
			ov.Adblock = full.Adblock
		}
		if set(6) {
			ov.ExtraFlags = full.ExtraFlags
		}
		if set(7) {
			ov.Proxy = full.Proxy
		}
		if set(8) {
			ov.Debug = full.Debug
		}

		got, err := Resolve(f, ov)
		if err != nil {
			t.Fatalf("subset %b: Resolve() error = %v", mask, err)
		}
		check := func(name string, overridden bool, gotV, overV, defV any) {
			want := defV
			if overridden {
				want = overV
			}
			if !reflect.DeepEqual(gotV, want) {
				t.Errorf("subset %b: %s = %v, want %v", mask, name, gotV, want)
			}
		}
		check("mask", set(0), got.Mask, "chrome", "msword")
		check("title", set(1), got.Title, "Notes", "")
		check("theme", set(2), got.Theme, "light", "dark")
		check("api", set(3), got.API, "http://localhost:1/", "https://gw.example/pyb")
		check("connect", set(4), got.Connect, false, true)
		check("adblock", set(5), got.Adblock, false, true)
		check("flags", set(6), got.ExtraFlags, []string{}, []string{"--no-sandbox"})
		check("proxy", set(7), got.Proxy, "127.0.0.1:8080", "")
		check("debug", set(8), got.Debug, true, false)
	}
}

func TestResolveIncomplete(t *testing.T) {
	f := mustParse(t, `{"masks": {}, "default": {"mask": null, "theme": "dark", "connect": false, "adblock": false, "qapp_flags": []}}`)

	_, err := Resolve(f, Overrides{})
	if !errors.Is(err, domain.ErrConfigIncomplete) {
		t.Fatalf("Resolve() error = %v, want ErrConfigIncomplete", err)
	}
	for _, field := range []string{"mask", "api", "title"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name %s", err, field)
		}
	}

	// Overrides fill every gap.
	got, err := Resolve(f, Overrides{Mask: ptr("msword"), API: ptr(""), Title: ptr("")})
	if err != nil {
		t.Fatalf("Resolve() with overrides error = %v", err)
	}
	if got.Mask != "msword" || got.Connect {
		t.Errorf("Resolve() = %+v", got)
	}
}

func TestResolveEmptyAPIWhileConnected(t *testing.T) {
	f := mustParse(t, sampleConfig)
	_, err := Resolve(f, Overrides{API: ptr("  ")})
	if !errors.Is(err, domain.ErrConfigIncomplete) {
		t.Fatalf("Resolve() error = %v, want ErrConfigIncomplete", err)
	}
}

func TestGenerateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := WriteDefault(path, "1.0.0a", "alice"); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Masks) != len(BuiltinMasks) {
		t.Errorf("mask count = %d, want %d", len(f.Masks), len(BuiltinMasks))
	}
	if f.Info == nil || f.Info.Version != "1.0.0a" || f.Info.Creator != "alice" {
		t.Errorf("Info = %+v", f.Info)
	}
	got, err := Resolve(f, Overrides{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Mask != "msword" || got.Title != "" || got.API != DefaultAPI {
		t.Errorf("Resolve() = %+v", got)
	}
}
