package sysproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"maskbrowser/backend/domain"
	"maskbrowser/backend/persist"
)

const kdeSection = "Proxy Settings"

// ProxyType values in kioslaverc.
const (
	kdeProxyNone   = "0"
	kdeProxyManual = "1"
)

var kdeKeys = []string{"httpProxy", "httpsProxy", "ProxyType"}

func init() {
	// kioslaverc is written as key=value without alignment padding.
	ini.PrettyFormat = false
}

// kdeStore edits the [Proxy Settings] group of kioslaverc. Absent keys stay
// absent after a restore.
type kdeStore struct {
	path string
	run  Runner
}

func (s *kdeStore) name() string   { return "kde" }
func (s *kdeStore) keys() []string { return kdeKeys }

func (s *kdeStore) load() (*ini.File, error) {
	opts := ini.LoadOptions{Loose: true, IgnoreInlineComment: true, PreserveSurroundedQuote: true}
	f, err := ini.LoadSources(opts, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ini.Empty(opts), nil
		}
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return f, nil
}

func (s *kdeStore) save(f *ini.File) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return err
	}
	return persist.WriteAtomic(s.path, buf.Bytes(), 0o600)
}

func (s *kdeStore) read(context.Context) (map[string]string, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	raw := make(map[string]string, len(kdeKeys))
	sec := f.Section(kdeSection)
	for _, k := range kdeKeys {
		if sec.HasKey(k) {
			raw[k] = sec.Key(k).String()
		}
	}
	return raw, nil
}

func (s *kdeStore) write(_ context.Context, key, value string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	f.Section(kdeSection).Key(key).SetValue(value)
	return s.save(f)
}

func (s *kdeStore) remove(_ context.Context, key string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	f.Section(kdeSection).DeleteKey(key)
	return s.save(f)
}

func (s *kdeStore) decode(raw map[string]string) domain.ProxyState {
	return domain.ProxyState{
		Address: kdeToAddress(raw["httpProxy"]),
		Enabled: raw["ProxyType"] == kdeProxyManual,
	}
}

func (s *kdeStore) encode(state domain.ProxyState, current map[string]string) (map[string]string, error) {
	values := copyValues(current)
	if state.Address != "" {
		host, port, err := splitAddress(state.Address)
		if err != nil {
			return nil, err
		}
		entry := "http://" + host + " " + strconv.Itoa(port)
		values["httpProxy"] = entry
		values["httpsProxy"] = entry
	} else if state.Enabled {
		return nil, fmt.Errorf("enabled proxy without an address")
	}
	if state.Enabled {
		values["ProxyType"] = kdeProxyManual
	} else {
		values["ProxyType"] = kdeProxyNone
	}
	return values, nil
}

// commit asks running KIO workers to reread kioslaverc; best effort.
func (s *kdeStore) commit(ctx context.Context) error {
	if s.run == nil || !commandExists("dbus-send") {
		return nil
	}
	_, err := s.run.Run(ctx, "dbus-send", "--type=signal", "/KIO/Scheduler",
		"org.kde.KIO.Scheduler.reparseSlaveConfiguration", "string:")
	return err
}

// kdeToAddress turns "http://host port" into "host:port".
func kdeToAddress(entry string) string {
	entry = strings.TrimSpace(entry)
	if i := strings.Index(entry, "://"); i >= 0 {
		entry = entry[i+3:]
	}
	host, port, ok := strings.Cut(entry, " ")
	if !ok {
		return strings.TrimRight(entry, "/")
	}
	n, _ := strconv.Atoi(strings.TrimSpace(port))
	return joinAddress(strings.TrimRight(host, "/"), n)
}
