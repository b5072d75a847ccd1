//go:build windows

package sysproxy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"maskbrowser/backend/domain"
)

const internetSettingsKey = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`

const (
	winInetOptionSettingsChanged = 39
	winInetOptionRefresh         = 37
)

var (
	wininetDLL            = windows.NewLazySystemDLL("wininet.dll")
	procInternetSetOption = wininetDLL.NewProc("InternetSetOptionW")
)

// registryStore edits the per-user WinINet proxy values.
type registryStore struct{}

func (registryStore) name() string   { return "registry" }
func (registryStore) keys() []string { return registryKeys }

func (registryStore) read(context.Context) (map[string]string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("open internet settings: %w", err)
	}
	defer k.Close()

	raw := map[string]string{}
	server, valType, err := k.GetStringValue("ProxyServer")
	switch {
	case err == nil:
		t := regSZ
		if valType == registry.EXPAND_SZ {
			t = regExpandSZ
		}
		raw["ProxyServer"] = regValue{Type: t, Data: server}.String()
	case !errors.Is(err, registry.ErrNotExist):
		return nil, fmt.Errorf("read ProxyServer: %w", err)
	}
	enable, valType, err := k.GetIntegerValue("ProxyEnable")
	switch {
	case err == nil:
		t := regDWord
		if valType == registry.QWORD {
			t = regQWord
		}
		raw["ProxyEnable"] = regValue{Type: t, Data: strconv.FormatUint(enable, 10)}.String()
	case !errors.Is(err, registry.ErrNotExist):
		return nil, fmt.Errorf("read ProxyEnable: %w", err)
	}
	return raw, nil
}

func (registryStore) write(_ context.Context, key, value string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open internet settings: %w", err)
	}
	defer k.Close()

	if key == "ProxyEnable" {
		v := parseRegValue(value, regDWord)
		n, err := v.integer()
		if err != nil {
			return err
		}
		if v.Type == regQWord {
			return k.SetQWordValue(key, n)
		}
		return k.SetDWordValue(key, uint32(n))
	}
	v := parseRegValue(value, regSZ)
	if v.Type == regExpandSZ {
		return k.SetExpandStringValue(key, v.Data)
	}
	return k.SetStringValue(key, v.Data)
}

func (registryStore) remove(_ context.Context, key string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open internet settings: %w", err)
	}
	defer k.Close()
	if err := k.DeleteValue(key); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return err
	}
	return nil
}

func (registryStore) decode(raw map[string]string) domain.ProxyState {
	address, enabled := decodeRegistry(raw)
	return domain.ProxyState{Address: address, Enabled: enabled}
}

func (registryStore) encode(state domain.ProxyState, current map[string]string) (map[string]string, error) {
	return encodeRegistry(state.Address, state.Enabled, current)
}

// commit 触发 WinINet 立刻刷新（让系统/应用尽快生效）
func (registryStore) commit(context.Context) error {
	if err := internetSetOption(winInetOptionSettingsChanged); err != nil {
		return err
	}
	return internetSetOption(winInetOptionRefresh)
}

func internetSetOption(option uintptr) error {
	if err := procInternetSetOption.Find(); err != nil {
		return err
	}
	ret, _, callErr := procInternetSetOption.Call(0, option, 0, 0)
	if ret == 0 {
		if callErr != windows.Errno(0) {
			return callErr
		}
		return fmt.Errorf("InternetSetOptionW failed (option=%d)", option)
	}
	return nil
}
