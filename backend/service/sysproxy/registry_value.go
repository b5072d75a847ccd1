package sysproxy

import (
	"fmt"
	"strconv"
	"strings"
)

// Registry value types kept in raw snapshots so that a restore recreates a
// value with the type it was captured with.
const (
	regSZ       = "REG_SZ"
	regExpandSZ = "REG_EXPAND_SZ"
	regDWord    = "REG_DWORD"
	regQWord    = "REG_QWORD"
)

// registryKeys are the WinINet values under HKCU Internet Settings, in write order.
var registryKeys = []string{"ProxyServer", "ProxyEnable"}

// regValue is one typed registry value in its raw "TYPE:data" form.
type regValue struct {
	Type string
	Data string
}

func (v regValue) String() string { return v.Type + ":" + v.Data }

// parseRegValue splits a raw snapshot value. Untyped values, as written by
// journals from older builds, take fallback as their type.
func parseRegValue(raw, fallback string) regValue {
	if t, data, ok := strings.Cut(raw, ":"); ok {
		switch t {
		case regSZ, regExpandSZ, regDWord, regQWord:
			return regValue{Type: t, Data: data}
		}
	}
	return regValue{Type: fallback, Data: raw}
}

// integer returns the numeric data of a DWORD or QWORD value.
func (v regValue) integer() (uint64, error) {
	bits := 32
	if v.Type == regQWord {
		bits = 64
	}
	n, err := strconv.ParseUint(v.Data, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%s value %q: %w", v.Type, v.Data, err)
	}
	return n, nil
}

// decodeRegistry maps the WinINet values to a proxy state.
func decodeRegistry(raw map[string]string) (address string, enabled bool) {
	if s, ok := raw["ProxyServer"]; ok {
		address = parseRegValue(s, regSZ).Data
	}
	if s, ok := raw["ProxyEnable"]; ok {
		n, err := parseRegValue(s, regDWord).integer()
		enabled = err == nil && n != 0
	}
	return address, enabled
}

// encodeRegistry builds raw values for address/enabled, reusing the value
// types found in current.
func encodeRegistry(address string, enabled bool, current map[string]string) (map[string]string, error) {
	if enabled && address == "" {
		return nil, fmt.Errorf("enabled proxy without an address")
	}
	serverType, enableType := regSZ, regDWord
	if s, ok := current["ProxyServer"]; ok {
		serverType = parseRegValue(s, regSZ).Type
	}
	if s, ok := current["ProxyEnable"]; ok {
		enableType = parseRegValue(s, regDWord).Type
	}
	enable := "0"
	if enabled {
		enable = "1"
	}
	return map[string]string{
		"ProxyServer": regValue{Type: serverType, Data: address}.String(),
		"ProxyEnable": regValue{Type: enableType, Data: enable}.String(),
	}, nil
}
