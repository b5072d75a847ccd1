package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"maskbrowser/backend/persist"
)

// BuiltinMasks is the catalog written by Generate. Order is kept for readable output.
var BuiltinMasks = []struct {
	Name   string
	Fields [5]string
}{
	{"msword", [5]string{"Microsoft Word", "Microsoft Office", "https://microsoft.com", "msword-64.png", "msword-128.png"}},
	{"mspowerpoint", [5]string{"Microsoft PowerPoint", "Microsoft Office", "https://microsoft.com", "mspowerpoint-64.png", "mspowerpoint-128.png"}},
	{"msexcel", [5]string{"Microsoft Excel", "Microsoft Office", "https://microsoft.com", "msexcel-64.png", "msexcel-128.png"}},
	{"photoshop", [5]string{"Adobe Photoshop", "Adobe Creative Cloud", "https://adobe.com", "photoshop-64.png", "photoshop-128.png"}},
	{"chrome", [5]string{"Google Chrome", "Google", "https://google.com", "chrome-64.png", "chrome-128.png"}},
}

// DefaultAPI is the gateway base URL written into generated configs.
const DefaultAPI = "http://127.0.0.1:18080/pyb"

type generatedDefaults struct {
	Mask       string   `json:"mask"`
	Title      *string  `json:"title"`
	Theme      string   `json:"theme"`
	API        string   `json:"api"`
	Connect    bool     `json:"connect"`
	Adblock    bool     `json:"adblock"`
	ExtraFlags []string `json:"qapp_flags"`
}

// Generate renders the default config with an info record naming the
// generating app version and user.
func Generate(appVersion, creator string) ([]byte, error) {
	var masks bytes.Buffer
	masks.WriteString("{")
	for i, m := range BuiltinMasks {
		if i > 0 {
			masks.WriteString(",")
		}
		name, _ := json.Marshal(m.Name)
		fields, _ := json.Marshal(m.Fields)
		masks.Write(name)
		masks.WriteString(":")
		masks.Write(fields)
	}
	masks.WriteString("}")

	doc := struct {
		Masks   json.RawMessage   `json:"masks"`
		Default generatedDefaults `json:"default"`
		Info    Info              `json:"info"`
	}{
		Masks: json.RawMessage(masks.Bytes()),
		Default: generatedDefaults{
			Mask:       "msword",
			Theme:      "dark",
			API:        DefaultAPI,
			Connect:    true,
			Adblock:    true,
			ExtraFlags: []string{},
		},
		Info: Info{Version: appVersion, Creator: creator},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault generates the default config and writes it to path.
func WriteDefault(path, appVersion, creator string) error {
	data, err := Generate(appVersion, creator)
	if err != nil {
		return err
	}
	return persist.WriteAtomic(path, data, 0o644)
}
