package theme

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// thTOMLHeader is read before the theme body to find the theme to start
// from.
type thTOMLHeader struct {
	Base string `toml:"base"`
}

// LoadFromTOML parses a TOML theme definition from raw bytes. Keys missing
// from the file are taken from the theme named by "base", or from the
// default theme.
//
//	base = "gruvbox"
//	name = "mine"
//	powerline_enable = true
//
//	[[powerline]]
//	fg = "#ebdbb2"
//	bg = "#3c3836"
func LoadFromTOML(data []byte) (Theme, error) {
	var hdr thTOMLHeader
	if err := toml.Unmarshal(data, &hdr); err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}

	base := DefaultName
	if hdr.Base != "" {
		base = hdr.Base
	}
	t, ok := Lookup(base)
	if !ok {
		return Theme{}, fmt.Errorf("theme: unknown base theme %q", base)
	}

	if err := toml.Unmarshal(data, &t); err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Theme{}, fmt.Errorf("theme: %w", err)
	}
	return t, nil
}

// LoadFile reads a TOML theme file.
func LoadFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("theme: %w", err)
	}
	return LoadFromTOML(data)
}

// SaveToTOML serializes a theme to TOML bytes.
func SaveToTOML(t Theme) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}
