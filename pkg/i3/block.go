// Package i3 defines the wire types of the i3bar protocol: the header and
// preamble written once at startup, the Block objects that make up each
// status line, and the click events the window manager sends back on stdin.
package i3

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Markup selects how the bar interprets a block's text.
type Markup string

const (
	MarkupNone  Markup = "none"
	MarkupPango Markup = "pango"
)

// Align controls text alignment when MinWidth is larger than the text.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// MinWidth is either a pixel count or a sample string whose rendered width
// is used as the minimum.
type MinWidth struct {
	Pixels int
	Text   string
}

// MarshalJSON encodes the width as a string when Text is set, otherwise as
// an integer.
func (m MinWidth) MarshalJSON() ([]byte, error) {
	if m.Text != "" {
		return json.Marshal(m.Text)
	}
	return []byte(strconv.Itoa(m.Pixels)), nil
}

// UnmarshalJSON accepts both the integer and the string form.
func (m *MinWidth) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*m = MinWidth{}
		return json.Unmarshal(data, &m.Text)
	}
	*m = MinWidth{}
	return json.Unmarshal(data, &m.Pixels)
}

// Block is one entry in the status line array.
//
// Extra holds custom fields. They are written with a leading underscore, as
// the protocol reserves underscore-prefixed keys for clients, and the
// underscore is stripped again when parsing.
type Block struct {
	FullText            string    `json:"full_text"`
	ShortText           string    `json:"short_text,omitempty"`
	Color               string    `json:"color,omitempty"`
	Background          string    `json:"background,omitempty"`
	Border              string    `json:"border,omitempty"`
	BorderTop           *int      `json:"border_top,omitempty"`
	BorderRight         *int      `json:"border_right,omitempty"`
	BorderBottom        *int      `json:"border_bottom,omitempty"`
	BorderLeft          *int      `json:"border_left,omitempty"`
	MinWidth            *MinWidth `json:"min_width,omitempty"`
	Align               Align     `json:"align,omitempty"`
	Name                string    `json:"name,omitempty"`
	Instance            string    `json:"instance,omitempty"`
	Urgent              bool      `json:"urgent,omitempty"`
	Separator           *bool     `json:"separator,omitempty"`
	SeparatorBlockWidth *int      `json:"separator_block_width,omitempty"`
	Markup              Markup    `json:"markup,omitempty"`

	Extra map[string]any `json:"-"`
}

// NewBlock returns a block showing text.
func NewBlock(text string) *Block {
	return &Block{FullText: text}
}

// Clone returns a copy of b that shares no mutable state with it.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	c.BorderTop = cloneInt(b.BorderTop)
	c.BorderRight = cloneInt(b.BorderRight)
	c.BorderBottom = cloneInt(b.BorderBottom)
	c.BorderLeft = cloneInt(b.BorderLeft)
	c.SeparatorBlockWidth = cloneInt(b.SeparatorBlockWidth)
	if b.Separator != nil {
		v := *b.Separator
		c.Separator = &v
	}
	if b.MinWidth != nil {
		v := *b.MinWidth
		c.MinWidth = &v
	}
	if b.Extra != nil {
		c.Extra = make(map[string]any, len(b.Extra))
		for k, v := range b.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Set records a custom field. The key is stored without the leading
// underscore.
func (b *Block) Set(key string, value any) {
	if b.Extra == nil {
		b.Extra = make(map[string]any)
	}
	b.Extra[strings.TrimPrefix(key, "_")] = value
}

// Get returns a custom field previously stored with Set or parsed from JSON.
func (b *Block) Get(key string) (any, bool) {
	v, ok := b.Extra[strings.TrimPrefix(key, "_")]
	return v, ok
}

// SeparatorEnabled reports whether the bar draws a separator after b. The
// protocol default is true.
func (b *Block) SeparatorEnabled() bool {
	return b.Separator == nil || *b.Separator
}

// plainBlock has Block's fields without its methods.
type plainBlock Block

// MarshalJSON writes the standard fields followed by the custom fields in
// key order.
func (b Block) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(plainBlock(b))
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return data, nil
	}

	keys := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		v, err := json.Marshal(b.Extra[k])
		if err != nil {
			return nil, fmt.Errorf("extra field %q: %w", k, err)
		}
		name, _ := json.Marshal("_" + k)
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the standard fields and collects underscore-prefixed
// keys into Extra.
func (b *Block) UnmarshalJSON(data []byte) error {
	var p plainBlock
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if !strings.HasPrefix(k, "_") {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("extra field %q: %w", k, err)
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[strings.TrimPrefix(k, "_")] = val
	}

	*b = Block(p)
	return nil
}

// Bool returns a pointer to v, for the optional boolean fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for the optional integer fields.
func Int(v int) *int { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
