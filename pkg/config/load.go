package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// AppName names the configuration directory.
const AppName = "bar-pulse"

// Extensions lists the supported formats in the order they are tried for a
// path given without an extension.
var Extensions = []string{".toml", ".yaml", ".yml", ".json"}

// ErrNotFound is returned when no configuration file exists at a path.
var ErrNotFound = errors.New("config file not found")

// Load reads configuration from path, or from the standard config path
// when path is empty.
// Search order:
//  1. $XDG_CONFIG_HOME/bar-pulse/config.{toml,yaml,yml,json}
//  2. ~/.config/bar-pulse/config.{toml,yaml,yml,json}
//
// If no file exists in the standard locations, returns DefaultConfig().
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	for _, p := range configSearchPaths() {
		cfg, err := LoadFromFile(p)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return cfg, err
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file. A path without a
// recognized extension is tried with each of Extensions.
func LoadFromFile(path string) (*Config, error) {
	file, err := findFile(path)
	if err != nil {
		return nil, err
	}

	tree, err := loadTree(file)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeTree(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	cfg.Path = file
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// Parse decodes a single document in the given format ("toml", "yaml" or
// "json"). Includes are not followed.
func Parse(data []byte, format string) (*Config, error) {
	tree, err := decodeBytes(data, "."+strings.TrimPrefix(format, "."))
	if err != nil {
		return nil, err
	}
	cfg, err := decodeTree(tree)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Theme:    ThemeSetting{Name: "nord"},
		LogLevel: "info",
		Overlap:  "skip",
		Items:    Preset(DefaultPreset),
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BAR_PULSE_SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := os.Getenv("BAR_PULSE_THEME"); v != "" {
		var ts ThemeSetting
		if err := ts.UnmarshalJSON([]byte(quote(v))); err == nil {
			cfg.Theme = ts
		}
	}
	if v := os.Getenv("BAR_PULSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// findFile returns path if it exists, else the first existing path formed
// by appending one of Extensions.
func findFile(path string) (string, error) {
	if isSupported(filepath.Ext(path)) {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%s: %w", path, ErrNotFound)
			}
			return "", err
		}
		return path, nil
	}
	for _, ext := range Extensions {
		if _, err := os.Stat(path + ext); err == nil {
			return path + ext, nil
		}
	}
	return "", fmt.Errorf("%s{%s}: %w", path, strings.Join(Extensions, ","), ErrNotFound)
}

func isSupported(ext string) bool {
	for _, e := range Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// loadTree reads the main file and every file it includes, merged into one
// document. Include paths are relative to the main file's directory.
// Included files are merged over the main file: tables merge, lists
// append, and other values are replaced. A file is read at most once.
func loadTree(main string) (map[string]any, error) {
	abs, err := filepath.Abs(main)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)

	tree, err := readFile(abs)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{abs: true}

	queue, err := includes(tree, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", main, err)
	}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if seen[path] {
			continue
		}
		seen[path] = true

		doc, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
		more, err := includes(doc, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		queue = append(queue, more...)
		delete(doc, "include")
		tree = merge(tree, doc, true).(map[string]any)
	}
	delete(tree, "include")
	return tree, nil
}

// includes returns the absolute include paths listed in doc.
func includes(doc map[string]any, dir string) ([]string, error) {
	var list []string
	switch v := doc["include"].(type) {
	case nil:
		return nil, nil
	case string:
		list = []string{v}
	case []any:
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("include: expected a list of paths, got %T", e)
			}
			list = append(list, s)
		}
	default:
		return nil, fmt.Errorf("include: expected a path or a list of paths, got %T", v)
	}

	out := make([]string, 0, len(list))
	for _, p := range list {
		p = expandHome(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if !isSupported(filepath.Ext(p)) {
			return nil, fmt.Errorf("include %s: unsupported file extension %q", p, filepath.Ext(p))
		}
		out = append(out, filepath.Clean(p))
	}
	return out, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return os.ExpandEnv(p)
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := decodeBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// decodeBytes parses one document into a generic tree.
func decodeBytes(data []byte, ext string) (map[string]any, error) {
	doc := map[string]any{}
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return doc, nil
}

// decodeTree converts a generic tree into a Config by way of JSON, so the
// three formats share one set of decoding rules.
func decodeTree(tree map[string]any) (*Config, error) {
	data, err := json.Marshal(normalize(tree))
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize converts YAML's map[any]any nodes so the tree can be encoded
// as JSON.
func normalize(v any) any {
	switch n := v.(type) {
	case map[string]any:
		for k, e := range n {
			n[k] = normalize(e)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range n {
			n[i] = normalize(e)
		}
		return n
	case []map[string]any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// merge layers src over dst. Tables merge key by key; lists are appended
// when appendLists is set and replaced otherwise; other values are
// replaced.
func merge(dst, src any, appendLists bool) any {
	switch s := normalize(src).(type) {
	case map[string]any:
		d, ok := normalize(dst).(map[string]any)
		if !ok {
			return s
		}
		for k, v := range s {
			if cur, exists := d[k]; exists {
				d[k] = merge(cur, v, appendLists)
			} else {
				d[k] = v
			}
		}
		return d
	case []any:
		if d, ok := normalize(dst).([]any); ok && appendLists {
			return append(d, s...)
		}
		return s
	default:
		return src
	}
}

// configSearchPaths returns the ordered list of config file bases to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, AppName, "config"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, AppName, "config"))
	}

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
