package responsive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/odvcencio/furry-media/query"
)

// Config is the file form of a store's setup.
//
//	debounce = "60ms"
//	notify = "change"   # or "always"
//
//	[initial]
//	isTablet = true
//
//	[queries.isTablet]
//	minWidth = 768
//	maxWidth = 1024
//
// Feature order inside a query table is preserved.
type Config struct {
	Debounce time.Duration
	Notify   NotifyPolicy
	Initial  State
	Queries  NamedQueries
	// Order lists query keys in file order.
	Order []string
}

// LoadConfig reads a TOML config file. A leading ~ expands to the home
// directory. A missing file yields an error wrapping os.ErrNotExist.
func LoadConfig(path string) (Config, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", resolved, err)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses TOML config data.
func ParseConfig(data []byte) (Config, error) {
	var raw struct {
		Debounce string          `toml:"debounce"`
		Notify   string          `toml:"notify"`
		Initial  map[string]bool `toml:"initial"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{Debounce: DefaultDebounce, Notify: NotifyOnChange}
	if d := strings.TrimSpace(raw.Debounce); d != "" {
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: debounce: %w", err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("parse config: debounce must not be negative, got %s", d)
		}
		cfg.Debounce = parsed
	}
	switch strings.ToLower(strings.TrimSpace(raw.Notify)) {
	case "", "change":
	case "always":
		cfg.Notify = NotifyAlways
	default:
		return Config{}, fmt.Errorf("parse config: notify must be \"change\" or \"always\", got %q", raw.Notify)
	}
	if raw.Initial != nil {
		cfg.Initial = State(raw.Initial)
	}

	queries, order, err := parseQueries(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Queries = queries
	cfg.Order = order
	return cfg, nil
}

// Options converts the config into store options.
func (c Config) Options() []Option {
	opts := []Option{
		WithDebounce(c.Debounce),
		WithNotifyPolicy(c.Notify),
	}
	if c.Initial != nil {
		opts = append(opts, WithInitialState(c.Initial))
	}
	return opts
}

// parseQueries walks the document in order so each descriptor keeps the
// feature order written in the file.
func parseQueries(data []byte) (NamedQueries, []string, error) {
	queries := NamedQueries{}
	var order []string
	add := func(name string, f *query.Feature) {
		d, seen := queries[name]
		if !seen {
			order = append(order, name)
		}
		if f != nil {
			d = append(d, *f)
		}
		queries[name] = d
	}

	// assign places value at path, which starts with "queries". Inline
	// tables are walked as if their keys were written out in full.
	var assign func(path []string, value *unstable.Node) error
	assign = func(path []string, value *unstable.Node) error {
		switch {
		case len(path) == 3:
			f, err := feature(path[2], value)
			if err != nil {
				return fmt.Errorf("query %q: %w", path[1], err)
			}
			add(path[1], &f)
			return nil
		case len(path) < 3 && value.Kind == unstable.InlineTable:
			if len(path) == 2 {
				add(path[1], nil)
			}
			children := value.Children()
			for children.Next() {
				kv := children.Node()
				sub := append(append([]string(nil), path...), keyPath(kv.Key())...)
				if err := assign(sub, kv.Value()); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("unexpected key %q", strings.Join(path, "."))
		}
	}

	var p unstable.Parser
	p.Reset(data)
	var table []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyPath(expr.Key())
			if len(table) == 2 && table[0] == "queries" {
				add(table[1], nil)
			}
		case unstable.KeyValue:
			path := append(append([]string(nil), table...), keyPath(expr.Key())...)
			if path[0] != "queries" {
				continue
			}
			if err := assign(path, expr.Value()); err != nil {
				return nil, nil, err
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, nil, err
	}
	return queries, order, nil
}

func keyPath(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func feature(name string, value *unstable.Node) (query.Feature, error) {
	raw := string(value.Data)
	switch value.Kind {
	case unstable.Bool:
		return query.Feature{Name: name, Value: raw == "true"}, nil
	case unstable.String:
		return query.Feature{Name: name, Value: raw}, nil
	case unstable.Integer:
		n, err := strconv.ParseInt(strings.ReplaceAll(raw, "_", ""), 0, 64)
		if err != nil {
			return query.Feature{}, fmt.Errorf("feature %q: %w", name, err)
		}
		return query.Feature{Name: name, Value: n}, nil
	case unstable.Float:
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
		if err != nil {
			return query.Feature{}, fmt.Errorf("feature %q: %w", name, err)
		}
		return query.Feature{Name: name, Value: f}, nil
	default:
		return query.Feature{}, fmt.Errorf("feature %q: unsupported value kind %s", name, value.Kind)
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("config path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
