package responsive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/furry-media/query"
)

const sampleConfig = `
debounce = "25ms"
notify = "always"

[initial]
isTablet = true

[queries]
wide = { minWidth = 1_200, maxAspectRatio = "16/9" }

[queries.isTablet]
minWidth = 768
maxWidth = 1024

[queries.print]
print = true
color = false
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Debounce != 25*time.Millisecond {
		t.Fatalf("expected 25ms debounce, got %s", cfg.Debounce)
	}
	if cfg.Notify != NotifyAlways {
		t.Fatalf("expected NotifyAlways, got %s", cfg.Notify)
	}
	if !cfg.Initial.Matches("isTablet") {
		t.Fatalf("expected initial isTablet=true, got %v", cfg.Initial)
	}
	if strings.Join(cfg.Order, ",") != "wide,isTablet,print" {
		t.Fatalf("expected file order, got %v", cfg.Order)
	}

	cases := map[string]string{
		"isTablet": "(min-width: 768px) and (max-width: 1024px)",
		"print":    "print and not color",
		"wide":     "(min-width: 1200px) and (max-aspect-ratio: 16/9)",
	}
	for key, want := range cases {
		if got := query.Build(cfg.Queries[key]); got != want {
			t.Fatalf("%s: expected %q, got %q", key, want, got)
		}
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`[queries.dark]
prefersColorScheme = "dark"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Debounce != DefaultDebounce || cfg.Notify != NotifyOnChange {
		t.Fatalf("expected defaults, got %s %s", cfg.Debounce, cfg.Notify)
	}
	if cfg.Initial != nil {
		t.Fatalf("expected no initial state, got %v", cfg.Initial)
	}
	if got := query.Build(cfg.Queries["dark"]); got != "(prefers-color-scheme: dark)" {
		t.Fatalf("unexpected query %q", got)
	}
}

func TestParseConfig_TopLevelInlineTable(t *testing.T) {
	cfg, err := ParseConfig([]byte(`queries = { narrow = { maxWidth = 79 }, wide = { minWidth = 1 }, tall.minHeight = 40 }
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(cfg.Order, ",") != "narrow,wide,tall" {
		t.Fatalf("expected file order, got %v", cfg.Order)
	}
	cases := map[string]string{
		"narrow": "(max-width: 79px)",
		"wide":   "(min-width: 1px)",
		"tall":   "(min-height: 40px)",
	}
	for key, want := range cases {
		if got := query.Build(cfg.Queries[key]); got != want {
			t.Fatalf("%s: expected %q, got %q", key, want, got)
		}
	}
}

func TestParseConfig_Errors(t *testing.T) {
	cases := map[string]string{
		"bad debounce": `debounce = "soon"`,
		"negative":     `debounce = "-1s"`,
		"bad notify":   `notify = "sometimes"`,
		"bad toml":     `debounce = `,
		"nested":       "[queries.a]\nb.c = 1\n",
		"array value":  "[queries.a]\nb = [1, 2]\n",
		"stray key":    "[queries]\nflag = true\n",
		"scalar":       "queries = 1\n",
		"inline stray": "queries = { flag = true }\n",
		"inline deep":  "queries = { a = { b = { c = 1 } } }\n",
	}
	for name, data := range cases {
		if _, err := ParseConfig([]byte(data)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "media.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(cfg.Queries))
	}

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	if _, err := LoadConfig("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestConfig_Options(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	store := New(cfg.Queries, cfg.Options()...)
	defer store.Destroy()
	if store.opts.debounce != 25*time.Millisecond || store.opts.policy != NotifyAlways {
		t.Fatalf("expected options to be applied, got %s %s", store.opts.debounce, store.opts.policy)
	}
	if !store.GetState().Equal(State{"isTablet": true}) {
		t.Fatalf("expected initial state without media, got %v", store.GetState())
	}
}
