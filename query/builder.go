// Package query builds, parses and evaluates media query strings.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Feature is a single media feature and its expected value.
// Value is a bool, a Go integer or float, or a string.
type Feature struct {
	Name  string
	Value any
}

// Descriptor is an ordered list of features that must all hold.
// Order is preserved in the built query string.
type Descriptor []Feature

// D builds a Descriptor from alternating name/value pairs.
// It panics if pairs is odd-length or a name is not a string.
func D(pairs ...any) Descriptor {
	if len(pairs)%2 != 0 {
		panic("query: D requires name/value pairs")
	}
	d := make(Descriptor, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("query: feature name at %d is %T, not string", i, pairs[i]))
		}
		d = append(d, Feature{Name: name, Value: pairs[i+1]})
	}
	return d
}

// Build converts a descriptor into a media query string.
//
// Names are hyphenated (minWidth -> min-width). true emits the bare feature,
// false emits "not feature". Numbers on width/height features get a px
// suffix. Anything else becomes "(feature: value)". Fragments are joined with
// " and ". Features with a nil value are skipped.
func Build(d Descriptor) string {
	if len(d) == 0 {
		return ""
	}
	rules := make([]string, 0, len(d))
	for _, f := range d {
		if f.Value == nil {
			continue
		}
		rules = append(rules, rule(Hyphenate(f.Name), f.Value))
	}
	return strings.Join(rules, " and ")
}

// Hyphenate converts word-separated casing to hyphen-separated lower case.
// The conversion is purely lexical over ASCII; names that are already
// hyphenated pass through unchanged.
func Hyphenate(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 && name[i-1] != '-' {
				b.WriteByte('-')
			}
			b.WriteByte(c + ('a' - 'A'))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// IsDimension reports whether a hyphenated feature measures a length.
func IsDimension(name string) bool {
	return strings.HasSuffix(name, "width") || strings.HasSuffix(name, "height")
}

func rule(name string, value any) string {
	if b, ok := value.(bool); ok {
		if b {
			return name
		}
		return "not " + name
	}
	text, numeric := formatValue(value)
	if numeric && IsDimension(name) {
		text += "px"
	}
	return "(" + name + ": " + text + ")"
}

// formatValue renders v without locale-dependent formatting and reports
// whether v was numeric.
func formatValue(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, false
	case int:
		return strconv.FormatInt(int64(n), 10), true
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float32:
		return formatFloat(float64(n)), true
	case float64:
		return formatFloat(n), true
	case fmt.Stringer:
		return n.String(), false
	default:
		return fmt.Sprint(v), false
	}
}

func formatFloat(f float64) string {
	if math.Trunc(f) == f && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
