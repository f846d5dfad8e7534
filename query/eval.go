package query

import (
	"strconv"
	"strings"
)

// Values describes a host environment a query can be evaluated against.
// For terminal hosts, lengths are measured in cells and "px" is treated as
// one cell.
type Values struct {
	// Type is the media type, such as "screen" or "tty". Empty matches
	// "screen".
	Type         string
	Width        int
	Height       int
	DeviceWidth  int
	DeviceHeight int
	// Color is the number of bits per colour component; zero means no colour.
	Color int
	// ColorIndex is the number of entries in the colour lookup table.
	ColorIndex int
	// Monochrome is the number of bits per pixel on a monochrome device.
	Monochrome int
	// Resolution is measured in dots per inch.
	Resolution  float64
	ColorScheme string
	Scan        string
	Grid        bool
}

var mediaTypes = map[string]bool{
	"all": true, "aural": true, "braille": true, "embossed": true,
	"handheld": true, "print": true, "projection": true, "screen": true,
	"speech": true, "tty": true, "tv": true,
}

// MatchQuery parses q and evaluates it against v.
// An empty query matches.
func (v Values) MatchQuery(q string) (bool, error) {
	conds, err := Parse(q)
	if err != nil {
		return false, err
	}
	return v.Match(conds), nil
}

// Match reports whether every condition holds. Unknown features never hold.
func (v Values) Match(conds []Condition) bool {
	for _, c := range conds {
		if v.holds(c) == c.Negated {
			return false
		}
	}
	return true
}

func (v Values) holds(c Condition) bool {
	if !c.HasValue {
		return v.present(c.Feature)
	}
	name, cmp := splitRange(c.Feature)
	switch name {
	case "width":
		return compareLength(v.Width, c.Value, cmp)
	case "height":
		return compareLength(v.Height, c.Value, cmp)
	case "device-width":
		return compareLength(v.deviceWidth(), c.Value, cmp)
	case "device-height":
		return compareLength(v.deviceHeight(), c.Value, cmp)
	case "aspect-ratio":
		return compareRatio(v.Width, v.Height, c.Value, cmp)
	case "device-aspect-ratio":
		return compareRatio(v.deviceWidth(), v.deviceHeight(), c.Value, cmp)
	case "color":
		return compareInt(v.Color, c.Value, cmp)
	case "color-index":
		return compareInt(v.ColorIndex, c.Value, cmp)
	case "monochrome":
		return compareInt(v.Monochrome, c.Value, cmp)
	case "resolution":
		return compareResolution(v.Resolution, c.Value, cmp)
	case "grid":
		grid := 0
		if v.Grid {
			grid = 1
		}
		return cmp == 0 && compareInt(grid, c.Value, 0)
	case "orientation":
		return cmp == 0 && strings.EqualFold(c.Value, v.orientation())
	case "prefers-color-scheme":
		return cmp == 0 && strings.EqualFold(c.Value, v.ColorScheme)
	case "scan":
		return cmp == 0 && strings.EqualFold(c.Value, v.Scan)
	default:
		return false
	}
}

// present evaluates a feature in boolean context.
func (v Values) present(feature string) bool {
	if mediaTypes[feature] {
		if feature == "all" {
			return true
		}
		typ := strings.ToLower(v.Type)
		if typ == "" {
			typ = "screen"
		}
		return typ == feature
	}
	switch feature {
	case "color":
		return v.Color > 0
	case "color-index":
		return v.ColorIndex > 0
	case "monochrome":
		return v.Monochrome > 0
	case "grid":
		return v.Grid
	case "width":
		return v.Width > 0
	case "height":
		return v.Height > 0
	case "device-width":
		return v.deviceWidth() > 0
	case "device-height":
		return v.deviceHeight() > 0
	case "resolution":
		return v.Resolution > 0
	case "orientation":
		return true
	case "prefers-color-scheme":
		return v.ColorScheme != ""
	case "scan":
		return v.Scan != ""
	default:
		return false
	}
}

func (v Values) orientation() string {
	if v.Height >= v.Width {
		return "portrait"
	}
	return "landscape"
}

func (v Values) deviceWidth() int {
	if v.DeviceWidth > 0 {
		return v.DeviceWidth
	}
	return v.Width
}

func (v Values) deviceHeight() int {
	if v.DeviceHeight > 0 {
		return v.DeviceHeight
	}
	return v.Height
}

// splitRange strips a min-/max- prefix. cmp is -1 for max, 1 for min and 0
// for an exact match.
func splitRange(feature string) (string, int) {
	switch {
	case strings.HasPrefix(feature, "min-"):
		return strings.TrimPrefix(feature, "min-"), 1
	case strings.HasPrefix(feature, "max-"):
		return strings.TrimPrefix(feature, "max-"), -1
	default:
		return feature, 0
	}
}

func compareFloat(actual, expected float64, cmp int) bool {
	switch cmp {
	case 1:
		return actual >= expected
	case -1:
		return actual <= expected
	default:
		return actual == expected
	}
}

func compareInt(actual int, raw string, cmp int) bool {
	expected, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return compareFloat(float64(actual), float64(expected), cmp)
}

func compareLength(actual int, raw string, cmp int) bool {
	raw = strings.TrimSpace(strings.ToLower(raw))
	raw = strings.TrimSuffix(raw, "px")
	raw = strings.TrimSuffix(raw, "ch")
	expected, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	return compareFloat(float64(actual), expected, cmp)
}

func compareRatio(w, h int, raw string, cmp int) bool {
	if h == 0 {
		return false
	}
	num, den, ok := parseRatio(raw)
	if !ok {
		return false
	}
	// Cross-multiply to avoid float rounding on exact ratios.
	return compareFloat(float64(w)*den, num*float64(h), cmp)
}

func parseRatio(raw string) (float64, float64, bool) {
	left, right, found := strings.Cut(raw, "/")
	num, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return num, 1, true
	}
	den, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil || den == 0 {
		return 0, 0, false
	}
	return num, den, true
}

func compareResolution(actual float64, raw string, cmp int) bool {
	dpi, ok := parseResolution(raw)
	if !ok {
		return false
	}
	return compareFloat(actual, dpi, cmp)
}

func parseResolution(raw string) (float64, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	scale := 1.0
	switch {
	case strings.HasSuffix(raw, "dpi"):
		raw = strings.TrimSuffix(raw, "dpi")
	case strings.HasSuffix(raw, "dpcm"):
		raw = strings.TrimSuffix(raw, "dpcm")
		scale = 2.54
	case strings.HasSuffix(raw, "dppx"):
		raw = strings.TrimSuffix(raw, "dppx")
		scale = 96
	case strings.HasSuffix(raw, "x"):
		raw = strings.TrimSuffix(raw, "x")
		scale = 96
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return n * scale, true
}
