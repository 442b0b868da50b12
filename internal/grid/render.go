package grid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinColumnWidth is the minimum width hint applied to every column
// regardless of category.
const MinColumnWidth = 10

// Display glyphs for boolean cells. The collector encodes booleans as
// integer 1/0; only 1 renders truthy.
const (
	TruthyGlyph = "✓"
	FalsyGlyph  = "✗"
)

// Formats used for datetime display: a medium date for pure calendar
// dates, a full date-time with zone abbreviation otherwise.
const (
	dateDisplayFormat     = "Jan 2, 2006"
	datetimeDisplayFormat = "Mon, Jan 2, 2006 3:04 PM MST"
)

// calendarDatePattern matches an ISO-like pure date: 1-4 digit year,
// 1-2 digit month and day, nothing else.
var calendarDatePattern = regexp.MustCompile(`^(\d{1,4})-(\d{1,2})-(\d{1,2})$`)

// datetimeParseLayouts are tried in order when interpreting a raw value
// that is not a pure calendar date.
var datetimeParseLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// Cell is one rendered display value. Text stays copy-safe (the verbatim
// raw string for datetimes); Annotation carries the supplementary
// formatted form, when there is one.
type Cell struct {
	Text       string
	Truthy     bool
	Annotation string
}

// Renderer renders cells for one table according to its render plan.
// Zone resolves the viewer's local time zone at render time.
type Renderer struct {
	Plan RenderPlan
	Zone func() *time.Location
}

// Raw returns the export value for a cell: the raw value stringified,
// with no category-specific treatment applied.
func (r Renderer) Raw(value any, pos int) string {
	return Stringify(value)
}

// Display returns the display value for a cell, dispatching on the
// column's inferred category.
func (r Renderer) Display(value any, pos int) Cell {
	switch r.Plan.Kind(pos) {
	case KindBoolean:
		if isOne(value) {
			return Cell{Text: TruthyGlyph, Truthy: true}
		}
		return Cell{Text: FalsyGlyph}
	case KindDatetime:
		return r.displayDatetime(Stringify(value))
	default:
		return Cell{Text: escapeText(Stringify(value))}
	}
}

func (r Renderer) displayDatetime(raw string) Cell {
	if raw == "" {
		return Cell{}
	}

	zone := time.Local
	if r.Zone != nil {
		if z := r.Zone(); z != nil {
			zone = z
		}
	}

	// Built by hand rather than parsed with a layout: time layouts
	// demand 4-digit years, the pattern allows 1-4.
	if m := calendarDatePattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, zone)
		if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
			return Cell{Text: raw}
		}
		return Cell{Text: raw, Annotation: t.Format(dateDisplayFormat)}
	}

	for _, layout := range datetimeParseLayouts {
		t, err := time.ParseInLocation(layout, raw, zone)
		if err != nil {
			continue
		}
		return Cell{Text: raw, Annotation: t.In(zone).Format(datetimeDisplayFormat)}
	}
	return Cell{Text: raw}
}

// Stringify converts a raw database value to its text form. Nil is the
// empty string; everything else follows its natural formatting.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

// isOne reports whether a raw value is the integer 1 under the
// collector's boolean encoding.
func isOne(value any) bool {
	switch v := value.(type) {
	case int:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	case bool:
		return v
	case string:
		return v == "1"
	case []byte:
		return string(v) == "1"
	default:
		return false
	}
}

// escapeText strips control characters that would corrupt the terminal,
// the TUI analog of HTML-escaping cell text.
func escapeText(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
