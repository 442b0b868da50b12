package grid

import "strings"

// ColumnKind is the rendering category inferred for a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindBoolean
	KindDatetime
)

// booleanPrefixes mark a column as boolean when its first underscore
// segment matches (is_online, has_banner, can_write, ...).
var booleanPrefixes = map[string]struct{}{
	"is":  {},
	"has": {},
	"can": {},
}

// datetimeNames mark a column as datetime only on an exact full-name match.
var datetimeNames = map[string]struct{}{
	"date":          {},
	"datetime":      {},
	"timestamp":     {},
	"created":       {},
	"created_at":    {},
	"updated":       {},
	"updated_at":    {},
	"last_update":   {},
	"last_updated":  {},
	"published":     {},
	"published_at":  {},
	"modified":      {},
	"modified_at":   {},
	"last_modified": {},
}

// RenderPlan maps each column position to its rendering category. It is
// computed once per table descriptor and immutable afterward; positions
// rather than names keep the plan stable under column renames.
type RenderPlan struct {
	kinds []ColumnKind
}

// Classify derives a render plan from an ordered column list. Both checks
// run against the same unmodified name; a name that somehow qualifies for
// both categories lands in boolean (resolved tie-break).
func Classify(columns []string) RenderPlan {
	kinds := make([]ColumnKind, len(columns))
	for i, col := range columns {
		lower := strings.ToLower(col)
		first, _, _ := strings.Cut(lower, "_")
		if _, ok := booleanPrefixes[first]; ok {
			kinds[i] = KindBoolean
			continue
		}
		if _, ok := datetimeNames[lower]; ok {
			kinds[i] = KindDatetime
		}
	}
	return RenderPlan{kinds: kinds}
}

// Kind returns the category for a column position. Out-of-range positions
// are plain text.
func (p RenderPlan) Kind(pos int) ColumnKind {
	if pos < 0 || pos >= len(p.kinds) {
		return KindText
	}
	return p.kinds[pos]
}

// Len returns the number of classified columns.
func (p RenderPlan) Len() int { return len(p.kinds) }

// BooleanPositions returns the set of boolean column indices.
func (p RenderPlan) BooleanPositions() map[int]struct{} { return p.positions(KindBoolean) }

// DatetimePositions returns the set of datetime column indices.
func (p RenderPlan) DatetimePositions() map[int]struct{} { return p.positions(KindDatetime) }

func (p RenderPlan) positions(kind ColumnKind) map[int]struct{} {
	out := map[int]struct{}{}
	for i, k := range p.kinds {
		if k == kind {
			out[i] = struct{}{}
		}
	}
	return out
}
