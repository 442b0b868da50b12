package grid

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Phase is the lifecycle state of one table's data load.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// workingLabel is the transient label shown while a load is in flight.
const workingLabel = "…"

var countPrinter = message.NewPrinter(language.English)

// Tracker is the per-table load state machine. Each table's pane owns
// exactly one tracker and mutates it only from that table's fetch
// lifecycle events, so no locking is involved. The last known row count
// survives reloads and failures so the label never blanks out.
type Tracker struct {
	phase        Phase
	lastRowCount int
	lastError    string
}

// Phase returns the current lifecycle phase.
func (t *Tracker) Phase() Phase { return t.phase }

// RowCount returns the last known displayed row count.
func (t *Tracker) RowCount() int { return t.lastRowCount }

// ErrorMessage returns the humanized error, present only while in the
// error phase.
func (t *Tracker) ErrorMessage() string {
	if t.phase != PhaseError {
		return ""
	}
	return t.lastError
}

// Loading reports whether the loader affordance should be visible.
func (t *Tracker) Loading() bool { return t.phase == PhaseLoading }

// Label returns the text for the table's count label: a transient
// indicator while loading, otherwise the localized last known count.
func (t *Tracker) Label() string {
	if t.phase == PhaseLoading {
		return workingLabel
	}
	return countPrinter.Sprintf("%d", t.lastRowCount)
}

// StartLoad enters the loading phase: the error banner clears, the
// loader shows, and the label turns into the working indicator.
// Re-enterable from any phase; the table is never terminal.
func (t *Tracker) StartLoad() {
	t.phase = PhaseLoading
	t.lastError = ""
}

// Succeed records a completed load and its row count.
func (t *Tracker) Succeed(rowCount int) {
	t.phase = PhaseLoaded
	t.lastRowCount = rowCount
	t.lastError = ""
}

// Fail records a failed load. The row count keeps its prior value: a
// stale count beats a blank label.
func (t *Tracker) Fail(message string) {
	t.phase = PhaseError
	t.lastError = HumanizeError(message)
}

// HumanizeError extracts the display form of a transport error. The
// transport composes messages as "<technical-note> - <human-detail>";
// only the detail after the first separator is shown, behind an
// "Error: " prefix. A message without the separator is shown whole.
func HumanizeError(raw string) string {
	if _, detail, ok := strings.Cut(raw, " - "); ok {
		return "Error: " + detail
	}
	return "Error: " + raw
}
