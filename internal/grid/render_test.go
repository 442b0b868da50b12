package grid

import (
	"testing"
	"time"
)

func testRenderer(t *testing.T, columns []string) Renderer {
	t.Helper()
	zone, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return Renderer{Plan: Classify(columns), Zone: func() *time.Location { return zone }}
}

func TestBooleanDisplay(t *testing.T) {
	r := testRenderer(t, []string{"is_online"})

	cases := []struct {
		value  any
		truthy bool
	}{
		{int64(1), true},
		{1, true},
		{float64(1), true},
		{"1", true},
		{int64(0), false},
		{"0", false},
		{"yes", false},
		{nil, false},
		{int64(2), false},
	}
	for _, tc := range cases {
		cell := r.Display(tc.value, 0)
		if cell.Truthy != tc.truthy {
			t.Fatalf("Display(%v): truthy = %v, want %v", tc.value, cell.Truthy, tc.truthy)
		}
		want := FalsyGlyph
		if tc.truthy {
			want = TruthyGlyph
		}
		if cell.Text != want {
			t.Fatalf("Display(%v): text = %q, want %q", tc.value, cell.Text, want)
		}
	}
}

func TestBooleanRawPassthrough(t *testing.T) {
	r := testRenderer(t, []string{"is_online"})
	if got := r.Raw(int64(1), 0); got != "1" {
		t.Fatalf("Raw(1) = %q, want unchanged value", got)
	}
	if got := r.Raw(int64(0), 0); got != "0" {
		t.Fatalf("Raw(0) = %q, want unchanged value", got)
	}
}

func TestDatetimeEmpty(t *testing.T) {
	r := testRenderer(t, []string{"created_at"})
	for _, v := range []any{nil, ""} {
		cell := r.Display(v, 0)
		if cell.Text != "" || cell.Annotation != "" {
			t.Fatalf("Display(%v) = %+v, want empty cell", v, cell)
		}
	}
}

func TestDatetimePureDate(t *testing.T) {
	r := testRenderer(t, []string{"created_at"})
	cell := r.Display("2024-3-7", 0)
	if cell.Text != "2024-3-7" {
		t.Fatalf("raw text not preserved: %q", cell.Text)
	}
	if cell.Annotation != "Mar 7, 2024" {
		t.Fatalf("annotation = %q, want medium date", cell.Annotation)
	}
}

func TestDatetimeFullTimestamp(t *testing.T) {
	r := testRenderer(t, []string{"created_at"})
	cell := r.Display("2024-03-07 14:30:00", 0)
	if cell.Text != "2024-03-07 14:30:00" {
		t.Fatalf("raw text not preserved: %q", cell.Text)
	}
	if cell.Annotation != "Thu, Mar 7, 2024 2:30 PM EST" {
		t.Fatalf("annotation = %q, want full date-time with zone", cell.Annotation)
	}
}

func TestDatetimeShortYear(t *testing.T) {
	r := testRenderer(t, []string{"created_at"})
	cell := r.Display("824-3-7", 0)
	if cell.Text != "824-3-7" {
		t.Fatalf("raw text not preserved: %q", cell.Text)
	}
	if cell.Annotation != "Mar 7, 0824" {
		t.Fatalf("annotation = %q, want medium date for a short year", cell.Annotation)
	}
}

func TestDatetimeImpossibleDateKeepsRaw(t *testing.T) {
	r := testRenderer(t, []string{"created_at"})
	cell := r.Display("2024-2-30", 0)
	if cell.Text != "2024-2-30" || cell.Annotation != "" {
		t.Fatalf("impossible date should render raw with no annotation, got %+v", cell)
	}
}

func TestDatetimeUnparsableKeepsRaw(t *testing.T) {
	r := testRenderer(t, []string{"created_at"})
	cell := r.Display("not a date", 0)
	if cell.Text != "not a date" || cell.Annotation != "" {
		t.Fatalf("unparsable value should render raw with no annotation, got %+v", cell)
	}
}

func TestPlainTextEscapesControlCharacters(t *testing.T) {
	r := testRenderer(t, []string{"banner"})
	cell := r.Display("SSH-2.0\x1b[31mOpenSSH", 0)
	if cell.Text != "SSH-2.0 [31mOpenSSH" {
		t.Fatalf("control characters not stripped: %q", cell.Text)
	}
}

func TestStringifyNumbers(t *testing.T) {
	if got := Stringify(float64(443)); got != "443" {
		t.Fatalf("Stringify(443.0) = %q", got)
	}
	if got := Stringify(float64(1.5)); got != "1.5" {
		t.Fatalf("Stringify(1.5) = %q", got)
	}
	if got := Stringify([]byte("tcp")); got != "tcp" {
		t.Fatalf("Stringify(bytes) = %q", got)
	}
}
