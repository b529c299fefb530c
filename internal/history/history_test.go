package history

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/CaptShanks/redroll/internal/dice"
)

// fixedSource always returns the same draw.
type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func roll(t *testing.T, notation string) dice.Result {
	t.Helper()
	result, err := dice.NewRoller(fixedSource(2)).Roll(notation)
	if err != nil {
		t.Fatalf("Roll(%q) failed: %v", notation, err)
	}
	return result
}

func TestNewEntry(t *testing.T) {
	e := NewEntry(roll(t, "2d6-1"), SourceCLI)
	if e.Notation != "2d6-1" {
		t.Errorf("Notation = %q, want 2d6-1", e.Notation)
	}
	if len(e.Rolls) != 2 || e.Rolls[0] != 3 || e.Rolls[1] != 3 {
		t.Errorf("Rolls = %v, want [3 3]", e.Rolls)
	}
	if e.Modifier != -1 || e.Total != 5 {
		t.Errorf("Modifier/Total = %d/%d, want -1/5", e.Modifier, e.Total)
	}
	if e.Source != SourceCLI {
		t.Errorf("Source = %q, want cli", e.Source)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEntryLineMatchesResult(t *testing.T) {
	for _, notation := range []string{"d20", "3d8+2", "4d4-3"} {
		result := roll(t, notation)
		if got, want := NewEntry(result, SourceTUI).Line(), result.String(); got != want {
			t.Errorf("Line() = %q, want %q", got, want)
		}
	}
}

func TestAppendAndList(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2025, 1, 14, 10, 30, 0, 0, time.UTC)

	entries := []Entry{
		{Timestamp: base, Notation: "1d6", Rolls: []int{4}, Total: 4, Source: SourceCLI},
		{Timestamp: base.Add(time.Minute), Notation: "2d8+1", Rolls: []int{1, 2}, Modifier: 1, Total: 4, Source: SourceTUI},
		{Timestamp: base.Add(2 * time.Minute), Notation: "1d20", Rolls: []int{20}, Total: 20, Source: SourceAPI},
	}
	for _, e := range entries {
		if err := store.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(got))
	}
	if got[0].Notation != "1d20" || got[2].Notation != "1d6" {
		t.Errorf("List order = %s, %s, %s; want newest first", got[0].Notation, got[1].Notation, got[2].Notation)
	}

	tui, err := store.List(SourceTUI)
	if err != nil {
		t.Fatalf("List(tui) failed: %v", err)
	}
	if len(tui) != 1 || tui[0].Notation != "2d8+1" {
		t.Errorf("List(tui) = %+v, want only 2d8+1", tui)
	}
}

func TestListMissingFile(t *testing.T) {
	got, err := NewStore(t.TempDir()).List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List on empty dir returned %d entries", len(got))
	}
}

func TestListSkipsMalformedLines(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Append(NewEntry(roll(t, "d6"), SourceCLI)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	f, err := os.OpenFile(store.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	_, _ = f.WriteString("not json\n\n{\"notation\":\"D6\"}\n")
	f.Close()

	got, err := store.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("List returned %d entries, want 1", len(got))
	}
}

func TestTrim(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := Entry{Timestamp: base.Add(time.Duration(i) * time.Minute), Notation: "1d6", Rolls: []int{i + 1}, Total: i + 1, Source: SourceCLI}
		if err := store.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	removed, err := store.Trim(3)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Trim removed %d, want 2", removed)
	}

	got, _ := store.List("")
	if len(got) != 3 {
		t.Fatalf("after Trim got %d entries, want 3", len(got))
	}
	if got[0].Total != 5 || got[2].Total != 3 {
		t.Errorf("Trim kept wrong entries: totals %d..%d", got[0].Total, got[2].Total)
	}

	removed, err = store.Trim(10)
	if err != nil || removed != 0 {
		t.Errorf("Trim under limit = %d, %v; want 0, nil", removed, err)
	}
}

func TestRecordTrims(t *testing.T) {
	store := NewStore(t.TempDir())
	for i := 0; i < 4; i++ {
		if err := store.Record(roll(t, "d6"), SourceCLI, 2); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	got, _ := store.List("")
	if len(got) != 2 {
		t.Errorf("Record kept %d entries, want 2", len(got))
	}
}

func TestClear(t *testing.T) {
	store := NewStore(t.TempDir())
	for i := 0; i < 3; i++ {
		_ = store.Append(NewEntry(roll(t, "d6"), SourceCLI))
	}

	n, err := store.Clear()
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear reported %d entries, want 3", n)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("history file should be removed")
	}

	n, err = store.Clear()
	if err != nil || n != 0 {
		t.Errorf("Clear on empty store = %d, %v; want 0, nil", n, err)
	}
}

func TestFormatEntry(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2025, 1, 14, 10, 30, 0, 0, time.UTC),
		Notation:  "100d100+1000000",
		Total:     123,
		Source:    SourceAPI,
	}
	got := FormatEntry(e)
	if !strings.HasPrefix(got, "2025-01-14 10:30:00") {
		t.Errorf("FormatEntry missing timestamp: %q", got)
	}
	if !strings.Contains(got, "100d100+100...") {
		t.Errorf("FormatEntry should truncate notation: %q", got)
	}
	if !strings.Contains(got, "api") || !strings.HasSuffix(got, "123") {
		t.Errorf("FormatEntry missing source or total: %q", got)
	}
}
