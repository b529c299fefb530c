package dice

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// scriptedSource returns preset draws in order and records each request.
type scriptedSource struct {
	draws []int
	calls []int
}

func (s *scriptedSource) IntN(n int) int {
	s.calls = append(s.calls, n)
	v := s.draws[0]
	s.draws = s.draws[1:]
	return v % n
}

func TestResultString(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name:   "positive modifier",
			result: Result{formula: Formula{dice: 2, sides: 6, modifier: 2}, rolls: []int{3, 5}, total: 10},
			want:   "3 + 5 + 2 = 10",
		},
		{
			name:   "negative modifier",
			result: Result{formula: Formula{dice: 2, sides: 6, modifier: -1}, rolls: []int{4, 4}, total: 7},
			want:   "4 + 4 - 1 = 7",
		},
		{
			name:   "zero modifier",
			result: Result{formula: Formula{dice: 1, sides: 20}, rolls: []int{17}, total: 17},
			want:   "17 + 0 = 17",
		},
		{
			name:   "stored total is not recomputed",
			result: Result{formula: Formula{dice: 1, sides: 6, modifier: 1}, rolls: []int{2}, total: 99},
			want:   "2 + 1 = 99",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRollerRollScripted(t *testing.T) {
	src := &scriptedSource{draws: []int{2, 0, 7}}
	result, err := NewRoller(src).Roll("3d8+2")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}

	want := []int{3, 1, 8}
	got := result.Rolls()
	if len(got) != len(want) {
		t.Fatalf("Rolls() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Rolls()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if result.Total() != 14 {
		t.Errorf("Total() = %d, want 14", result.Total())
	}
	if result.Modifier() != 2 {
		t.Errorf("Modifier() = %d, want 2", result.Modifier())
	}
	if result.String() != "3 + 1 + 8 + 2 = 14" {
		t.Errorf("String() = %q", result.String())
	}
}

func TestRollerDrawsExactlyDiceTimes(t *testing.T) {
	src := &scriptedSource{draws: make([]int, 10)}
	if _, err := NewRoller(src).Roll("4d12-3"); err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if len(src.calls) != 4 {
		t.Fatalf("source called %d times, want 4", len(src.calls))
	}
	for i, n := range src.calls {
		if n != 12 {
			t.Errorf("call %d requested IntN(%d), want IntN(12)", i, n)
		}
	}
}

func TestRollInvalidDrawsNothing(t *testing.T) {
	src := &scriptedSource{}
	_, err := NewRoller(src).Roll("2d")
	if !errors.Is(err, ErrInvalidNotation) {
		t.Fatalf("Roll error = %v, want ErrInvalidNotation", err)
	}
	if len(src.calls) != 0 {
		t.Errorf("source called %d times for invalid notation", len(src.calls))
	}
}

func TestRollInvariants(t *testing.T) {
	for _, notation := range []string{"d6", "2d6+3", "4d10-1", "10d4", "d100+7", "20d2-20", "5d1"} {
		f := MustParse(notation)
		for i := 0; i < 200; i++ {
			result, err := Roll(notation)
			if err != nil {
				t.Fatalf("Roll(%q) failed: %v", notation, err)
			}
			rolls := result.Rolls()
			if len(rolls) != f.Dice() {
				t.Fatalf("Roll(%q) got %d rolls, want %d", notation, len(rolls), f.Dice())
			}
			sum := 0
			for j, r := range rolls {
				if r < 1 || r > f.Sides() {
					t.Fatalf("Roll(%q) rolls[%d] = %d, out of range [1, %d]", notation, j, r, f.Sides())
				}
				sum += r
			}
			if result.Total() != sum+f.Modifier() {
				t.Fatalf("Roll(%q) Total() = %d, want %d", notation, result.Total(), sum+f.Modifier())
			}
			if result.Modifier() != f.Modifier() {
				t.Fatalf("Roll(%q) Modifier() = %d, want %d", notation, result.Modifier(), f.Modifier())
			}
			if result.Formula() != f {
				t.Fatalf("Roll(%q) Formula() = %v, want %v", notation, result.Formula(), f)
			}
		}
	}
}

func TestRollVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		result, err := Roll("3d6")
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		seen[result.String()] = true
	}
	// 216 equally likely sequences; 100 identical draws would be astronomically unlikely.
	if len(seen) < 2 {
		t.Errorf("100 rolls of 3d6 produced %d distinct outcomes", len(seen))
	}
}

func TestRollsReturnsCopy(t *testing.T) {
	result, err := NewRoller(&scriptedSource{draws: []int{0, 1}}).RollFormula(MustParse("2d6"))
	if err != nil {
		t.Fatalf("RollFormula failed: %v", err)
	}
	rolls := result.Rolls()
	rolls[0] = 42
	if result.Rolls()[0] != 1 {
		t.Error("mutating Rolls() changed the result")
	}
}

func TestSeededSourceDeterminism(t *testing.T) {
	r1 := NewRoller(NewSeededSource(12345))
	r2 := NewRoller(NewSeededSource(12345))
	for i := 0; i < 20; i++ {
		a, _ := r1.Roll("4d20+1")
		b, _ := r2.Roll("4d20+1")
		if a.String() != b.String() {
			t.Fatalf("roll %d differs: %q vs %q", i, a, b)
		}
	}
}

func TestSeededSourceConcurrent(t *testing.T) {
	roller := NewRoller(NewSeededSource(7))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				result, err := roller.Roll("2d6")
				if err != nil || len(result.Rolls()) != 2 {
					t.Errorf("concurrent roll failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewRollerNilSource(t *testing.T) {
	r := NewRoller(nil)
	if r.src != DefaultSource {
		t.Error("NewRoller(nil) should use DefaultSource")
	}
}

func TestResultMarshalJSON(t *testing.T) {
	result, err := NewRoller(&scriptedSource{draws: []int{2, 4}}).RollFormula(MustParse("2d6+2"))
	if err != nil {
		t.Fatalf("RollFormula failed: %v", err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"notation":"2d6+2","rolls":[3,5],"modifier":2,"total":10,"text":"3 + 5 + 2 = 10"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestRollTooManyDice(t *testing.T) {
	tests := []string{
		"1001d6",
		"1000000000d6",
		"4611686018427387903d2",
	}
	for _, notation := range tests {
		if !Validate(notation) {
			t.Fatalf("Validate(%q) = false, want true", notation)
		}
		src := &scriptedSource{}
		result, err := NewRoller(src).Roll(notation)
		if !errors.Is(err, ErrTooManyDice) {
			t.Errorf("Roll(%q) error = %v, want ErrTooManyDice", notation, err)
		}
		if len(result.Rolls()) != 0 {
			t.Errorf("Roll(%q) returned %d rolls on error", notation, len(result.Rolls()))
		}
		if len(src.calls) != 0 {
			t.Errorf("Roll(%q) drew %d values, want 0", notation, len(src.calls))
		}
	}

	if _, err := Roll("4611686018427387903d2"); !errors.Is(err, ErrTooManyDice) {
		t.Errorf("package Roll error = %v, want ErrTooManyDice", err)
	}
}

func TestRollAtMaxDice(t *testing.T) {
	result, err := NewRoller(NewSeededSource(1)).Roll("1000d6")
	if err != nil {
		t.Fatalf("Roll(1000d6) failed: %v", err)
	}
	if len(result.Rolls()) != MaxDice {
		t.Errorf("got %d rolls, want %d", len(result.Rolls()), MaxDice)
	}
}
