package dice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxDice is the most dice a single roll may throw. Parse accepts larger
// counts so long as the total fits in an int; rolling them does not.
const MaxDice = 1000

// ErrTooManyDice indicates a formula with more than MaxDice dice.
var ErrTooManyDice = errors.New("too many dice")

// Result is the outcome of rolling a Formula.
//
// Invariants: len(Rolls()) == Formula().Dice(), every roll lies in
// [1, Formula().Sides()], and Total() == sum(Rolls()) + Modifier().
type Result struct {
	formula Formula
	rolls   []int
	total   int
}

// Formula returns the formula that was rolled.
func (r Result) Formula() Formula { return r.formula }

// Rolls returns a copy of the individual die values in roll order.
func (r Result) Rolls() []int {
	out := make([]int, len(r.rolls))
	copy(out, r.rolls)
	return out
}

// Modifier returns the modifier copied from the formula.
func (r Result) Modifier() int { return r.formula.modifier }

// Total returns the sum of all rolls plus the modifier.
func (r Result) Total() int { return r.total }

// String renders the result as "r1 + r2 + ... <sign> <|modifier|> = total".
//
//	3 + 5 + 2 = 10
//	4 + 4 - 1 = 7
func (r Result) String() string {
	parts := make([]string, len(r.rolls))
	for i, v := range r.rolls {
		parts[i] = strconv.Itoa(v)
	}

	sign, mod := "+", r.formula.modifier
	if mod < 0 {
		sign, mod = "-", -mod
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, " + "))
	b.WriteString(" ")
	b.WriteString(sign)
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(mod))
	b.WriteString(" = ")
	b.WriteString(strconv.Itoa(r.total))
	return b.String()
}

// MarshalJSON encodes the result together with its rendered text.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Notation string `json:"notation"`
		Rolls    []int  `json:"rolls"`
		Modifier int    `json:"modifier"`
		Total    int    `json:"total"`
		Text     string `json:"text"`
	}{r.formula.String(), r.Rolls(), r.Modifier(), r.total, r.String()})
}

// Roller rolls formulas using a configurable Source.
type Roller struct {
	src Source
}

// NewRoller creates a Roller drawing from src. A nil src uses DefaultSource.
func NewRoller(src Source) *Roller {
	if src == nil {
		src = DefaultSource
	}
	return &Roller{src: src}
}

// Roll parses notation and rolls it. Invalid notation returns an error
// wrapping ErrInvalidNotation, more than MaxDice dice an error wrapping
// ErrTooManyDice. Neither draws anything from the source.
func (r *Roller) Roll(notation string) (Result, error) {
	f, err := Parse(notation)
	if err != nil {
		return Result{}, err
	}
	return r.RollFormula(f)
}

// CheckRollable reports ErrTooManyDice when f throws more than MaxDice dice.
func CheckRollable(f Formula) error {
	if f.dice > MaxDice {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyDice, f.dice, MaxDice)
	}
	return nil
}

// RollFormula rolls every die of f in order, drawing exactly f.Dice() values.
func (r *Roller) RollFormula(f Formula) (Result, error) {
	if err := CheckRollable(f); err != nil {
		return Result{}, err
	}

	rolls := make([]int, f.dice)
	total := 0
	for i := range rolls {
		value := rollDie(r.src, f.sides)
		rolls[i] = value
		total += value
	}

	return Result{
		formula: f,
		rolls:   rolls,
		total:   total + f.modifier,
	}, nil
}

// Roll parses and rolls notation with DefaultSource.
func Roll(notation string) (Result, error) {
	return NewRoller(nil).Roll(notation)
}

// rollDie rolls a single die with the provided number of sides.
func rollDie(src Source, sides int) int {
	return src.IntN(sides) + 1
}
