package dice

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// notationRegex matches a whole dice notation string.
// Groups: 1 = count (optional), 2 = sides, 3 = signed modifier (optional).
var notationRegex = regexp.MustCompile(`^([1-9][0-9]*)?d([1-9][0-9]*)([+-][1-9][0-9]*)?$`)

// ErrInvalidNotation indicates a string that is not valid dice notation.
var ErrInvalidNotation = errors.New("invalid dice notation")

// Formula is a parsed dice notation: roll Dice() dice with Sides() faces and
// add Modifier() to the sum.
type Formula struct {
	dice     int
	sides    int
	modifier int
}

// Dice returns the number of dice to roll.
func (f Formula) Dice() int { return f.dice }

// Sides returns the number of faces per die.
func (f Formula) Sides() int { return f.sides }

// Modifier returns the flat amount added after rolling.
func (f Formula) Modifier() int { return f.modifier }

// Min returns the lowest possible total.
func (f Formula) Min() int { return f.dice + f.modifier }

// Max returns the highest possible total.
func (f Formula) Max() int { return f.dice*f.sides + f.modifier }

// String returns the canonical notation, always including the count.
func (f Formula) String() string {
	s := fmt.Sprintf("%dd%d", f.dice, f.sides)
	if f.modifier != 0 {
		s += fmt.Sprintf("%+d", f.modifier)
	}
	return s
}

// MarshalJSON encodes the formula with its canonical notation.
func (f Formula) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Notation string `json:"notation"`
		Dice     int    `json:"dice"`
		Sides    int    `json:"sides"`
		Modifier int    `json:"modifier"`
	}{f.String(), f.dice, f.sides, f.modifier})
}

// Validate reports whether notation is well-formed dice notation.
//
// Besides matching the grammar, every number must fit in an int and so must
// the largest possible total, Max(). Strings such as "3037000500d3037000500"
// match the grammar but are invalid. Validate does not apply MaxDice: a
// valid formula may still be too large to roll.
func Validate(notation string) bool {
	_, err := Parse(notation)
	return err == nil
}

// Parse converts dice notation into a Formula.
// A missing count means one die; a missing modifier means zero.
func Parse(notation string) (Formula, error) {
	match := notationRegex.FindStringSubmatch(notation)
	if match == nil {
		return Formula{}, invalid(notation)
	}

	f := Formula{dice: 1}
	var err error

	if match[1] != "" {
		if f.dice, err = strconv.Atoi(match[1]); err != nil {
			return Formula{}, invalid(notation)
		}
	}
	if f.sides, err = strconv.Atoi(match[2]); err != nil {
		return Formula{}, invalid(notation)
	}
	if match[3] != "" {
		// Atoi accepts the leading sign.
		if f.modifier, err = strconv.Atoi(match[3]); err != nil {
			return Formula{}, invalid(notation)
		}
	}

	// Guard the total so Max never overflows.
	if f.sides > maxInt/f.dice {
		return Formula{}, invalid(notation)
	}
	if f.modifier > 0 && f.dice*f.sides > maxInt-f.modifier {
		return Formula{}, invalid(notation)
	}
	// The minimum int has no positive counterpart for rendering.
	if f.modifier < -maxInt {
		return Formula{}, invalid(notation)
	}

	return f, nil
}

// MustParse is like Parse but panics on invalid notation.
func MustParse(notation string) Formula {
	f, err := Parse(notation)
	if err != nil {
		panic("dice: " + err.Error())
	}
	return f
}

const maxInt = int(^uint(0) >> 1)

func invalid(notation string) error {
	return fmt.Errorf("%w %q", ErrInvalidNotation, notation)
}
