// Package dice parses tabletop dice notation such as "2d6+3" into a Formula
// and rolls it into a Result holding every die, the modifier and the total.
//
// The grammar is [count]d<sides>[+|-modifier] with no leading zeros, no
// zero values and no surrounding whitespace. Invalid notation is reported
// with ErrInvalidNotation. Rolling more than MaxDice dice fails with
// ErrTooManyDice.
package dice
