package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/CaptShanks/redroll/internal/dice"
)

// EnableColor forces color output even when not a TTY (for piping)
func EnableColor() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// DisableColor strips all styling from rendered output
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// RenderResult colors a result while keeping the text of dice.Result.String
func RenderResult(r dice.Result) string {
	sides := r.Formula().Sides()
	rolls := r.Rolls()

	parts := make([]string, len(rolls))
	for i, v := range rolls {
		parts[i] = GetDieStyle(v, sides).Render(strconv.Itoa(v))
	}

	mod := r.Modifier()
	sign := "+"
	if mod < 0 {
		sign, mod = "-", -mod
	}
	modStyle := GetModifierStyle(r.Modifier())

	plus := " " + mutedColor.Render("+") + " "
	return strings.Join(parts, plus) +
		" " + modStyle.Render(sign+" "+strconv.Itoa(mod)) +
		" " + mutedColor.Render("=") + " " + totalStyle.Render(strconv.Itoa(r.Total()))
}

// RenderRollLine prefixes a rendered result with its notation
func RenderRollLine(r dice.Result) string {
	return notationStyle.Render(r.Formula().String()) + "  " + mutedColor.Render("→") + "  " + RenderResult(r)
}

// PrintResult writes one colored roll line, wrapped to width when width > 0
func PrintResult(w io.Writer, r dice.Result, width int) {
	line := RenderRollLine(r)
	if width > 0 {
		line = wordwrap.String(line, width)
	}
	fmt.Fprintln(w, line)
}

// PrintFormula writes the parsed structure of a formula
func PrintFormula(w io.Writer, f dice.Formula) {
	fmt.Fprintln(w, headerStyle.Render("🎲 "+f.String()))
	fmt.Fprintf(w, "%s%d\n", label("dice:"), f.Dice())
	fmt.Fprintf(w, "%s%d\n", label("sides:"), f.Sides())
	fmt.Fprintf(w, "%s%s\n", label("modifier:"), GetModifierStyle(f.Modifier()).Render(fmt.Sprintf("%+d", f.Modifier())))
	fmt.Fprintf(w, "%s%s\n", label("range:"), totalStyle.Render(fmt.Sprintf("%d-%d", f.Min(), f.Max())))
}

// label pads a muted field name to a fixed column
func label(name string) string {
	return mutedColor.Render(name) + strings.Repeat(" ", 10-len(name))
}
