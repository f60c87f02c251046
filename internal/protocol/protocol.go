// Package protocol defines the ASCII line protocol spoken with the Fredkin device.
//
// Outbound (device-bound) commands, one per line:
//
//	GEN:<n>:<bits>\n   run n generations from the given grid
//	MODE:<NAME>\n      select the rule variant (FREDKIN1 or FREDKIN2)
//
// Inbound lines are free text. Lines starting with "LOG," carry per-generation
// statistics; every inbound line is answered with Ack.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fredkin/internal/grid"
)

const (
	// Ack is written back to the device for every inbound line.
	Ack = "OK\n"

	// StatsPrefix marks inbound statistics lines.
	StatsPrefix = "LOG,"

	runTag  = "GEN"
	modeTag = "MODE"
)

// Variant selects the rule family applied by the device.
type Variant string

const (
	Fredkin1 Variant = "FREDKIN1"
	Fredkin2 Variant = "FREDKIN2"
)

// Variants lists the variants the firmware understands.
var Variants = []Variant{Fredkin1, Fredkin2}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVariant resolves a mode name typed by the user. Matching ignores case
// and surrounding whitespace.
func ParseVariant(name string) (Variant, error) {
	v := Variant(strings.ToUpper(strings.TrimSpace(name)))
	if !v.Valid() {
		return "", &InputError{Field: "mode", Value: name, Message: fmt.Sprintf("must be one of %v", Variants)}
	}
	return v, nil
}

// ParseGenerations validates a generation count typed by the user.
func ParseGenerations(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, &InputError{Field: "generations", Value: text, Message: "not an integer"}
	}
	if n <= 0 {
		return 0, &InputError{Field: "generations", Value: text, Message: "must be >= 1"}
	}
	return n, nil
}

// Command is a device-bound instruction. Commands are built per user action,
// encoded, and discarded.
type Command interface {
	Encode() (string, error)
}

// RunSimulation asks the device to run Generations steps from Grid.
type RunSimulation struct {
	Generations int
	Grid        *grid.Grid
}

// Encode implements Command.
func (c RunSimulation) Encode() (string, error) {
	return EncodeRun(c.Generations, c.Grid)
}

// SelectMode asks the device to switch rule variant.
type SelectMode struct {
	Variant Variant
}

// Encode implements Command.
func (c SelectMode) Encode() (string, error) {
	return EncodeMode(c.Variant)
}

// EncodeRun frames a run command: "GEN:<n>:<bits>\n".
func EncodeRun(generations int, g *grid.Grid) (string, error) {
	if generations <= 0 {
		return "", &InputError{Field: "generations", Value: strconv.Itoa(generations), Message: "must be >= 1"}
	}
	if g == nil {
		g = grid.New()
	}
	var b strings.Builder
	b.Grow(len(runTag) + 2 + 10 + grid.Cells + 1)
	b.WriteString(runTag)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(generations))
	b.WriteByte(':')
	b.WriteString(g.Serialize())
	b.WriteByte('\n')
	return b.String(), nil
}

// EncodeMode frames a variant selection: "MODE:<NAME>\n".
func EncodeMode(v Variant) (string, error) {
	if !v.Valid() {
		return "", &InputError{Field: "mode", Value: string(v), Message: fmt.Sprintf("must be one of %v", Variants)}
	}
	return modeTag + ":" + string(v) + "\n", nil
}

// IsStats reports whether an inbound line is a statistics event.
func IsStats(line string) bool {
	return strings.HasPrefix(line, StatsPrefix)
}
