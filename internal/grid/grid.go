// Package grid holds the 48x32 cell matrix the user paints before pushing it
// to the device.
//
// Cells are addressed by (x, y), 0-indexed, with x the column. The wire form
// produced by Serialize is row-major by y with x varying fastest inside a row,
// which is the order the firmware reads the GEN payload in.
package grid

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Grid dimensions expected by the firmware.
const (
	Width  = 48
	Height = 32
	Cells  = Width * Height
)

// Grid is a fixed-size matrix of dead/alive cells.
// The zero value is an all-dead grid ready for use.
type Grid struct {
	cells [Height][Width]bool
}

// New returns an all-dead grid.
func New() *Grid {
	return &Grid{}
}

// InBounds reports whether (x, y) addresses a cell.
func InBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}

// Toggle flips the cell at (x, y). Out-of-bounds coordinates are ignored.
func (g *Grid) Toggle(x, y int) {
	if !InBounds(x, y) {
		return
	}
	g.cells[y][x] = !g.cells[y][x]
}

// Set forces the cell at (x, y) to the given state. Out-of-bounds coordinates are ignored.
func (g *Grid) Set(x, y int, alive bool) {
	if !InBounds(x, y) {
		return
	}
	g.cells[y][x] = alive
}

// Alive reports whether the cell at (x, y) is alive. Out-of-bounds cells are dead.
func (g *Grid) Alive(x, y int) bool {
	if !InBounds(x, y) {
		return false
	}
	return g.cells[y][x]
}

// Clear resets every cell to dead.
func (g *Grid) Clear() {
	g.cells = [Height][Width]bool{}
}

// Population returns the number of alive cells.
func (g *Grid) Population() int {
	n := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if g.cells[y][x] {
				n++
			}
		}
	}
	return n
}

// Serialize renders the grid as exactly Cells characters of '0'/'1' in wire order.
func (g *Grid) Serialize() string {
	var b strings.Builder
	b.Grow(Cells)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if g.cells[y][x] {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// Parse is the inverse of Serialize.
func Parse(bits string) (*Grid, error) {
	if len(bits) != Cells {
		return nil, fmt.Errorf("grid bitstring has %d characters, want %d", len(bits), Cells)
	}
	g := New()
	for i := 0; i < Cells; i++ {
		switch bits[i] {
		case '0':
		case '1':
			g.cells[i/Width][i%Width] = true
		default:
			return nil, fmt.Errorf("grid bitstring: invalid character %q at offset %d", bits[i], i)
		}
	}
	return g, nil
}

// String renders the grid as Height rows of '#' (alive) and '.' (dead).
func (g *Grid) String() string {
	var b strings.Builder
	b.Grow((Width + 1) * Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if g.cells[y][x] {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Load reads a painted grid: one text row per y, one character per x.
//
// Alive: '#', 'X', 'x', '*', '1', 'O', 'o'. Dead: '.', '0', '-', '_', ' '.
// Short rows and missing rows are dead; a trailing '\r' is ignored.
func Load(r io.Reader) (*Grid, error) {
	g := New()
	sc := bufio.NewScanner(r)
	y, line := 0, 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if y >= Height {
			if strings.TrimSpace(row) == "" {
				continue
			}
			return nil, fmt.Errorf("grid line %d: grid has only %d rows", line, Height)
		}
		if len(row) > Width && strings.TrimSpace(row[Width:]) != "" {
			return nil, fmt.Errorf("grid line %d: %d columns exceed width %d", line, len(row), Width)
		}
		for x := 0; x < len(row) && x < Width; x++ {
			switch row[x] {
			case '#', 'X', 'x', '*', '1', 'O', 'o':
				g.cells[y][x] = true
			case '.', '0', '-', '_', ' ':
			default:
				return nil, fmt.Errorf("grid line %d column %d: unexpected character %q", line, x+1, row[x])
			}
		}
		y++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	return g, nil
}
