package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Each rendered cell is a glyph plus one space
const cellWidth = 2

// RenderPad renders a single colored glyph
func RenderPad(color [3]uint8, glyph rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(string(glyph))
}

// RenderGrid renders a level grid with row 0 at the top, monome style.
// A blank line separates the control row from the play area.
func RenderGrid(levels [][]int, color func(level int) [3]uint8, glyph func(level int) rune) string {
	var lines []string
	for y, row := range levels {
		var line strings.Builder
		for x, level := range row {
			if x > 0 {
				line.WriteString(" ")
			}
			line.WriteString(RenderPad(color(level), glyph(level)))
		}
		lines = append(lines, line.String())
		if y == 0 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// GridCellAt maps a position relative to the top-left of a RenderGrid block
// back to a cell, accounting for the separator line
func GridCellAt(relX, relY, width, height int) (x, y int, ok bool) {
	if relX < 0 || relY < 0 {
		return 0, 0, false
	}
	switch {
	case relY == 0:
		y = 0
	case relY == 1:
		return 0, 0, false
	default:
		y = relY - 1
	}
	x = relX / cellWidth
	if relX%cellWidth != 0 || x >= width || y >= height {
		return 0, 0, false
	}
	return x, y, true
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
