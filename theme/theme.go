package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// MaxLevel is the brightest grid LED level
const MaxLevel = 15

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	LedOff  rune // · unlit
	LedDim  rune // ○ dim (voice on, not sounding)
	LedFull rune // ● full
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			LedOff:  '·',
			LedDim:  '○',
			LedFull: '●',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleMuted   = 0.3
	RoleFG      = 0.6
	RoleAccent  = 0.8
	RoleWarning = 1.0
)

// Style helpers

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

// Level returns the raw RGB for an LED level 0-15 (for the Launchpad and TUI)
func (t *Theme) Level(level int) RGB {
	return t.Palette.Lookup(float64(level) / MaxLevel)
}

// LevelColor returns the lipgloss colour for an LED level
func (t *Theme) LevelColor(level int) lipgloss.Color {
	return rgbToLipgloss(t.Level(level))
}

// Symbol picks the cell glyph for an LED level given the dim threshold
func (t *Theme) Symbol(level, dim int) rune {
	switch {
	case level <= 0:
		return t.Symbols.LedOff
	case level <= dim:
		return t.Symbols.LedDim
	default:
		return t.Symbols.LedFull
	}
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
