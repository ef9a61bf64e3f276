package instrument

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultFundamental is the fundamental frequency in Hz at startup.
const DefaultFundamental = 100.0

// panCenterRow is the play-area row that maps to a centered pan.
const panCenterRow = 4

// Mapper turns play-area coordinates into voice parameters. Columns are
// harmonics of the fundamental, rows are a linear pan from -1 (row 1) to
// +1 (row 7).
type Mapper struct {
	fundamental float64
}

// NewMapper creates a mapper. A fundamental that fails ValidateFundamental
// falls back to DefaultFundamental.
func NewMapper(fundamental float64) *Mapper {
	if ValidateFundamental(fundamental) != nil {
		fundamental = DefaultFundamental
	}
	return &Mapper{fundamental: fundamental}
}

func (m *Mapper) Fundamental() float64 {
	return m.fundamental
}

// SetFundamental replaces the fundamental. Invalid values leave it unchanged.
func (m *Mapper) SetFundamental(f float64) error {
	if err := ValidateFundamental(f); err != nil {
		return err
	}
	m.fundamental = f
	return nil
}

// Frequency returns the frequency for a play-area column.
func (m *Mapper) Frequency(col int) float64 {
	return float64(col+1) * m.fundamental
}

// Pan returns the pan position for a play-area row.
func (m *Mapper) Pan(row int) (float64, error) {
	pan := float64(row-panCenterRow) / 3.0
	if math.Abs(pan) > 1 {
		return pan, errors.Wrapf(ErrOutOfRangeParameter, "pan %.3f for row %d", pan, row)
	}
	return pan, nil
}
