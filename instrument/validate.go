package instrument

import (
	"math"

	"github.com/pkg/errors"
)

// Key is a validated grid key event. Level 1 is a press, anything else a
// release.
type Key struct {
	X, Y  int
	Level int
}

func (k Key) Cell() Cell {
	return Cell{X: k.X, Y: k.Y}
}

func (k Key) Pressed() bool {
	return k.Level == 1
}

// Check reports ErrOutOfRangeEvent when a coordinate or the level falls off
// the grid.
func (k Key) Check() error {
	if k.X < 0 || k.X >= GridWidth || k.Y < 0 || k.Y >= GridHeight {
		return errors.Wrapf(ErrOutOfRangeEvent, "key %d %d outside %dx%d grid", k.X, k.Y, GridWidth, GridHeight)
	}
	if k.Level < OffLevel || k.Level > FullLevel {
		return errors.Wrapf(ErrOutOfRangeEvent, "level %d outside %d-%d", k.Level, OffLevel, FullLevel)
	}
	return nil
}

// Validate turns a raw (x, y, level) triple into a Key.
func Validate(args []any) (Key, error) {
	if len(args) != 3 {
		return Key{}, errors.Wrapf(ErrMalformedEvent, "got %d fields, want x y level", len(args))
	}
	var vals [3]int
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return Key{}, errors.Wrapf(ErrMalformedEvent, "field %d is %T, want an integer", i, a)
		}
		vals[i] = n
	}
	k := Key{X: vals[0], Y: vals[1], Level: vals[2]}
	if err := k.Check(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// ValidateFundamental accepts finite, positive frequencies.
func ValidateFundamental(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return errors.Wrapf(ErrOutOfRangeParameter, "fundamental %v", f)
	}
	return nil
}

func toInt(a any) (int, bool) {
	switch n := a.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return -1, true
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if n > math.MaxInt32 {
			return -1, true
		}
		return int(n), true
	case uint:
		if n > math.MaxInt32 {
			return -1, true
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return -1, true
		}
		return int(n), true
	}
	return 0, false
}
