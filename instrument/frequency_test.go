package instrument

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestFrequency(t *testing.T) {
	m := NewMapper(110)
	for col, want := range []float64{110, 220, 330} {
		if got := m.Frequency(col); got != want {
			t.Fatalf("column %d: got %v, want %v", col, got, want)
		}
	}
	if got := m.Frequency(15); got != 1760 {
		t.Fatalf("column 15: got %v", got)
	}
}

func TestPan(t *testing.T) {
	m := NewMapper(DefaultFundamental)
	cases := map[int]float64{1: -1, 4: 0, 7: 1}
	for row, want := range cases {
		got, err := m.Pan(row)
		if err != nil {
			t.Fatalf("row %d: %v", row, err)
		}
		if got != want {
			t.Fatalf("row %d: got %v, want %v", row, got, want)
		}
	}
	if _, err := m.Pan(0); !errors.Is(err, ErrOutOfRangeParameter) {
		t.Fatalf("row 0: got %v, want %v", err, ErrOutOfRangeParameter)
	}
}

func TestMapperFundamental(t *testing.T) {
	if f := NewMapper(0).Fundamental(); f != DefaultFundamental {
		t.Fatalf("zero fundamental gave %v", f)
	}
	m := NewMapper(DefaultFundamental)
	for _, f := range []float64{-1, 0, math.NaN(), math.Inf(1)} {
		if err := m.SetFundamental(f); !errors.Is(err, ErrOutOfRangeParameter) {
			t.Fatalf("fundamental %v: got %v", f, err)
		}
	}
	if err := m.SetFundamental(55); err != nil || m.Fundamental() != 55 {
		t.Fatalf("set 55: err %v, fundamental %v", err, m.Fundamental())
	}
}
