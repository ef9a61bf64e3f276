package instrument

import (
	"testing"

	"github.com/pkg/errors"
)

func TestValidateAcceptsIntegerKinds(t *testing.T) {
	cases := [][]any{
		{3, 4, 1},
		{int32(3), int32(4), int32(1)},
		{int64(3), uint8(4), uint32(1)},
		{uint(3), uint64(4), uint16(1)},
	}
	for _, args := range cases {
		k, err := Validate(args)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if k != (Key{X: 3, Y: 4, Level: 1}) || !k.Pressed() {
			t.Fatalf("%v: got %+v", args, k)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		args []any
		kind error
	}{
		{nil, ErrMalformedEvent},
		{[]any{1, 1}, ErrMalformedEvent},
		{[]any{1, 1, float32(1)}, ErrMalformedEvent},
		{[]any{-1, 0, 1}, ErrOutOfRangeEvent},
		{[]any{0, 0, -1}, ErrOutOfRangeEvent},
		{[]any{int64(1 << 40), 0, 1}, ErrOutOfRangeEvent},
		{[]any{uint64(1 << 40), 0, 1}, ErrOutOfRangeEvent},
		{[]any{uint(16), 0, 1}, ErrOutOfRangeEvent},
		{[]any{15, 7, 15}, nil},
	}
	for _, tc := range cases {
		_, err := Validate(tc.args)
		if tc.kind == nil {
			if err != nil {
				t.Fatalf("%v: unexpected error %v", tc.args, err)
			}
			continue
		}
		if !errors.Is(err, tc.kind) {
			t.Fatalf("%v: got %v, want %v", tc.args, err, tc.kind)
		}
	}
}

func TestReleaseLevels(t *testing.T) {
	for _, level := range []int{0, 2, 15} {
		if (Key{Level: level}).Pressed() {
			t.Fatalf("level %d counted as a press", level)
		}
	}
}
