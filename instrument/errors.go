package instrument

import "github.com/pkg/errors"

// Error kinds reported to the controller's error hook. Test with errors.Is;
// the reported errors wrap these with event context.
var (
	ErrMalformedEvent      = errors.New("malformed grid event")
	ErrOutOfRangeEvent     = errors.New("grid event out of range")
	ErrOutOfRangeParameter = errors.New("parameter out of range")
)
