// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"fmt"
	"math"
)

// SlideEncode maps the unsigned 64-bit range onto the signed one by
// subtracting 2^63, so 0 becomes math.MinInt64 and math.MaxUint64 becomes
// math.MaxInt64. The mapping is a bijection that preserves order, which makes
// slid values comparable and sortable by the engine.
func SlideEncode(v uint64) int64 {
	return int64(v - 1<<63)
}

// SlideDecode is the inverse of SlideEncode.
func SlideDecode(v int64) uint64 {
	return uint64(v) + 1<<63
}

// CastEncode reinterprets the bits of v. Values above math.MaxInt64 become negative.
func CastEncode(v uint64) int64 {
	return int64(v)
}

// ThrowEncode returns v as a signed value, or an error matching ErrOutOfBounds
// if v does not fit.
func ThrowEncode(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, outOfBounds(v)
	}
	return int64(v), nil
}

func outOfBounds(v uint64) *Error {
	return &Error{Msg: fmt.Sprintf("value (%d) in binding is out of bounds", v), kind: ErrOutOfBounds}
}
