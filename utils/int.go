package utils

import (
	"fmt"
	"math"
	"time"
)

// SafeInt64 checks for overflows while casting a uint64 to int64 value.
func SafeInt64(value uint64) (int64, error) {
	if value > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("uint64 value %v cannot exceed %v", value, int64(math.MaxInt64))
	}

	return int64(value), nil // #nosec G115 -- checked for int overflow already
}

// SafeUint64 checks for underflows while casting an int64 to uint64 value.
func SafeUint64(value int64) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf("invalid value: %d", value)
	}
	return uint64(value), nil
}

// TimeFromUnixMs converts a millisecond unix timestamp to a UTC time.Time.
// Values above the int64 range are clamped to the zero time.
func TimeFromUnixMs(ms uint64) time.Time {
	signed, err := SafeInt64(ms)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(signed).UTC()
}
