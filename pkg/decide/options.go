package decide

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// OptionWindowDays is the options key for the time window length in days.
const OptionWindowDays = "windowDays"

// DefaultWindowDays is used when OptionWindowDays is absent.
const DefaultWindowDays = 2

var errNotPositiveInt = errors.New("must be a positive integer")

// Options is the per-call configuration mapping.
type Options map[string]any

// WindowDays returns an Options with only the window set.
func WindowDays(days int) Options {
	return Options{OptionWindowDays: days}
}

// ParseWindowDays reads OptionWindowDays from opts.
//
// Numbers and numeric strings are accepted when they hold a whole number of
// days between 1 and math.MaxInt32, so 14, 14.0, "14" and "14.0" all read
// as 14. Bools, fractions and anything else are an *InvalidOptionError.
func ParseWindowDays(opts Options) (int, error) {
	v, ok := opts[OptionWindowDays]
	if !ok || v == nil {
		return DefaultWindowDays, nil
	}

	invalid := func(err error) (int, error) {
		return 0, &InvalidOptionError{Key: OptionWindowDays, Value: v, Err: err}
	}

	var n int
	switch x := v.(type) {
	case bool:
		// cast reads true as 1.
		return invalid(errNotPositiveInt)
	case string:
		// Decimal only: cast reads a leading 0 as octal, so "08" would fail.
		f, ok := parseDays(x)
		if !ok {
			return invalid(errNotPositiveInt)
		}
		n = f
	case json.Number:
		f, ok := parseDays(x.String())
		if !ok {
			return invalid(errNotPositiveInt)
		}
		n = f
	case float32:
		if !wholeDays(float64(x)) {
			return invalid(errNotPositiveInt)
		}
		n = int(x)
	case float64:
		if !wholeDays(x) {
			return invalid(errNotPositiveInt)
		}
		n = int(x)
	default:
		i, err := cast.ToIntE(v)
		if err != nil {
			return invalid(err)
		}
		n = i
	}

	if n < 1 || n > math.MaxInt32 {
		return invalid(errNotPositiveInt)
	}
	return n, nil
}

// wholeDays reports whether f is an integer inside the accepted range.
func wholeDays(f float64) bool {
	return f == math.Trunc(f) && f >= 1 && f <= math.MaxInt32
}

func parseDays(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !wholeDays(f) {
		return 0, false
	}
	return int(f), true
}
