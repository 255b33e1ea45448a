package generator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxColumnValues bounds the number of values one parameter line may expand to.
	MaxColumnValues = 100_000
	// MaxTableRows bounds the number of rows a generated table may hold.
	MaxTableRows = 1_000_000
)

// FRangeLen returns the number of values FRange(start, stop, step) produces.
// The result is a float so that absurd ranges can be rejected before anything is allocated.
func FRangeLen(start, stop, step float64) float64 {
	if step <= 0 {
		return 0
	}
	count := math.Ceil((stop - start) / step)
	if math.IsNaN(count) || count <= 0 {
		return 0
	}
	return count
}

// FRange returns ceil((stop-start)/step) values built by repeated addition from start.
// The values drift the way repeated floating-point addition does; stop is usually excluded.
// Ranges longer than MaxColumnValues yield nil.
func FRange(start, stop, step float64) []float64 {
	count := FRangeLen(start, stop, step)
	if count == 0 || count > MaxColumnValues {
		return nil
	}
	values := make([]float64, int(count))
	values[0] = start
	for i := 1; i < len(values); i++ {
		values[i] = values[i-1] + step
	}
	return values
}

// IntRangeLen returns the number of values IntRange(start, stop, step) produces.
// It is computed on the unsigned distance, so bounds near the int64 limits do not overflow.
func IntRangeLen(start, stop, step int64) uint64 {
	if step <= 0 || stop < start {
		return 0
	}
	n := (uint64(stop) - uint64(start)) / uint64(step)
	if n == math.MaxUint64 {
		return n
	}
	return n + 1
}

// IntRange returns start, start+step, ... up to and including stop.
// Ranges longer than MaxColumnValues yield nil.
func IntRange(start, stop, step int64) []int64 {
	count := IntRangeLen(start, stop, step)
	if count == 0 || count > MaxColumnValues {
		return nil
	}
	values := make([]int64, count)
	for i := range values {
		values[i] = start + int64(uint64(i)*uint64(step))
	}
	return values
}

// ExpandToken expands "start-stop[:step]" into its values. Any other token is returned as a literal.
func ExpandToken(token string) ([]string, error) {
	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return []string{token}, nil
	}
	start, stop, step := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), "1"
	if strings.Contains(stop, ":") {
		bounds := strings.Split(stop, ":")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("malformed range step in '%s'", token)
		}
		stop, step = strings.TrimSpace(bounds[0]), strings.TrimSpace(bounds[1])
	}

	if strings.Contains(start+stop+step, ".") {
		fStart, err1 := strconv.ParseFloat(start, 64)
		fStop, err2 := strconv.ParseFloat(stop, 64)
		fStep, err3 := strconv.ParseFloat(step, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return []string{token}, nil
		}
		if fStep <= 0 {
			return nil, fmt.Errorf("range step must be positive in '%s'", token)
		}
		if n := FRangeLen(fStart, fStop, fStep); n > MaxColumnValues {
			return nil, fmt.Errorf("range '%s' expands to %.0f values, more than %d", token, n, MaxColumnValues)
		}
		floats := FRange(fStart, fStop, fStep)
		values := make([]string, len(floats))
		for i, f := range floats {
			values[i] = FormatFloat(f)
		}
		return values, nil
	}

	iStart, err1 := strconv.ParseInt(start, 10, 64)
	iStop, err2 := strconv.ParseInt(stop, 10, 64)
	iStep, err3 := strconv.ParseInt(step, 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return []string{token}, nil
	}
	if iStep <= 0 {
		return nil, fmt.Errorf("range step must be positive in '%s'", token)
	}
	if n := IntRangeLen(iStart, iStop, iStep); n > MaxColumnValues {
		return nil, fmt.Errorf("range '%s' expands to %d values, more than %d", token, n, MaxColumnValues)
	}
	ints := IntRange(iStart, iStop, iStep)
	values := make([]string, len(ints))
	for i, v := range ints {
		values[i] = strconv.FormatInt(v, 10)
	}
	return values, nil
}

// FormatFloat renders f in its shortest round-trip form, always with a decimal point
// or an exponent: 1 becomes "1.0", 1e-05 and 1e+16 keep exponent notation.
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if f != 0 && (exp < -4 || exp >= 16) {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
