package dataloader

import (
	"fmt"
	"math"
	"strings"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-hebench/api"
)

// DefaultTolerance is the per-one tolerance used for floating point results.
const DefaultTolerance = 0.05

// maxReported caps the number of failing indices listed in a mismatch message.
const maxReported = 10

// AlmostEqual reports whether a and b are within pct (per-one) of each other. Values of
// the same sign are compared relatively. When the signs differ both are shifted so the
// negative one becomes zero, and a zero side is compared absolutely.
func AlmostEqual(a, b, pct float64) bool {
	if a == b {
		return true
	}
	if pct <= 0 {
		return false
	}
	ab := a * b
	switch {
	case ab > 0:
		a, b = math.Abs(a), math.Abs(b)
		keep := 1 - pct
		if a > b {
			return b > a*keep
		}
		return a > b*keep
	case ab < 0:
		offset := b
		if a < 0 {
			offset = a
		}
		a -= offset
		b -= offset
	}
	return math.Abs(a-b) < pct
}

// AlmostEqual32 is AlmostEqual evaluated in float32 arithmetic.
func AlmostEqual32(a, b float32, pct float32) bool {
	if a == b {
		return true
	}
	if pct <= 0 {
		return false
	}
	ab := a * b
	switch {
	case ab > 0:
		a, b = math32.Abs(a), math32.Abs(b)
		keep := 1 - pct
		if a > b {
			return b > a*keep
		}
		return a > b*keep
	case ab < 0:
		offset := b
		if a < 0 {
			offset = a
		}
		a -= offset
		b -= offset
	}
	return math32.Abs(a-b) < pct
}

// Compare checks one result component against its ground truth. Integer types must match
// exactly; floating point types use AlmostEqual with pct.
//
// Arguments:
//   - dataType: The element type of both buffers.
//   - expected: The ground truth.
//   - got: The backend result. It may hold more elements than expected; extras are ignored.
//   - pct: The per-one tolerance for floating point types.
//
// Returns:
//   - bool: Whether every element matched.
//   - string: A description of the failing elements, empty on success.
func Compare(dataType api.DataType, expected, got api.NativeDataBuffer, pct float64) (bool, string) {
	var failed []int
	var count int

	switch dataType {
	case api.DataTypeInt32:
		failed, count = compareWith(expected, got, func(a, b int32) bool { return a == b })
	case api.DataTypeInt64:
		failed, count = compareWith(expected, got, func(a, b int64) bool { return a == b })
	case api.DataTypeFloat32:
		failed, count = compareWith(expected, got, func(a, b float32) bool { return AlmostEqual32(a, b, float32(pct)) })
	case api.DataTypeFloat64:
		failed, count = compareWith(expected, got, func(a, b float64) bool { return AlmostEqual(a, b, pct) })
	default:
		return false, fmt.Sprintf("unsupported data type %q", dataType)
	}

	if count < 0 {
		return false, fmt.Sprintf("result has %d bytes, expected at least %d", len(got.Data), len(expected.Data))
	}
	if len(failed) == 0 {
		return true, ""
	}
	return false, describeFailures(dataType, failed, count)
}

// CompareResults checks every component of one result.
func CompareResults(dataType api.DataType, expected, got []api.NativeDataBuffer, pct float64) (bool, string) {
	if len(got) != len(expected) {
		return false, fmt.Sprintf("result has %d components, expected %d", len(got), len(expected))
	}
	for i := range expected {
		if ok, msg := Compare(dataType, expected[i], got[i], pct); !ok {
			return false, fmt.Sprintf("component %d: %s", i, msg)
		}
	}
	return true, ""
}

// CompareSet checks one result component that holds an unordered set of k-element items
// against its ground truth. Every expected item, padding included, must match a distinct
// item of got; integer items must match exactly.
func CompareSet(dataType api.DataType, k int, expected, got api.NativeDataBuffer, pct float64) (bool, string) {
	if k <= 0 {
		return false, fmt.Sprintf("invalid item size %d", k)
	}
	want, err := api.DecodeFloat64(dataType, expected)
	if err != nil {
		return false, err.Error()
	}
	have, err := api.DecodeFloat64(dataType, got)
	if err != nil {
		return false, err.Error()
	}
	if len(have) < len(want) {
		return false, fmt.Sprintf("result has %d bytes, expected at least %d", len(got.Data), len(expected.Data))
	}
	have = have[:len(want)]

	equal := func(a, b float64) bool { return a == b }
	switch dataType {
	case api.DataTypeFloat32:
		equal = func(a, b float64) bool { return AlmostEqual32(float32(a), float32(b), float32(pct)) }
	case api.DataTypeFloat64:
		equal = func(a, b float64) bool { return AlmostEqual(a, b, pct) }
	}

	items := len(want) / k
	used := make([]bool, items)
	var missing []int
	for i := 0; i < items; i++ {
		item := want[i*k : (i+1)*k]
		matched := false
		for j := 0; j < items && !matched; j++ {
			if used[j] {
				continue
			}
			if sameItem(item, have[j*k:(j+1)*k], equal) {
				used[j] = true
				matched = true
			}
		}
		if !matched {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return true, ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d set items have no match; missing items ", len(missing), items)
	for i, idx := range missing {
		if i == maxReported {
			b.WriteString(", ...")
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", idx)
	}
	return false, b.String()
}

func sameItem(a, b []float64, equal func(a, b float64) bool) bool {
	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// setResults is implemented by loaders whose results are unordered sets.
type setResults interface {
	SetElementSize() int
}

// Check compares one decoded result to the loader's ground truth for sample. Set results
// are compared with CompareSet, everything else with CompareResults.
//
// Arguments:
//   - loader: The dataset the sample came from.
//   - sample: The sample index the result claims.
//   - got: The decoded result components.
//   - pct: The per-one tolerance for floating point types.
//
// Returns:
//   - bool: Whether the result matches.
//   - string: A description of the mismatch, empty on success.
func Check(loader Loader, sample uint64, got []api.NativeDataBuffer, pct float64) (bool, string) {
	expected := loader.Expected(sample)
	sets, ok := loader.(setResults)
	if !ok || sets.SetElementSize() == 0 {
		return CompareResults(loader.DataType(), expected, got, pct)
	}
	if len(got) != len(expected) {
		return false, fmt.Sprintf("result has %d components, expected %d", len(got), len(expected))
	}
	for i := range expected {
		if ok, msg := CompareSet(loader.DataType(), sets.SetElementSize(), expected[i], got[i], pct); !ok {
			return false, fmt.Sprintf("component %d: %s", i, msg)
		}
	}
	return true, ""
}

// compareWith returns the failing indices and the element count, or a count of -1 when
// got is too short or malformed.
func compareWith[T api.Number](expected, got api.NativeDataBuffer, equal func(a, b T) bool) ([]int, int) {
	want, err := api.DecodeValues[T](expected)
	if err != nil {
		return nil, -1
	}
	have, err := api.DecodeValues[T](got)
	if err != nil || len(have) < len(want) {
		return nil, -1
	}
	var failed []int
	for i := range want {
		if !equal(want[i], have[i]) {
			failed = append(failed, i)
		}
	}
	return failed, len(want)
}

func describeFailures(dataType api.DataType, failed []int, count int) string {
	var b strings.Builder
	if dataType.IsFloat() {
		fmt.Fprintf(&b, "%d of %d elements outside tolerance; failed indices ", len(failed), count)
	} else {
		fmt.Fprintf(&b, "%d of %d elements differ; failed indices ", len(failed), count)
	}
	for i, idx := range failed {
		if i == maxReported {
			b.WriteString(", ...")
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", idx)
	}
	return b.String()
}
