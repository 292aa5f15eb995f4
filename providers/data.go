package providers

import (
	"fmt"

	"github.com/nvr-ai/go-hebench/api"
)

// Operands maps operand positions to their decoded samples.
type Operands[T api.Number] map[uint64][][]T

// DecodePacks decodes every sample of every pack.
func DecodePacks[T api.Number](packs []api.DataPack) (Operands[T], error) {
	out := make(Operands[T], len(packs))
	for _, p := range packs {
		if _, dup := out[p.ParamPosition]; dup {
			return nil, fmt.Errorf("operand %d packed twice", p.ParamPosition)
		}
		samples := make([][]T, len(p.Buffers))
		for i, b := range p.Buffers {
			values, err := api.DecodeValues[T](b)
			if err != nil {
				return nil, fmt.Errorf("operand %d sample %d: %w", p.ParamPosition, i, err)
			}
			samples[i] = values
		}
		out[p.ParamPosition] = samples
	}
	return out, nil
}

// Merge combines operand sets, rejecting a position present in both.
func (o Operands[T]) Merge(other Operands[T]) error {
	for pos, samples := range other {
		if _, dup := o[pos]; dup {
			return fmt.Errorf("operand %d loaded twice", pos)
		}
		o[pos] = samples
	}
	return nil
}

// Ordered returns the samples of operands 0..count-1.
func (o Operands[T]) Ordered(count int) ([][][]T, error) {
	out := make([][][]T, count)
	for i := range out {
		samples, ok := o[uint64(i)]
		if !ok {
			return nil, fmt.Errorf("operand %d was not loaded", i)
		}
		out[i] = samples
	}
	return out, nil
}

// Batch validates indexers against the loaded sample counts and returns the first
// sample of each operand and the shared batch size. Samples are zipped: output i reads
// sample first[k]+i of every operand k.
func Batch(indexers []api.ParameterIndexer, available []int) (first []uint64, size uint64, err error) {
	if len(indexers) != len(available) {
		return nil, 0, fmt.Errorf("got %d indexers for %d operands", len(indexers), len(available))
	}
	first = make([]uint64, len(indexers))
	for k, ix := range indexers {
		if ix.BatchSize == 0 {
			return nil, 0, fmt.Errorf("operand %d has an empty batch", k)
		}
		if k > 0 && ix.BatchSize != size {
			return nil, 0, fmt.Errorf("operand %d batch %d differs from %d", k, ix.BatchSize, size)
		}
		if ix.ValueIndex+ix.BatchSize > uint64(available[k]) {
			return nil, 0, fmt.Errorf("operand %d batch [%d, %d) exceeds %d samples",
				k, ix.ValueIndex, ix.ValueIndex+ix.BatchSize, available[k])
		}
		first[k] = ix.ValueIndex
		size = ix.BatchSize
	}
	return first, size, nil
}

// Result is the output of one input sample.
type Result[T api.Number] struct {
	SampleIndex uint64
	Components  [][]T
}

// EncodeResults converts results into raw result data.
func EncodeResults[T api.Number](results []Result[T]) []api.ResultData {
	out := make([]api.ResultData, len(results))
	for i, r := range results {
		values := make([]api.NativeDataBuffer, len(r.Components))
		for j, c := range r.Components {
			values[j] = api.EncodeValues(c)
		}
		out[i] = api.ResultData{SampleIndex: r.SampleIndex, Values: values}
	}
	return out
}
