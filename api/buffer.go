package api

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Number is the set of element types a NativeDataBuffer can carry.
type Number interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// EncodeValues packs values into a little-endian buffer.
func EncodeValues[T Number](values []T) NativeDataBuffer {
	var buf bytes.Buffer
	// Writes into a bytes.Buffer of fixed-size elements cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, values)
	return NativeDataBuffer{Data: buf.Bytes()}
}

// DecodeValues unpacks a little-endian buffer into values.
func DecodeValues[T Number](b NativeDataBuffer) ([]T, error) {
	var zero T
	size := binary.Size(zero)
	if len(b.Data)%size != 0 {
		return nil, fmt.Errorf("buffer of %d bytes is not a multiple of element size %d", len(b.Data), size)
	}
	out := make([]T, len(b.Data)/size)
	if err := binary.Read(bytes.NewReader(b.Data), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("failed to decode buffer: %w", err)
	}
	return out, nil
}

// DecodeFloat64 unpacks a buffer of the given data type, widening every element to float64.
func DecodeFloat64(dt DataType, b NativeDataBuffer) ([]float64, error) {
	switch dt {
	case DataTypeInt32:
		return widen[int32](b)
	case DataTypeInt64:
		return widen[int64](b)
	case DataTypeFloat32:
		return widen[float32](b)
	case DataTypeFloat64:
		return DecodeValues[float64](b)
	default:
		return nil, fmt.Errorf("unsupported data type %q", dt)
	}
}

// EncodeFloat64 narrows float64 values to the given data type and packs them.
func EncodeFloat64(dt DataType, values []float64) (NativeDataBuffer, error) {
	switch dt {
	case DataTypeInt32:
		return EncodeValues(narrow[int32](values)), nil
	case DataTypeInt64:
		return EncodeValues(narrow[int64](values)), nil
	case DataTypeFloat32:
		return EncodeValues(narrow[float32](values)), nil
	case DataTypeFloat64:
		return EncodeValues(values), nil
	default:
		return NativeDataBuffer{}, fmt.Errorf("unsupported data type %q", dt)
	}
}

func widen[T Number](b NativeDataBuffer) ([]float64, error) {
	values, err := DecodeValues[T](b)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

func narrow[T Number](values []float64) []T {
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}
