package cleartext

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-hebench/api"
)

// kernel computes the result components of one input sample.
type kernel[T api.Number] func(operands [][]T) ([][]T, error)

func eltwiseAdd[T api.Number](operands [][]T) ([][]T, error) {
	a, b := operands[0], operands[1]
	out := make([]T, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return [][]T{out}, nil
}

func eltwiseMultiply[T api.Number](operands [][]T) ([][]T, error) {
	a, b := operands[0], operands[1]
	out := make([]T, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return [][]T{out}, nil
}

func dotProduct[T api.Number](operands [][]T) ([][]T, error) {
	a, b := operands[0], operands[1]
	var sum T
	for i := range a {
		sum += a[i] * b[i]
	}
	return [][]T{{sum}}, nil
}

// matMul multiplies a rows x inner matrix by an inner x cols matrix, both row-major.
func matMul[T float32 | float64](rows, inner, cols int) kernel[T] {
	return func(operands [][]T) ([][]T, error) {
		a := tensor.New(tensor.WithShape(rows, inner), tensor.WithBacking(operands[0]))
		b := tensor.New(tensor.WithShape(inner, cols), tensor.WithBacking(operands[1]))
		c, err := a.MatMul(b)
		if err != nil {
			return nil, fmt.Errorf("matmul %dx%d by %dx%d: %w", rows, inner, inner, cols, err)
		}
		data, ok := c.Data().([]T)
		if !ok {
			return nil, fmt.Errorf("matmul produced %T", c.Data())
		}
		return [][]T{append([]T(nil), data...)}, nil
	}
}

// setIntersection intersects an n-item set with an m-item set of k-element items. The
// result scans the larger set in order, skips repeats and is zero padded to min(n, m)
// items.
func setIntersection[T api.Number](n, m, k int) kernel[T] {
	return func(operands [][]T) ([][]T, error) {
		x, y := operands[0], operands[1]
		if len(x) != n*k || len(y) != m*k {
			return nil, fmt.Errorf("sets of %d and %d elements, want %d and %d", len(x), len(y), n*k, m*k)
		}
		outer, inner := x, y
		if n <= m {
			outer, inner = y, x
		}
		out := make([]T, min(n, m)*k)
		found := 0
		for i := 0; i+k <= len(outer); i += k {
			item := outer[i : i+k]
			if hasItem(inner, item) && !hasItem(out[:found*k], item) {
				copy(out[found*k:], item)
				found++
			}
		}
		return [][]T{out}, nil
	}
}

func hasItem[T api.Number](set, item []T) bool {
	k := len(item)
next:
	for i := 0; i+k <= len(set); i += k {
		for j := range item {
			if set[i+j] != item[j] {
				continue next
			}
		}
		return true
	}
	return false
}

// logistic evaluates sigmoid(w.x + b) on an expression graph. Operands are the weights,
// the bias and the features. With poly set, the sigmoid is replaced by that polynomial,
// lowest power first, evaluated by Horner's rule on the graph.
type logistic struct {
	w, x, b, y *G.Node
	vm         G.VM
}

func newLogistic(n int, poly []float64) (*logistic, error) {
	g := G.NewGraph()
	w := G.NewVector(g, tensor.Float64, G.WithShape(n), G.WithName("w"))
	x := G.NewVector(g, tensor.Float64, G.WithShape(n), G.WithName("x"))
	b := G.NewScalar(g, tensor.Float64, G.WithName("b"))

	wx, err := G.Mul(w, x)
	if err != nil {
		return nil, fmt.Errorf("failed to build w.x: %w", err)
	}
	z, err := G.Add(wx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to build w.x+b: %w", err)
	}
	var y *G.Node
	if len(poly) == 0 {
		y, err = G.Sigmoid(z)
	} else {
		y, err = horner(g, z, poly)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build sigmoid: %w", err)
	}

	return &logistic{w: w, x: x, b: b, y: y, vm: G.NewTapeMachine(g)}, nil
}

func horner(g *G.ExprGraph, z *G.Node, coeffs []float64) (*G.Node, error) {
	acc := G.NewConstant(coeffs[len(coeffs)-1], G.In(g))
	for i := len(coeffs) - 2; i >= 0; i-- {
		prod, err := G.Mul(acc, z)
		if err != nil {
			return nil, fmt.Errorf("degree %d term: %w", i+1, err)
		}
		if acc, err = G.Add(prod, G.NewConstant(coeffs[i], G.In(g))); err != nil {
			return nil, fmt.Errorf("degree %d term: %w", i, err)
		}
	}
	return acc, nil
}

func (l *logistic) eval(operands [][]float64) ([][]float64, error) {
	defer l.vm.Reset()

	weights, bias, features := operands[0], operands[1], operands[2]
	if err := G.Let(l.w, tensor.New(tensor.WithShape(len(weights)), tensor.WithBacking(weights))); err != nil {
		return nil, fmt.Errorf("can't let w: %w", err)
	}
	if err := G.Let(l.x, tensor.New(tensor.WithShape(len(features)), tensor.WithBacking(features))); err != nil {
		return nil, fmt.Errorf("can't let x: %w", err)
	}
	if err := G.Let(l.b, bias[0]); err != nil {
		return nil, fmt.Errorf("can't let b: %w", err)
	}
	if err := l.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("can't run tape machine: %w", err)
	}

	v, ok := l.y.Value().Data().(float64)
	if !ok {
		return nil, fmt.Errorf("sigmoid produced %T", l.y.Value().Data())
	}
	return [][]float64{{v}}, nil
}
