package eval

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// mapStride is the sample spacing of the 11-point interpolated AP.
const mapStride = 4

// Curves holds the sampled curves of an evaluation, each shaped
// [class, difficulty, overlap variant, sample point].
type Curves struct {
	Precision *tensor.Dense
	Recall    *tensor.Dense
	// Orientation is nil unless orientation similarity was computed.
	Orientation *tensor.Dense
}

func newCurve(shape ...int) *tensor.Dense {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(make([]float64, size)))
}

func newCurves(numClass, numDifficulty, numVariant, numSamplePoints int, computeAOS bool) *Curves {
	c := &Curves{
		Precision: newCurve(numClass, numDifficulty, numVariant, numSamplePoints),
		Recall:    newCurve(numClass, numDifficulty, numVariant, numSamplePoints),
	}
	if computeAOS {
		c.Orientation = newCurve(numClass, numDifficulty, numVariant, numSamplePoints)
	}
	return c
}

// row returns the sample points of curve t at (m, n, k) as a slice of its
// backing storage.
func row(t *tensor.Dense, m, n, k int) []float64 {
	shape := t.Shape()
	samples := shape[3]
	offset := ((m*shape[1]+n)*shape[2] + k) * samples
	return t.Data().([]float64)[offset : offset+samples]
}

// ratio divides num by den and defines 0/0 (and x/0) as 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// TailMax makes v non-increasing by replacing each entry with the maximum of
// itself and everything after it.
func TailMax(v []float64) {
	for i := len(v) - 2; i >= 0; i-- {
		if v[i+1] > v[i] {
			v[i] = v[i+1]
		}
	}
}

// fill writes the accumulated counts of one (class, difficulty, variant)
// triple. Sample points past the last threshold stay 0.
func (c *Curves) fill(m, n, k int, acc Accumulator) {
	prec := row(c.Precision, m, n, k)
	rec := row(c.Recall, m, n, k)
	var aos []float64
	if c.Orientation != nil {
		aos = row(c.Orientation, m, n, k)
	}

	for i, pr := range acc {
		tp, fp, fn := float64(pr.TP), float64(pr.FP), float64(pr.FN)
		prec[i] = ratio(tp, tp+fp)
		rec[i] = ratio(tp, tp+fn)
		if aos != nil {
			aos[i] = ratio(pr.Similarity, tp+fp)
		}
	}

	TailMax(prec)
	TailMax(rec)
	if aos != nil {
		TailMax(aos)
	}
}

// MeanAP reduces one curve to its 11-point interpolated average precision in
// percent: every fourth sample is summed and divided by 11.
func MeanAP(curve []float64) float64 {
	sum := 0.0
	for i := 0; i < len(curve); i += mapStride {
		sum += curve[i]
	}
	return sum / 11 * 100
}

// GetMAP applies MeanAP along the last axis of curves.
//
// Arguments:
//   - curves: A float64 tensor with at least two dimensions.
//
// Returns:
//   - A tensor shaped like curves without its last axis.
func GetMAP(curves *tensor.Dense) (*tensor.Dense, error) {
	if curves.Dtype() != tensor.Float64 {
		return nil, errors.Errorf("curves must be float64, got %v", curves.Dtype())
	}
	shape := curves.Shape()
	if len(shape) < 2 {
		return nil, errors.Errorf("curves need at least 2 dimensions, got shape %v", shape)
	}

	samples := shape[len(shape)-1]
	outShape := append([]int(nil), shape[:len(shape)-1]...)
	if curves.IsView() {
		materialized, ok := curves.Materialize().(*tensor.Dense)
		if !ok {
			return nil, errors.New("cannot materialize curve view")
		}
		curves = materialized
	}
	data := curves.Data().([]float64)

	out := make([]float64, len(data)/max(samples, 1))
	for o := range out {
		out[o] = MeanAP(data[o*samples : (o+1)*samples])
	}
	return tensor.New(tensor.WithShape(outShape...), tensor.WithBacking(out)), nil
}
