package images

import (
	"gonum.org/v1/gonum/mat"
)

// Criterion selects the denominator used by BoxOverlap.
type Criterion int

const (
	// CriterionIoU divides by the union of both boxes.
	CriterionIoU Criterion = -1
	// CriterionBoxArea divides by the area of the row box.
	CriterionBoxArea Criterion = 0
	// CriterionQueryArea divides by the area of the column (query) box.
	CriterionQueryArea Criterion = 1
	// CriterionIntersection reports the raw intersection area.
	CriterionIntersection Criterion = 2
)

// Overlaps is a dense rows x cols overlap matrix.
//
// The matrix is backed by a gonum Dense when both dimensions are non-zero.
// Empty matrices keep their logical shape so callers can still reason about
// box counts on either axis.
type Overlaps struct {
	rows, cols int
	m          *mat.Dense
}

// NewOverlaps allocates a zero-filled rows x cols matrix.
func NewOverlaps(rows, cols int) *Overlaps {
	o := &Overlaps{rows: rows, cols: cols}
	if rows > 0 && cols > 0 {
		o.m = mat.NewDense(rows, cols, nil)
	}
	return o
}

// Dims returns the logical shape of the matrix.
func (o *Overlaps) Dims() (rows, cols int) {
	return o.rows, o.cols
}

// Empty reports whether the matrix has no cells.
func (o *Overlaps) Empty() bool {
	return o.m == nil
}

// At returns the overlap of row box i with column box j.
func (o *Overlaps) At(i, j int) float64 {
	return o.m.At(i, j)
}

// Set assigns the overlap of row box i with column box j.
func (o *Overlaps) Set(i, j int, v float64) {
	o.m.Set(i, j, v)
}

// View returns the sub-matrix of rows [r0, r1) and columns [c0, c1).
//
// The view shares storage with o. Ranges must lie within the matrix; an empty
// range on either axis yields an empty matrix of the requested shape.
func (o *Overlaps) View(r0, r1, c0, c1 int) *Overlaps {
	v := &Overlaps{rows: r1 - r0, cols: c1 - c0}
	if v.rows > 0 && v.cols > 0 {
		v.m = o.m.Slice(r0, r1, c0, c1).(*mat.Dense)
	}
	return v
}

// T returns a transposed copy of the matrix.
func (o *Overlaps) T() *Overlaps {
	t := &Overlaps{rows: o.cols, cols: o.rows}
	if o.m != nil {
		t.m = mat.DenseCopyOf(o.m.T())
	}
	return t
}

// Dense exposes the backing gonum matrix, or nil when the matrix is empty.
func (o *Overlaps) Dense() *mat.Dense {
	return o.m
}

// BoxOverlap computes the overlap of every box in boxes against every box in
// query.
//
// Cell (i, j) holds the intersection area of boxes[i] and query[j] divided by
// a denominator chosen by criterion:
//   - CriterionIoU: area(boxes[i]) + area(query[j]) - intersection.
//   - CriterionBoxArea: area(boxes[i]).
//   - CriterionQueryArea: area(query[j]).
//   - anything else: 1 (raw intersection).
//
// Pairs whose intersection width or height is not positive stay at 0.
//
// Arguments:
//   - boxes: Row boxes (n).
//   - query: Column boxes (k).
//   - criterion: Denominator selector.
//
// Returns:
//   - An n x k matrix. Either dimension may be zero.
func BoxOverlap(boxes, query []Box, criterion Criterion) *Overlaps {
	overlaps := NewOverlaps(len(boxes), len(query))
	if overlaps.Empty() {
		return overlaps
	}

	for k, q := range query {
		qArea := q.Area()
		for n, b := range boxes {
			iw, ih := b.Intersection(q)
			if iw <= 0 || ih <= 0 {
				continue
			}

			var ua float64
			switch criterion {
			case CriterionIoU:
				ua = union(b.Area(), qArea, iw*ih)
			case CriterionBoxArea:
				ua = b.Area()
			case CriterionQueryArea:
				ua = qArea
			default:
				ua = 1.0
			}
			overlaps.Set(n, k, iw*ih/ua)
		}
	}

	return overlaps
}
