// Package images - Image-plane box geometry and overlap matrices.
package images

import (
	"encoding/json"
	"fmt"
	"math"
)

// Box is an axis-aligned rectangle in image (or bird's-eye-view) coordinates.
//
// Valid boxes satisfy X2 >= X1 and Y2 >= Y1. Zero-area boxes are allowed and
// never overlap anything.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box, regardless of corner order.
func (b Box) Height() float64 {
	return math.Abs(b.Y2 - b.Y1)
}

// Area returns width * height without clamping.
func (b Box) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Intersection calculates the overlapping width and height of two boxes.
//
// The intersection rectangle starts at the maximum of the two top-left
// corners and ends at the minimum of the two bottom-right corners. Either
// value may be zero or negative when the boxes do not overlap.
//
// Arguments:
//   - o: The other box.
//
// Returns:
//   - iw: Intersection width.
//   - ih: Intersection height.
func (b Box) Intersection(o Box) (iw, ih float64) {
	iw = math.Min(b.X2, o.X2) - math.Max(b.X1, o.X1)
	ih = math.Min(b.Y2, o.Y2) - math.Max(b.Y1, o.Y1)
	return iw, ih
}

func (b Box) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.X1, b.Y1, b.X2, b.Y2)
}

// MarshalJSON encodes the box as a [x1, y1, x2, y2] array.
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a [x1, y1, x2, y2] array.
func (b *Box) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("box must have 4 coordinates, got %d", len(v))
	}
	*b = Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	return nil
}

// CalculateIoU measures the Intersection over Union of two boxes.
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the boxes are identical, 0.0 means they do not overlap.
// Non-positive intersection width or height short-circuits to 0 so that
// disjoint and degenerate boxes never divide by zero.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - A value between 0.0 and 1.0 representing the IoU score.
//
// @example
// r := Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
// o := Box{X1: 5, Y1: 5, X2: 15, Y2: 15}
// iou := CalculateIoU(r, o) // 25 / (100 + 100 - 25) = 0.142857
func CalculateIoU(r, o Box) float64 {
	iw, ih := r.Intersection(o)
	if iw <= 0 || ih <= 0 {
		return 0.0
	}
	inter := iw * ih
	return inter / union(r.Area(), o.Area(), inter)
}

// union returns the area covered by two boxes given their areas and the
// area of their intersection.
func union(area, otherArea, inter float64) float64 {
	return area + otherArea - inter
}
