package images

import (
	"fmt"
	"math/rand"
	"testing"
)

// BenchmarkIoU_NonOverlapping tests performance with boxes that don't overlap.
// This is the early-return path.
func BenchmarkIoU_NonOverlapping(b *testing.B) {
	box1 := Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
	box2 := Box{X1: 200, Y1: 200, X2: 300, Y2: 300}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(box1, box2)
	}
}

// BenchmarkIoU_FullOverlap tests identical boxes (IoU = 1.0).
func BenchmarkIoU_FullOverlap(b *testing.B) {
	box1 := Box{X1: 50, Y1: 50, X2: 150, Y2: 150}
	box2 := Box{X1: 50, Y1: 50, X2: 150, Y2: 150}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(box1, box2)
	}
}

// BenchmarkBoxOverlap measures matrix construction at part sizes typical of a
// KITTI evaluation chunk.
func BenchmarkBoxOverlap(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			rng := rand.New(rand.NewSource(42))
			boxes := randomBoxes(rng, n)
			query := randomBoxes(rng, n)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_ = BoxOverlap(boxes, query, CriterionIoU)
			}
		})
	}
}

func randomBoxes(rng *rand.Rand, n int) []Box {
	boxes := make([]Box, n)
	for i := range boxes {
		x := rng.Float64() * 1200
		y := rng.Float64() * 350
		boxes[i] = Box{X1: x, Y1: y, X2: x + 10 + rng.Float64()*150, Y2: y + 10 + rng.Float64()*100}
	}
	return boxes
}
