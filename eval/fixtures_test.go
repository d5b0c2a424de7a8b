package eval

import (
	"math/rand"

	"github.com/nvr-ai/kitti-eval/images"
	"github.com/nvr-ai/kitti-eval/models"
)

// box builds an axis-aligned box from its corners.
func box(x1, y1, x2, y2 float64) images.Box {
	return images.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// validLabels returns n LabelValid entries.
func validLabels(n int) []IgnoreLabel {
	return make([]IgnoreLabel, n)
}

// matchInput builds a single-frame matching problem with every box valid.
func matchInput(gt, dt []images.Box, scores []float64) StatisticsInput {
	return StatisticsInput{
		Overlaps:   images.BoxOverlap(dt, gt, images.CriterionIoU),
		GTAlphas:   make([]float64, len(gt)),
		DetBoxes:   dt,
		DetAlphas:  make([]float64, len(dt)),
		DetScores:  scores,
		IgnoredGT:  validLabels(len(gt)),
		IgnoredDet: validLabels(len(dt)),
		Metric:     MetricBBox,
		MinOverlap: 0.5,
		ComputeFP:  true,
	}
}

// perfectDataset returns frames of two easy cars each, detected exactly.
func perfectDataset(frames int) (gt, dt []models.Annotation) {
	for i := 0; i < frames; i++ {
		boxes := []images.Box{box(0, 0, 50, 50), box(100, 100, 150, 150)}
		gt = append(gt, models.Annotation{
			Name:      []string{"Car", "Car"},
			BBox:      boxes,
			Alpha:     []float64{0.3, -1.2},
			Occluded:  []int{0, 0},
			Truncated: []float64{0, 0},
		})
		dt = append(dt, models.Annotation{
			Name:  []string{"Car", "Car"},
			BBox:  append([]images.Box(nil), boxes...),
			Alpha: []float64{0.3, -1.2},
			Score: []float64{0.9, 0.9},
		})
	}
	return gt, dt
}

var syntheticNames = []string{"Car", "Car", "Car", "Van", "Pedestrian", "Cyclist", models.DontCare}

// syntheticDataset returns a reproducible mix of classes, difficulties,
// misses, false positives and don't-care regions.
func syntheticDataset(seed int64, frames int) (gt, dt []models.Annotation) {
	rng := rand.New(rand.NewSource(seed))

	randomBox := func() images.Box {
		x := rng.Float64() * 1000
		y := rng.Float64() * 300
		w := 10 + rng.Float64()*120
		h := 15 + rng.Float64()*80
		return box(x, y, x+w, y+h)
	}
	jitter := func(b images.Box) images.Box {
		d := func() float64 { return (rng.Float64() - 0.5) * 8 }
		return box(b.X1+d(), b.Y1+d(), b.X2+d(), b.Y2+d())
	}

	for i := 0; i < frames; i++ {
		var g, d models.Annotation
		for n := rng.Intn(6); n > 0; n-- {
			name := syntheticNames[rng.Intn(len(syntheticNames))]
			b := randomBox()
			alpha := (rng.Float64() - 0.5) * 6
			g.Name = append(g.Name, name)
			g.BBox = append(g.BBox, b)
			g.Alpha = append(g.Alpha, alpha)
			g.Occluded = append(g.Occluded, rng.Intn(4))
			g.Truncated = append(g.Truncated, rng.Float64()*0.6)

			if name == models.DontCare || rng.Float64() < 0.2 {
				continue
			}
			d.Name = append(d.Name, name)
			d.BBox = append(d.BBox, jitter(b))
			d.Alpha = append(d.Alpha, alpha+(rng.Float64()-0.5))
			d.Score = append(d.Score, rng.Float64())
		}
		for n := rng.Intn(3); n > 0; n-- {
			d.Name = append(d.Name, syntheticNames[rng.Intn(3)])
			d.BBox = append(d.BBox, randomBox())
			d.Alpha = append(d.Alpha, 0)
			d.Score = append(d.Score, rng.Float64())
		}
		gt = append(gt, g)
		dt = append(dt, d)
	}
	return gt, dt
}
