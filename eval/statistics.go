package eval

import (
	"math"

	"github.com/nvr-ai/kitti-eval/images"
)

// Metric selects the overlap space boxes are matched in.
type Metric int

const (
	// MetricBBox matches 2D image boxes.
	MetricBBox Metric = iota
	// MetricBEV matches bird's-eye-view boxes.
	MetricBEV
	// Metric3D matches 3D boxes.
	Metric3D
)

func (m Metric) String() string {
	switch m {
	case MetricBBox:
		return "bbox"
	case MetricBEV:
		return "bev"
	case Metric3D:
		return "3d"
	default:
		return "unknown"
	}
}

// noDetection marks a ground truth without a candidate detection.
const noDetection = -10000000

// StatisticsInput is one frame's matching problem.
type StatisticsInput struct {
	// Overlaps is a detections x ground-truth matrix.
	Overlaps *images.Overlaps

	GTAlphas   []float64
	DetBoxes   []images.Box
	DetAlphas  []float64
	DetScores  []float64
	IgnoredGT  []IgnoreLabel
	IgnoredDet []IgnoreLabel
	DontCares  []images.Box

	Metric     Metric
	MinOverlap float64
	// Thresh drops detections scoring below it; only used with ComputeFP.
	Thresh float64
	// ComputeFP counts false positives and prefers overlap over score.
	ComputeFP bool
	// ComputeAOS accumulates orientation similarity over true positives.
	ComputeAOS bool
}

// Statistics is the matching outcome of one frame.
type Statistics struct {
	TP, FP, FN int
	// Similarity is the summed orientation similarity, or -1 when the frame
	// has neither true nor false positives.
	Similarity float64
	// Thresholds holds the score of every true positive in match order.
	Thresholds []float64
}

// candidate tracks the best detection seen for one ground truth.
type candidate struct {
	idx             int
	valid           float64
	maxOverlap      float64
	assignedIgnored bool
}

func (c *candidate) found() bool {
	return c.valid != noDetection
}

// tieBreak offers detection j to the candidate.
type tieBreak func(c *candidate, j int, overlap, score float64, label IgnoreLabel)

// bestScore keeps the highest scoring detection above minOverlap. It drives
// the unthresholded pass that collects true-positive scores.
func bestScore(minOverlap float64) tieBreak {
	return func(c *candidate, j int, overlap, score float64, _ IgnoreLabel) {
		if overlap > minOverlap && score > c.valid {
			c.idx = j
			c.valid = score
		}
	}
}

// bestOverlap keeps the valid detection with the largest overlap above
// minOverlap. An ignored detection is taken as a placeholder only while
// nothing else matched, and any valid detection replaces it.
func bestOverlap(minOverlap float64) tieBreak {
	return func(c *candidate, j int, overlap, _ float64, label IgnoreLabel) {
		if overlap <= minOverlap {
			return
		}
		switch {
		case (overlap > c.maxOverlap || c.assignedIgnored) && label == LabelValid:
			c.maxOverlap = overlap
			c.idx = j
			c.valid = 1
			c.assignedIgnored = false
		case !c.found() && label == LabelIgnored:
			c.idx = j
			c.valid = 1
			c.assignedIgnored = true
		}
	}
}

// ComputeStatistics greedily assigns detections to the ground truth of one
// frame and counts true positives, false positives and false negatives.
//
// Ground truth is visited in order. Each non-irrelevant ground truth takes the
// best free detection under the mode's tie-break: highest score when
// ComputeFP is off, highest overlap when it is on. Matches involving an
// ignored box consume the detection without being counted.
//
// With ComputeFP, every free valid detection scoring at least Thresh is a false
// positive, less those covering a don't-care region by more than MinOverlap
// (bbox metric only). Don't-care regions claim detections in list order.
//
// Arguments:
//   - in: The frame's overlaps, box data, ignore labels and mode flags.
//
// Returns:
//   - The frame's Statistics.
func ComputeStatistics(in StatisticsInput) Statistics {
	detSize := len(in.IgnoredDet)
	gtSize := len(in.IgnoredGT)

	assigned := make([]bool, detSize)
	belowThresh := make([]bool, detSize)
	if in.ComputeFP {
		for j := 0; j < detSize; j++ {
			belowThresh[j] = in.DetScores[j] < in.Thresh
		}
	}

	consider := bestScore(in.MinOverlap)
	if in.ComputeFP {
		consider = bestOverlap(in.MinOverlap)
	}

	var st Statistics
	var delta []float64

	for i := 0; i < gtSize; i++ {
		if in.IgnoredGT[i] == LabelIrrelevant {
			continue
		}

		c := candidate{idx: -1, valid: noDetection}
		for j := 0; j < detSize; j++ {
			if in.IgnoredDet[j] == LabelIrrelevant || assigned[j] || belowThresh[j] {
				continue
			}
			consider(&c, j, in.Overlaps.At(j, i), in.DetScores[j], in.IgnoredDet[j])
		}

		switch {
		case !c.found() && in.IgnoredGT[i] == LabelValid:
			st.FN++
		case !c.found():
		case in.IgnoredGT[i] == LabelIgnored || in.IgnoredDet[c.idx] == LabelIgnored:
			assigned[c.idx] = true
		default:
			st.TP++
			st.Thresholds = append(st.Thresholds, in.DetScores[c.idx])
			if in.ComputeAOS {
				delta = append(delta, in.GTAlphas[i]-in.DetAlphas[c.idx])
			}
			assigned[c.idx] = true
		}
	}

	if !in.ComputeFP {
		return st
	}

	countable := func(j int) bool {
		return !assigned[j] && in.IgnoredDet[j] == LabelValid && !belowThresh[j]
	}

	for j := 0; j < detSize; j++ {
		if countable(j) {
			st.FP++
		}
	}

	if in.Metric == MetricBBox && len(in.DontCares) > 0 {
		dc := images.BoxOverlap(in.DetBoxes, in.DontCares, images.CriterionBoxArea)
		claimed := 0
		for i := range in.DontCares {
			for j := 0; j < detSize; j++ {
				if !countable(j) {
					continue
				}
				if dc.At(j, i) > in.MinOverlap {
					assigned[j] = true
					claimed++
				}
			}
		}
		st.FP -= claimed
	}

	if in.ComputeAOS {
		if st.TP > 0 || st.FP > 0 {
			for _, d := range delta {
				st.Similarity += (1.0 + math.Cos(d)) / 2.0
			}
		} else {
			st.Similarity = -1
		}
	}

	return st
}
