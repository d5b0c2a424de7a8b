package eval

import (
	"sort"
)

// DefaultSamplePoints is the length of a precision-recall curve.
const DefaultSamplePoints = 41

// SampleThresholds picks score cutoffs that split the recall axis into
// numSamplePoints roughly even steps.
//
// Scores are walked in descending order. A score is skipped when taking the
// next one would land closer to the current recall target; otherwise it is
// recorded and the target advances by 1/(numSamplePoints-1). The last score
// is always recorded.
//
// Arguments:
//   - scores: True-positive scores pooled over all frames. Not modified.
//   - numGT: Number of valid ground-truth boxes.
//   - numSamplePoints: Maximum number of thresholds.
//
// Returns:
//   - Descending thresholds, at most numSamplePoints of them.
func SampleThresholds(scores []float64, numGT, numSamplePoints int) []float64 {
	if len(scores) == 0 || numGT <= 0 || numSamplePoints < 2 {
		return nil
	}

	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	step := 1 / (float64(numSamplePoints) - 1.0)
	last := len(sorted) - 1
	currentRecall := 0.0
	thresholds := make([]float64, 0, numSamplePoints)

	for i, score := range sorted {
		lRecall := float64(i+1) / float64(numGT)
		rRecall := lRecall
		if i < last {
			rRecall = float64(i+2) / float64(numGT)
		}
		if rRecall-currentRecall < currentRecall-lRecall && i < last {
			continue
		}

		thresholds = append(thresholds, score)
		if len(thresholds) == numSamplePoints {
			break
		}
		currentRecall += step
	}

	return thresholds
}
