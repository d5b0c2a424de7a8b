package eval

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nvr-ai/kitti-eval/images"
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitParts(t *testing.T) {
	tests := []struct {
		num, numParts int
		expected      []int
	}{
		{10, 3, []int{3, 3, 3, 1}},
		{9, 3, []int{3, 3, 3}},
		{2, 5, []int{2}},
		{50, 50, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
			1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{0, 5, nil},
		{5, 0, nil},
	}

	for _, tt := range tests {
		got := SplitParts(tt.num, tt.numParts)
		if diff := cmp.Diff(tt.expected, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("SplitParts(%d, %d) mismatch (-want +got):\n%s", tt.num, tt.numParts, diff)
		}
	}
}

func TestCalculateOverlapsPartly_Errors(t *testing.T) {
	gt, dt := perfectDataset(3)
	ctx := context.Background()

	_, err := CalculateOverlapsPartly(ctx, gt, dt[:2], MetricBBox, 2, 1)
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	for _, metric := range []Metric{MetricBEV, Metric3D, Metric(7)} {
		_, err = CalculateOverlapsPartly(ctx, gt, dt, metric, 2, 1)
		assert.True(t, errors.Is(err, ErrUnknownMetric), "metric %s", metric)
	}

	_, err = CalculateOverlapsPartly(ctx, gt, dt, MetricBBox, 0, 1)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestCalculateOverlapsPartly_FrameViews(t *testing.T) {
	gt, dt := syntheticDataset(7, 23)

	po, err := CalculateOverlapsPartly(context.Background(), gt, dt, MetricBBox, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 5, 5, 3}, po.Sizes)

	for i := range gt {
		want := images.BoxOverlap(dt[i].BBox, gt[i].BBox, images.CriterionIoU)
		got := po.Frame(i)

		rows, cols := want.Dims()
		gr, gc := got.Dims()
		require.Equal(t, []int{rows, cols}, []int{gr, gc}, "frame %d", i)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				assert.Equal(t, want.At(r, c), got.At(r, c), "frame %d cell (%d, %d)", i, r, c)
			}
		}
	}
}

func TestCalculateOverlapsPartly_EmptyFrames(t *testing.T) {
	gt := []models.Annotation{{}, {}}
	dt := []models.Annotation{{}, {}}

	po, err := CalculateOverlapsPartly(context.Background(), gt, dt, MetricBBox, 50, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, po.Sizes)
	assert.True(t, po.Part(0).Empty())
	assert.True(t, po.Frame(1).Empty())
}

func TestCalculateOverlapsPartly_Cancelled(t *testing.T) {
	gt, dt := perfectDataset(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CalculateOverlapsPartly(ctx, gt, dt, MetricBBox, 2, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

// perFrameAccumulator runs the thresholded matching frame by frame, without
// partitions, as a reference for the fused pass.
func perFrameAccumulator(t *testing.T, gt, dt []models.Annotation, class string, difficulty int, minOverlap float64, thresholds []float64) Accumulator {
	t.Helper()
	acc := make(Accumulator, len(thresholds))
	for i := range gt {
		f, err := FilterFrame(&gt[i], &dt[i], class, difficulty, DefaultFilterConfig())
		require.NoError(t, err)
		batch := NewFrameBatch(&gt[i], &dt[i], f)
		overlaps := images.BoxOverlap(dt[i].BBox, gt[i].BBox, images.CriterionIoU)
		FusedStatistics(overlaps, acc, &batch, MetricBBox, minOverlap, thresholds, true)
	}
	return acc
}

func TestFuse_MatchesPerFrameSum(t *testing.T) {
	gt, dt := syntheticDataset(11, 40)
	thresholds := []float64{0.9, 0.7, 0.5, 0.3, 0.1, 0}
	ctx := context.Background()

	frames, _, err := prepareData(gt, dt, "car", 1, DefaultFilterConfig())
	require.NoError(t, err)
	want := perFrameAccumulator(t, gt, dt, "car", 1, 0.7, thresholds)

	for _, tc := range []struct{ parts, workers int }{{1, 1}, {7, 1}, {7, 4}, {40, 8}, {100, 2}} {
		po, err := CalculateOverlapsPartly(ctx, gt, dt, MetricBBox, tc.parts, tc.workers)
		require.NoError(t, err)

		got, err := po.fuse(ctx, frames, 0.7, thresholds, true, tc.workers)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("parts=%d workers=%d mismatch (-want +got):\n%s", tc.parts, tc.workers, diff)
		}
	}
}

func TestFuse_ParallelIsDeterministic(t *testing.T) {
	gt, dt := syntheticDataset(3, 60)
	thresholds := []float64{0.8, 0.4, 0}
	ctx := context.Background()

	frames, _, err := prepareData(gt, dt, "car", 2, DefaultFilterConfig())
	require.NoError(t, err)
	po, err := CalculateOverlapsPartly(ctx, gt, dt, MetricBBox, 9, 4)
	require.NoError(t, err)

	serial, err := po.fuse(ctx, frames, 0.5, thresholds, true, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		parallel, err := po.fuse(ctx, frames, 0.5, thresholds, true, 6)
		require.NoError(t, err)
		assert.Equal(t, serial, parallel)
	}
}

func TestAccumulator_SkipsUndefinedSimilarity(t *testing.T) {
	acc := make(Accumulator, 2)
	acc.Add(0, Statistics{TP: 1, FP: 2, FN: 3, Similarity: 0.75})
	acc.Add(0, Statistics{Similarity: -1})
	acc.Add(1, Statistics{FN: 1, Similarity: -1})

	assert.Equal(t, PRCounts{TP: 1, FP: 2, FN: 3, Similarity: 0.75}, acc[0])
	assert.Equal(t, PRCounts{FN: 1}, acc[1])

	other := Accumulator{{TP: 1}, {FP: 1, Similarity: 0.5}}
	acc.Merge(other)
	assert.Equal(t, PRCounts{TP: 2, FP: 2, FN: 3, Similarity: 0.75}, acc[0])
	assert.Equal(t, PRCounts{FP: 1, FN: 1, Similarity: 0.5}, acc[1])
}

func TestConcatBatches(t *testing.T) {
	gt, dt := perfectDataset(3)
	var batches []FrameBatch
	for i := range gt {
		f, err := FilterFrame(&gt[i], &dt[i], "car", 0, DefaultFilterConfig())
		require.NoError(t, err)
		batches = append(batches, NewFrameBatch(&gt[i], &dt[i], f))
	}

	b := ConcatBatches(batches)
	assert.Equal(t, []int{2, 2, 2}, b.GTNums)
	assert.Equal(t, []int{2, 2, 2}, b.DetNums)
	assert.Equal(t, []int{0, 0, 0}, b.DCNums)
	assert.Len(t, b.DetBoxes, 6)
	assert.Equal(t, []float64{0.3, -1.2, 0.3, -1.2, 0.3, -1.2}, b.GTAlphas)
}
