package eval

import (
	"context"

	"github.com/nvr-ai/kitti-eval/images"
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SplitParts divides num frames into numParts parts of num/numParts frames,
// followed by a trailing part holding the remainder. Empty parts are omitted.
func SplitParts(num, numParts int) []int {
	if num <= 0 || numParts <= 0 {
		return nil
	}
	same := num / numParts
	remain := num % numParts

	parts := make([]int, 0, numParts+1)
	if same > 0 {
		for i := 0; i < numParts; i++ {
			parts = append(parts, same)
		}
	}
	if remain > 0 {
		parts = append(parts, remain)
	}
	return parts
}

// PartitionedOverlaps holds one detections x ground-truth overlap matrix per
// part of the dataset, plus per-frame views into them.
type PartitionedOverlaps struct {
	Metric Metric
	// Sizes is the number of frames in each part.
	Sizes []int
	// GTCounts and DetCounts are the box counts of each frame.
	GTCounts  []int
	DetCounts []int

	parts  []*images.Overlaps
	frames []*images.Overlaps
}

// CalculateOverlapsPartly computes overlap matrices part by part so that no
// matrix spans the whole dataset.
//
// Frames keep their order. Within a part the boxes of all frames are
// concatenated; rows are detections and columns are ground truth.
//
// Arguments:
//   - ctx: Cancels pending parts.
//   - gt, dt: Per-frame ground truth and detections, equal length.
//   - metric: Only MetricBBox has an overlap implementation.
//   - numParts: Number of equal parts to split the frames into.
//   - workers: Parts computed concurrently; values below 1 mean 1.
//
// Returns:
//   - The partitioned overlaps, or ErrLengthMismatch, ErrUnknownMetric or
//     ErrInvalidConfig.
func CalculateOverlapsPartly(ctx context.Context, gt, dt []models.Annotation, metric Metric, numParts, workers int) (*PartitionedOverlaps, error) {
	if len(gt) != len(dt) {
		return nil, errors.Wrapf(ErrLengthMismatch, "got %d and %d", len(gt), len(dt))
	}
	if metric != MetricBBox {
		return nil, errors.Wrapf(ErrUnknownMetric, "metric %d (%s)", int(metric), metric)
	}
	if numParts <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "num_parts must be positive, got %d", numParts)
	}

	po := &PartitionedOverlaps{
		Metric:    metric,
		Sizes:     SplitParts(len(gt), numParts),
		GTCounts:  make([]int, len(gt)),
		DetCounts: make([]int, len(dt)),
	}
	for i := range gt {
		po.GTCounts[i] = gt[i].Len()
		po.DetCounts[i] = dt[i].Len()
	}
	po.parts = make([]*images.Overlaps, len(po.Sizes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	start := 0
	for j, size := range po.Sizes {
		lo, hi := start, start+size
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var gtBoxes, dtBoxes []images.Box
			for i := lo; i < hi; i++ {
				gtBoxes = append(gtBoxes, gt[i].BBox...)
				dtBoxes = append(dtBoxes, dt[i].BBox...)
			}
			po.parts[j] = images.BoxOverlap(dtBoxes, gtBoxes, images.CriterionIoU)
			return nil
		})
		start = hi
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "computing part overlaps")
	}

	po.frames = make([]*images.Overlaps, 0, len(gt))
	frame := 0
	for j, size := range po.Sizes {
		dtNum, gtNum := 0, 0
		for i := frame; i < frame+size; i++ {
			po.frames = append(po.frames, po.parts[j].View(dtNum, dtNum+po.DetCounts[i], gtNum, gtNum+po.GTCounts[i]))
			dtNum += po.DetCounts[i]
			gtNum += po.GTCounts[i]
		}
		frame += size
	}

	return po, nil
}

// Part returns the overlap matrix of part j.
func (p *PartitionedOverlaps) Part(j int) *images.Overlaps {
	return p.parts[j]
}

// Frame returns the overlap view of frame i.
func (p *PartitionedOverlaps) Frame(i int) *images.Overlaps {
	return p.frames[i]
}

// PRCounts accumulates statistics for one score threshold.
type PRCounts struct {
	TP, FP, FN int
	Similarity float64
}

// Accumulator holds PRCounts per threshold.
type Accumulator []PRCounts

// Add folds one frame's statistics into threshold t. Undefined similarity
// (-1) is skipped.
func (a Accumulator) Add(t int, st Statistics) {
	a[t].TP += st.TP
	a[t].FP += st.FP
	a[t].FN += st.FN
	if st.Similarity != -1 {
		a[t].Similarity += st.Similarity
	}
}

// Merge adds o into a element-wise. Both must have the same length.
func (a Accumulator) Merge(o Accumulator) {
	for t := range o {
		a[t].TP += o[t].TP
		a[t].FP += o[t].FP
		a[t].FN += o[t].FN
		a[t].Similarity += o[t].Similarity
	}
}

// FrameBatch is the filtered data of consecutive frames, concatenated.
// The *Nums slices record the box counts of each frame.
type FrameBatch struct {
	GTNums  []int
	DetNums []int
	DCNums  []int

	GTAlphas   []float64
	DetBoxes   []images.Box
	DetAlphas  []float64
	DetScores  []float64
	IgnoredGT  []IgnoreLabel
	IgnoredDet []IgnoreLabel
	DontCares  []images.Box
}

// NewFrameBatch builds the single-frame batch for a filtered frame.
func NewFrameBatch(gt, dt *models.Annotation, f FilteredFrame) FrameBatch {
	b := FrameBatch{
		GTNums:     []int{gt.Len()},
		DetNums:    []int{dt.Len()},
		DCNums:     []int{len(f.DontCares)},
		GTAlphas:   make([]float64, gt.Len()),
		DetBoxes:   dt.BBox,
		DetAlphas:  make([]float64, dt.Len()),
		DetScores:  dt.Score,
		IgnoredGT:  f.IgnoredGT,
		IgnoredDet: f.IgnoredDet,
		DontCares:  f.DontCares,
	}
	for i := range b.GTAlphas {
		b.GTAlphas[i] = gt.AlphaAt(i)
	}
	for i := range b.DetAlphas {
		b.DetAlphas[i] = dt.AlphaAt(i)
	}
	return b
}

// ConcatBatches joins batches in order.
func ConcatBatches(batches []FrameBatch) FrameBatch {
	var out FrameBatch
	for _, b := range batches {
		out.GTNums = append(out.GTNums, b.GTNums...)
		out.DetNums = append(out.DetNums, b.DetNums...)
		out.DCNums = append(out.DCNums, b.DCNums...)
		out.GTAlphas = append(out.GTAlphas, b.GTAlphas...)
		out.DetBoxes = append(out.DetBoxes, b.DetBoxes...)
		out.DetAlphas = append(out.DetAlphas, b.DetAlphas...)
		out.DetScores = append(out.DetScores, b.DetScores...)
		out.IgnoredGT = append(out.IgnoredGT, b.IgnoredGT...)
		out.IgnoredDet = append(out.IgnoredDet, b.IgnoredDet...)
		out.DontCares = append(out.DontCares, b.DontCares...)
	}
	return out
}

// frameInput slices frame i of the batch starting at the given offsets.
func (b *FrameBatch) frameInput(overlaps *images.Overlaps, i, gtNum, dtNum, dcNum int) StatisticsInput {
	gn, dn, cn := b.GTNums[i], b.DetNums[i], b.DCNums[i]
	return StatisticsInput{
		Overlaps:   overlaps.View(dtNum, dtNum+dn, gtNum, gtNum+gn),
		GTAlphas:   b.GTAlphas[gtNum : gtNum+gn],
		DetBoxes:   b.DetBoxes[dtNum : dtNum+dn],
		DetAlphas:  b.DetAlphas[dtNum : dtNum+dn],
		DetScores:  b.DetScores[dtNum : dtNum+dn],
		IgnoredGT:  b.IgnoredGT[gtNum : gtNum+gn],
		IgnoredDet: b.IgnoredDet[dtNum : dtNum+dn],
		DontCares:  b.DontCares[dcNum : dcNum+cn],
	}
}

// FusedStatistics runs the thresholded matching over every frame of a part
// and every threshold in one traversal, adding into acc.
//
// Thresholds form the outer loop and frames the inner one. Frames are located
// in overlaps and batch by running offsets, so the batch counts must sum to
// the matrix dimensions.
//
// Arguments:
//   - overlaps: The part's detections x ground-truth matrix.
//   - acc: One entry per threshold.
//   - batch: The part's concatenated frame data.
//   - metric: Overlap space, forwarded to ComputeStatistics.
//   - minOverlap: Minimum overlap of a match.
//   - thresholds: Score cutoffs.
//   - computeAOS: Accumulate orientation similarity.
func FusedStatistics(overlaps *images.Overlaps, acc Accumulator, batch *FrameBatch, metric Metric, minOverlap float64, thresholds []float64, computeAOS bool) {
	for t, thresh := range thresholds {
		gtNum, dtNum, dcNum := 0, 0, 0
		for i := range batch.GTNums {
			in := batch.frameInput(overlaps, i, gtNum, dtNum, dcNum)
			in.Metric = metric
			in.MinOverlap = minOverlap
			in.Thresh = thresh
			in.ComputeFP = true
			in.ComputeAOS = computeAOS
			acc.Add(t, ComputeStatistics(in))

			gtNum += batch.GTNums[i]
			dtNum += batch.DetNums[i]
			dcNum += batch.DCNums[i]
		}
	}
}

// fuse runs FusedStatistics over all parts, each into its own accumulator,
// and merges the results in part order.
func (p *PartitionedOverlaps) fuse(ctx context.Context, frames []FrameBatch, minOverlap float64, thresholds []float64, computeAOS bool, workers int) (Accumulator, error) {
	partAcc := make([]Accumulator, len(p.Sizes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	start := 0
	for j, size := range p.Sizes {
		lo, hi := start, start+size
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch := ConcatBatches(frames[lo:hi])
			acc := make(Accumulator, len(thresholds))
			FusedStatistics(p.parts[j], acc, &batch, p.Metric, minOverlap, thresholds, computeAOS)
			partAcc[j] = acc
			return nil
		})
		start = hi
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "fused statistics")
	}

	total := make(Accumulator, len(thresholds))
	for _, acc := range partAcc {
		total.Merge(acc)
	}
	return total, nil
}
