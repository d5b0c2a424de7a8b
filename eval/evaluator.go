// Package eval - KITTI object detection evaluation.
//
// The evaluator filters annotations per class and difficulty, matches
// detections to ground truth frame by frame, samples score thresholds along
// the recall axis and aggregates precision, recall and orientation curves
// over partitions of the dataset.
package eval

import (
	"context"
	"time"

	"github.com/nvr-ai/kitti-eval/benchmark"
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// Evaluator computes KITTI detection metrics.
type Evaluator struct {
	cfg     Config
	classes *models.ClassSet
	logger  logrus.FieldLogger
}

// NewEvaluator validates cfg and builds an Evaluator.
func NewEvaluator(cfg Config, opts ...Option) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Evaluator{cfg: cfg, classes: o.classes, logger: o.logger}, nil
}

// ClassRequest selects the curves EvalClass computes.
type ClassRequest struct {
	// Classes are indices into the evaluator's class set.
	Classes []int
	// Difficulties are indices into the filter's difficulty table.
	Difficulties []int
	// Metric selects the overlap space.
	Metric Metric
	// MinOverlaps is indexed [variant][metric][i], i being the position of
	// the class in Classes.
	MinOverlaps [][][]float64
	// ComputeAOS enables the orientation curve.
	ComputeAOS bool
	// NumParts is the number of chunks the frames are split into.
	NumParts int
}

func (r *ClassRequest) validate() error {
	for v, variant := range r.MinOverlaps {
		if int(r.Metric) >= len(variant) {
			return errors.Wrapf(ErrInvalidConfig, "min_overlaps[%d] has no %s row", v, r.Metric)
		}
		if len(variant[r.Metric]) < len(r.Classes) {
			return errors.Wrapf(ErrInvalidConfig, "min_overlaps[%d][%d] has %d entries for %d classes",
				v, r.Metric, len(variant[r.Metric]), len(r.Classes))
		}
	}
	return nil
}

// EvalClass computes the precision, recall and (optionally) orientation
// curves for every requested class, difficulty and overlap variant.
//
// Arguments:
//   - ctx: Cancels the run between curves and parts.
//   - gt: Ground-truth annotations, one per frame.
//   - dt: Detections, one per frame, in the same order as gt.
//   - req: Classes, difficulties and overlap table to evaluate.
//
// Returns:
//   - Curves shaped [class, difficulty, variant, sample point].
func (e *Evaluator) EvalClass(ctx context.Context, gt, dt []models.Annotation, req ClassRequest) (*Curves, error) {
	return e.evalClass(ctx, gt, dt, req, nil)
}

func (e *Evaluator) evalClass(ctx context.Context, gt, dt []models.Annotation, req ClassRequest, rm *benchmark.RunMetrics) (*Curves, error) {
	if len(gt) != len(dt) {
		return nil, errors.Wrapf(ErrLengthMismatch, "got %d and %d", len(gt), len(dt))
	}
	if err := models.ValidateAll(gt, false); err != nil {
		return nil, errors.Wrap(err, "ground truth")
	}
	if err := models.ValidateAll(dt, true); err != nil {
		return nil, errors.Wrap(err, "detections")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	po, err := CalculateOverlapsPartly(ctx, gt, dt, req.Metric, req.NumParts, e.cfg.Workers)
	rm.Track(benchmark.StageOverlap, started)
	if err != nil {
		return nil, err
	}
	rm.SetDataset(len(gt), sum(po.GTCounts), sum(po.DetCounts), len(po.Sizes))

	curves := newCurves(len(req.Classes), len(req.Difficulties), len(req.MinOverlaps), e.cfg.SamplePoints, req.ComputeAOS)
	for m, idx := range req.Classes {
		class, err := e.classes.Get(idx)
		if err != nil {
			return nil, err
		}

		for n, difficulty := range req.Difficulties {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			frames, numValidGT, err := prepareData(gt, dt, class.Match, difficulty, e.cfg.Filter)
			if err != nil {
				return nil, errors.Wrapf(err, "class %s difficulty %d", class.Name, difficulty)
			}

			for k, variant := range req.MinOverlaps {
				minOverlap := variant[req.Metric][m]

				started = time.Now()
				var scores []float64
				for i := range frames {
					in := frames[i].frameInput(po.Frame(i), 0, 0, 0, 0)
					in.Metric = req.Metric
					in.MinOverlap = minOverlap
					scores = append(scores, ComputeStatistics(in).Thresholds...)
				}
				thresholds := SampleThresholds(scores, numValidGT, e.cfg.SamplePoints)
				rm.Track(benchmark.StageThresholds, started)

				started = time.Now()
				acc, err := po.fuse(ctx, frames, minOverlap, thresholds, req.ComputeAOS, e.cfg.Workers)
				rm.Track(benchmark.StageFused, started)
				if err != nil {
					return nil, err
				}

				curves.fill(m, n, k, acc)
				rm.CountEvaluation()

				e.logger.WithFields(logrus.Fields{
					"class":        class.Name,
					"difficulty":   difficulty,
					"min_overlap":  minOverlap,
					"num_valid_gt": numValidGT,
					"tp_scores":    len(scores),
					"thresholds":   len(thresholds),
				}).Debug("evaluated curve")
			}
		}
	}

	return curves, nil
}

// prepareData filters every frame for one class and difficulty.
func prepareData(gt, dt []models.Annotation, class string, difficulty int, cfg FilterConfig) ([]FrameBatch, int, error) {
	frames := make([]FrameBatch, len(gt))
	numValidGT := 0
	for i := range gt {
		f, err := FilterFrame(&gt[i], &dt[i], class, difficulty, cfg)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "frame %d", i)
		}
		frames[i] = NewFrameBatch(&gt[i], &dt[i], f)
		numValidGT += f.NumValidGT
	}
	return frames, numValidGT, nil
}

// Result is the outcome of Evaluate.
type Result struct {
	Classes      []models.OutputClass
	Difficulties []int
	// MinOverlaps is indexed [variant][metric][i], i being the position of
	// the class in Classes.
	MinOverlaps [][][]float64
	Curves      *Curves
	// MAP is the bbox mAP shaped [class, difficulty, variant].
	MAP *tensor.Dense
	// MAPOrientation is the AOS mAP, nil unless orientation was computed.
	MAPOrientation *tensor.Dense
	Report         string
	Metrics        *benchmark.RunMetrics
}

// Evaluate runs the configured bbox evaluation and renders its report.
func (e *Evaluator) Evaluate(ctx context.Context, gt, dt []models.Annotation) (*Result, error) {
	rm := benchmark.NewRunMetrics()
	log := e.logger.WithField("run_id", rm.RunID.String())

	indices, err := e.classes.Resolve(e.cfg.Classes)
	if err != nil {
		return nil, err
	}
	classes := make([]models.OutputClass, len(indices))
	for i, idx := range indices {
		classes[i], _ = e.classes.Get(idx)
	}
	minOverlaps, err := subsetMinOverlaps(e.cfg.MinOverlaps, indices)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"frames":  len(gt),
		"classes": e.cfg.Classes,
		"parts":   e.cfg.NumParts,
		"workers": e.cfg.Workers,
	}).Info("starting evaluation")

	curves, err := e.evalClass(ctx, gt, dt, ClassRequest{
		Classes:      indices,
		Difficulties: e.cfg.Difficulties,
		Metric:       MetricBBox,
		MinOverlaps:  minOverlaps,
		ComputeAOS:   e.cfg.ComputeAOS,
		NumParts:     e.cfg.NumParts,
	}, rm)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Classes:      classes,
		Difficulties: e.cfg.Difficulties,
		MinOverlaps:  minOverlaps,
		Curves:       curves,
		Metrics:      rm,
	}
	if result.MAP, err = GetMAP(curves.Precision); err != nil {
		return nil, err
	}
	if curves.Orientation != nil {
		if result.MAPOrientation, err = GetMAP(curves.Orientation); err != nil {
			return nil, err
		}
	}
	result.Report = FormatReport(classes, minOverlaps, result.MAP, result.MAPOrientation)

	rm.Finish()
	log.WithFields(logrus.Fields{
		"evaluations": rm.Evaluations,
		"duration":    rm.TotalDuration.String(),
	}).Info("evaluation finished")

	return result, nil
}

// OfficialResult evaluates classes with the official KITTI overlap table and
// returns the text report. The mAP tensor is returned only when returnData
// is set.
//
// Arguments:
//   - classes: Class names or indices into the KITTI class table.
//   - difficulties: Difficulty levels; nil means all three.
func OfficialResult(ctx context.Context, gt, dt []models.Annotation, classes []string, difficulties []int, returnData bool, opts ...Option) (string, *tensor.Dense, error) {
	cfg := DefaultConfig()
	cfg.Classes = classes
	if difficulties != nil {
		cfg.Difficulties = difficulties
	}

	e, err := NewEvaluator(cfg, opts...)
	if err != nil {
		return "", nil, err
	}
	result, err := e.Evaluate(ctx, gt, dt)
	if err != nil {
		return "", nil, err
	}
	if returnData {
		return result.Report, result.MAP, nil
	}
	return result.Report, nil, nil
}

func sum(v []int) int {
	total := 0
	for _, x := range v {
		total += x
	}
	return total
}
