// Package models - KITTI classes and per-frame annotations consumed by the evaluator.
package models

import (
	"github.com/nvr-ai/kitti-eval/images"
	"github.com/pkg/errors"
)

// DontCare is the annotation name of regions excluded from scoring.
const DontCare = "DontCare"

// ErrInvalidAnnotation is returned when the parallel sequences of an
// Annotation do not share one length.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// Annotation holds every object of one frame as parallel sequences.
//
// Ground truth fills Occluded and Truncated; detections fill Score. Alpha is
// only needed for orientation similarity and may be omitted.
type Annotation struct {
	Name      []string     `json:"name"`
	BBox      []images.Box `json:"bbox"`
	Alpha     []float64    `json:"alpha,omitempty"`
	Occluded  []int        `json:"occluded,omitempty"`
	Truncated []float64    `json:"truncated,omitempty"`
	Score     []float64    `json:"score,omitempty"`
}

// Len returns the number of objects in the frame.
func (a *Annotation) Len() int {
	return len(a.Name)
}

// AlphaAt returns the observation angle of object i, or 0 when the
// annotation carries no angles.
func (a *Annotation) AlphaAt(i int) float64 {
	if len(a.Alpha) == 0 {
		return 0
	}
	return a.Alpha[i]
}

// Validate checks that all sequences share the object count.
//
// Arguments:
//   - detection: If true, Score is required; otherwise Occluded and
//     Truncated are required.
//
// Returns:
//   - ErrInvalidAnnotation wrapped with the offending field.
func (a *Annotation) Validate(detection bool) error {
	n := a.Len()
	check := func(field string, got int, required bool) error {
		if got == n || (!required && got == 0) {
			return nil
		}
		return errors.Wrapf(ErrInvalidAnnotation, "%s has %d entries, want %d", field, got, n)
	}

	if err := check("bbox", len(a.BBox), true); err != nil {
		return err
	}
	if err := check("alpha", len(a.Alpha), false); err != nil {
		return err
	}
	if err := check("occluded", len(a.Occluded), !detection); err != nil {
		return err
	}
	if err := check("truncated", len(a.Truncated), !detection); err != nil {
		return err
	}
	return check("score", len(a.Score), detection)
}

// ValidateAll validates every frame and reports the first failing index.
func ValidateAll(annos []Annotation, detection bool) error {
	for i := range annos {
		if err := annos[i].Validate(detection); err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
	}
	return nil
}
