package eval

import (
	"strings"

	"github.com/nvr-ai/kitti-eval/images"
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/pkg/errors"
)

// IgnoreLabel classifies a box for one (class, difficulty) pair.
type IgnoreLabel int8

const (
	// LabelIrrelevant marks boxes of an unrelated class.
	LabelIrrelevant IgnoreLabel = -1
	// LabelValid marks boxes that count towards the statistics.
	LabelValid IgnoreLabel = 0
	// LabelIgnored marks boxes that count neither as error nor as success.
	LabelIgnored IgnoreLabel = 1
)

// DifficultyRule bounds the objects that belong to one difficulty level.
type DifficultyRule struct {
	// MinHeight is the smallest box height in pixels; ground truth at or
	// below it is ignored, detections strictly below it are ignored.
	MinHeight float64 `json:"min_height" yaml:"min_height"`
	// MaxOcclusion is the largest accepted occlusion level.
	MaxOcclusion int `json:"max_occlusion" yaml:"max_occlusion"`
	// MaxTruncation is the largest accepted truncation fraction.
	MaxTruncation float64 `json:"max_truncation" yaml:"max_truncation"`
}

// FilterConfig holds the difficulty table and class synonym rules.
type FilterConfig struct {
	// Difficulties is indexed by difficulty level (0 easy, 1 moderate, 2 hard).
	Difficulties []DifficultyRule `json:"difficulties" yaml:"difficulties"`
	// Synonyms maps a class to classes that are ignored rather
	// than counted as errors for it.
	Synonyms map[string][]string `json:"synonyms" yaml:"synonyms"`
	// DontCare is the exact annotation name of don't-care regions.
	DontCare string `json:"dont_care" yaml:"dont_care"`
}

// DefaultFilterConfig returns the KITTI easy/moderate/hard table.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Difficulties: []DifficultyRule{
			{MinHeight: 40, MaxOcclusion: 0, MaxTruncation: 0.15},
			{MinHeight: 25, MaxOcclusion: 1, MaxTruncation: 0.30},
			{MinHeight: 25, MaxOcclusion: 2, MaxTruncation: 0.50},
		},
		Synonyms: map[string][]string{
			"car":        {"van"},
			"pedestrian": {"person_sitting"},
		},
		DontCare: models.DontCare,
	}
}

// Rule returns the difficulty rule for level difficulty.
func (c FilterConfig) Rule(difficulty int) (DifficultyRule, error) {
	if difficulty < 0 || difficulty >= len(c.Difficulties) {
		return DifficultyRule{}, errors.Wrapf(ErrInvalidDifficulty, "level %d, have %d levels", difficulty, len(c.Difficulties))
	}
	return c.Difficulties[difficulty], nil
}

// isSynonym reports whether name is a synonym of class. Both arguments are
// lower-case; configured keys and values match in any case.
func (c FilterConfig) isSynonym(class, name string) bool {
	for key, synonyms := range c.Synonyms {
		if strings.ToLower(key) != class {
			continue
		}
		for _, s := range synonyms {
			if strings.ToLower(s) == name {
				return true
			}
		}
	}
	return false
}

// FilteredFrame is the Annotation Filter output for one frame.
type FilteredFrame struct {
	IgnoredGT  []IgnoreLabel
	IgnoredDet []IgnoreLabel
	DontCares  []images.Box
	NumValidGT int
}

// FilterGroundTruth labels ground-truth boxes for one class and difficulty.
//
// Class names match case-insensitively. A synonym match (van for car) is
// ignored; an exact match is valid unless the box exceeds the difficulty's
// occlusion or truncation limit or is not taller than its minimum height.
// Boxes named exactly cfg.DontCare are also collected as don't-care regions.
//
// Arguments:
//   - gt: Ground-truth annotation of one frame.
//   - class: Lower-case class name.
//   - difficulty: Index into cfg.Difficulties.
//   - cfg: Filter configuration.
//
// Returns:
//   - One label per object, the don't-care boxes and the number of valid labels.
func FilterGroundTruth(gt *models.Annotation, class string, difficulty int, cfg FilterConfig) ([]IgnoreLabel, []images.Box, int, error) {
	rule, err := cfg.Rule(difficulty)
	if err != nil {
		return nil, nil, 0, err
	}
	class = strings.ToLower(class)

	n := gt.Len()
	labels := make([]IgnoreLabel, n)
	var dontCares []images.Box
	numValid := 0

	for i := 0; i < n; i++ {
		bbox := gt.BBox[i]
		name := strings.ToLower(gt.Name[i])

		exact := name == class
		synonym := !exact && cfg.isSynonym(class, name)
		filtered := gt.Occluded[i] > rule.MaxOcclusion ||
			gt.Truncated[i] > rule.MaxTruncation ||
			bbox.Height() <= rule.MinHeight

		switch {
		case exact && !filtered:
			labels[i] = LabelValid
			numValid++
		case synonym || exact:
			labels[i] = LabelIgnored
		default:
			labels[i] = LabelIrrelevant
		}

		if gt.Name[i] == cfg.DontCare {
			dontCares = append(dontCares, bbox)
		}
	}

	return labels, dontCares, numValid, nil
}

// FilterDetections labels detections for one class and difficulty. Boxes
// shorter than the minimum height are ignored whatever their class.
func FilterDetections(dt *models.Annotation, class string, difficulty int, cfg FilterConfig) ([]IgnoreLabel, error) {
	rule, err := cfg.Rule(difficulty)
	if err != nil {
		return nil, err
	}
	class = strings.ToLower(class)

	labels := make([]IgnoreLabel, dt.Len())
	for i := range labels {
		switch {
		case dt.BBox[i].Height() < rule.MinHeight:
			labels[i] = LabelIgnored
		case strings.ToLower(dt.Name[i]) == class:
			labels[i] = LabelValid
		default:
			labels[i] = LabelIrrelevant
		}
	}
	return labels, nil
}

// FilterFrame runs both filters over one frame.
func FilterFrame(gt, dt *models.Annotation, class string, difficulty int, cfg FilterConfig) (FilteredFrame, error) {
	ignoredGT, dontCares, numValid, err := FilterGroundTruth(gt, class, difficulty, cfg)
	if err != nil {
		return FilteredFrame{}, err
	}
	ignoredDet, err := FilterDetections(dt, class, difficulty, cfg)
	if err != nil {
		return FilteredFrame{}, err
	}
	return FilteredFrame{
		IgnoredGT:  ignoredGT,
		IgnoredDet: ignoredDet,
		DontCares:  dontCares,
		NumValidGT: numValid,
	}, nil
}
