package eval

import (
	"github.com/pkg/errors"
)

var (
	// ErrLengthMismatch is returned when ground truth and detections cover a
	// different number of frames.
	ErrLengthMismatch = errors.New("ground-truth and detection frame counts differ")
	// ErrUnknownMetric is returned for metrics without an overlap implementation.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrInvalidDifficulty is returned for difficulty levels outside the filter table.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidConfig is returned by Config.Validate and by evaluation
	// requests whose tables do not line up.
	ErrInvalidConfig = errors.New("invalid config")
)
