package eval

import (
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/sirupsen/logrus"
)

// Option configures an Evaluator.
type Option func(*options)

type options struct {
	logger  logrus.FieldLogger
	classes *models.ClassSet
}

func defaultOptions() options {
	return options{
		logger:  logrus.StandardLogger(),
		classes: models.KITTIClasses(),
	}
}

// WithLogger sets the logger (default: logrus.StandardLogger()).
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClassSet replaces the KITTI class table.
func WithClassSet(s *models.ClassSet) Option {
	return func(o *options) {
		if s != nil {
			o.classes = s
		}
	}
}
