package eval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents one evaluation run.
type Config struct {
	// Classes lists class names or indices into the class table.
	Classes []string `json:"classes" yaml:"classes"`
	// Difficulties lists difficulty levels (0 easy, 1 moderate, 2 hard).
	Difficulties []int `json:"difficulties" yaml:"difficulties"`
	// MinOverlaps is indexed [variant][metric][class] over the full class
	// table; the metric axis is bbox, bev, 3d.
	MinOverlaps [][][]float64 `json:"min_overlaps" yaml:"min_overlaps"`
	// ComputeAOS enables average orientation similarity.
	ComputeAOS bool `json:"compute_aos" yaml:"compute_aos"`
	// NumParts is the number of chunks the frames are split into.
	NumParts int `json:"num_parts" yaml:"num_parts"`
	// Workers is the number of parts processed concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// SamplePoints is the length of each precision-recall curve.
	SamplePoints int `json:"sample_points" yaml:"sample_points"`
	// Filter holds the difficulty table and class synonyms.
	Filter FilterConfig `json:"filter" yaml:"filter"`
}

// OfficialMinOverlaps returns the KITTI overlap table for the eight classes
// of models.KITTIClasses, identical on the bbox, bev and 3d axes.
func OfficialMinOverlaps() [][][]float64 {
	row := func() []float64 {
		return []float64{0.7, 0.5, 0.5, 0.7, 0.5, 0.7, 0.7, 0.7}
	}
	return [][][]float64{{row(), row(), row()}}
}

// DefaultConfig returns the official KITTI setup for Car, Pedestrian and
// Cyclist over all three difficulties.
func DefaultConfig() Config {
	return Config{
		Classes:      []string{"Car", "Pedestrian", "Cyclist"},
		Difficulties: []int{0, 1, 2},
		MinOverlaps:  OfficialMinOverlaps(),
		ComputeAOS:   false,
		NumParts:     50,
		Workers:      1,
		SamplePoints: DefaultSamplePoints,
		Filter:       DefaultFilterConfig(),
	}
}

// Validate checks the config for values the evaluator cannot run with.
func (c *Config) Validate() error {
	switch {
	case len(c.Classes) == 0:
		return errors.Wrap(ErrInvalidConfig, "no classes")
	case len(c.Difficulties) == 0:
		return errors.Wrap(ErrInvalidConfig, "no difficulties")
	case len(c.MinOverlaps) == 0:
		return errors.Wrap(ErrInvalidConfig, "no min_overlaps")
	case c.NumParts <= 0:
		return errors.Wrapf(ErrInvalidConfig, "num_parts must be positive, got %d", c.NumParts)
	case c.Workers <= 0:
		return errors.Wrapf(ErrInvalidConfig, "workers must be positive, got %d", c.Workers)
	case c.SamplePoints < 2:
		return errors.Wrapf(ErrInvalidConfig, "sample_points must be at least 2, got %d", c.SamplePoints)
	}

	for _, d := range c.Difficulties {
		if _, err := c.Filter.Rule(d); err != nil {
			return err
		}
	}
	for v, variant := range c.MinOverlaps {
		if len(variant) <= int(MetricBBox) {
			return errors.Wrapf(ErrInvalidConfig, "min_overlaps[%d] has no bbox row", v)
		}
	}
	return nil
}

// LoadConfig loads a Config from a .json, .yaml or .yml file. Fields missing
// from the file keep their DefaultConfig values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unsupported config extension %q", ext)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save writes the config as JSON or YAML depending on the file extension.
func (c *Config) Save(filename string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// subsetMinOverlaps picks the columns of classes from every metric row,
// turning the class-table axis into a position-in-request axis.
func subsetMinOverlaps(table [][][]float64, classes []int) ([][][]float64, error) {
	out := make([][][]float64, len(table))
	for v, variant := range table {
		out[v] = make([][]float64, len(variant))
		for metric, row := range variant {
			out[v][metric] = make([]float64, len(classes))
			for i, c := range classes {
				if c < 0 || c >= len(row) {
					return nil, errors.Wrapf(ErrInvalidConfig, "min_overlaps[%d][%d] has no entry for class %d", v, metric, c)
				}
				out[v][metric][i] = row[c]
			}
		}
	}
	return out, nil
}
