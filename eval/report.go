package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nvr-ai/kitti-eval/benchmark"
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const reportHeader = "        Easy   Mod    Hard\n"

// FormatReport renders the KITTI text report.
//
// Arguments:
//   - classes: The evaluated classes, in mAP order.
//   - minOverlaps: Indexed [variant][metric][i], i being the class position.
//   - mAP: The bbox mAP shaped [class, difficulty, variant].
//   - mAPOrientation: The AOS mAP with the same shape, or nil.
//
// Returns:
//   - The report text, one line per class and variant header and AP row.
func FormatReport(classes []models.OutputClass, minOverlaps [][][]float64, mAP, mAPOrientation *tensor.Dense) string {
	var b strings.Builder
	b.WriteString(reportHeader)

	for j, class := range classes {
		for i, variant := range minOverlaps {
			thresholds := make([]string, len(variant))
			for metric, row := range variant {
				thresholds[metric] = fmt.Sprintf("%.2f", row[j])
			}
			fmt.Fprintf(&b, "%s AP@%s:\n", class.Name, strings.Join(thresholds, ", "))
			fmt.Fprintf(&b, "bbox AP:%s\n", apRow(mAP, j, i))
			if mAPOrientation != nil {
				fmt.Fprintf(&b, "aos  AP:%s\n", apRow(mAPOrientation, j, i))
			}
		}
	}
	return b.String()
}

// apRow formats the difficulties of class j and variant i.
func apRow(mAP *tensor.Dense, j, i int) string {
	values := apValues(mAP, j, i)
	cells := make([]string, len(values))
	for n, v := range values {
		cells[n] = fmt.Sprintf(" % .2f", v)
	}
	return strings.Join(cells, ",")
}

func apValues(mAP *tensor.Dense, j, i int) []float64 {
	shape := mAP.Shape()
	data := mAP.Data().([]float64)
	out := make([]float64, shape[1])
	for n := range out {
		out[n] = data[(j*shape[1]+n)*shape[2]+i]
	}
	return out
}

// Summary is the JSON form of a Result.
type Summary struct {
	Classes []ClassSummary        `json:"classes"`
	Report  string                `json:"report"`
	Metrics *benchmark.RunMetrics `json:"metrics,omitempty"`
}

// ClassSummary holds the AP values of one class.
type ClassSummary struct {
	Index    int              `json:"index"`
	Name     string           `json:"name"`
	Variants []VariantSummary `json:"variants"`
}

// VariantSummary holds the AP values of one overlap variant, one entry per
// evaluated difficulty.
type VariantSummary struct {
	MinOverlaps  []float64 `json:"min_overlaps"`
	Difficulties []int     `json:"difficulties"`
	AP           []float64 `json:"ap"`
	AOS          []float64 `json:"aos,omitempty"`
}

// Summary collects the mAP values of r per class and overlap variant.
func (r *Result) Summary() Summary {
	s := Summary{
		Classes: make([]ClassSummary, len(r.Classes)),
		Report:  r.Report,
		Metrics: r.Metrics,
	}
	for j, class := range r.Classes {
		cs := ClassSummary{Index: class.Index, Name: class.Name}
		for i, variant := range r.MinOverlaps {
			vs := VariantSummary{
				MinOverlaps:  make([]float64, len(variant)),
				Difficulties: r.Difficulties,
				AP:           apValues(r.MAP, j, i),
			}
			for metric, row := range variant {
				vs.MinOverlaps[metric] = row[j]
			}
			if r.MAPOrientation != nil {
				vs.AOS = apValues(r.MAPOrientation, j, i)
			}
			cs.Variants = append(cs.Variants, vs)
		}
		s.Classes[j] = cs
	}
	return s
}

// SaveSummary writes the summary of r as indented JSON.
func (r *Result) SaveSummary(filename string) error {
	data, err := json.MarshalIndent(r.Summary(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal summary")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write summary file")
	}

	return nil
}
