package eval

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkEvaluate compares part counts and worker pools on a synthetic
// dataset the size of a KITTI validation split.
func BenchmarkEvaluate(b *testing.B) {
	gt, dt := syntheticDataset(1, 3769)
	ctx := context.Background()

	for _, tc := range []struct{ parts, workers int }{{50, 1}, {50, 4}, {200, 8}} {
		b.Run(fmt.Sprintf("parts=%d/workers=%d", tc.parts, tc.workers), func(b *testing.B) {
			cfg := DefaultConfig()
			cfg.NumParts = tc.parts
			cfg.Workers = tc.workers
			e, err := NewEvaluator(cfg, WithLogger(quietLogger()))
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := e.Evaluate(ctx, gt, dt); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSampleThresholds measures sorting and sampling a pooled score list.
func BenchmarkSampleThresholds(b *testing.B) {
	scores := make([]float64, 20000)
	for i := range scores {
		scores[i] = float64((i*7919)%20000) / 20000
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = SampleThresholds(scores, len(scores), DefaultSamplePoints)
	}
}
