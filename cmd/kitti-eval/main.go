package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nvr-ai/kitti-eval/eval"
	"github.com/nvr-ai/kitti-eval/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type runFlags struct {
	gt           string
	dt           string
	config       string
	classes      []string
	difficulties []int
	aos          bool
	parts        int
	workers      int
	output       string
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "kitti-eval",
		Short:        "KITTI object detection evaluation",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand(), newConfigCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate detections against ground truth",
		Example: "  kitti-eval run --gt ./label_2 --dt ./results --classes Car,Pedestrian --aos\n" +
			"  kitti-eval run --gt ./label_2 --dt ./results --config eval.yaml --output results.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.gt, "gt", "", "Directory of ground-truth annotation files")
	flags.StringVar(&f.dt, "dt", "", "Directory of detection annotation files")
	flags.StringVar(&f.config, "config", "", "Evaluation config file (.json, .yaml)")
	flags.StringSliceVar(&f.classes, "classes", nil, "Class names or indices to evaluate")
	flags.IntSliceVar(&f.difficulties, "difficulties", nil, "Difficulty levels (0 easy, 1 moderate, 2 hard)")
	flags.BoolVar(&f.aos, "aos", false, "Compute average orientation similarity")
	flags.IntVar(&f.parts, "parts", 0, "Number of parts the frames are split into")
	flags.IntVar(&f.workers, "workers", 0, "Parts evaluated concurrently")
	flags.StringVar(&f.output, "output", "", "Write a JSON summary to this file")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("gt")
	_ = cmd.MarkFlagRequired("dt")

	return cmd
}

func run(cmd *cobra.Command, f runFlags) error {
	level, err := logrus.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(cmd.ErrOrStderr())

	cfg := eval.DefaultConfig()
	if f.config != "" {
		loaded, err := eval.LoadConfig(f.config)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("classes") {
		cfg.Classes = f.classes
	}
	if flags.Changed("difficulties") {
		cfg.Difficulties = f.difficulties
	}
	if flags.Changed("aos") {
		cfg.ComputeAOS = f.aos
	}
	if flags.Changed("parts") {
		cfg.NumParts = f.parts
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}

	gt, dt, err := util.LoadAnnotationPairs(f.gt, f.dt)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"gt": len(gt), "dt": len(dt)}).Info("loaded annotations")

	evaluator, err := eval.NewEvaluator(cfg, eval.WithLogger(logger))
	if err != nil {
		return err
	}
	result, err := evaluator.Evaluate(cmd.Context(), gt, dt)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), result.Report)

	if f.output != "" {
		if err := result.SaveSummary(f.output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", f.output)
	}
	return nil
}

func newConfigCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the default evaluation config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := eval.DefaultConfig()
			if err := cfg.Save(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "kitti-eval.yaml", "Config file to write (.json, .yaml)")

	return cmd
}
