// Compare replays sequences of snapshots through seqdiff and checks that
// every diff it builds reproduces the next snapshot, both through Apply and
// through in-place Store moves. A line-diff baseline from go-diff is printed
// next to each step for comparison.
package main

import (
	"fmt"
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/dacharyc/seqdiff"
)

type rootOpts struct {
	heuristic bool
	wire      string
	metrics   bool
	verbose   bool
}

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "compare [scenarios.yaml]",
		Short:         "Replay snapshot scenarios through seqdiff and verify every diff",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          opts.RunE,
	}
	cmd.Flags().BoolVar(&opts.heuristic, "heuristic", false, "let the common subsequence search give up early on large inputs")
	cmd.Flags().StringVarP(&opts.wire, "output", "o", "", "(yaml|json) also print every diff in wire form")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "dump Prometheus metrics when done")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug events from seqdiff")
	return cmd
}

func (opts *rootOpts) RunE(cmd *cobra.Command, args []string) error {
	switch opts.wire {
	case "", "yaml", "json":
	default:
		return errors.New("output format --output,-o must be 'yaml' or 'json'")
	}

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
		if opts.verbose {
			logger = level.NewFilter(logger, level.AllowDebug())
		} else {
			logger = level.NewFilter(logger, level.AllowInfo())
		}
	}

	scenarios := builtinScenarios()
	if len(args) == 1 {
		var err error
		scenarios, err = loadScenarios(args[0])
		if err != nil {
			return err
		}
	}

	r := &replayer{
		out:     cmd.OutOrStdout(),
		wire:    opts.wire,
		logger:  logger,
		metrics: seqdiff.NewPrometheusMetrics("compare"),
		options: []seqdiff.Option{seqdiff.WithHeuristic(opts.heuristic)},
	}
	failed := 0
	for _, sc := range scenarios {
		n, err := r.run(sc)
		if err != nil {
			return errors.Wrapf(err, "scenario %q", sc.Name)
		}
		failed += n
	}

	if opts.metrics {
		families, err := stdprometheus.DefaultGatherer.Gather()
		if err != nil {
			return errors.Wrap(err, "gathering metrics")
		}
		enc := expfmt.NewEncoder(cmd.OutOrStdout(), expfmt.FmtText)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return errors.Wrap(err, "encoding metrics")
			}
		}
	}

	if failed > 0 {
		return errors.Errorf("%d step(s) did not reproduce their snapshot", failed)
	}
	level.Info(logger).Log("scenarios", len(scenarios), "msg", "all diffs verified")
	return nil
}

func main() {
	if err := (&rootOpts{}).Command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
