package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sourcli/ssm/internal/config"
	"github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/export"
	"github.com/sourcli/ssm/internal/logger"
	"github.com/sourcli/ssm/internal/loop"
	"github.com/sourcli/ssm/internal/model"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		stream bool
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print host stats as JSON",
		Long: `Print one JSON document with the same data the dashboard shows.

The first sample only primes CPU and network baselines, so a one-shot snapshot
waits one interval and reports the second. With --stream, one JSON object per
line is written every interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pretty") {
				pretty = !stream
			}
			return a.snapshot(cmd.Context(), cfg, stream, pretty)
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "write NDJSON every interval until interrupted")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent output (default on for one-shot)")
	return cmd
}

func (a *app) snapshot(parent context.Context, cfg *config.Config, stream, pretty bool) error {
	log, closeLog, err := logger.ToFile("ssm", cfg.LogFile)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open log file "+cfg.LogFile,
			"Check that the directory exists and is writable")
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := a.newProvider()
	if err := p.Check(ctx); err != nil {
		return errors.ProviderInit(err)
	}

	var presenter loop.Presenter = export.NewPresenter(a.out, pretty)
	opts := loopOptions(cfg)
	if !stream {
		presenter = afterWarmup{presenter}
		opts.MaxTicks = 2
	}

	return loop.New(newSampler(p, cfg, log), presenter, opts, log).Run(ctx)
}

// afterWarmup drops the first report, whose rates are still zero.
type afterWarmup struct {
	loop.Presenter
}

func (p afterWarmup) Present(ctx context.Context, r model.Report) error {
	if r.Tick <= 1 {
		return nil
	}
	return p.Presenter.Present(ctx, r)
}
