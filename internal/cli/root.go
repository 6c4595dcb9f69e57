// Package cli wires configuration, stats, rendering and the refresh loop into
// the ssm command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/sourcli/ssm/internal/config"
	"github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/logger"
	"github.com/sourcli/ssm/internal/loop"
	"github.com/sourcli/ssm/internal/provider"
	"github.com/sourcli/ssm/internal/sampler"
	"github.com/sourcli/ssm/internal/ui"
	"github.com/sourcli/ssm/internal/view"
)

// app is everything the commands take from the outside world.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	newProvider func() provider.Provider
	terminal    func(w io.Writer) (fd int, ok bool)

	configPath string
}

func defaultApp() *app {
	return &app{
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		newProvider: func() provider.Provider { return provider.NewHost() },
		terminal:    terminalFD,
	}
}

// Execute runs the command line and returns the process exit code:
// 0 after a clean exit or interrupt, 1 on any fatal error.
func Execute() int {
	return run(context.Background(), defaultApp(), os.Args[1:])
}

func run(ctx context.Context, a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		msg := err.Error()
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(a.errOut, msg)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssm",
		Short: "Live terminal dashboard of CPU, memory, disk, network and processes",
		Long: `ssm redraws a full-screen view of this host's resources every interval:
CPU and load, memory and swap, disk usage per mount, network throughput
per interface, and the busiest processes.

Press q or Ctrl+C to exit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			return a.dashboard(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $HOME/.config/ssm/config.yaml)")
	addSettingsFlags(cmd.PersistentFlags())

	cmd.AddCommand(newSnapshotCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func addSettingsFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.Duration("interval", d.Interval, "refresh interval (e.g. 500ms, 2s)")
	fs.IntP("top", "n", d.TopK, "number of processes to list")
	fs.Int("bar-width", d.BarWidth, "gauge width in characters")
	fs.Float64("warn", d.Thresholds.Warning, "percent at which a gauge turns yellow")
	fs.Float64("crit", d.Thresholds.Critical, "percent above which a gauge turns red")
	fs.StringSlice("mount", d.Mounts, "mount point to show, repeatable (empty list shows all)")
	fs.StringSlice("iface", d.Interfaces, "network interface to show, repeatable (default all)")
	fs.Bool("loopback", d.IncludeLoopback, "include loopback interfaces")
	fs.String("sort", d.SortBy, "process sort column: cpu|mem")
	fs.String("filter", d.Filter, "regex filter for process names")
	fs.Duration("sample-timeout", d.SampleTimeout, "reuse the last values when a sample takes longer than this (0 waits)")
	fs.String("renderer", d.Renderer, "terminal renderer: tea|ansi")
	fs.String("log-file", d.LogFile, "append logs to this file (default discard)")
	fs.Bool("no-color", d.NoColor, "disable colors")
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dashboard runs the full-screen view until interrupted.
func (a *app) dashboard(parent context.Context, cfg *config.Config) error {
	log, closeLog, err := logger.ToFile("ssm", cfg.LogFile)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open log file "+cfg.LogFile,
			"Check that the directory exists and is writable")
	}
	defer closeLog()

	if cfg.NoColor {
		ui.DisableColor()
	}

	fd, ok := a.terminal(a.out)
	if !ok {
		return errors.New(errors.ErrRender,
			"Output is not a terminal",
			"Use 'ssm snapshot' or 'ssm snapshot --stream' for piped output")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := a.newProvider()
	if err := p.Check(ctx); err != nil {
		return errors.ProviderInit(err)
	}

	var surface ui.Surface
	switch cfg.Renderer {
	case config.RendererANSI:
		surface = ui.NewANSISurface(a.out, fd)
	default:
		// q / Ctrl+C in the tea program ends the loop the same way a signal does
		surface = ui.NewTeaSurface(a.in, a.out, fd, cancel)
	}

	renderer := ui.NewRenderer(surface, viewOptions(cfg), log)
	if err := renderer.Start(); err != nil {
		return err
	}

	log.Info("dashboard started, interval %s, renderer %s", cfg.Interval, cfg.Renderer)
	ctl := loop.New(newSampler(p, cfg, log), renderer, loopOptions(cfg), log)
	return ctl.Run(ctx)
}

func newSampler(p provider.Provider, cfg *config.Config, log logger.Logger) *sampler.Sampler {
	return sampler.New(p, sampler.Options{
		Mounts:          cfg.Mounts,
		Interfaces:      cfg.Interfaces,
		IncludeLoopback: cfg.IncludeLoopback,
		Timeout:         cfg.SampleTimeout,
	}, log)
}

func loopOptions(cfg *config.Config) loop.Options {
	return loop.Options{
		Interval: cfg.Interval,
		TopK:     cfg.TopK,
		Rank:     cfg.RankOptions(),
	}
}

func viewOptions(cfg *config.Config) view.Options {
	return view.Options{
		BarWidth:   cfg.BarWidth,
		Thresholds: cfg.Thresholds,
		SortLabel:  strings.ToUpper(string(cfg.RankOptions().By)),
		TopK:       cfg.TopK,
	}
}

func terminalFD(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return -1, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}
