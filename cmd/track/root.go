package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/srodi/track/pkg/collector/usage"
	"github.com/srodi/track/pkg/logging"
	"github.com/srodi/track/pkg/report"
	"github.com/srodi/track/pkg/supervisor"
	"github.com/srodi/track/pkg/tracker"
	"github.com/srodi/track/pkg/types"
	"github.com/srodi/track/pkg/ui"
)

// Process exit statuses of track itself.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks problems with the command line rather than the run.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type sectionFlags struct {
	timer, cpu, memory, io bool
}

func (f sectionFlags) any() bool { return f.timer || f.cpu || f.memory || f.io }

// app holds the state of one command-line execution.
type app struct {
	stdout io.Writer
	stderr io.Writer
	v      *viper.Viper

	cfgFile  string
	output   string
	help     bool
	sections sectionFlags

	// status is the exit status chosen by the run.
	status int
	// newExecutor is swapped in tests.
	newExecutor func(*logging.Logger) tracker.Executor
}

// Execute runs track with args and returns the process exit status.
func Execute(args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		v:      newViper(),
		newExecutor: func(l *logging.Logger) tracker.Executor {
			return supervisor.New(supervisor.WithLogger(l))
		},
	}
	return a.execute(args)
}

func (a *app) execute(args []string) int {
	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(a.stderr, "track: %v\n", err)
		var uerr usageError
		if errors.As(err, &uerr) {
			return exitUsage
		}
		return exitFailure
	}
	return a.status
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track [options] <command> [args...]",
		Short: "Display the resource usage of a command",
		Long: `track runs a command, waits for it to finish and reports how long it took
and what it cost: CPU time, peak memory, context switches and I/O.

Adding section flags makes track operate in 'selective mode': any section must
be added individually. Everything after the first non-flag argument belongs to
the tracked command; use '--' to track a program named like a subcommand.`,
		Example: `  track sleep 1
  track -t -m make -j8
  track --format json --output run.json ./bench`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}
	cmd.Flags().SetInterspersed(false)
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.BoolVarP(&a.help, "help", "h", false, "Print help")
	flags.BoolVarP(&a.sections.timer, "timer", "t", false, "Add timer section to the response.")
	flags.BoolVarP(&a.sections.cpu, "cpu", "c", false, "Add cpu section to the response.")
	flags.BoolVarP(&a.sections.memory, "memory", "m", false, "Add memory section to the response.")
	flags.BoolVarP(&a.sections.io, "io", "i", false, "Add IO section to the response.")
	flags.StringP("format", "f", "text", "report format (text, json, yaml)")
	flags.StringVarP(&a.output, "output", "o", "", "write the report to this file instead of stdout")
	flags.String("metrics-file", "", "also write a Prometheus textfile snapshot here")
	flags.String("color", "auto", "colorize the text report (auto, always, never)")
	flags.Bool("exit-code", false, "exit with the tracked command's exit status")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&a.cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/track/config.yaml)")
	persistent.String("log-level", "warn", "log level (debug, info, warn, error)")
	persistent.String("log-format", "auto", "log format (auto, text, json)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = a.v.BindPFlag("format", flags.Lookup("format"))
	_ = a.v.BindPFlag("metrics_file", flags.Lookup("metrics-file"))
	_ = a.v.BindPFlag("color", flags.Lookup("color"))
	_ = a.v.BindPFlag("exit_code", flags.Lookup("exit-code"))
	_ = a.v.BindPFlag("log.level", persistent.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", persistent.Lookup("log-format"))

	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		out := c.OutOrStdout()
		fmt.Fprint(out, ui.Banner(ui.NewRenderer(out, ui.ColorAuto)))
		fmt.Fprint(out, c.UsageString())
	})

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	if err := initConfig(a.v, a.cfgFile); err != nil {
		return usageError{err}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Output = a.stderr
	if lvl := a.v.GetString("log.level"); lvl != "" {
		logCfg.Level = lvl
	}
	if format := a.v.GetString("log.format"); format != "" {
		logCfg.Format = format
	}
	logger := logging.New(logCfg)

	format, err := report.ParseFormat(a.v.GetString("format"))
	if err != nil {
		return usageError{err}
	}
	color, err := ui.ParseColorMode(a.v.GetString("color"))
	if err != nil {
		return usageError{err}
	}
	inv, err := buildInvocation(args, a.help, a.sections, a.v.GetStringSlice("sections"))
	if err != nil {
		return usageError{err}
	}

	runID := uuid.NewString()
	logger = logger.WithRun(runID)
	tr := tracker.New(a.newExecutor(logger), usage.NewCollector(logger), logger)

	out := tr.Run(inv)
	switch out.Kind {
	case tracker.HelpRequested:
		if out.HelpMessage != "" {
			fmt.Fprintln(cmd.OutOrStdout(), out.HelpMessage)
			a.status = exitUsage
		}
		cmd.HelpFunc()(cmd, args)
		return nil
	case tracker.Failed:
		logger.Debug("run failed", "kind", out.Failure.Kind.String())
		fmt.Fprintf(a.stderr, "track: %v\n", out.Failure)
		a.status = exitFailure
		return nil
	case tracker.Tracked:
		return a.emit(logger, runID, format, color, out)
	default:
		return fmt.Errorf("unexpected outcome %v", out.Kind)
	}
}

// emit writes the report and the optional metrics snapshot for a tracked run.
func (a *app) emit(logger *logging.Logger, runID string, format report.Format, color ui.ColorMode, out tracker.Outcome) error {
	rec := report.NewRecord(runID, out.Spec, out.Stats)
	opts := report.Options{Color: resolveColor(color, a.output == "", a.stdout)}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, rec, out.Spec, out.Stats, out.Sections, opts); err != nil {
		return err
	}
	if a.output != "" {
		if err := report.WriteFile(a.output, buf.Bytes()); err != nil {
			return err
		}
		logger.Info("report written", "path", a.output)
	} else if _, err := a.stdout.Write(buf.Bytes()); err != nil {
		return err
	}

	if path := a.v.GetString("metrics_file"); path != "" {
		if err := report.WriteMetricsTextfile(path, rec); err != nil {
			return err
		}
		logger.Info("metrics written", "path", path)
	}

	a.status = exitOK
	if a.v.GetBool("exit_code") {
		a.status = out.Stats.Exit.ShellStatus()
	}
	return nil
}

// buildInvocation turns parsed flags into a tracker invocation. Section names
// from the config apply only when no section flag was given.
func buildInvocation(args []string, help bool, flags sectionFlags, configured []string) (tracker.Invocation, error) {
	inv := tracker.Invocation{Argv: args, HelpRequested: help}
	if flags.any() {
		inv.Sections = types.Sections{Timer: flags.timer, CPU: flags.cpu, Memory: flags.memory, IO: flags.io}
		return inv, nil
	}
	for _, name := range configured {
		if err := inv.Sections.Enable(strings.ToLower(strings.TrimSpace(name))); err != nil {
			return inv, fmt.Errorf("config sections: %w", err)
		}
	}
	return inv, nil
}

// resolveColor decides auto mode up front because the report is rendered
// into a buffer before it reaches the terminal.
func resolveColor(mode ui.ColorMode, toStdout bool, stdout io.Writer) ui.ColorMode {
	if mode != ui.ColorAuto {
		return mode
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok || !toStdout {
		return ui.ColorNever
	}
	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ui.ColorAlways
	}
	return ui.ColorNever
}
