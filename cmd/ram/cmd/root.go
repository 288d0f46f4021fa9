// Package cmd provides the CLI commands for ram.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ram/internal/config"
	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/logging"
	"github.com/Aman-CERP/ram/pkg/version"
)

// rootOptions holds persistent flags and per-process state shared by commands.
type rootOptions struct {
	global bool
	local  bool
	debug  bool
	plain  bool

	logger         *slog.Logger
	logLevel       *slog.LevelVar
	loggingCleanup func()
}

// NewRootCmd creates the root command for the ram CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ram",
		Short: "Local semantic memory for your files",
		Long: `ram indexes text files into a local vector store so they can be
searched by meaning.

Each project can keep its own store (.ragged_memory/ at the project root);
everything else goes to the global store in ~/.ragged_memory.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("ram version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.global, "global", "g", false, "Use the global store")
	pf.BoolVarP(&opts.local, "local", "l", false, "Use the project-local store")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging (also written to stderr)")
	pf.BoolVar(&opts.plain, "plain", false, "Plain progress output instead of the interactive display")

	cmd.PersistentPreRunE = opts.startLogging
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		opts.stopLogging()
		return nil
	}

	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging opens the log file in the global directory. Logging problems
// never stop a command.
func (o *rootOptions) startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if o.debug {
		cfg = logging.DebugConfig()
	}
	cfg.FilePath = logging.LogPathIn(config.DefaultGlobalDir())
	o.logLevel = new(slog.LevelVar)
	cfg.LevelVar = o.logLevel

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		o.logger = logging.Discard()
		return nil
	}
	o.logger = logger
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)
	logger.Debug("debug logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

// applyLogLevel switches to the configured level unless --debug is set.
func (o *rootOptions) applyLogLevel(level string) {
	if o.debug || o.logLevel == nil {
		return
	}
	o.logLevel.Set(logging.ParseLevel(level))
}

func (o *rootOptions) stopLogging() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

func (o *rootOptions) log() *slog.Logger {
	if o.logger == nil {
		return logging.Discard()
	}
	return o.logger
}

// Execute runs the root command and prints errors for the terminal.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	root := newRootCmd(opts)
	err := root.ExecuteContext(ctx)
	if err != nil {
		opts.log().Error("command_failed", ramerrors.FormatForLog(err)...)
		printError(root, err)
	}
	opts.stopLogging()
	return err
}

func printError(cmd *cobra.Command, err error) {
	if _, ok := ramerrors.As(err); ok {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), ramerrors.FormatForCLI(err))
		return
	}
	// Flag and argument errors from cobra.
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Run '%s --help' for usage.\n", cmd.CommandPath())
}
