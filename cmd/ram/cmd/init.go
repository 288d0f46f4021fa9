package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ram/internal/config"
	"github.com/Aman-CERP/ram/internal/embed"
	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/output"
	"github.com/Aman-CERP/ram/internal/scope"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project-local memory store in the current directory",
		Long: `Create .ragged_memory/ in the current directory so that commands run
anywhere below it use a project-local store.

Running init again is safe: an existing store is left untouched.

The global store needs no init; it is created on first use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmd, opts, writeConfig)
		},
	}

	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Also write the effective settings to .ram.yaml")

	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, opts *rootOptions, writeConfig bool) error {
	out := output.New(cmd.OutOrStdout())
	globalDir := config.DefaultGlobalDir()

	if opts.local && opts.global {
		_, err := newResolver(globalDir).Resolve(".", true, true)
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	loc := scope.Location{Scope: scope.Local, Root: cwd, Dir: config.LocalStoreDir(cwd)}
	projectRoot := cwd
	if opts.global {
		out.Info("The global store is always available and is created on first use; 'ram init' is not required for it.")
		res, err := newResolver(globalDir).Resolve(cwd, false, true)
		if err != nil {
			return err
		}
		loc = res.Location
		projectRoot = ""
	} else if sameDir(loc.Dir, globalDir) {
		return ramerrors.New(ramerrors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is the global store", loc.Dir), nil).
			WithSuggestion("run 'ram init' inside a project directory, or use --global")
	}

	cfg, err := config.Load(globalDir, projectRoot)
	if err != nil {
		return err
	}
	opts.applyLogLevel(cfg.LogLevel)

	logger := opts.log().With("scope", loc.Scope.String(), "store_dir", loc.Dir)
	s := &session{cfg: cfg, loc: loc, logger: logger, out: out}

	embedder, err := embed.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	st, err := s.openStore(embedder.ModelName())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	existed := st.Exists()
	if err := s.ensureStore(ctx, st); err != nil {
		return err
	}
	if existed {
		out.Successf("%s store already initialized at %s", capitalize(loc.Scope.String()), loc.Dir)
	}
	out.Scope(loc)

	if writeConfig && loc.Scope == scope.Local {
		path := filepath.Join(cwd, config.ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			out.Infof("%s already exists; left unchanged", config.ProjectConfigFile)
		} else if err := cfg.WriteYAML(path); err != nil {
			return ramerrors.New(ramerrors.ErrCodeConfigPermission, fmt.Sprintf("cannot write %s", path), err)
		} else {
			out.Successf("Wrote %s", path)
		}
	}

	out.Next("ram add <file>")
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
