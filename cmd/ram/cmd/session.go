package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ram/internal/config"
	"github.com/Aman-CERP/ram/internal/embed"
	"github.com/Aman-CERP/ram/internal/output"
	"github.com/Aman-CERP/ram/internal/scope"
	"github.com/Aman-CERP/ram/internal/store"
)

// session is the resolved context of one command: configuration, scope and
// output.
type session struct {
	cfg    config.Config
	loc    scope.Location
	note   string
	logger *slog.Logger
	out    *output.Writer
}

func newResolver(globalDir string) scope.Resolver {
	return scope.Resolver{
		GlobalDir:    globalDir,
		StoreDirName: config.StoreDirName,
		IsInitialized: func(dir string) bool {
			info, err := os.Stat(filepath.Join(dir, store.DBFileName))
			return err == nil && info.Mode().IsRegular()
		},
	}
}

// newSession resolves scope and loads configuration for the current
// directory. It writes nothing to disk.
func (o *rootOptions) newSession(cmd *cobra.Command) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	globalDir := config.DefaultGlobalDir()
	resolver := newResolver(globalDir)

	if o.local && o.global {
		_, err := resolver.Resolve(cwd, true, true)
		return nil, err
	}

	projectRoot, found, err := resolver.FindRoot(cwd)
	if err != nil {
		return nil, err
	}
	if !found {
		projectRoot = ""
	}

	cfg, err := config.Load(globalDir, projectRoot)
	if err != nil {
		return nil, err
	}
	o.applyLogLevel(cfg.LogLevel)

	local, global := o.local, o.global
	if !local && !global {
		switch cfg.DefaultScope {
		case config.ScopeLocal:
			local = true
		case config.ScopeGlobal:
			global = true
		}
	}

	res, err := resolver.Resolve(cwd, local, global)
	if err != nil {
		return nil, err
	}

	logger := o.log().With(
		slog.String("scope", res.Location.Scope.String()),
		slog.String("store_dir", res.Location.Dir))
	logger.Debug("scope_resolved",
		slog.String("cwd", cwd),
		slog.Bool("flag_local", o.local),
		slog.Bool("flag_global", o.global),
		slog.String("note", res.Note))

	return &session{
		cfg:    cfg,
		loc:    res.Location,
		note:   res.Note,
		logger: logger,
		out:    output.New(cmd.OutOrStdout()),
	}, nil
}

// announce prints the scope line and any advisory note.
func (s *session) announce() {
	s.out.Scope(s.loc)
	if s.note != "" {
		s.out.Warning(s.note)
	}
}

func (s *session) embedder() (*embed.Lazy, error) {
	return embed.FromConfig(s.cfg)
}

func (s *session) openStore(model string) (*store.MemoryStore, error) {
	return store.Open(s.loc, store.Options{
		Dimensions:  s.cfg.Embeddings.Dimensions,
		Model:       model,
		LockTimeout: s.cfg.LockTimeout(),
		Logger:      s.logger,
	})
}

// ensureStore initializes st if needed. The global store also gets a seeded
// config.toml on first use.
func (s *session) ensureStore(ctx context.Context, st *store.MemoryStore) error {
	if s.loc.Scope == scope.Global {
		written, err := config.WriteDefaultTOML(s.loc.Dir)
		if err != nil {
			return err
		}
		if written {
			s.logger.Info("global_config_seeded", slog.String("path", filepath.Join(s.loc.Dir, config.GlobalConfigFile)))
		}
	}

	res, err := st.Initialize(ctx)
	if err != nil {
		return err
	}
	if !res.AlreadyInitialized {
		s.logger.Info("store_created")
		s.out.Successf("Created %s store at %s", s.loc.Scope, res.Dir)
	}
	return nil
}
