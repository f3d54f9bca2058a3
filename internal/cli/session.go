package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/marketledger/internal/config"
	"github.com/roach88/marketledger/internal/engine"
	"github.com/roach88/marketledger/internal/schema"
	"github.com/roach88/marketledger/internal/store"
)

// session is what one command needs to act on the ledger.
type session struct {
	cfg    *config.Config
	engine *engine.Engine
	caller engine.Caller
	out    *OutputFormatter
}

// newFormatter builds the formatter for cmd from the loaded config.
func newFormatter(cmd *cobra.Command, cfg *config.Config) *OutputFormatter {
	return &OutputFormatter{
		Format:    cfg.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   cfg.Verbose,
	}
}

// withSession opens the ledger, runs fn and closes the ledger.
// Read-only commands refuse to create a database that does not exist yet.
func withSession(cmd *cobra.Command, opts *RootOptions, readOnly bool, fn func(ctx context.Context, s *session) error) error {
	if opts.Config == nil {
		return NewExitError(ExitCommandError, "configuration not loaded")
	}
	cfg := opts.Config
	out := newFormatter(cmd, cfg)

	if readOnly && cfg.DB != ":memory:" {
		if _, err := os.Stat(cfg.DB); errors.Is(err, os.ErrNotExist) {
			return out.Fail(WrapExitError(ExitCommandError, "database not found", err))
		}
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(cfg.NewLogger(cmd.ErrOrStderr())),
	}
	if !readOnly && !cfg.NoValidate {
		validator, err := loadValidator(cfg)
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "load listing schema", err))
		}
		engineOpts = append(engineOpts, engine.WithValidator(validator))
	}

	st, err := store.Open(cfg.DB)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "open ledger", err))
	}
	defer st.Close()

	out.VerboseLog("ledger: %s", cfg.DB)

	s := &session{
		cfg:    cfg,
		engine: engine.New(st, engineOpts...),
		caller: engine.Caller{ID: cfg.As, Admin: cfg.Admin},
		out:    out,
	}
	return fn(cmd.Context(), s)
}

func loadValidator(cfg *config.Config) (*schema.Validator, error) {
	if cfg.Schema != "" {
		return schema.Load(cfg.Schema)
	}
	return schema.New()
}
