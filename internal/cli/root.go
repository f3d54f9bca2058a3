package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/marketledger/internal/config"
	"github.com/roach88/marketledger/internal/ir"
)

// RootOptions holds global flags for all commands.
// Config is filled by the root's PersistentPreRunE from flags, environment
// and the config file.
type RootOptions struct {
	ConfigFile string
	Config     *config.Config
}

// NewRootCommand creates the root command for the marketledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "marketledger",
		Short: "Append-only listing ledger with content verification",
		Long: `marketledger records marketplace listings in an append-only ledger.

Every change is a hashed ledger entry; the current state of a listing is a
projection of its entries, and any listing can be re-hashed to prove that
what is displayed is what was recorded.

Settings come from flags, MARKETLEDGER_* environment variables and an
optional marketledger.yaml, in that order of precedence.`,
		Version:       ir.EngineVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Root().PersistentFlags())
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf("marketledger %s (ledger format v%s)\n", ir.EngineVersion, ir.FormatVersion))

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./marketledger.yaml if present)")
	flags.String("db", "marketledger.db", "path to the SQLite ledger")
	flags.String("as", "", "caller identity used for mutations")
	flags.Bool("admin", false, "act with the admin role")
	flags.String("format", "text", "output format (json|text)")
	flags.BoolP("verbose", "v", false, "verbose output and debug logs")
	flags.String("schema", "", "CUE file overriding the built-in listing schema")
	flags.Bool("no-validate", false, "skip listing schema validation")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewSellCommand(opts))
	cmd.AddCommand(NewDelistCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with os.Args. Cancelling ctx aborts in-flight
// ledger reads and writes.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
