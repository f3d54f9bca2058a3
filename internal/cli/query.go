package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/projection"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the current state of a listing",
		Long: `Show the current state of a listing, projected from its ledger entries.

Example:
  marketledger show LIST-0001
  marketledger show LIST-0001 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(ctx context.Context, s *session) error {
				ent, err := s.engine.Get(ctx, args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(ent, entityText(ent))
			})
		},
	}
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Status string
	Active bool
	All    bool
	Owner  string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listings, newest first",
		Long: `List listings, most recently created first.

Delisted listings are hidden unless --all or --status DELISTED is given.

Example:
  marketledger list --active
  marketledger list --owner farmer-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only listings in this status (LISTED|SOLD|DELISTED)")
	cmd.Flags().BoolVar(&opts.Active, "active", false, "only LISTED listings")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include delisted listings")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "only listings owned by this id")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	return withSession(cmd, opts.RootOptions, true, func(ctx context.Context, s *session) error {
		filter, err := opts.filter()
		if err != nil {
			return s.out.Fail(err)
		}
		entities, err := s.engine.List(ctx, filter)
		if err != nil {
			return s.out.Fail(err)
		}
		return s.out.Success(entities, func(w io.Writer) error {
			return writeEntityTable(w, entities)
		})
	})
}

func (o *ListOptions) filter() (projection.Filter, error) {
	f := projection.Filter{
		ActiveOnly:      o.Active,
		IncludeDelisted: o.All,
		OwnerID:         strings.TrimSpace(o.Owner),
	}
	if o.Status != "" {
		status := ir.Status(strings.ToUpper(o.Status))
		switch status {
		case ir.StatusListed, ir.StatusSold, ir.StatusDelisted:
			f.Status = status
		default:
			return f, fmt.Errorf("invalid --status %q: must be one of LISTED, SOLD, DELISTED", o.Status)
		}
	}
	return f, nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the ledger entries of one listing",
		Long: `Show the ledger entries of one listing in the order they were appended.
With --verbose the canonical payload of every entry is printed too.

Example:
  marketledger history LIST-0001 -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(ctx context.Context, s *session) error {
				entries, err := s.engine.History(ctx, args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(entries, entriesText(entries, s.cfg.Verbose))
			})
		},
	}
}

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Since int64
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the whole ledger",
		Long: `Show every ledger entry in append order.

Example:
  marketledger log
  marketledger log --since 120 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts.RootOptions, true, func(ctx context.Context, s *session) error {
				entries, err := s.engine.LogSince(ctx, opts.Since)
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(entries, entriesText(entries, s.cfg.Verbose))
			})
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only entries with seq greater than this")

	return cmd
}

func entriesText(entries []ir.LedgerEntry, verbose bool) func(io.Writer) error {
	return func(w io.Writer) error {
		return writeEntries(w, entries, verbose)
	}
}
