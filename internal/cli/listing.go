package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/marketledger/internal/engine"
	"github.com/roach88/marketledger/internal/ir"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	ID   string
	JSON string
	Set  []string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a listing",
		Long: `Create a listing owned by the --as caller.

The listing's fields are hashed into its first ledger entry. id, ownerId and
status are assigned by the ledger and cannot be set.

Example:
  marketledger create --as farmer-1 --set crop=Rice --set price=3000
  marketledger create --as farmer-1 --json '{"crop":"Wheat","price":250,"location":{"city":"Pune"}}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "listing id (default: generated)")
	cmd.Flags().StringVar(&opts.JSON, "json", "", "listing fields as a JSON object")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "set a field (key=value, repeatable)")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *CreateOptions) error {
	return withSession(cmd, opts.RootOptions, false, func(ctx context.Context, s *session) error {
		fields, err := parseFields(opts.JSON, opts.Set)
		if err != nil {
			return s.out.Fail(err)
		}
		ent, err := s.engine.Create(ctx, s.caller, engine.CreateRequest{ID: opts.ID, Fields: fields})
		if err != nil {
			return s.out.Fail(err)
		}
		return s.out.Success(ent, entityText(ent))
	})
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	JSON      string
	Set       []string
	IfVersion int64
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a listing's fields",
		Long: `Update fields of a LISTED listing. Only the owner may update.

Fields not named keep their current values; the new entry records the full
resulting snapshot.

Example:
  marketledger update LIST-0001 --as farmer-1 --set price=3500
  marketledger update LIST-0001 --as farmer-1 --set price=3500 --if-version 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.JSON, "json", "", "changed fields as a JSON object")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "set a field (key=value, repeatable)")
	cmd.Flags().Int64Var(&opts.IfVersion, "if-version", 0, "fail with CONFLICT unless the listing is at this version")

	return cmd
}

func runUpdate(cmd *cobra.Command, opts *UpdateOptions, id string) error {
	return withSession(cmd, opts.RootOptions, false, func(ctx context.Context, s *session) error {
		fields, err := parseFields(opts.JSON, opts.Set)
		if err != nil {
			return s.out.Fail(err)
		}
		ent, err := s.engine.Update(ctx, s.caller, engine.UpdateRequest{
			ID:              id,
			Fields:          fields,
			ExpectedVersion: opts.IfVersion,
		})
		if err != nil {
			return s.out.Fail(err)
		}
		return s.out.Success(ent, entityText(ent))
	})
}

// SellOptions holds flags for the sell command.
type SellOptions struct {
	*RootOptions
	Documents []string
	Buyer     string
}

// NewSellCommand creates the sell command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SellOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sell <id>",
		Short: "Mark a listing as sold",
		Long: `Mark a LISTED listing as sold. Only the owner may sell,
and at least one transaction document is required.

The buyer id is never stored; only a one-way reference to it is.

Example:
  marketledger sell LIST-0001 --as farmer-1 --doc invoice-17.pdf --buyer buyer-42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSell(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Documents, "doc", nil, "transaction document reference (repeatable)")
	cmd.Flags().StringVar(&opts.Buyer, "buyer", "", "buyer id")

	return cmd
}

func runSell(cmd *cobra.Command, opts *SellOptions, id string) error {
	return withSession(cmd, opts.RootOptions, false, func(ctx context.Context, s *session) error {
		ent, err := s.engine.MarkSold(ctx, s.caller, engine.SaleRequest{
			ID:        id,
			BuyerID:   opts.Buyer,
			Documents: opts.Documents,
		})
		if err != nil {
			return s.out.Fail(err)
		}
		return s.out.Success(ent, entityText(ent))
	})
}

// DelistOptions holds flags for the delist command.
type DelistOptions struct {
	*RootOptions
	Reason string
}

// NewDelistCommand creates the delist command.
func NewDelistCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DelistOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delist <id>",
		Short: "Remove a listing from the marketplace (admin)",
		Long: `Remove a listing from the marketplace. Requires --admin and a reason.

The listing's history stays in the ledger and it can still be verified.

Example:
  marketledger delist LIST-0001 --as moderator --admin --reason "duplicate listing"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelist(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why the listing is removed")

	return cmd
}

func runDelist(cmd *cobra.Command, opts *DelistOptions, id string) error {
	return withSession(cmd, opts.RootOptions, false, func(ctx context.Context, s *session) error {
		ent, err := s.engine.Delist(ctx, s.caller, engine.DelistRequest{ID: id, Reason: opts.Reason})
		if err != nil {
			return s.out.Fail(err)
		}
		return s.out.Success(ent, entityText(ent))
	})
}

func entityText(ent *ir.Entity) func(io.Writer) error {
	return func(w io.Writer) error {
		return writeEntity(w, ent)
	}
}
