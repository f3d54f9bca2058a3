package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Re-hash a listing and compare with the ledger",
		Long: `Re-hash the listing's current fields and compare the result with the hash
recorded by its last content change.

Exits 1 when the hashes differ.

Example:
  marketledger verify LIST-0001`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(ctx context.Context, s *session) error {
				res, err := s.engine.Verify(ctx, args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				if err := s.out.Success(res, func(w io.Writer) error {
					return writeVerification(w, res)
				}); err != nil {
					return err
				}
				if !res.Verified {
					return &ExitError{Code: ExitFailure, Message: "verification failed: " + res.EntityID, Reported: true}
				}
				return nil
			})
		},
	}
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Replay the whole ledger and check every hash",
		Long: `Replay the whole ledger and check that every entry's payload still hashes
to its recorded content hash, that every projected snapshot matches, and that
no entry was ignored by the projection.

Exits 1 when any problem is found.

Example:
  marketledger audit --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, true, func(ctx context.Context, s *session) error {
				report, err := s.engine.AuditLog(ctx)
				if err != nil {
					return s.out.Fail(err)
				}
				if err := s.out.Success(report, func(w io.Writer) error {
					return writeAudit(w, report)
				}); err != nil {
					return err
				}
				if !report.OK() {
					return &ExitError{Code: ExitFailure, Message: "audit found problems", Reported: true}
				}
				return nil
			})
		},
	}
}
