package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/roach88/marketledger/internal/engine"
	"github.com/roach88/marketledger/internal/ir"
)

// writeEntity prints one listing in detail.
func writeEntity(w io.Writer, ent *ir.Entity) error {
	fields, err := ir.MarshalCanonical(ent.Fields)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s  %s  v%d\n", ent.ID, ent.Status, ent.Version)
	fmt.Fprintf(w, "  Owner:      %s\n", ent.OwnerID)
	fmt.Fprintf(w, "  Hash:       %s\n", ent.CurrentHash)
	fmt.Fprintf(w, "  Content ID: %s\n", ent.ContentID())
	fmt.Fprintf(w, "  Created:    %s\n", ir.FormatTime(ent.CreatedAt))
	fmt.Fprintf(w, "  Updated:    %s\n", ir.FormatTime(ent.UpdatedAt))
	fmt.Fprintf(w, "  Fields:     %s\n", fields)
	if ent.Sale != nil {
		fmt.Fprintf(w, "  Sold:       %s (documents: %s)\n",
			ir.FormatTime(ent.Sale.SoldAt), strings.Join(ent.Sale.Documents, ", "))
		if ent.Sale.BuyerRef != "" {
			fmt.Fprintf(w, "  Buyer ref:  %s\n", ent.Sale.BuyerRef)
		}
	}
	if ent.Delist != nil {
		fmt.Fprintf(w, "  Delisted:   %s by %s (%s)\n",
			ir.FormatTime(ent.Delist.At), ent.Delist.By, ent.Delist.Reason)
	}
	return nil
}

// writeEntityTable prints listings one per row.
func writeEntityTable(w io.Writer, entities []*ir.Entity) error {
	if len(entities) == 0 {
		fmt.Fprintln(w, "No listings found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tVERSION\tOWNER\tCONTENT ID\tCROP\tPRICE")
	for _, ent := range entities {
		crop, _ := ent.Fields.String("crop")
		price := "-"
		if raw, ok := ent.Fields["price"]; ok {
			price = string(raw)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			ent.ID, ent.Status, ent.Version, ent.OwnerID, ent.ContentID(), crop, price)
	}
	return tw.Flush()
}

// writeEntries prints ledger entries in append order.
func writeEntries(w io.Writer, entries []ir.LedgerEntry, verbose bool) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No ledger entries")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRECORDED AT\tKIND\tENTITY\tVERSION\tACTOR\tCONTENT HASH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Seq, ir.FormatTime(e.RecordedAt), e.Kind, e.EntityID, e.Version, e.Actor, truncateHash(e.ContentHash))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(w)
		for _, e := range entries {
			payload, err := ir.MarshalCanonical(e.Payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "[%d] %s\n", e.Seq, payload)
			fmt.Fprintf(w, "     tx: %s\n", e.TransactionRef)
		}
	}
	return nil
}

// writeVerification prints a verification result.
func writeVerification(w io.Writer, res ir.VerificationResult) error {
	mark := "✓"
	state := "verified"
	if !res.Verified {
		mark = "✗"
		state = "MISMATCH"
	}
	fmt.Fprintf(w, "%s %s %s\n", mark, res.EntityID, state)
	fmt.Fprintf(w, "  Stored:   %s\n", res.StoredHash)
	fmt.Fprintf(w, "  Computed: %s\n", res.ComputedHash)
	return nil
}

// writeAudit prints an audit report.
func writeAudit(w io.Writer, report *engine.AuditReport) error {
	fmt.Fprintf(w, "Audited %d entries across %d listings\n", report.Entries, report.Entities)
	if report.OK() {
		fmt.Fprintln(w, "✓ no problems found")
		return nil
	}

	fmt.Fprintf(w, "✗ %d problem(s):\n", len(report.Findings))
	for _, f := range report.Findings {
		fmt.Fprintf(w, "  [%d] %s %s %s", f.Seq, f.EntityID, f.Kind, f.Problem)
		if f.Detail != "" {
			fmt.Fprintf(w, ": %s", f.Detail)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// truncateHash shortens a hash for table display.
func truncateHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
