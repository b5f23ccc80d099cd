package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the analysis audit trail",
	Long:  "Commands for listing and viewing stored analysis records.",
}

// -- audit list --

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("audit"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		template, _ := cmd.Flags().GetString("template")
		limit, _ := cmd.Flags().GetInt("limit")

		analyses, err := st.ListAnalyses(ctx, store.AnalysisFilter{
			Template: template,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "audit list")
		}

		if len(analyses) == 0 {
			fmt.Fprintln(os.Stderr, "No audit records found.")
			return nil
		}

		formatAuditList(os.Stdout, analyses)
		return nil
	},
}

// -- audit show --

var auditShowCmd = &cobra.Command{
	Use:   "show <log-id>",
	Short: "Show the full audit record of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("audit"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		analysis, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "audit show")
		}
		if analysis == nil {
			return eris.Errorf("audit record not found: %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	auditListCmd.Flags().String("template", "", "filter by template code")
	auditListCmd.Flags().Int("limit", 10, "max number of records to display")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	rootCmd.AddCommand(auditCmd)
}

// formatAuditList writes a tabular list of audit records to w.
func formatAuditList(out io.Writer, analyses []model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LOG_ID\tCREATED\tTEMPLATE\tQUESTION\tFIELDS\tWARNINGS\tDURATION")
	_, _ = fmt.Fprintln(w, "------\t-------\t--------\t--------\t------\t--------\t--------")

	for _, a := range analyses {
		dur := time.Duration(a.Metadata.DurationMS) * time.Millisecond
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			a.ID,
			a.CreatedAt.Format("2006-01-02 15:04"),
			a.Query.Template,
			truncate(a.Query.Question, 45),
			len(a.Response.Fields),
			len(a.Response.Warnings),
			dur.String(),
		)
	}
	_ = w.Flush()
}
