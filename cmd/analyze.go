package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/analyze"
	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

var (
	analyzeQuestion string
	analyzeScenario string
	analyzeTemplate string
	analyzeTopK     int
	analyzeFormat   string
	analyzeHTMLOut  string
	analyzeXLSXOut  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a reporting scenario and populate the template",
	Long:  "Retrieves relevant regulatory text, asks the model to populate the template from the scenario, validates the answer, and records the audit trail.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initAnalyzer(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		topK := analyzeTopK
		if topK == 0 {
			topK = cfg.Retrieval.TopK
		}

		result, err := env.Analyzer.Run(ctx, analyze.Request{
			Question: analyzeQuestion,
			Scenario: analyzeScenario,
			Template: analyzeTemplate,
			TopK:     topK,
		})
		if err != nil {
			return err
		}

		if analyzeHTMLOut != "" {
			if err := writeHTMLFile(env.Renderer, analyzeHTMLOut, &result.Response); err != nil {
				return err
			}
			zap.L().Info("html report written", zap.String("path", analyzeHTMLOut))
		}
		if analyzeXLSXOut != "" {
			if err := env.Renderer.SaveXLSX(analyzeXLSXOut, &result.Response); err != nil {
				return err
			}
			zap.L().Info("xlsx workbook written", zap.String("path", analyzeXLSXOut))
		}

		switch analyzeFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		case "table":
			formatAnalysis(os.Stdout, result)
			return nil
		default:
			return eris.Errorf("unknown output format: %s", analyzeFormat)
		}
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeQuestion, "question", "", "natural-language question about the reporting scenario (required)")
	analyzeCmd.Flags().StringVar(&analyzeScenario, "scenario", "", "description of the bank's reporting scenario (required)")
	analyzeCmd.Flags().StringVar(&analyzeTemplate, "template", model.TemplateC0100, "COREP template code")
	analyzeCmd.Flags().IntVar(&analyzeTopK, "top-k", 0, "regulatory paragraphs to retrieve (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format (json, table)")
	analyzeCmd.Flags().StringVar(&analyzeHTMLOut, "html", "", "also write an HTML report to this path")
	analyzeCmd.Flags().StringVar(&analyzeXLSXOut, "xlsx", "", "also write an XLSX workbook to this path")
	_ = analyzeCmd.MarkFlagRequired("question")
	_ = analyzeCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(analyzeCmd)
}

// formatAnalysis writes a human-readable summary of an analysis to w.
func formatAnalysis(out io.Writer, analysis *model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Analysis:\t%s\n", analysis.ID)
	_, _ = fmt.Fprintf(w, "Template:\t%s\n", model.TemplateLabel(analysis.Response.TemplateID))
	_, _ = fmt.Fprintf(w, "Question:\t%s\n", analysis.Query.Question)
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tITEM\tAMOUNT\tSTATUS\tSOURCES")
	_, _ = fmt.Fprintln(w, "---\t----\t------\t------\t-------")
	for _, f := range analysis.Response.Fields {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.Row,
			f.MetricName,
			amountCell(f),
			f.Status,
			strings.Join(f.SourceParagraphs, ","),
		)
	}
	_ = w.Flush()

	if len(analysis.Response.Warnings) > 0 {
		_, _ = fmt.Fprintf(out, "\nValidation warnings (%d):\n", len(analysis.Response.Warnings))
		for _, warning := range analysis.Response.Warnings {
			if warning.Row != "" {
				_, _ = fmt.Fprintf(out, "  [%s] row %s: %s\n", warning.Rule, warning.Row, warning.Message)
			} else {
				_, _ = fmt.Fprintf(out, "  [%s] %s\n", warning.Rule, warning.Message)
			}
		}
	}

	_, _ = fmt.Fprintf(out, "\nTokens: %d in / %d out  Cost: $%.4f  Duration: %dms\n",
		analysis.Metadata.InputTokens,
		analysis.Metadata.OutputTokens,
		analysis.Metadata.EstimatedCostUSD,
		analysis.Metadata.DurationMS,
	)
}

// amountCell renders a field's amount for table output: the formatted value,
// the raw token when the value could not be parsed, or a dash.
func amountCell(f model.FieldRecord) string {
	if f.Value.Valid {
		return model.FormatGBP(f.Value.Decimal)
	}
	if f.RawValue != "" {
		return f.RawValue
	}
	return "-"
}
