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

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/retrieval"
)

var (
	retrieveTemplate string
	retrieveTopK     int
	retrieveFormat   string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query...>",
	Short: "Search the regulatory corpus",
	Long:  "Runs hybrid search (vector similarity plus keyword matching) over the loaded regulatory corpus and prints the ranked paragraphs.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("retrieve"); err != nil {
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

		searcher := retrieval.NewSearcher(st, initEmbedder())

		topK := retrieveTopK
		if topK == 0 {
			topK = cfg.Retrieval.TopK
		}

		query := strings.Join(args, " ")
		results, err := searcher.Search(ctx, query, retrieveTemplate, topK)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No matching paragraphs. Load the corpus first: corep corpus load")
			return nil
		}

		switch retrieveFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		case "table":
			formatParagraphs(os.Stdout, results)
			return nil
		default:
			return eris.Errorf("unknown output format: %s", retrieveFormat)
		}
	},
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveTemplate, "template", model.TemplateC0100, "COREP template code")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 0, "number of paragraphs to return (default from config)")
	retrieveCmd.Flags().StringVar(&retrieveFormat, "format", "table", "output format (json, table)")
	rootCmd.AddCommand(retrieveCmd)
}

// formatParagraphs writes ranked retrieval results to w.
func formatParagraphs(out io.Writer, paragraphs []model.RetrievedParagraph) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCORE\tTYPE\tSOURCE\tPARAGRAPH\tCONTENT")
	_, _ = fmt.Fprintln(w, "-----\t----\t------\t---------\t-------")
	for _, p := range paragraphs {
		_, _ = fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
			p.RelevanceScore,
			p.SearchType,
			p.Source,
			p.ParagraphID,
			truncate(p.Content, 70),
		)
	}
	_ = w.Flush()
}

// truncate shortens s to max characters with a trailing ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
