package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fenchurch-labs/corep-assistant/internal/corpus"
	"github.com/fenchurch-labs/corep-assistant/internal/cost"
	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

var (
	corpusFile     string
	corpusTemplate string
	corpusForce    bool
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the regulatory corpus",
	Long:  "Commands for loading the regulatory document pack and checking corpus coverage.",
}

// -- corpus load --

var corpusLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load and embed the regulatory document pack",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("corpus"); err != nil {
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

		file := corpusFile
		if file == "" {
			file = cfg.Corpus.File
		}

		embedder := initEmbedder()
		loader := corpus.NewLoader(st, embedder)
		result, err := loader.Load(ctx, corpus.LoadOptions{
			File:        file,
			Template:    corpusTemplate,
			Force:       corpusForce,
			BatchSize:   cfg.Corpus.BatchSize,
			Concurrency: cfg.Corpus.Concurrency,
		})
		if err != nil {
			return err
		}

		if result.Skipped {
			fmt.Printf("Corpus already loaded (%d documents). Use --force to replace.\n", result.Existing)
			return nil
		}
		fmt.Printf("Loaded %d documents (%d embedded).\n", result.Loaded, result.Embedded)
		if tokens := embedder.TokensUsed(); tokens > 0 {
			spend := cost.NewCalculator(cost.DefaultRates()).Jina(tokens)
			fmt.Printf("Embedding usage: %d tokens (~$%.4f).\n", tokens, spend)
		}
		return nil
	},
}

// -- corpus status --

var corpusStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus coverage per template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		registry, err := model.DefaultTemplateRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TEMPLATE\tNAME\tDOCUMENTS\tEMBEDDED")
		_, _ = fmt.Fprintln(w, "--------\t----\t---------\t--------")
		for _, tmpl := range registry.Templates {
			stats, err := st.CountDocuments(ctx, tmpl.ID)
			if err != nil {
				return eris.Wrapf(err, "count documents for %s", tmpl.ID)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", tmpl.ID, tmpl.Name, stats.Total, stats.Embedded)
		}
		return w.Flush()
	},
}

func init() {
	corpusLoadCmd.Flags().StringVar(&corpusFile, "file", "", "document pack path (default from config)")
	corpusLoadCmd.Flags().StringVar(&corpusTemplate, "template", model.TemplateC0100, "template whose corpus is replaced")
	corpusLoadCmd.Flags().BoolVar(&corpusForce, "force", false, "replace existing documents instead of skipping")

	corpusCmd.AddCommand(corpusLoadCmd)
	corpusCmd.AddCommand(corpusStatusCmd)
	rootCmd.AddCommand(corpusCmd)
}
