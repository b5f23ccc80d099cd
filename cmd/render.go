package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/render"
)

var (
	renderID      string
	renderIn      string
	renderHTMLOut string
	renderXLSXOut string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an analysis as an HTML report or XLSX workbook",
	Long:  "Renders a stored analysis (by audit log ID) or a saved analysis JSON file into reviewer-facing documents.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("render"); err != nil {
			return err
		}
		if renderHTMLOut == "" && renderXLSXOut == "" {
			return eris.New("nothing to render: pass --out and/or --xlsx")
		}

		result, err := loadRenderInput(ctx)
		if err != nil {
			return err
		}

		registry, err := model.DefaultTemplateRegistry()
		if err != nil {
			return err
		}
		renderer := render.NewRenderer(registry)

		if renderHTMLOut != "" {
			if err := writeHTMLFile(renderer, renderHTMLOut, result); err != nil {
				return err
			}
			zap.L().Info("html report written", zap.String("path", renderHTMLOut))
		}
		if renderXLSXOut != "" {
			if err := renderer.SaveXLSX(renderXLSXOut, result); err != nil {
				return err
			}
			zap.L().Info("xlsx workbook written", zap.String("path", renderXLSXOut))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderID, "id", "", "audit log ID of the analysis to render")
	renderCmd.Flags().StringVar(&renderIn, "in", "", "analysis JSON file to render (from analyze --format json)")
	renderCmd.Flags().StringVar(&renderHTMLOut, "out", "", "HTML report output path")
	renderCmd.Flags().StringVar(&renderXLSXOut, "xlsx", "", "XLSX workbook output path")
	rootCmd.AddCommand(renderCmd)
}

// loadRenderInput reads the analysis result to render, either from the audit
// trail or from a saved JSON file.
func loadRenderInput(ctx context.Context) (*model.AnalysisResult, error) {
	switch {
	case renderID != "" && renderIn != "":
		return nil, eris.New("pass --id or --in, not both")
	case renderID != "":
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return nil, eris.Wrap(err, "migrate store")
		}
		analysis, err := st.GetAnalysis(ctx, renderID)
		if err != nil {
			return nil, eris.Wrap(err, "load analysis")
		}
		if analysis == nil {
			return nil, eris.Errorf("analysis not found: %s", renderID)
		}
		return &analysis.Response, nil
	case renderIn != "":
		return readResultFile(renderIn)
	default:
		return nil, eris.New("pass --id <log-id> or --in <result.json>")
	}
}

// readResultFile parses an analysis JSON file. Both the full audit record
// and the bare response envelope are accepted.
func readResultFile(path string) (*model.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var analysis model.Analysis
	if err := json.Unmarshal(data, &analysis); err == nil && len(analysis.Response.Fields) > 0 {
		return &analysis.Response, nil
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	if len(result.Fields) == 0 {
		return nil, eris.Errorf("no fields in %s", path)
	}
	return &result, nil
}

// writeHTMLFile renders result as a standalone HTML report at path.
func writeHTMLFile(r *render.Renderer, path string, result *model.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := r.WriteHTML(f, result); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
