// Package render turns a populated template into reviewer-facing documents:
// a self-contained HTML report and an XLSX workbook with the same table.
package render

import (
	"strings"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// Renderer formats analysis results. The registry supplies template names and
// currencies; results naming an unregistered template still render under a
// generic heading.
type Renderer struct {
	registry *model.TemplateRegistry
}

// NewRenderer creates a Renderer backed by the given template registry.
func NewRenderer(registry *model.TemplateRegistry) *Renderer {
	return &Renderer{registry: registry}
}

// header resolves the report heading and currency for a result.
func (r *Renderer) header(result *model.AnalysisResult) (title, currency string) {
	label := model.TemplateLabel(result.TemplateID)
	currency = "GBP"
	if r.registry != nil {
		if tmpl := r.registry.ByID(result.TemplateID); tmpl != nil {
			if tmpl.Currency != "" {
				currency = tmpl.Currency
			}
			return "COREP " + label + " - " + tmpl.Name, currency
		}
	}
	return "COREP " + label, currency
}

// amountText renders a record's value for display: grouped GBP when numeric,
// the raw token when the model reported something non-numeric, a dash when
// nothing was reported.
func amountText(f model.FieldRecord) string {
	switch {
	case f.Value.Valid:
		return model.FormatGBP(f.Value.Decimal)
	case f.RawValue != "":
		return f.RawValue
	default:
		return "-"
	}
}

func joinSources(f model.FieldRecord) string {
	return strings.Join(f.SourceParagraphs, ", ")
}
