package render

import (
	"bytes"
	_ "embed"
	"html/template"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

//go:embed templates/report.html.tmpl
var reportHTML string

var reportTmpl = template.Must(template.New("report").Parse(reportHTML))

// htmlReport is the view model the HTML template executes against.
type htmlReport struct {
	Title     string
	Currency  string
	Generated string
	Rows      []htmlRow
	Warnings  []model.ValidationWarning
}

type htmlRow struct {
	Code          string
	Metric        string
	Amount        string
	Status        model.FieldStatus
	Justification string
	Sources       string
}

// WriteHTML renders the result as a self-contained HTML report. All model
// and scenario text passes through the template's contextual escaping.
func (r *Renderer) WriteHTML(w io.Writer, result *model.AnalysisResult) error {
	report := htmlReport{
		Generated: time.Now().UTC().Format("02 Jan 2006 15:04 MST"),
		Warnings:  result.Warnings,
	}
	report.Title, report.Currency = r.header(result)

	report.Rows = make([]htmlRow, len(result.Fields))
	for i, f := range result.Fields {
		report.Rows[i] = htmlRow{
			Code:          string(f.Row),
			Metric:        f.MetricName,
			Amount:        amountText(f),
			Status:        f.Status,
			Justification: f.Justification,
			Sources:       joinSources(f),
		}
	}

	if err := reportTmpl.Execute(w, report); err != nil {
		return eris.Wrap(err, "render: execute html template")
	}
	return nil
}

// HTML renders the result and returns the document bytes.
func (r *Renderer) HTML(result *model.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteHTML(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
