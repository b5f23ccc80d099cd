package render

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

const amountNumFmt = "#,##0.00"

// statusFills maps each cell status to its ARGB fill, mirroring the HTML
// report's colors.
var statusFills = map[model.FieldStatus]string{
	model.StatusPopulated:    "FFE8F5E9",
	model.StatusMissing:      "FFFFF8E1",
	model.StatusInconsistent: "FFFFEBEE",
}

// WriteXLSX renders the result as a single-sheet workbook: title, the
// populated template table, then the validation warnings.
func (r *Renderer) WriteXLSX(w io.Writer, result *model.AnalysisResult) error {
	file, err := r.workbook(result)
	if err != nil {
		return err
	}
	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "render: write xlsx")
	}
	return nil
}

// SaveXLSX renders the result and writes the workbook to path.
func (r *Renderer) SaveXLSX(path string, result *model.AnalysisResult) error {
	file, err := r.workbook(result)
	if err != nil {
		return err
	}
	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "render: save xlsx %s", path)
	}
	return nil
}

func (r *Renderer) workbook(result *model.AnalysisResult) (*xlsx.File, error) {
	title, currency := r.header(result)
	sheetName := model.TemplateLabel(result.TemplateID)
	if sheetName == "" {
		sheetName = "Report"
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrapf(err, "render: add sheet %s", sheetName)
	}

	titleStyle := xlsx.NewStyle()
	titleStyle.Font.Bold = true
	titleStyle.Font.Size = 12
	titleStyle.ApplyFont = true

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true
	headerStyle.Fill = *xlsx.NewFill("solid", "FFF2F2F2", "FF000000")
	headerStyle.ApplyFill = true

	titleCell := sheet.AddRow().AddCell()
	titleCell.SetString(title)
	titleCell.SetStyle(titleStyle)
	sheet.AddRow()

	header := sheet.AddRow()
	for _, h := range []string{"Row", "Item", "Amount (" + currency + ")", "Status", "Justification", "Sources"} {
		cell := header.AddCell()
		cell.SetString(h)
		cell.SetStyle(headerStyle)
	}

	for _, f := range result.Fields {
		row := sheet.AddRow()
		row.AddCell().SetString(string(f.Row))
		row.AddCell().SetString(f.MetricName)

		amount := row.AddCell()
		switch {
		case f.Value.Valid:
			amount.SetFloatWithFormat(f.Value.Decimal.InexactFloat64(), amountNumFmt)
		case f.RawValue != "":
			amount.SetString(f.RawValue)
		}

		status := row.AddCell()
		status.SetString(string(f.Status))
		if argb, ok := statusFills[f.Status]; ok {
			style := xlsx.NewStyle()
			style.Fill = *xlsx.NewFill("solid", argb, "FF000000")
			style.ApplyFill = true
			status.SetStyle(style)
		}

		row.AddCell().SetString(f.Justification)
		row.AddCell().SetString(joinSources(f))
	}

	sheet.AddRow()
	warnTitle := sheet.AddRow().AddCell()
	warnTitle.SetString("Validation warnings")
	warnTitle.SetStyle(titleStyle)

	if len(result.Warnings) == 0 {
		sheet.AddRow().AddCell().SetString("None")
	}
	for _, warn := range result.Warnings {
		row := sheet.AddRow()
		row.AddCell().SetString(string(warn.Rule))
		row.AddCell().SetString(string(warn.Row))
		row.AddCell().SetString(warn.Message)
	}

	sheet.SetColWidth(0, 0, 6)
	sheet.SetColWidth(1, 1, 34)
	sheet.SetColWidth(2, 2, 18)
	sheet.SetColWidth(3, 3, 12)
	sheet.SetColWidth(4, 4, 64)
	sheet.SetColWidth(5, 5, 26)

	return file, nil
}
