package render

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	registry, err := model.DefaultTemplateRegistry()
	require.NoError(t, err)
	return NewRenderer(registry)
}

func populated(row model.RowID, metric string, v int64, sources ...string) model.FieldRecord {
	return model.FieldRecord{
		Row:              row,
		Column:           model.ColumnAmount,
		MetricName:       metric,
		Value:            decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true},
		Currency:         "GBP",
		Status:           model.StatusPopulated,
		Justification:    "Stated in the scenario.",
		SourceParagraphs: sources,
	}
}

func sampleResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		TemplateID: model.TemplateC0100,
		Fields: []model.FieldRecord{
			populated(model.RowCET1, "Common Equity Tier 1 capital", 500_000_000, "CRR_26"),
			populated(model.RowAT1, "Additional Tier 1 capital", 100_000_000, "CRR_51"),
			{
				Row: model.RowTier1, Column: model.ColumnAmount,
				MetricName: "Tier 1 capital",
				Value:      decimal.NullDecimal{Decimal: decimal.NewFromInt(650_000_000), Valid: true},
				Currency:   "GBP",
				Status:     model.StatusInconsistent,
				Justification: "Reported Tier 1 does not reconcile with its components.",
			},
			{
				Row: model.RowTier2, Column: model.ColumnAmount,
				MetricName: "Tier 2 capital", Currency: "GBP",
				Status:        model.StatusMissing,
				Justification: "No Tier 2 instruments in the scenario.",
			},
			{
				Row: model.RowTotalOwnFunds, Column: model.ColumnAmount,
				MetricName: "Total own funds", Currency: "GBP",
				Status: model.StatusMissing,
			},
		},
		Warnings: []model.ValidationWarning{
			{Row: model.RowTotalOwnFunds, Rule: model.RuleMandatoryMissing, Message: "Mandatory row 050 (Total own funds) is not populated"},
			{Row: model.RowTier1, Rule: model.RuleConsistencyMismatch, Message: "Tier 1 capital (row 030) must equal CET1 (row 010) plus AT1 (row 020): reported £650,000,000.00, components sum to £600,000,000.00"},
		},
	}
}

func TestWriteHTML_FullReport(t *testing.T) {
	t.Parallel()

	out, err := newTestRenderer(t).HTML(sampleResult())
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, "<title>COREP C 01.00 - Own Funds</title>")
	assert.Contains(t, doc, "<h1>COREP C 01.00 - Own Funds</h1>")
	assert.Contains(t, doc, "Amount (GBP)")

	assert.Contains(t, doc, "Common Equity Tier 1 capital")
	assert.Contains(t, doc, "£500,000,000.00")
	assert.Contains(t, doc, "£100,000,000.00")
	assert.Contains(t, doc, `class="status status-populated"`)
	assert.Contains(t, doc, `class="status status-inconsistent"`)
	assert.Contains(t, doc, `class="status status-missing"`)
	assert.Contains(t, doc, "CRR_26")

	assert.Contains(t, doc, "mandatory_missing")
	assert.Contains(t, doc, "(row 050)")
	assert.Contains(t, doc, "Mandatory row 050 (Total own funds) is not populated")
	assert.Contains(t, doc, "consistency_mismatch")
}

func TestWriteHTML_RowOrderPreserved(t *testing.T) {
	t.Parallel()

	out, err := newTestRenderer(t).HTML(sampleResult())
	require.NoError(t, err)
	doc := string(out)

	cet1 := strings.Index(doc, "Common Equity Tier 1 capital")
	total := strings.Index(doc, "Total own funds")
	require.GreaterOrEqual(t, cet1, 0)
	require.GreaterOrEqual(t, total, 0)
	assert.Less(t, cet1, total)
}

func TestWriteHTML_EscapesModelText(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.Fields[0].Justification = `Authorised under <script>alert("x")</script> conditions`

	out, err := newTestRenderer(t).HTML(result)
	require.NoError(t, err)
	doc := string(out)

	assert.NotContains(t, doc, `<script>alert`)
	assert.Contains(t, doc, "&lt;script&gt;")
}

func TestWriteHTML_NoWarnings(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.Warnings = nil

	out, err := newTestRenderer(t).HTML(result)
	require.NoError(t, err)
	assert.Contains(t, string(out), "No validation warnings.")
}

func TestWriteHTML_RawValueShown(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.Fields[3].RawValue = "approximately £200m"

	out, err := newTestRenderer(t).HTML(result)
	require.NoError(t, err)
	assert.Contains(t, string(out), "approximately £200m")
}

func TestWriteHTML_UnregisteredTemplate(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.TemplateID = "C_99_00"

	out, err := newTestRenderer(t).HTML(result)
	require.NoError(t, err)
	doc := string(out)
	assert.Contains(t, doc, "<h1>COREP C 99.00</h1>")
	assert.Contains(t, doc, "Amount (GBP)")
}

func TestAmountText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "£1,234.50",
		amountText(model.FieldRecord{Value: decimal.NullDecimal{Decimal: decimal.NewFromFloat(1234.5), Valid: true}}))
	assert.Equal(t, "about ten million", amountText(model.FieldRecord{RawValue: "about ten million"}))
	assert.Equal(t, "-", amountText(model.FieldRecord{}))
}
