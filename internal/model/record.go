package model

import "github.com/shopspring/decimal"

// FieldStatus classifies a populated template cell after validation.
type FieldStatus string

const (
	StatusPopulated    FieldStatus = "populated"
	StatusMissing      FieldStatus = "missing"
	StatusInconsistent FieldStatus = "inconsistent"
)

// RuleName identifies the validation rule that produced a warning. The set is
// closed; warnings the model volunteers are audited separately and never
// merged into an AnalysisResult.
type RuleName string

const (
	RuleMandatoryMissing    RuleName = "mandatory_missing"
	RuleNumericRange        RuleName = "numeric_range"
	RuleTypeMismatch        RuleName = "type_mismatch"
	RuleConsistencyMismatch RuleName = "consistency_mismatch"
)

// FieldRecord is one populated cell of the template. Value is null when the
// scenario did not determine an amount; RawValue preserves the original token
// when it could not be read as a number. Records are immutable once classified.
type FieldRecord struct {
	Row              RowID               `json:"row"`
	Column           string              `json:"column"`
	MetricName       string              `json:"metric_name"`
	Value            decimal.NullDecimal `json:"value"`
	RawValue         string              `json:"raw_value,omitempty"`
	Currency         string              `json:"currency"`
	Status           FieldStatus         `json:"status"`
	Justification    string              `json:"justification"`
	SourceParagraphs []string            `json:"source_paragraphs"`
}

// Populated reports whether the record carries a usable numeric value.
func (f FieldRecord) Populated() bool {
	return f.Value.Valid
}

// ValidationWarning is a single finding from the validation engine. Row is
// empty for template-level findings. Warnings are advisory data, not errors.
type ValidationWarning struct {
	Row     RowID    `json:"row,omitempty"`
	Rule    RuleName `json:"rule"`
	Message string   `json:"message"`
}

// AnalysisResult is the populated template plus its validation findings.
// Fields appear in template row order with unique row IDs; warnings appear in
// rule-application order.
type AnalysisResult struct {
	TemplateID string              `json:"template"`
	Fields     []FieldRecord       `json:"fields"`
	Warnings   []ValidationWarning `json:"validation_warnings"`
}

// Field returns the record for the given row, or nil if absent.
func (r *AnalysisResult) Field(row RowID) *FieldRecord {
	for i := range r.Fields {
		if r.Fields[i].Row == row {
			return &r.Fields[i]
		}
	}
	return nil
}

// WarningsFor returns the warnings attached to the given row.
func (r *AnalysisResult) WarningsFor(row RowID) []ValidationWarning {
	var out []ValidationWarning
	for _, w := range r.Warnings {
		if w.Row == row {
			out = append(out, w)
		}
	}
	return out
}
