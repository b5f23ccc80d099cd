package validate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// mandatoryRule warns once per mandatory row that carries no value at all.
// A non-numeric raw value counts as present; the type rule deals with it.
type mandatoryRule struct{}

func (mandatoryRule) Name() model.RuleName { return model.RuleMandatoryMissing }

func (mandatoryRule) Apply(tmpl *model.TemplateSpec, fields []model.FieldRecord) []model.ValidationWarning {
	present := make(map[model.RowID]bool, len(fields))
	for _, f := range fields {
		if f.Value.Valid || f.RawValue != "" {
			present[f.Row] = true
		}
	}

	var warnings []model.ValidationWarning
	for _, row := range tmpl.MandatoryRows() {
		if present[row] {
			continue
		}
		spec := tmpl.ByRow(row)
		warnings = append(warnings, model.ValidationWarning{
			Row:     row,
			Rule:    model.RuleMandatoryMissing,
			Message: fmt.Sprintf("Mandatory row %s (%s) is not populated", row, spec.Metric),
		})
	}
	return warnings
}

// rangeRule flags negative amounts and amounts above the plausibility bound.
// Range findings are advisory and never change a cell's status.
type rangeRule struct {
	upperBound decimal.Decimal
}

func (rangeRule) Name() model.RuleName { return model.RuleNumericRange }

func (r rangeRule) Apply(tmpl *model.TemplateSpec, fields []model.FieldRecord) []model.ValidationWarning {
	var warnings []model.ValidationWarning
	for _, f := range fields {
		if !f.Value.Valid || tmpl.ByRow(f.Row) == nil {
			continue
		}
		v := f.Value.Decimal
		switch {
		case v.IsNegative():
			warnings = append(warnings, model.ValidationWarning{
				Row:     f.Row,
				Rule:    model.RuleNumericRange,
				Message: fmt.Sprintf("Row %s (%s) has negative value: %s", f.Row, f.MetricName, model.FormatGBP(v)),
			})
		case v.GreaterThan(r.upperBound):
			warnings = append(warnings, model.ValidationWarning{
				Row:     f.Row,
				Rule:    model.RuleNumericRange,
				Message: fmt.Sprintf("Row %s (%s) has unusually large value: %s", f.Row, f.MetricName, model.FormatGBP(v)),
			})
		}
	}
	return warnings
}

// typeRule flags rows whose reported value could not be read as a number.
type typeRule struct{}

func (typeRule) Name() model.RuleName { return model.RuleTypeMismatch }

func (typeRule) Apply(tmpl *model.TemplateSpec, fields []model.FieldRecord) []model.ValidationWarning {
	var warnings []model.ValidationWarning
	for _, f := range fields {
		if f.Value.Valid || f.RawValue == "" || tmpl.ByRow(f.Row) == nil {
			continue
		}
		warnings = append(warnings, model.ValidationWarning{
			Row:     f.Row,
			Rule:    model.RuleTypeMismatch,
			Message: fmt.Sprintf("Row %s (%s) should be numeric, got %q", f.Row, f.MetricName, f.RawValue),
		})
	}
	return warnings
}

// consistencyRule checks the template's arithmetic identities. An identity is
// only checked when its total and every operand carry numeric values; partial
// triples are skipped rather than guessed at.
type consistencyRule struct {
	epsilon decimal.Decimal
}

func (consistencyRule) Name() model.RuleName { return model.RuleConsistencyMismatch }

func (r consistencyRule) Apply(tmpl *model.TemplateSpec, fields []model.FieldRecord) []model.ValidationWarning {
	values := make(map[model.RowID]decimal.Decimal, len(fields))
	for _, f := range fields {
		if f.Value.Valid {
			values[f.Row] = f.Value.Decimal
		}
	}

	var warnings []model.ValidationWarning
	for _, id := range tmpl.Identities {
		total, ok := values[id.Total]
		if !ok {
			continue
		}
		sum := decimal.Zero
		complete := true
		for _, op := range id.Operands {
			v, ok := values[op]
			if !ok {
				complete = false
				break
			}
			sum = sum.Add(v)
		}
		if !complete {
			continue
		}
		if total.Sub(sum).Abs().GreaterThan(r.epsilon) {
			warnings = append(warnings, model.ValidationWarning{
				Row:  id.Total,
				Rule: model.RuleConsistencyMismatch,
				Message: fmt.Sprintf("%s: reported %s, components sum to %s",
					id.Label, model.FormatGBP(total), model.FormatGBP(sum)),
			})
		}
	}
	return warnings
}
