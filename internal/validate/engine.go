// Package validate applies the C 01.00 completeness, range, type, and
// consistency checks to a populated template and classifies each cell.
// Findings are warnings carried on the result; the engine itself never fails
// on malformed field data.
package validate

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// Rule checks one aspect of a populated template.
type Rule interface {
	Name() model.RuleName
	Apply(tmpl *model.TemplateSpec, fields []model.FieldRecord) []model.ValidationWarning
}

// Options tune the engine's numeric thresholds.
type Options struct {
	// Epsilon is the tolerance for consistency identities. Differences at or
	// below it reconcile; above it they warn.
	Epsilon decimal.Decimal
	// UpperBound flags implausibly large amounts.
	UpperBound decimal.Decimal
}

// DefaultOptions returns the standard thresholds: a penny of tolerance and a
// one trillion pound plausibility ceiling.
func DefaultOptions() Options {
	return Options{
		Epsilon:    decimal.NewFromFloat(0.01),
		UpperBound: decimal.NewFromInt(1_000_000_000_000),
	}
}

// FromConfig converts raw config values to Options, keeping defaults for
// unset values.
func FromConfig(epsilon, upperBound float64) Options {
	opts := DefaultOptions()
	if epsilon > 0 {
		opts.Epsilon = decimal.NewFromFloat(epsilon)
	}
	if upperBound > 0 {
		opts.UpperBound = decimal.NewFromFloat(upperBound)
	}
	return opts
}

// Engine runs the validation rules in a fixed order.
type Engine struct {
	rules []Rule
}

// NewEngine builds the rule chain: mandatory fields, numeric range, data
// type, then the consistency identities.
func NewEngine(opts Options) *Engine {
	return &Engine{
		rules: []Rule{
			mandatoryRule{},
			rangeRule{upperBound: opts.UpperBound},
			typeRule{},
			consistencyRule{epsilon: opts.Epsilon},
		},
	}
}

// Validate applies every rule to the fields and returns the findings in
// rule-application order. It is a pure function of its inputs.
func (e *Engine) Validate(tmpl *model.TemplateSpec, fields []model.FieldRecord) []model.ValidationWarning {
	warnings := []model.ValidationWarning{}
	for _, rule := range e.rules {
		found := rule.Apply(tmpl, fields)
		if len(found) > 0 {
			zap.L().Debug("validation rule raised warnings",
				zap.String("rule", string(rule.Name())),
				zap.Int("count", len(found)))
		}
		warnings = append(warnings, found...)
	}
	return warnings
}

// Process validates the fields and classifies each record's status from the
// findings. The returned fields are the input slice with statuses assigned.
func (e *Engine) Process(tmpl *model.TemplateSpec, fields []model.FieldRecord) ([]model.FieldRecord, []model.ValidationWarning) {
	warnings := e.Validate(tmpl, fields)
	Classify(fields, warnings)
	return fields, warnings
}
