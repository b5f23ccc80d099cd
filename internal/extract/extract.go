// Package extract normalizes the LLM's structured answer into template field
// records. It is deliberately forgiving about presentation (code fences,
// stray prose, string-typed numbers) and strict about shape: output that
// cannot be read as the expected envelope is an error, never a guess.
package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// ErrUnparseable marks model output that could not be read as the expected
// JSON envelope. Callers decide whether to retry; no partial result is ever
// produced alongside it.
var ErrUnparseable = eris.New("extract: unparseable model output")

// Output is the normalized model answer: one record per template row in
// template order, plus any free-text warnings the model volunteered. Model
// warnings are audit context only; the validation engine produces the
// authoritative findings.
type Output struct {
	TemplateID    string
	Fields        []model.FieldRecord
	ModelWarnings []string
}

type rawEnvelope struct {
	Template string     `json:"template"`
	Fields   []rawField `json:"fields"`
	Warnings []string   `json:"validation_warnings"`
}

type rawField struct {
	Row              string   `json:"row"`
	Column           string   `json:"column"`
	MetricName       string   `json:"metric_name"`
	Value            any      `json:"value"`
	Currency         string   `json:"currency"`
	Status           string   `json:"status"`
	Justification    string   `json:"justification"`
	SourceParagraphs []string `json:"source_paragraphs"`
}

// Parse reads the model's answer text and returns a record for every row the
// template declares, in template order. Rows the model omitted come back with
// a null value; rows the template does not declare are dropped with a log
// line. The model's own status field is ignored, classification happens after
// validation.
func Parse(text string, tmpl *model.TemplateSpec) (*Output, error) {
	cleaned := cleanJSON(text)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, eris.Wrap(ErrUnparseable, "no JSON object in answer")
	}

	// json.Number keeps monetary literals exact; a float64 detour could
	// perturb amounts right at the consistency epsilon.
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()

	var envelope rawEnvelope
	if err := dec.Decode(&envelope); err != nil {
		zap.L().Warn("extract: answer is not valid JSON", zap.Error(err))
		return nil, eris.Wrap(ErrUnparseable, err.Error())
	}

	if envelope.Template != "" && envelope.Template != tmpl.ID {
		zap.L().Warn("extract: answer names a different template",
			zap.String("requested", tmpl.ID),
			zap.String("answered", envelope.Template))
	}

	parsed := make(map[model.RowID]model.FieldRecord, len(envelope.Fields))
	for _, rf := range envelope.Fields {
		row := model.RowID(strings.TrimSpace(rf.Row))
		spec := tmpl.ByRow(row)
		if spec == nil {
			zap.L().Warn("extract: dropping unknown row", zap.String("row", rf.Row))
			continue
		}
		if _, dup := parsed[row]; dup {
			zap.L().Warn("extract: dropping duplicate row", zap.String("row", string(row)))
			continue
		}

		value, raw := coerceDecimal(rf.Value)
		record := model.FieldRecord{
			Row:              row,
			Column:           rf.Column,
			MetricName:       rf.MetricName,
			Value:            value,
			RawValue:         raw,
			Currency:         rf.Currency,
			Justification:    strings.TrimSpace(rf.Justification),
			SourceParagraphs: rf.SourceParagraphs,
		}
		if record.Column == "" {
			record.Column = model.ColumnAmount
		}
		if record.MetricName == "" {
			record.MetricName = spec.Metric
		}
		if record.Currency == "" {
			record.Currency = tmpl.Currency
		}
		parsed[row] = record
	}

	// Cover every template row: absent rows become null records so the
	// mandatory rule sees the full picture.
	fields := make([]model.FieldRecord, 0, len(tmpl.Rows))
	for _, spec := range tmpl.Rows {
		if record, ok := parsed[spec.Row]; ok {
			fields = append(fields, record)
			continue
		}
		fields = append(fields, model.FieldRecord{
			Row:        spec.Row,
			Column:     model.ColumnAmount,
			MetricName: spec.Metric,
			Currency:   tmpl.Currency,
		})
	}

	return &Output{
		TemplateID:    tmpl.ID,
		Fields:        fields,
		ModelWarnings: envelope.Warnings,
	}, nil
}

// coerceDecimal reads a JSON value as a monetary amount. Numbers and numeric
// strings (with optional currency sign and digit grouping) become decimals;
// anything else is kept verbatim for the type rule to flag.
func coerceDecimal(v any) (decimal.NullDecimal, string) {
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}, ""
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.NullDecimal{}, n.String()
		}
		return decimal.NullDecimal{Decimal: d, Valid: true}, ""
	case float64:
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(n), Valid: true}, ""
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return decimal.NullDecimal{}, ""
		}
		normalized := strings.ReplaceAll(trimmed, ",", "")
		normalized = strings.TrimPrefix(normalized, "£")
		if d, err := decimal.NewFromString(normalized); err == nil {
			return decimal.NullDecimal{Decimal: d, Valid: true}, ""
		}
		return decimal.NullDecimal{}, trimmed
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return decimal.NullDecimal{}, "unrepresentable value"
		}
		return decimal.NullDecimal{}, string(raw)
	}
}

// cleanJSON strips markdown code fences and leading/trailing prose so the
// payload can be unmarshaled directly.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	// Find first { and last } to extract the JSON object.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return s
}
