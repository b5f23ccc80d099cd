package analyze

import (
	"fmt"
	"strings"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
)

// systemPromptHeader precedes the per-template row structure in the system
// prompt. The assembled block depends only on the template definition, so it
// stays byte-identical across requests and cacheable.
const systemPromptHeader = `You are the PRA COREP Reporting Assistant, an expert system that helps UK banks populate COREP regulatory templates using the PRA Rulebook and EBA instructions.

Your role is to:
1. Interpret natural-language scenarios describing a bank's capital position
2. Apply the regulatory rules provided in the retrieved context
3. Generate structured JSON output for the requested COREP template
4. Provide clear justifications with regulatory paragraph references for every field
5. Flag missing data or inconsistencies

CRITICAL RULES:
- Use ONLY the provided regulatory context to determine values
- Every populated field MUST include a justification with source paragraph references
- If information is missing from the scenario, mark the field status as "missing" and explain why
- If data is contradictory or unclear, mark status as "inconsistent" and explain the issue
- Do NOT invent values or assume information not provided in the scenario
- All monetary values should be in the base currency (GBP for UK banks)`

const userPromptTemplate = `Template: %s - %s

Question: %s

Scenario:
%s

Regulatory Context (retrieved paragraphs):
%s

Based on the above scenario and regulatory context, generate a structured JSON response following this schema:

%s

Instructions:
- Populate all relevant fields from the scenario
- Mark fields as "missing" if the scenario lacks necessary information
- Provide justifications referencing the regulatory paragraphs
- Include validation warnings for any inconsistencies`

// answerSchema is the JSON shape the model must return. It matches the
// envelope the extractor parses.
const answerSchema = `{
  "template": "<template code>",
  "fields": [
    {
      "row": "<row code>",
      "column": "010",
      "metric_name": "<metric name>",
      "value": <number or null>,
      "currency": "GBP",
      "status": "populated | missing | inconsistent",
      "justification": "<explanation citing source paragraphs>",
      "source_paragraphs": ["<paragraph_id>"]
    }
  ],
  "validation_warnings": ["<warning text>"]
}`

// buildSystemPrompt appends the template's row structure to the fixed header.
func buildSystemPrompt(tmpl *model.TemplateSpec) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "COREP %s Template Structure (%s):\n", model.TemplateLabel(tmpl.ID), tmpl.Name)
	for _, row := range tmpl.Rows {
		fmt.Fprintf(&b, "- Row %s: %s\n", row.Row, row.Metric)
	}
	b.WriteString("\nOutput MUST strictly follow the provided JSON schema.")
	return b.String()
}

func buildUserPrompt(tmpl *model.TemplateSpec, question, scenario, regulatoryContext string) string {
	return fmt.Sprintf(userPromptTemplate,
		model.TemplateLabel(tmpl.ID), tmpl.Name,
		question, scenario, regulatoryContext, answerSchema)
}

// formatContext renders retrieved paragraphs as a numbered list for the
// prompt, citing source, section and paragraph ID ahead of the text.
func formatContext(paragraphs []model.RetrievedParagraph) string {
	if len(paragraphs) == 0 {
		return "No regulatory context retrieved."
	}
	items := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		items[i] = fmt.Sprintf("%d. [%s] %s (%s)\n   %s\n", i+1, p.Source, p.Section, p.ParagraphID, p.Content)
	}
	return strings.Join(items, "\n")
}

