package model

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TemplateC0100 is the template code for COREP C 01.00 (Own Funds).
const TemplateC0100 = "C_01_00"

// TemplateLabel renders a template code for prose: C_01_00 becomes C 01.00.
func TemplateLabel(id string) string {
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 {
		return id
	}
	return parts[0] + " " + strings.ReplaceAll(parts[1], "_", ".")
}

//go:embed templates/corep_c01.yaml
var defaultTemplates []byte

// RowSpec declares one row of a template.
type RowSpec struct {
	Row       RowID  `yaml:"row" json:"row"`
	Metric    string `yaml:"metric" json:"metric"`
	Mandatory bool   `yaml:"mandatory" json:"mandatory"`
}

// Identity declares an arithmetic identity the populated template must
// satisfy: the total row equals the sum of the operand rows.
type Identity struct {
	Label    string  `yaml:"label" json:"label"`
	Total    RowID   `yaml:"total" json:"total"`
	Operands []RowID `yaml:"operands" json:"operands"`
}

// TemplateSpec is the full definition of one reporting template.
type TemplateSpec struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name" json:"name"`
	Currency   string     `yaml:"currency" json:"currency"`
	Rows       []RowSpec  `yaml:"rows" json:"rows"`
	Identities []Identity `yaml:"identities" json:"identities"`

	byRow map[RowID]*RowSpec
}

// ByRow returns the row spec for the given row code, or nil if the template
// has no such row.
func (t *TemplateSpec) ByRow(row RowID) *RowSpec {
	return t.byRow[row]
}

// MandatoryRows returns the template's mandatory row codes in template order.
func (t *TemplateSpec) MandatoryRows() []RowID {
	var out []RowID
	for _, r := range t.Rows {
		if r.Mandatory {
			out = append(out, r.Row)
		}
	}
	return out
}

// RowOrder returns all row codes in template order.
func (t *TemplateSpec) RowOrder() []RowID {
	out := make([]RowID, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Row
	}
	return out
}

func (t *TemplateSpec) index() error {
	t.byRow = make(map[RowID]*RowSpec, len(t.Rows))
	for i := range t.Rows {
		r := &t.Rows[i]
		if _, dup := t.byRow[r.Row]; dup {
			return eris.Errorf("model: template %s declares row %s twice", t.ID, r.Row)
		}
		t.byRow[r.Row] = r
	}
	for _, id := range t.Identities {
		if t.byRow[id.Total] == nil {
			return eris.Errorf("model: template %s identity references unknown total row %s", t.ID, id.Total)
		}
		for _, op := range id.Operands {
			if t.byRow[op] == nil {
				return eris.Errorf("model: template %s identity references unknown operand row %s", t.ID, op)
			}
		}
	}
	return nil
}

// TemplateRegistry is an indexed collection of template definitions.
type TemplateRegistry struct {
	Templates []TemplateSpec
	byID      map[string]*TemplateSpec
}

// NewTemplateRegistry indexes the given templates and validates their
// internal references.
func NewTemplateRegistry(templates []TemplateSpec) (*TemplateRegistry, error) {
	r := &TemplateRegistry{
		Templates: templates,
		byID:      make(map[string]*TemplateSpec, len(templates)),
	}
	for i := range r.Templates {
		t := &r.Templates[i]
		if err := t.index(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, eris.Errorf("model: duplicate template id %s", t.ID)
		}
		r.byID[t.ID] = t
	}
	return r, nil
}

// ByID returns the template with the given code, or nil if not registered.
func (r *TemplateRegistry) ByID(id string) *TemplateSpec {
	return r.byID[id]
}

// DefaultTemplateRegistry returns the registry built from the embedded
// template definitions (currently C 01.00 only).
func DefaultTemplateRegistry() (*TemplateRegistry, error) {
	return parseTemplates(defaultTemplates)
}

// LoadTemplateRegistry reads template definitions from a YAML file, for
// overriding or extending the embedded set.
func LoadTemplateRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read template file %s", path)
	}
	return parseTemplates(data)
}

func parseTemplates(data []byte) (*TemplateRegistry, error) {
	var wrapper struct {
		Templates []TemplateSpec `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "model: parse template definitions")
	}
	if len(wrapper.Templates) == 0 {
		return nil, eris.New("model: template file declares no templates")
	}
	return NewTemplateRegistry(wrapper.Templates)
}
