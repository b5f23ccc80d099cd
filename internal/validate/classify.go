package validate

import "github.com/fenchurch-labs/corep-assistant/internal/model"

// Classify assigns each record's status in place from its value and the
// warnings that reference its row:
//
//	missing       no value of any kind was reported
//	inconsistent  a value was reported but a consistency or type finding
//	              references the row
//	populated     everything else
//
// Missing always wins; range findings never demote a cell. Classification is
// a pure function of the record and the warning list, so re-running it over
// the same inputs is a no-op.
func Classify(fields []model.FieldRecord, warnings []model.ValidationWarning) {
	demoted := make(map[model.RowID]bool)
	for _, w := range warnings {
		if w.Rule == model.RuleConsistencyMismatch || w.Rule == model.RuleTypeMismatch {
			demoted[w.Row] = true
		}
	}

	for i := range fields {
		f := &fields[i]
		switch {
		case !f.Value.Valid && f.RawValue == "":
			f.Status = model.StatusMissing
		case demoted[f.Row]:
			f.Status = model.StatusInconsistent
		default:
			f.Status = model.StatusPopulated
		}
	}
}
