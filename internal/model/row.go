// Package model defines the COREP template domain types shared across the
// retrieval, analysis, validation, and rendering packages.
package model

// RowID identifies a row of the C 01.00 Own Funds template. Row codes are a
// closed set defined by the template, not free-form strings.
type RowID string

const (
	RowCET1          RowID = "010" // Common Equity Tier 1 capital
	RowAT1           RowID = "020" // Additional Tier 1 capital
	RowTier1         RowID = "030" // Tier 1 capital (010 + 020)
	RowTier2         RowID = "040" // Tier 2 capital
	RowTotalOwnFunds RowID = "050" // Total own funds (030 + 040)
)

// ColumnAmount is the single reported column of C 01.00.
const ColumnAmount = "010"

// Rows returns the C 01.00 row codes in template order.
func Rows() []RowID {
	return []RowID{RowCET1, RowAT1, RowTier1, RowTier2, RowTotalOwnFunds}
}

// ParseRowID validates a row code against the known template rows.
func ParseRowID(s string) (RowID, bool) {
	switch RowID(s) {
	case RowCET1, RowAT1, RowTier1, RowTier2, RowTotalOwnFunds:
		return RowID(s), true
	}
	return "", false
}
