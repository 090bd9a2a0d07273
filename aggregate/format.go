package aggregate

import "fmt"

// FormatRow renders one aggregated record as a final output row.
//
// Baseline-carrying: "{key}\t{active},{inactive}\t{baseline}"
// Plain:             "{key}\t{count}"
func FormatRow(rec Record) string {
	if rec.HasBaseline {
		return fmt.Sprintf("%s\t%d,%d\t%d", rec.Key, rec.Active, rec.Inactive, rec.Baseline)
	}
	return fmt.Sprintf("%s\t%d", rec.Key, rec.Count)
}
