package aggregate

import "fmt"

// MalformedTokenError reports an input token whose field count does not match
// the active schema.
type MalformedTokenError struct {
	Token string
	Want  int
	Got   int
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed token %q: want %d fields, got %d", e.Token, e.Want, e.Got)
}

// InvalidBaselineError reports a baseline key field that is not a parseable
// integer.
type InvalidBaselineError struct {
	Key      string
	Baseline string
}

func (e *InvalidBaselineError) Error() string {
	return fmt.Sprintf("invalid baseline %q in key %q", e.Baseline, e.Key)
}

// NegativeDerivedMetricError reports an observed count that exceeds the known
// baseline, which would make the derived inactive count negative.
type NegativeDerivedMetricError struct {
	Key      string
	Observed int
	Baseline int
}

func (e *NegativeDerivedMetricError) Error() string {
	return fmt.Sprintf("observed count %d exceeds baseline %d for key %q", e.Observed, e.Baseline, e.Key)
}
