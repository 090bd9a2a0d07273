package aggregate

import (
	"fmt"
	"strings"
)

// KeyDelimiter separates the fields of a composite key inside a token.
const KeyDelimiter = ","

// Mode selects what a job counts: plain occurrence counts, or
// active/inactive splits derived from a baseline total carried in the key.
type Mode string

const (
	ModeCount  Mode = "count"
	ModeActive Mode = "active"
)

// Dimension is the grouping axis of a job.
type Dimension string

const (
	DimensionAll    Dimension = "all"
	DimensionPerOrg Dimension = "per-org"
	DimensionPerApp Dimension = "per-app"
)

// ParseDimension validates a dimension flag as passed on the command line.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(s); d {
	case DimensionAll, DimensionPerOrg, DimensionPerApp:
		return d, nil
	default:
		return "", fmt.Errorf("unknown aggregation dimension %q: want all|per-org|per-app", s)
	}
}

// Period is the time window a job aggregates over.
type Period string

const (
	PeriodAllTime Period = "alltime"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod validates a period flag as passed on the command line.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodAllTime, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q: want alltime|weekly|monthly|yearly", s)
	}
}

// Schema describes the composite-key layout of one job variant. All combiner
// and reducer behavior differences between variants are captured here; the
// algorithms themselves are shared.
type Schema struct {
	Mode      Mode
	Dimension Dimension

	// TokenFields is the exact field count of a raw token, entity id included.
	TokenFields int

	// KeyFields is the number of leading token fields forming the grouping key.
	// Always TokenFields-1: the trailing entity id only contributes a count.
	KeyFields int

	// HasBaseline marks the last key field as a previously known total,
	// consumed by the reducer to derive the inactive count.
	HasBaseline bool
}

// SchemaFor returns the key schema for a (mode, dimension) pair.
func SchemaFor(mode Mode, dim Dimension) (Schema, error) {
	s := Schema{Mode: mode, Dimension: dim}
	switch mode {
	case ModeCount:
		s.HasBaseline = false
		if dim == DimensionAll {
			// "{period},{entityId}"
			s.TokenFields = 2
		} else {
			// "{period},{orgOrAppId},{entityId}"
			s.TokenFields = 3
		}
	case ModeActive:
		s.HasBaseline = true
		if dim == DimensionAll {
			// "{period},{baselineTotal},{entityId}"
			s.TokenFields = 3
		} else {
			// "{period},{orgOrAppId},{baselineTotal},{entityId}"
			s.TokenFields = 4
		}
	default:
		return Schema{}, fmt.Errorf("unknown aggregation mode %q: want count|active", mode)
	}
	if _, err := ParseDimension(string(dim)); err != nil {
		return Schema{}, err
	}
	s.KeyFields = s.TokenFields - 1
	return s, nil
}

// ParseToken splits a raw token into its composite key and entity id.
// The field count must match the schema exactly, anything else is a
// *MalformedTokenError.
func (s Schema) ParseToken(raw string) (key string, entityID string, err error) {
	fields := strings.Split(raw, KeyDelimiter)
	if len(fields) != s.TokenFields {
		return "", "", &MalformedTokenError{Token: raw, Want: s.TokenFields, Got: len(fields)}
	}
	return strings.Join(fields[:s.KeyFields], KeyDelimiter), fields[s.KeyFields], nil
}

// splitKey breaks a grouping key back into its fields. The key was produced
// by ParseToken, so a wrong field count means corrupted intermediate data.
func (s Schema) splitKey(key string) ([]string, error) {
	fields := strings.Split(key, KeyDelimiter)
	if len(fields) != s.KeyFields {
		return nil, fmt.Errorf("corrupt grouping key %q: want %d fields, got %d", key, s.KeyFields, len(fields))
	}
	return fields, nil
}
