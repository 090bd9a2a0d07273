package aggregate

import (
	"strconv"
	"strings"
)

// Record is the reducer's output for one key. Count carries the plain total;
// Active/Inactive/Baseline are only meaningful when HasBaseline is set.
type Record struct {
	Key         string
	Count       int
	Active      int
	Inactive    int
	Baseline    int
	HasBaseline bool
}

// Reducer sums the grouped partial counts for one key and derives the
// variant's secondary metrics. Distinct keys reduce independently, so
// instances are safe to use from many goroutines at once.
type Reducer struct {
	schema Schema
}

func NewReducer(schema Schema) Reducer {
	return Reducer{schema: schema}
}

// Reduce consumes every partial count grouped under key and produces the
// final record. For baseline-carrying schemas the baseline field is dropped
// from the key and moved into the value, and the inactive count is derived
// by subtraction; an observed count above the baseline is surfaced as a
// *NegativeDerivedMetricError instead of emitting a negative value.
func (r Reducer) Reduce(key string, counts []int) (Record, error) {
	observed := 0
	for _, c := range counts {
		observed += c
	}

	if !r.schema.HasBaseline {
		return Record{Key: key, Count: observed}, nil
	}

	fields, err := r.schema.splitKey(key)
	if err != nil {
		return Record{}, err
	}
	rawBaseline := fields[len(fields)-1]
	baseline, err := strconv.Atoi(rawBaseline)
	if err != nil {
		return Record{}, &InvalidBaselineError{Key: key, Baseline: rawBaseline}
	}

	inactive := baseline - observed
	if inactive < 0 {
		return Record{}, &NegativeDerivedMetricError{Key: key, Observed: observed, Baseline: baseline}
	}

	return Record{
		Key:         strings.Join(fields[:len(fields)-1], KeyDelimiter),
		Active:      observed,
		Inactive:    inactive,
		Baseline:    baseline,
		HasBaseline: true,
	}, nil
}
