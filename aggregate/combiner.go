package aggregate

import "sort"

// Partial is a worker-local pre-aggregated occurrence count for one key.
type Partial struct {
	Key   string
	Count int
}

// Combiner folds a stream of tokens into one partial count per distinct key.
// Each instance exclusively owns its table; run one per input partition and
// never share instances across goroutines. Memory is bounded by the number
// of distinct keys in the partition, not by its record count.
type Combiner struct {
	schema Schema
	table  map[string]int
}

func NewCombiner(schema Schema) *Combiner {
	return &Combiner{
		schema: schema,
		table:  make(map[string]int),
	}
}

// Add decodes one token and increments its key's count.
func (c *Combiner) Add(token string) error {
	key, _, err := c.schema.ParseToken(token)
	if err != nil {
		return err
	}
	c.table[key]++
	return nil
}

// Len reports the number of distinct keys currently held.
func (c *Combiner) Len() int {
	return len(c.table)
}

// Flush emits every (key, count) pair held in the table, sorted by key, then
// clears the table for the next batch. Re-running the same partition through
// a fresh combiner yields identical partials, which keeps worker re-execution
// safe.
func (c *Combiner) Flush() []Partial {
	out := make([]Partial, 0, len(c.table))
	for key, count := range c.table {
		out = append(out, Partial{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	c.table = make(map[string]int)
	return out
}
